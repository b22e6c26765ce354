package styletakeout

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nettybun/styletakeout/internal/source"
	"github.com/nettybun/styletakeout/internal/takeout"
)

// Issue represents a single build failure in golangci-lint format
type Issue struct {
	FromLinter  string   `json:"FromLinter"`  // "styletakeout"
	Text        string   `json:"Text"`        // "css: undefined binding: size"
	Severity    string   `json:"Severity"`    // "", "warning", "error"
	SourceLines []string `json:"SourceLines"` // Lines of code with issue
	Pos         IssuePos `json:"Pos"`         // File location
}

// IssuePos specifies the exact location of an issue
type IssuePos struct {
	Filename string `json:"Filename"` // "src/components/button/index.tsx"
	Line     int    `json:"Line"`     // 12 (0 when the failure has no position)
	Column   int    `json:"Column"`   // 7 (1-based)
}

// IssueSeverity constants
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = ""
)

// LinterName is reported as the origin of every issue
const LinterName = "styletakeout"

// NewIssue converts a per-file failure into an issue. Extraction and syntax
// errors carry their own position; anything else is pinned to the file.
func NewIssue(file string, src []byte, err error) Issue {
	issue := Issue{
		FromLinter: LinterName,
		Text:       err.Error(),
		Severity:   SeverityError,
		Pos:        IssuePos{Filename: file},
	}

	var siteErr *takeout.SiteError
	var syntaxErr *source.SyntaxError
	switch {
	case errors.As(err, &siteErr):
		issue.Text = fmt.Sprintf("%s: %v", siteErr.Kind, siteErr.Err)
		issue.Pos.Line = siteErr.Loc.Line
		issue.Pos.Column = siteErr.Loc.Column + 1
	case errors.As(err, &syntaxErr):
		issue.Text = source.ErrSyntax.Error()
		issue.Pos.Line = syntaxErr.Line
		issue.Pos.Column = syntaxErr.Column + 1
	}

	if line, ok := sourceLine(src, issue.Pos.Line); ok {
		issue.SourceLines = []string{line}
	}
	return issue
}

// sourceLine returns the 1-based line n of src
func sourceLine(src []byte, n int) (string, bool) {
	if n <= 0 || len(src) == 0 {
		return "", false
	}
	for i := 1; i < n; i++ {
		idx := bytes.IndexByte(src, '\n')
		if idx < 0 {
			return "", false
		}
		src = src[idx+1:]
	}
	if idx := bytes.IndexByte(src, '\n'); idx >= 0 {
		src = src[:idx]
	}
	return string(bytes.TrimRight(src, "\r")), true
}
