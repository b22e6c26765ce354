package styletakeout

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nettybun/styletakeout/internal/takeout"
)

// ReporterConfig controls console output
type ReporterConfig struct {
	Quiet           bool // Suppress flush messages
	UseColors       bool // Force colors
	PrintLines      bool // Show source lines with issues
	PrintLinterName bool // Show (styletakeout) suffix
}

// Reporter handles formatting and outputting build results
type Reporter struct {
	w               io.Writer
	quiet           bool
	useColors       bool
	printLines      bool
	printLinterName bool
}

// NewReporter creates a new reporter with the given configuration
func NewReporter(w io.Writer, config ReporterConfig) *Reporter {
	return &Reporter{
		w:               w,
		quiet:           config.Quiet,
		useColors:       shouldUseColors(config.UseColors),
		printLines:      config.PrintLines,
		printLinterName: config.PrintLinterName,
	}
}

// shouldUseColors determines if colors should be enabled
func shouldUseColors(force bool) bool {
	// Explicit flag wins
	if force {
		return true
	}

	// NO_COLOR opts out everywhere
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Check for FORCE_COLOR environment variable (GitHub Actions, etc.)
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	// GitHub Actions supports colors
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}

	// Auto-detect TTY
	if fileInfo, err := os.Stdout.Stat(); err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		return true
	}

	return false
}

// UseColors returns whether colors are enabled
func (r *Reporter) UseColors() bool {
	return r.useColors
}

// PrintFlush reports a flush the way the build always has: the first flush
// announces the destination, later ones how much changed
func (r *Reporter) PrintFlush(result takeout.FlushResult) {
	if r.quiet {
		return
	}

	var msg string
	if result.First {
		msg = fmt.Sprintf("Moved %d CSS snippets to '%s' with styletakeout", result.Total, result.OutputFile)
	} else {
		msg = fmt.Sprintf("Updated %d of %d CSS snippets", result.Updated, result.Total)
	}
	fmt.Fprintln(r.w, RenderStyle(StyleGreen, msg, r.useColors))
}

// PrintIssues outputs issues in golangci-lint format
func (r *Reporter) PrintIssues(issues []Issue) {
	// Sort issues by file, then line, then column
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Pos.Filename != issues[j].Pos.Filename {
			return issues[i].Pos.Filename < issues[j].Pos.Filename
		}
		if issues[i].Pos.Line != issues[j].Pos.Line {
			return issues[i].Pos.Line < issues[j].Pos.Line
		}
		return issues[i].Pos.Column < issues[j].Pos.Column
	})

	for _, issue := range issues {
		r.printIssue(issue)
	}
}

// printIssue formats a single issue in golangci-lint style
func (r *Reporter) printIssue(issue Issue) {
	// Format: file:line:col: message (linter)
	location := issue.Pos.Filename + ":"
	if issue.Pos.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d:", issue.Pos.Filename, issue.Pos.Line, issue.Pos.Column)
	}

	linterSuffix := ""
	if r.printLinterName {
		linterSuffix = fmt.Sprintf(" (%s)", issue.FromLinter)
	}

	fmt.Fprintf(r.w, "%s %s%s\n",
		RenderStyle(StyleCyan, location, r.useColors),
		issue.Text,
		RenderStyle(StyleGray, linterSuffix, r.useColors))

	// Print source lines with caret indicator
	if r.printLines && len(issue.SourceLines) > 0 {
		for _, line := range issue.SourceLines {
			fmt.Fprintf(r.w, "\t%s\n", line)
		}

		caret := r.buildCaretIndicator(issue.SourceLines[0], issue.Pos.Column)
		fmt.Fprintf(r.w, "\t%s\n", RenderStyle(StyleYellow, caret, r.useColors))
	}
}

// buildCaretIndicator creates the "^" indicator aligned with the column.
// Tabs in the prefix are kept so the caret lines up in any tab width.
func (r *Reporter) buildCaretIndicator(sourceLine string, column int) string {
	if column <= 0 {
		return "^"
	}

	prefixLen := column - 1
	if prefixLen > len(sourceLine) {
		prefixLen = len(sourceLine)
	}

	var padding strings.Builder
	for _, ch := range sourceLine[:prefixLen] {
		if ch == '\t' {
			padding.WriteRune('\t')
		} else {
			padding.WriteRune(' ')
		}
	}

	return padding.String() + "^"
}

// PrintSummary outputs the issue count line after a failed build
func (r *Reporter) PrintSummary(result BuildResult) {
	if len(result.Issues) == 0 {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintf(r.w, "%s in %s:\n",
		pluralizeCount(len(result.Issues), "issue", "issues"),
		pluralizeCount(countFiles(result.Issues), "file", "files"))
	fmt.Fprintln(r.w, RenderStyle(StyleRed, "Extraction failed; affected files were left unchanged", r.useColors))
}

// countFiles counts distinct files among issues
func countFiles(issues []Issue) int {
	seen := make(map[string]bool)
	for _, issue := range issues {
		seen[issue.Pos.Filename] = true
	}
	return len(seen)
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
