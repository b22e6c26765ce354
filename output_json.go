package styletakeout

import (
	"encoding/json"
	"io"
	"time"
)

// JSONOutput represents the structured JSON export schema
type JSONOutput struct {
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Summary   JSONSummary     `json:"summary"`
	Flush     JSONFlush       `json:"flush"`
	Files     []JSONFile      `json:"files"`
	Names     []JSONShortName `json:"short_names"`
	Issues    []JSONIssue     `json:"issues"`
}

// JSONSummary contains high-level counts
type JSONSummary struct {
	FilesDiscovered int   `json:"files_discovered"`
	FilesScanned    int   `json:"files_scanned"`
	FilesSkipped    int   `json:"files_skipped"`
	Sites           int   `json:"sites"`
	Errors          int   `json:"errors"`
	DurationMS      int64 `json:"duration_ms"`
}

// JSONFlush describes the stylesheet write
type JSONFlush struct {
	OutputFile  string `json:"output_file"`
	SidecarFile string `json:"sidecar_file"`
	Updated     int    `json:"updated"`
	Total       int    `json:"total"`
	Wrote       bool   `json:"wrote"`
}

// JSONFile is one processed source file
type JSONFile struct {
	Path   string `json:"path"`
	Sites  int    `json:"sites"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
}

// JSONShortName is one short name assignment
type JSONShortName struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// JSONIssue represents a single build issue
type JSONIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Linter   string `json:"linter"`
	Source   string `json:"source,omitempty"` // Optional source line
}

// WriteJSON writes the build result as JSON
func WriteJSON(w io.Writer, result *BuildResult) error {
	output := buildJSONOutput(result)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildJSONOutput converts BuildResult to JSONOutput
func buildJSONOutput(result *BuildResult) JSONOutput {
	files := make([]JSONFile, len(result.Files))
	for i, file := range result.Files {
		files[i] = JSONFile{
			Path:   file.Path,
			Sites:  file.Sites,
			Status: fileStatus(file),
			Output: file.OutputPath,
		}
	}

	names := make([]JSONShortName, len(result.ShortNames))
	for i, entry := range result.ShortNames {
		names[i] = JSONShortName{Name: entry.Name, Path: entry.Path}
	}

	issues := make([]JSONIssue, len(result.Issues))
	for i, issue := range result.Issues {
		source := ""
		if len(issue.SourceLines) > 0 {
			source = issue.SourceLines[0]
		}
		issues[i] = JSONIssue{
			File:     issue.Pos.Filename,
			Line:     issue.Pos.Line,
			Column:   issue.Pos.Column,
			Severity: issue.Severity,
			Message:  issue.Text,
			Linter:   issue.FromLinter,
			Source:   source,
		}
	}

	return JSONOutput{
		Version:   "1.0",
		Timestamp: time.Now().Format(time.RFC3339),
		Summary: JSONSummary{
			FilesDiscovered: result.FilesDiscovered,
			FilesScanned:    result.FilesScanned,
			FilesSkipped:    result.FilesSkipped,
			Sites:           result.Sites,
			Errors:          result.ErrorCount(),
			DurationMS:      result.Duration.Milliseconds(),
		},
		Flush: JSONFlush{
			OutputFile:  result.Flush.OutputFile,
			SidecarFile: result.Flush.SidecarFile,
			Updated:     result.Flush.Updated,
			Total:       result.Flush.Total,
			Wrote:       result.Flush.Wrote,
		},
		Files:  files,
		Names:  names,
		Issues: issues,
	}
}
