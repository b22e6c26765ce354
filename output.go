package styletakeout

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/nettybun/styletakeout/internal/takeout"
)

// OutputFormat selects how build results are printed
type OutputFormat string

// Output formats
const (
	OutputIssues  OutputFormat = "issues"  // Flush message and issues (default)
	OutputSummary OutputFormat = "summary" // Adds a per-file table
	OutputJSON    OutputFormat = "json"    // Machine-readable
)

// DetermineOutputFormat selects the appropriate output format based on flags
func DetermineOutputFormat(formatFlag string, quiet bool) OutputFormat {
	// Explicit -quiet flag wins (exit code only)
	if quiet {
		return OutputIssues
	}

	switch OutputFormat(formatFlag) {
	case OutputIssues, OutputSummary, OutputJSON:
		return OutputFormat(formatFlag)
	}
	return OutputIssues
}

// WriteOutput writes the build result in the specified format
func WriteOutput(w io.Writer, result *BuildResult, format OutputFormat, config ReporterConfig) {
	switch format {
	case OutputJSON:
		if err := WriteJSON(w, result); err != nil {
			os.Stderr.WriteString("Error writing JSON: " + err.Error() + "\n")
		}

	case OutputSummary:
		reporter := NewReporter(w, config)
		reporter.PrintIssues(result.Issues)
		reporter.PrintFlush(result.Flush)
		if !config.Quiet {
			fmt.Fprint(w, renderFileTable(result))
		}
		reporter.PrintSummary(*result)

	default:
		reporter := NewReporter(w, config)
		reporter.PrintIssues(result.Issues)
		reporter.PrintFlush(result.Flush)
		reporter.PrintSummary(*result)
	}
}

// renderFileTable lists every processed file with its site count
func renderFileTable(result *BuildResult) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"File", "Sites", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	for _, file := range result.Files {
		table.Append([]string{file.Path, strconv.Itoa(file.Sites), fileStatus(file)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(result.Files)),
		strconv.Itoa(result.Sites),
		fmt.Sprintf("%d blocks", result.Flush.Total),
	})

	table.Render()

	return tableBuffer.String()
}

func fileStatus(file FileResult) string {
	switch {
	case file.Err != nil:
		return "failed"
	case file.Changed:
		return "rewritten"
	case file.Sites == 0:
		return "no sites"
	}
	return "unchanged"
}

// WriteShortNameTable prints the short name map as a table
func WriteShortNameTable(w io.Writer, entries []takeout.ShortPath) error {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Short Name", "Path"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, entry := range entries {
		table.Append([]string{entry.Name, entry.Path})
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(entries)), ""})
	table.Render()

	_, err := w.Write(tableBuffer.Bytes())
	return err
}
