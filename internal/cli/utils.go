// Package cli renders comparison reports and search results for the crec command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hyperjump/crec/internal/compare"
	"github.com/hyperjump/crec/internal/models"
	"github.com/hyperjump/crec/internal/search"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates an -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// ChangedOnly returns a copy of report without the matched records whose text is
// unchanged. The summary still covers every record.
func ChangedOnly(report *compare.Report) *compare.Report {
	out := *report
	out.Results = make([]models.ComparisonResult, 0, len(report.Results))
	for _, r := range report.Results {
		if r.Status == models.StatusMatched && r.Distance == 0 {
			continue
		}
		out.Results = append(out.Results, r)
	}
	return &out
}

// WriteReport writes a comparison report to w in the given format.
func WriteReport(w io.Writer, report *compare.Report, format OutputFormat, changedOnly bool) error {
	if changedOnly {
		report = ChangedOnly(report)
	}
	switch format {
	case OutputJSON:
		return writeJSON(w, report)
	default:
		return writeReportText(w, report)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReportText(w io.Writer, report *compare.Report) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Status", "Similarity", "Distance", "Reason"})
	for _, r := range report.Results {
		sim, dist := "", ""
		if r.Status == models.StatusMatched {
			sim = fmt.Sprintf("%.4f", r.Similarity)
			dist = fmt.Sprintf("%d", r.Distance)
		}
		t.AppendRow(table.Row{r.ID, string(r.Status), sim, dist, r.Reason})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	for _, r := range report.Results {
		if r.Diff == "" {
			continue
		}
		fmt.Fprintf(w, "\n─── %s ───\n%s\n", r.ID, strings.TrimRight(r.Diff, "\n"))
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\n%d matched (%d changed, mean similarity %.4f), %d added, %d removed, %d not comparable [unit: %s]\n",
		s.Matched, s.Changed, s.MeanSimilarity, s.Added, s.Removed, s.NotComparable, report.Unit)
	return err
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *search.Response, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *search.Response) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", hit.Rank, hit.Score)
		fmt.Fprintf(w, "ID: %s\n", hit.ID)
		fmt.Fprintf(w, "%s, %s, %s\n", hit.Speaker, hit.Chamber, hit.Date)
		if hit.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", TruncateWords(hit.Title, 12))
		}
		fmt.Fprintf(w, "\n%s\n\n", hit.Snippet)
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
