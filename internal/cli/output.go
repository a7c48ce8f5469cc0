// Package cli formats kouho command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kouho/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per result, tab separated, for shell pipelines.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const separator = "─────────────────────────────────────────────────────────"

// WriteRankResults writes ranked resumes to w in the given format.
func WriteRankResults(w io.Writer, resp *models.RankResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		for _, r := range resp.Results {
			fmt.Fprintf(w, "%d\t%.3f\t%s\n", r.Rank, r.Score, r.Filename)
		}
	default:
		fmt.Fprintf(w, "\nFound %d matching resumes in %dms\n\n", len(resp.Results), resp.QueryTime)
		for _, r := range resp.Results {
			fmt.Fprintln(w, separator)
			fmt.Fprintf(w, "Rank: %d | Score: %.3f\n", r.Rank, r.Score)
			fmt.Fprintf(w, "Resume: %s\n", r.Filename)
		}
		if len(resp.Results) > 0 {
			fmt.Fprintln(w)
		}
	}
	if resp.Warning != "" && format != OutputJSON {
		fmt.Fprintf(w, "warning: %s\n", resp.Warning)
	}
	return nil
}

// WriteExplanations writes keyword explanations to w in the given format.
func WriteExplanations(w io.Writer, resp *models.ExplainResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
		return nil
	}
	for _, e := range resp.Explanations {
		if format == OutputCompact {
			fmt.Fprintf(w, "%s\t%s\n", e.Filename, strings.Join(e.MatchedKeywords, ","))
			continue
		}
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Resume: %s\n", e.Filename)
		fmt.Fprintf(w, "%s\n", e.Summary)
	}
	return nil
}

// WriteResumeList writes stored filenames to w.
func WriteResumeList(w io.Writer, list *models.ResumeList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	for _, name := range list.Filenames {
		fmt.Fprintln(w, name)
	}
	if format == OutputText {
		fmt.Fprintf(w, "\n%d resume(s)\n", list.Total)
	}
	return nil
}

// WriteStatus writes store and index status to w.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "resumes:             %d   # stored resumes\n", st.Resumes)
	fmt.Fprintf(w, "indexed:             %d   # vectors in the index\n", st.Indexed)
	fmt.Fprintf(w, "dimensions:          %d\n", st.Dimensions)
	fmt.Fprintf(w, "index_type:          %s\n", st.IndexType)
	if st.EmbeddingProvider != "" {
		fmt.Fprintf(w, "embedding_provider:  %s\n", st.EmbeddingProvider)
	}
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:    %d   # store + index on disk\n", st.DiskUsageBytes)
	}
	return nil
}
