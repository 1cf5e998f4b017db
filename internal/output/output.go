// Package output provides formatted rendering of compression reports and
// live template matches. It supports text, detailed text, JSON, and table
// formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/distillog/distill/internal/drain"
	"github.com/distillog/distill/internal/extract"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  ColorMode
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, color: ColorAuto}
}

// WithColor sets the color mode and returns the writer.
func (wr *Writer) WithColor(mode ColorMode) *Writer {
	wr.color = mode
	return wr
}

// WriteReport outputs a compression report in the configured format.
// top limits the number of templates shown (0 for all); detail adds
// sample values and extractor metadata to the text format.
func (wr *Writer) WriteReport(r drain.Report, top int, detail bool) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	case FormatTable:
		return wr.writeReportTable(r, top)
	default:
		return wr.writeReportText(r, top, detail)
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (wr *Writer) writeReportText(r drain.Report, top int, detail bool) error {
	colorize := shouldColorize(wr.color, wr.w)

	fmt.Fprintln(wr.w, "=== Template Mining Report ===")
	fmt.Fprintln(wr.w)
	fmt.Fprintf(wr.w, "Input Lines:       %d\n", r.InputLines)
	fmt.Fprintf(wr.w, "Unique Templates:  %d\n", r.UniqueTemplates)
	fmt.Fprintf(wr.w, "Compression Ratio: %.1f%%\n", r.CompressionRatio*100)
	fmt.Fprintf(wr.w, "Est. Token Reduction: %.1f%%\n", r.EstimatedTokenReduction*100)
	if r.DegradedLines > 0 {
		fmt.Fprintf(wr.w, "Degraded Lines:    %d (cluster cap reached)\n", r.DegradedLines)
	}
	if r.StrategyErrors > 0 {
		fmt.Fprintf(wr.w, "Unparsable Lines:  %d\n", r.StrategyErrors)
	}
	fmt.Fprintln(wr.w)

	templates := r.Top(top)
	if top > 0 && len(r.Templates) > len(templates) {
		fmt.Fprintf(wr.w, "Top %d of %d templates:\n", len(templates), len(r.Templates))
	} else if len(templates) > 0 {
		fmt.Fprintln(wr.w, "Templates:")
	}

	for _, t := range templates {
		tag := severityTag(t.Meta)
		if colorize {
			tag = colorizeSeverity(tag)
		}
		fmt.Fprintf(wr.w, "  T%03d %s %s (%d occurrences)\n", t.ID, tag, t.Pattern, t.Occurrences)

		if !detail {
			continue
		}
		fmt.Fprintf(wr.w, "       lines %d..%d\n", t.FirstSeen, t.LastSeen)
		for _, sample := range t.Samples {
			fmt.Fprintf(wr.w, "       sample: %s\n", strings.Join(sample, ", "))
		}
		writeMetaValues(wr.w, t.Meta, extract.MetaURLs, "urls")
		writeMetaValues(wr.w, t.Meta, extract.MetaStatusCodes, "status codes")
		writeMetaValues(wr.w, t.Meta, extract.MetaDurations, "durations")
		writeMetaValues(wr.w, t.Meta, extract.MetaCorrelationIDs, "correlation ids")
	}

	return nil
}

func (wr *Writer) writeReportTable(r drain.Report, top int) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOUNT\tSEVERITY\tFIRST\tLAST\tPATTERN")
	fmt.Fprintln(tw, "--\t-----\t--------\t-----\t----\t-------")

	for _, t := range r.Top(top) {
		pattern := t.Pattern
		if len(pattern) > 80 {
			pattern = pattern[:77] + "..."
		}
		fmt.Fprintf(tw, "T%03d\t%d\t%s\t%d\t%d\t%s\n",
			t.ID, t.Occurrences, severityTag(t.Meta), t.FirstSeen, t.LastSeen, pattern)
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(wr.w, "\n%d lines, %d templates, %.1f%% compression\n",
		r.InputLines, r.UniqueTemplates, r.CompressionRatio*100)
	return nil
}

// WriteMatch outputs one live template match in "T042 [LEVEL] pattern"
// form, used by the tail command.
func (wr *Writer) WriteMatch(c *drain.Cluster, created bool) error {
	marker := " "
	if created {
		marker = "+"
	}

	tag := severityTag(c.Meta)
	if shouldColorize(wr.color, wr.w) {
		tag = colorizeSeverity(tag)
	}

	_, err := fmt.Fprintf(wr.w, "%sT%03d %s %s\n", marker, c.ID, tag, c.Pattern())
	return err
}

// severityTag renders the extractor-provided severity, UNKNOWN when the
// extractors saw none.
func severityTag(meta map[string]interface{}) string {
	if v, ok := meta[extract.MetaSeverity]; ok {
		if s, ok := v.(string); ok {
			return "[" + s + "]"
		}
	}
	return "[UNKNOWN]"
}

func writeMetaValues(w io.Writer, meta map[string]interface{}, key, label string) {
	v, ok := meta[key]
	if !ok {
		return
	}
	values, ok := v.([]string)
	if !ok || len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "       %s: %s\n", label, strings.Join(values, ", "))
}
