package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid output %q (must be text or json)", s)
	}
}

// Write renders r to w in the requested format.
func Write(w io.Writer, r *Report, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, r)
	}
	return WriteText(w, r)
}

// WriteJSON renders r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

const rule = "================================================================================"

// WriteText renders r for a terminal.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "VALIDATION RESULTS - %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Project: %s\n", r.Project)
	fmt.Fprintf(&b, "Dataset: %s\n", r.Dataset)
	fmt.Fprintf(&b, "Tables:  %d matching %q\n\n", len(r.Tables), r.Pattern)

	if r.Error != "" {
		fmt.Fprintf(&b, "RUN FAILED: %s\n\n", r.Error)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("CONFIGURATION:\n")
		for _, msg := range r.Warnings {
			fmt.Fprintf(&b, "   - %s\n", msg)
		}
		b.WriteString("\n")
	}

	s := r.Summary
	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "   Total Checks: %d\n", s.TotalChecks)
	fmt.Fprintf(&b, "   Passed:       %d\n", s.PassedChecks)
	fmt.Fprintf(&b, "   Failed:       %d\n", s.FailedChecks)
	fmt.Fprintf(&b, "   Warnings:     %d\n", s.TotalWarnings)
	fmt.Fprintf(&b, "   Errors:       %d\n", s.TotalErrors)
	fmt.Fprintf(&b, "   Success Rate: %s\n\n", s.SuccessRate)

	if len(r.ByCategory) > 0 {
		b.WriteString("BY CATEGORY:\n")
		for _, cat := range Categories {
			counts, ok := r.ByCategory[cat]
			if !ok {
				continue
			}
			status := "OK  "
			if counts.Failed > 0 {
				status = "FAIL"
			}
			fmt.Fprintf(&b, "   [%s] %s: passed %d, failed %d, warnings %d\n",
				status, title(cat), counts.Passed, counts.Failed, counts.Warnings)
		}
		b.WriteString("\n")
	}

	if failures := r.Failures(); len(failures) > 0 {
		fmt.Fprintf(&b, "FAILURES (%d):\n", len(failures))
		for _, res := range failures {
			fmt.Fprintf(&b, "   %s (%s):\n", res.Name, res.Category)
			for _, msg := range res.Errors {
				fmt.Fprintf(&b, "      - %s\n", msg)
			}
		}
		b.WriteString("\n")
	}

	if warned := r.WithWarnings(); len(warned) > 0 {
		fmt.Fprintf(&b, "WARNINGS (%d):\n", r.Summary.TotalWarnings)
		for _, res := range warned {
			fmt.Fprintf(&b, "   %s (%s):\n", res.Name, res.Category)
			for _, msg := range res.Warnings {
				fmt.Fprintf(&b, "      - %s\n", msg)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total Validation Time: %.2fs\n", r.Duration.Seconds())
	fmt.Fprintf(&b, "Exit: %d (%s)\n", int(r.ExitCode), r.ExitCode)
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// title turns "freshness_sla" into "Freshness Sla".
func title(c Category) string {
	words := strings.Split(string(c), "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
