// Package report formats contention summaries: one tab-separated line per
// configuration as it finishes, and an optional end-of-run table.
package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/weiihann/contend/harness"
)

// FileName returns the results file name for the raw invocation arguments.
func FileName(gigabytes, trials, shift string) string {
	return fmt.Sprintf("results_%s_%s_%s.txt", gigabytes, trials, shift)
}

// OpenResults creates (or truncates) the results file in dir.
func OpenResults(dir, name string) (*os.File, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results file %s: %w", path, err)
	}

	return f, nil
}

// FormatLine renders a summary as
// strategy, threads, rate_MHz, relative_stddev, collision_rate
// separated by tabs, without a trailing newline.
func FormatLine(s harness.Summary) string {
	return strings.Join([]string{
		s.Strategy.String(),
		strconv.Itoa(s.Threads),
		FormatFloat(s.RateMHz),
		FormatFloat(s.RelativeStdDev),
		FormatFloat(s.CollisionRate),
	}, "\t")
}

// FormatFloat prints the shortest representation that round-trips. Integral
// values keep a ".0" suffix and very large or small magnitudes switch to
// exponent form, so 0 prints as "0.0" and 1e-05 as "1e-05".
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(v, 'e', -1, 64)

	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err == nil && v != 0 && (exp < -4 || exp >= 16) {
		return e
	}

	f := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(f, ".") {
		f += ".0"
	}

	return f
}

// Writer streams summary lines to w and keeps every summary for the
// end-of-run report.
type Writer struct {
	w         io.Writer
	summaries []harness.Summary
}

// NewWriter returns a Writer that writes each line to all of ws.
func NewWriter(ws ...io.Writer) *Writer {
	return &Writer{w: io.MultiWriter(ws...)}
}

// Emit writes one summary line.
func (w *Writer) Emit(s harness.Summary) error {
	if _, err := io.WriteString(w.w, FormatLine(s)+"\n"); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	w.summaries = append(w.summaries, s)

	return nil
}

// Summaries returns everything emitted so far, in emission order.
func (w *Writer) Summaries() []harness.Summary {
	return w.summaries
}

// Generate writes a markdown table of summaries ordered by strategy and
// thread count. Scaling is the rate relative to the same strategy's
// single-thread rate.
func Generate(w io.Writer, summaries []harness.Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	sorted := slices.Clone(summaries)
	slices.SortFunc(sorted, func(a, b harness.Summary) int {
		return cmp.Or(
			cmp.Compare(a.Strategy, b.Strategy),
			cmp.Compare(a.Threads, b.Threads),
		)
	})

	baseline := singleThreadRates(sorted)

	fmt.Fprintln(w, "## Contention Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Strategy | Threads | Rate | Mean Time "+
		"| Rel. StdDev | Collisions | Scaling |")
	fmt.Fprintln(w, "|----------|---------|------|-----------"+
		"|-------------|------------|---------|")

	for _, s := range sorted {
		scaling := "-"
		if base, ok := baseline[s.Strategy.String()]; ok && base > 0 {
			scaling = fmt.Sprintf("%.2fx", s.RateMHz/base)
		}

		fmt.Fprintf(w, "| %s | %d | %s | %s | %.2f%% | %s | %s |\n",
			s.Strategy,
			s.Threads,
			formatRate(s.RateMHz),
			formatSeconds(s.MeanSeconds),
			s.RelativeStdDev*100,
			formatCollisions(s),
			scaling,
		)
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Strategy | Peak Rate | At Threads |")
	fmt.Fprintln(w, "|----------|-----------|------------|")

	for _, peak := range peaks(sorted) {
		fmt.Fprintf(w, "| %s | %s | %d |\n",
			peak.Strategy, formatRate(peak.RateMHz), peak.Threads)
	}

	return nil
}

// GenerateJSON writes summaries as JSON to w.
func GenerateJSON(w io.Writer, summaries []harness.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summaries)
}

func singleThreadRates(summaries []harness.Summary) map[string]float64 {
	rates := make(map[string]float64)
	for _, s := range summaries {
		if s.Threads == 1 {
			rates[s.Strategy.String()] = s.RateMHz
		}
	}

	return rates
}

// peaks expects summaries grouped by strategy.
func peaks(summaries []harness.Summary) []harness.Summary {
	var out []harness.Summary

	for _, s := range summaries {
		n := len(out)
		switch {
		case n == 0 || out[n-1].Strategy != s.Strategy:
			out = append(out, s)
		case s.RateMHz > out[n-1].RateMHz:
			out[n-1] = s
		}
	}

	return out
}

func formatRate(mhz float64) string {
	if mhz >= 1000 {
		return fmt.Sprintf("%.2f GHz", mhz/1000)
	}

	return fmt.Sprintf("%.2f MHz", mhz)
}

func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.0fms", s*1000)
	}

	return fmt.Sprintf("%.2fs", s)
}

func formatCollisions(s harness.Summary) string {
	if !s.Strategy.CountsCollisions() {
		return "-"
	}

	return fmt.Sprintf("%.4f", s.CollisionRate)
}
