// Package report renders an evaluation report for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cruciblelabs/crucible/internal/evaluate"
)

// Render writes the report in the requested format: table (default),
// markdown, or json.
func Render(rep *evaluate.Report, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(rep, w)
	case "json":
		return writeJSON(rep, w)
	default:
		return writeTable(rep, w)
	}
}

// WriteArtifacts persists the machine-readable report.json and a
// human-readable report.md into the run directory.
func WriteArtifacts(runDir string, rep *evaluate.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "report.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing report.json: %w", err)
	}

	var md strings.Builder
	if err := writeMarkdown(rep, &md); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "report.md"), []byte(md.String()), 0o644); err != nil {
		return fmt.Errorf("writing report.md: %w", err)
	}
	return nil
}

// ReadArtifact loads a previously persisted report.json.
func ReadArtifact(runDir string) (*evaluate.Report, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "report.json"))
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var rep evaluate.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &rep, nil
}

func categories(rep *evaluate.Report) []string {
	names := make([]string, 0, len(rep.PerCategoryBest))
	for name := range rep.PerCategoryBest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeTable(rep *evaluate.Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tWINNER\tSCORE")
	fmt.Fprintln(tw, strings.Repeat("-", 48))
	for _, name := range categories(rep) {
		best := rep.PerCategoryBest[name]
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", name, best.CellIdentifier, best.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.OverallBest != nil {
		fmt.Fprintf(w, "\nOverall winner: %s (%s) score %.2f\n",
			rep.OverallBest.CellIdentifier, rep.OverallBest.Category, rep.OverallBest.Score)
	} else {
		fmt.Fprintln(w, "\nNo valid winner.")
	}
	return writeCellTable(rep, w)
}

func writeCellTable(rep *evaluate.Report, w io.Writer) error {
	if len(rep.Cells) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nCells:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tIDENTIFIER\tSTATUS\tTESTS\tPASS RATE\tNOTE")
	for _, c := range rep.Cells {
		tests, rate := "-", "-"
		if c.Metrics != nil {
			tests = fmt.Sprintf("%d", c.Metrics.Tests())
			if c.Metrics.TestPassRate != nil {
				rate = fmt.Sprintf("%.0f%%", *c.Metrics.TestPassRate)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Category, c.Identifier, c.Status, tests, rate, c.Error)
	}
	return tw.Flush()
}

func writeMarkdown(rep *evaluate.Report, w io.Writer) error {
	fmt.Fprintln(w, "| Category | Winner | Score |")
	fmt.Fprintln(w, "|---|---|---|")
	for _, name := range categories(rep) {
		best := rep.PerCategoryBest[name]
		fmt.Fprintf(w, "| %s | %s | %.2f |\n", name, best.CellIdentifier, best.Score)
	}
	if rep.OverallBest != nil {
		fmt.Fprintf(w, "\n**Overall winner:** %s (%s), score %.2f\n",
			rep.OverallBest.CellIdentifier, rep.OverallBest.Category, rep.OverallBest.Score)
	} else {
		fmt.Fprintln(w, "\n**No valid winner.**")
	}
	return nil
}

func writeJSON(rep *evaluate.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
