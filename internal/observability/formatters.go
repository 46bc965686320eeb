// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fsilva7456/commlink/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs a human-readable summary of a single run.
func (p *Printer) PrintRun(run *types.Run) {
	if run == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Name:      %s\n", run.Name))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("Progress:  %s\n", progressBar(run.Progress)))

	if run.CurrentStep != nil {
		sb.WriteString(fmt.Sprintf("Step:      %s\n", *run.CurrentStep))
	}
	if run.EtaSeconds != nil {
		sb.WriteString(fmt.Sprintf("ETA:       %s\n", formatETA(*run.EtaSeconds)))
	}
	if run.Config.ModelArchitecture != "" {
		sb.WriteString(fmt.Sprintf("Model:     %s\n", run.Config.ModelArchitecture))
	}

	p.printBox("RUN", strings.TrimRight(sb.String(), "\n"))
}

// PrintRunList outputs a compact table of runs.
func (p *Printer) PrintRunList(runs []types.Run) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No runs.")
		p.printBox("RUNS (0)", sb.String())
		return
	}

	for i, r := range runs {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(runs)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("%-24s %-11s %s\n", truncate(r.Name, 24), r.Status, progressBar(r.Progress)))
	}

	p.printBox(fmt.Sprintf("RUNS (%d)", len(runs)), strings.TrimRight(sb.String(), "\n"))
}

// PrintScenarios outputs the scenario catalogue.
func (p *Printer) PrintScenarios(scenarios []types.Scenario) {
	var sb strings.Builder

	if len(scenarios) == 0 {
		sb.WriteString("No scenarios.")
		p.printBox("SCENARIOS (0)", sb.String())
		return
	}

	for _, sc := range scenarios {
		sb.WriteString(fmt.Sprintf("%-24s %-10s %2d waypoints, %3ds\n",
			truncate(sc.Name, 24), sc.Environment, len(sc.Waypoints), sc.Duration))
	}

	p.printBox(fmt.Sprintf("SCENARIOS (%d)", len(scenarios)), strings.TrimRight(sb.String(), "\n"))
}

// PrintMetricSummary outputs the last few metric samples and the best
// trajectory error so far.
func (p *Printer) PrintMetricSummary(series []types.Metric, best *float64) {
	var sb strings.Builder

	if len(series) == 0 {
		sb.WriteString("No metrics recorded.")
		p.printBox("METRICS (0)", sb.String())
		return
	}

	start := len(series) - maxItemsToShow
	if start < 0 {
		start = 0
	}
	for _, m := range series[start:] {
		sb.WriteString(fmt.Sprintf("epoch %4d  loss %.6f  mse %.6f\n", m.Epoch, m.Loss, m.TrajectoryError))
	}
	if best != nil {
		sb.WriteString(fmt.Sprintf("\nBest trajectory error: %.6f", *best))
	}

	p.printBox(fmt.Sprintf("METRICS (%d)", len(series)), strings.TrimRight(sb.String(), "\n"))
}

// progressBar renders a fraction as a fixed-width bar with a percent
// label.
func progressBar(fraction float64) string {
	const width = 20
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*width + 0.5)
	return fmt.Sprintf("[%s%s] %3.0f%%",
		strings.Repeat("█", filled), strings.Repeat("░", width-filled), fraction*100)
}

func formatETA(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
