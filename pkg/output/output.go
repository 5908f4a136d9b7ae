package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// Formatter handles result presentation.
type Formatter struct {
	writer io.Writer
	format types.OutputFormat
}

// NewFormatter creates a new output formatter.
func NewFormatter(writer io.Writer, format types.OutputFormat) *Formatter {
	return &Formatter{
		writer: writer,
		format: format,
	}
}

// Output writes the findings and summary using the configured format.
func (f *Formatter) Output(findings []types.Finding, summary types.Summary) error {
	switch f.format {
	case types.FormatJSON:
		return f.outputJSON(findings, summary)
	default:
		return f.outputHuman(findings, summary)
	}
}

func (f *Formatter) outputJSON(findings []types.Finding, summary types.Summary) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	out := struct {
		Summary  types.Summary   `json:"summary"`
		Findings []types.Finding `json:"findings"`
	}{
		Summary:  summary,
		Findings: findings,
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

var severityColors = map[types.Severity]*color.Color{
	types.Critical: color.New(color.FgRed, color.Bold),
	types.High:     color.New(color.FgRed),
	types.Medium:   color.New(color.FgYellow),
	types.Low:      color.New(color.FgCyan),
	types.Info:     color.New(color.FgCyan),
}

func (f *Formatter) outputHuman(findings []types.Finding, summary types.Summary) error {
	if len(findings) == 0 && summary.Suppressed == 0 {
		fmt.Fprintln(f.writer, "All manifests healthy. No issues found.")
		return nil
	}

	for _, finding := range findings {
		sev := string(finding.Severity)
		if c, ok := severityColors[finding.Severity]; ok {
			sev = c.Sprint(sev)
		}
		fmt.Fprintf(f.writer, "%s %s %s:%d\n", sev, finding.Code, finding.File, finding.Line)
		if finding.Kind != "" {
			fmt.Fprintf(f.writer, "  Resource: %s/%s", finding.Kind, finding.Name)
			if finding.Namespace != "" {
				fmt.Fprintf(f.writer, " (namespace %s)", finding.Namespace)
			}
			fmt.Fprintln(f.writer)
		}
		fmt.Fprintf(f.writer, "  %s\n", finding.Message)
		if finding.AutoFixable {
			fmt.Fprintln(f.writer, "  Auto-fixable: run `kubecuro heal` to repair.")
		}
		fmt.Fprintln(f.writer)
	}

	fmt.Fprintln(f.writer, "SUMMARY")
	if summary.Critical > 0 {
		fmt.Fprintf(f.writer, "Critical: %d\n", summary.Critical)
	}
	fmt.Fprintf(f.writer, "High: %d\n", summary.High)
	fmt.Fprintf(f.writer, "Medium: %d\n", summary.Medium)
	fmt.Fprintf(f.writer, "Low/Info: %d\n", summary.Low+summary.Info)
	fmt.Fprintf(f.writer, "Files affected: %d\n", summary.FilesAffected)
	if summary.Suppressed > 0 {
		fmt.Fprintf(f.writer, "Suppressed by baseline: %d\n", summary.Suppressed)
	}
	return nil
}
