package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/presentation/graph"
	"github.com/aretw0/storyweave/internal/validator"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Validate loads a graph and writes its validation report to w. The report
// is returned so the caller can pick an exit code.
func Validate(ctx context.Context, w io.Writer, cfg *config.Config, name string) (*validator.Report, error) {
	logger := logging.NewNop()
	source, err := OpenSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	engine, err := LoadEngine(ctx, cfg, source, name, logger, EngineOptions{})
	if err != nil {
		return nil, err
	}

	report := engine.Report()
	if len(report.Issues) == 0 {
		fmt.Fprintf(w, "Graph '%s' is valid! ✅\n", engine.Name)
		return report, nil
	}
	WriteReport(w, report)
	return report, nil
}

// WriteReport renders issues as a table followed by a summary line.
func WriteReport(w io.Writer, report *validator.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Code", "Node", "Edge", "Message"})
	for _, is := range report.Issues {
		t.AppendRow(table.Row{is.Severity, is.Code, is.NodeID, is.EdgeID, is.Message})
	}
	t.Render()
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n",
		report.Count(validator.SeverityError), report.Count(validator.SeverityWarning))
}

// Mermaid writes the graph as a Mermaid flowchart.
func Mermaid(ctx context.Context, w io.Writer, cfg *config.Config, name string) error {
	logger := logging.NewNop()
	source, err := OpenSource(cfg, logger)
	if err != nil {
		return err
	}
	engine, err := LoadEngine(ctx, cfg, source, name, logger, EngineOptions{})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(engine.Inspect(), &graph.GraphOverlay{EntryNode: engine.EntryNode()}))
	return err
}
