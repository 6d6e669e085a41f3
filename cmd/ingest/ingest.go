// Package ingest implements the ingest command, which performs a single ingestion run.
package ingest

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/common"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

// Command returns the ingest command.
func Command(options common.OptionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion",
		Long: `Collect article references from the listing API, extract each article page
and upsert the complete ones. Exits non-zero only on an internal fault.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := common.Build(ctx, options())
			if err != nil {
				return err
			}
			defer deps.Close()

			report, err := deps.Orchestrator.Run(ctx)
			if err != nil {
				deps.Logger.Error("Ingestion failed", logger.Error(err))
				return fmt.Errorf("ingestion: %w", err)
			}

			RenderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// RenderReport prints a run report as a table.
func RenderReport(w io.Writer, report *domain.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Ingestion run " + report.ID)

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Terminal state", report.TerminalState},
		{"Skipped", report.Skipped},
		{"References found", report.ReferencesFound},
		{"Details extracted", report.DetailsExtracted},
		{"Details failed", report.DetailsFailed},
		{"Created", report.Created},
		{"Updated", report.Updated},
		{"Persist failed", report.PersistFailed},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
	})

	t.Render()
}
