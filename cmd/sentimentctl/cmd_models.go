package main

import (
	"context"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/sentiment/internal/config"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mltransport"
	"github.com/jonesrussell/north-cloud/sentiment/internal/teiclient"
)

func newModelsCommand(gf *globalFlags) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		Long: `List the configured models and their label maps.

With --probe each model's inference server is asked for the model it
actually serves and its maximum input length.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := gf.loadConfig()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			header := table.Row{"Model", "Task", "URL", "Max Length", "Labels"}
			if probe {
				header = append(header, "Served Model", "Server Max", "Status")
			}
			t.AppendHeader(header)

			for _, m := range cfg.Models {
				row := table.Row{m.ID, m.Task, m.URL, m.MaxLength, labelSummary(m.LabelMap)}
				if probe {
					row = append(row, probeModel(cmd.Context(), cfg.Inference, m)...)
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "query each inference server's /info")
	return cmd
}

func labelSummary(labelMap map[string]string) string {
	labels := make([]string, 0, len(labelMap))
	for raw, canonical := range labelMap {
		labels = append(labels, raw+"→"+strings.ToUpper(canonical))
	}
	slices.Sort(labels)
	return strings.Join(labels, ", ")
}

// probeModel returns the served model, its max input length and a status
// cell. Failures are reported in the row rather than aborting the listing.
func probeModel(ctx context.Context, ic config.InferenceConfig, m config.ModelConfig) table.Row {
	tr, err := mltransport.New(mltransport.Config{
		BaseURL: m.URL,
		Timeout: ic.Timeout,
		Retry:   retry.Config{MaxAttempts: 1},
	})
	if err != nil {
		return table.Row{"-", "-", err.Error()}
	}

	info, err := teiclient.New(tr).Info(ctx)
	if err != nil {
		return table.Row{"-", "-", err.Error()}
	}
	status := "ok"
	if info.MaxInputLen > 0 && m.MaxLength > info.MaxInputLen {
		status = "max_length exceeds server limit"
	}
	return table.Row{info.ModelID, info.MaxInputLen, status}
}
