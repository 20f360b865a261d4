package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/sentiment/internal/benchmark"
)

var errUnlabelled = errors.New("dataset has no ground-truth label column")

func newBenchmarkCommand(gf *globalFlags) *cobra.Command {
	df := &datasetFlags{}
	var (
		output string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare every model's predictions with the dataset's labels",
		Long: `Benchmark classifies a labelled dataset and reports accuracy, and precision
and recall with positive as the positive class, for every model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := loadDataset(gf, df)
			if err != nil {
				return err
			}
			defer func() { _ = run.log.Sync() }()
			if !run.dataset.Labelled() {
				return fmt.Errorf("%w: %q", errUnlabelled, df.labelColumn)
			}

			c, err := run.classify(cmd.Context())
			if err != nil {
				return err
			}

			if output != "" {
				if err := writeOutput(cmd.OutOrStdout(), output, c); err != nil {
					return err
				}
			}

			metrics, err := benchmark.Evaluate(c.modelIDs, c.records, c.dataset.Labels)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(metrics)
			}
			benchmark.Report(cmd.OutOrStdout(), metrics)
			return nil
		},
	}
	df.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write classified records to this CSV path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print metrics as JSON instead of a table")
	return cmd
}
