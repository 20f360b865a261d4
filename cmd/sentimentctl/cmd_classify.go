package main

import (
	"github.com/spf13/cobra"
)

func newClassifyCommand(gf *globalFlags) *cobra.Command {
	df := &datasetFlags{}
	var output string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify every review in a dataset with every model",
		Long: `Classify reads a delimited review dataset, runs each review through every
configured model and writes the review with one label and one score column
per model. Use --output - to write the CSV to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := loadDataset(gf, df)
			if err != nil {
				return err
			}
			defer func() { _ = run.log.Sync() }()

			c, err := run.classify(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, c)
		},
	}
	df.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "classified_reviews.csv", "output CSV path, or - for stdout")
	return cmd
}
