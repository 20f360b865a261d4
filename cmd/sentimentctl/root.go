package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/jonesrussell/north-cloud/sentiment/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/sentiment/internal/config"
	"github.com/jonesrussell/north-cloud/sentiment/internal/dataset"
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/sentiment/internal/registry"
)

var version = "dev"

var errBadDelimiter = errors.New("delimiter must be a single character")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "sentimentctl",
		Short: "Classify and benchmark review datasets",
		Long: `sentimentctl runs review datasets through every configured sentiment
model, writes per-model labels and scores, and benchmarks them against the
dataset's ground truth.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $CONFIG_PATH or ./config.yml)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newModelsCommand(flags))
	cmd.AddCommand(newClassifyCommand(flags))
	cmd.AddCommand(newBenchmarkCommand(flags))
	return cmd
}

func execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}

// loadConfig loads configuration for the CLI. Logs go to stderr so they
// never mix with tables or CSV written to stdout.
func (f *globalFlags) loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if len(cfg.Logging.OutputPaths) == 0 {
		cfg.Logging.OutputPaths = []string{"stderr"}
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// datasetFlags select and decode the input dataset.
type datasetFlags struct {
	input       string
	textColumn  string
	labelColumn string
	delimiter   string
	encoding    string
}

func (d *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.input, "input", "i", "", "dataset CSV to classify (required)")
	cmd.Flags().StringVar(&d.textColumn, "text-column", dataset.DefaultTextColumn, "column holding the review text")
	cmd.Flags().StringVar(&d.labelColumn, "label-column", dataset.DefaultLabelColumn, "column holding the ground-truth sentiment")
	cmd.Flags().StringVar(&d.delimiter, "delimiter", string(dataset.DefaultDelimiter), "field delimiter")
	cmd.Flags().StringVar(&d.encoding, "encoding", "windows-1252", "input encoding: windows-1252 or utf-8")
	_ = cmd.MarkFlagRequired("input")
}

func (d *datasetFlags) options() (dataset.Options, error) {
	if utf8.RuneCountInString(d.delimiter) != 1 {
		return dataset.Options{}, fmt.Errorf("%w: %q", errBadDelimiter, d.delimiter)
	}
	delim, _ := utf8.DecodeRuneInString(d.delimiter)

	var enc encoding.Encoding
	switch strings.ToLower(d.encoding) {
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "utf-8", "utf8":
		enc = encoding.Nop
	default:
		return dataset.Options{}, fmt.Errorf("unsupported encoding %q", d.encoding)
	}

	return dataset.Options{
		TextColumn:  d.textColumn,
		LabelColumn: d.labelColumn,
		Delimiter:   delim,
		Encoding:    enc,
	}, nil
}

// classification is a classified dataset.
type classification struct {
	dataset  dataset.Dataset
	modelIDs []string
	records  []domain.ClassificationRecord
}

// datasetRun is a loaded dataset with the config and logger to classify it.
type datasetRun struct {
	cfg     *config.Config
	log     logger.Logger
	dataset dataset.Dataset
}

// loadDataset loads config and the dataset without contacting any model,
// so callers can reject unusable input before inference starts. The
// caller syncs run.log.
func loadDataset(gf *globalFlags, df *datasetFlags) (*datasetRun, error) {
	cfg, log, err := gf.loadConfig()
	if err != nil {
		return nil, err
	}

	opts, err := df.options()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(df.input, opts)
	if err != nil {
		return nil, err
	}
	log.Info("Dataset loaded",
		logger.String("path", df.input),
		logger.Int("texts", len(ds.Texts)),
		logger.Bool("labelled", ds.Labelled()),
	)
	return &datasetRun{cfg: cfg, log: log, dataset: ds}, nil
}

// classify runs every text through every configured model.
func (r *datasetRun) classify(ctx context.Context) (*classification, error) {
	comps, err := bootstrap.NewComponents(ctx, r.cfg, r.log,
		registry.WithProgress(bootstrap.ProgressLogger(r.log, r.cfg.Service.ProgressEvery)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = comps.Close() }()

	records, err := comps.Registry.ClassifyBatch(ctx, r.dataset.Texts)
	if err != nil {
		return nil, fmt.Errorf("classify dataset: %w", err)
	}
	return &classification{dataset: r.dataset, modelIDs: comps.Registry.Models(), records: records}, nil
}

// writeOutput writes records as CSV to path, or to w when path is "-".
func writeOutput(w io.Writer, path string, c *classification) error {
	if path == "-" {
		return dataset.WriteRecords(w, c.modelIDs, c.records)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := dataset.WriteRecords(f, c.modelIDs, c.records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
