// Package dataset reads labelled review datasets and writes classified
// records back out as CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

const (
	DefaultTextColumn  = "review"
	DefaultLabelColumn = "sentiment"
	DefaultDelimiter   = ';'
)

// ErrMissingColumn is returned when the header lacks the text column.
var ErrMissingColumn = errors.New("dataset column not found")

// Options controls how a dataset file is decoded.
type Options struct {
	TextColumn  string
	LabelColumn string
	Delimiter   rune
	// Encoding defaults to Windows-1252; use encoding.Nop for UTF-8 input.
	Encoding encoding.Encoding
}

func (o Options) withDefaults() Options {
	if o.TextColumn == "" {
		o.TextColumn = DefaultTextColumn
	}
	if o.LabelColumn == "" {
		o.LabelColumn = DefaultLabelColumn
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.Encoding == nil {
		o.Encoding = charmap.Windows1252
	}
	return o
}

// Dataset holds texts and, when the label column exists, their ground truth.
type Dataset struct {
	Texts  []string
	Labels []domain.Label
}

// Labelled reports whether every text has a ground-truth label.
func (d Dataset) Labelled() bool {
	return d.Labels != nil && len(d.Labels) == len(d.Texts)
}

// Load reads the dataset at path.
func Load(path string, opts Options) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Read(f, opts)
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// Read decodes a dataset from r. A missing label column yields an
// unlabelled dataset; an unparseable label is an error naming its row.
func Read(r io.Reader, opts Options) (Dataset, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(opts.Encoding.NewDecoder().Reader(r))
	cr.Comma = opts.Delimiter
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}
	textIdx := columnIndex(header, opts.TextColumn)
	if textIdx < 0 {
		return Dataset{}, fmt.Errorf("%w: %q", ErrMissingColumn, opts.TextColumn)
	}
	labelIdx := columnIndex(header, opts.LabelColumn)

	var ds Dataset
	if labelIdx >= 0 {
		ds.Labels = []domain.Label{}
	}
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("row %d: %w", row, err)
		}

		ds.Texts = append(ds.Texts, rec[textIdx])
		if labelIdx < 0 {
			continue
		}
		label, err := domain.ParseLabel(rec[labelIdx])
		if err != nil {
			return Dataset{}, fmt.Errorf("row %d: %w", row, err)
		}
		ds.Labels = append(ds.Labels, label)
	}
	return ds, nil
}

func columnIndex(header []string, name string) int {
	return slices.IndexFunc(header, func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name)
	})
}

// WriteRecords writes one UTF-8 CSV row per record: the text, then a label
// and score column per model. Labels are lowercase; missing results are
// left blank.
func WriteRecords(w io.Writer, modelIDs []string, records []domain.ClassificationRecord) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+2*len(modelIDs))
	header = append(header, DefaultTextColumn)
	for _, id := range modelIDs {
		header = append(header, id, id+" score")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i, rec := range records {
		row[0] = rec.Text
		for j, id := range modelIDs {
			res, ok := rec.Result(id)
			if !ok {
				row[1+2*j], row[2+2*j] = "", ""
				continue
			}
			row[1+2*j] = res.Label.Lower()
			row[2+2*j] = strconv.FormatFloat(res.Score, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	return nil
}
