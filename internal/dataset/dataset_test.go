package dataset_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"

	"github.com/jonesrussell/north-cloud/sentiment/internal/dataset"
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

func TestLoad_Windows1252Semicolon(t *testing.T) {
	t.Parallel()

	// 0x93/0x94 are curly quotes and 0xE9 is e-acute in Windows-1252.
	raw := []byte("review;sentiment\n\x93Caf\xe9\x94 was great;positive\nDull; boring;negative\n")
	raw = bytes.Replace(raw, []byte("Dull; boring"), []byte(`"Dull; boring"`), 1)

	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	ds, err := dataset.Load(path, dataset.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"“Café” was great", "Dull; boring"}, ds.Texts)
	assert.Equal(t, []domain.Label{domain.LabelPositive, domain.LabelNegative}, ds.Labels)
	assert.True(t, ds.Labelled())
}

func TestRead_Unlabelled(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Read(strings.NewReader("text\none\ntwo\n"), dataset.Options{
		TextColumn: "text",
		Encoding:   encoding.Nop,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, ds.Texts)
	assert.Nil(t, ds.Labels)
	assert.False(t, ds.Labelled())
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	_, err := dataset.Read(strings.NewReader("body;sentiment\nx;positive\n"), dataset.Options{})
	require.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, err = dataset.Read(strings.NewReader("review;sentiment\nx;neutral\n"), dataset.Options{})
	require.ErrorIs(t, err, domain.ErrUnknownLabel)
	assert.Contains(t, err.Error(), "row 2")

	_, err = dataset.Load(filepath.Join(t.TempDir(), "missing.csv"), dataset.Options{})
	require.Error(t, err)
}

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	recs := []domain.ClassificationRecord{
		domain.NewClassificationRecord("Loved it, truly", map[string]domain.ModelResult{
			"a": {Label: domain.LabelPositive, Score: 0.75, Segments: 1},
			"b": {Label: domain.LabelNegative, Score: 0.5, Segments: 1},
		}),
		domain.NewClassificationRecord("meh", map[string]domain.ModelResult{
			"a": {Label: domain.LabelNegative, Score: 0.25, Segments: 1},
		}),
	}

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteRecords(&buf, []string{"a", "b"}, recs))

	want := "review,a,a score,b,b score\n" +
		"\"Loved it, truly\",positive,0.75,negative,0.5\n" +
		"meh,negative,0.25,,\n"
	assert.Equal(t, want, buf.String())
}
