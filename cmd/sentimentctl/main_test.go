package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// newFakeTEI labels texts mentioning "awful" as LABEL_0 and everything
// else as LABEL_1, counting one token per word.
func newFakeTEI(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/tokenize":
			var req struct {
				Inputs string `json:"inputs"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			toks := []map[string]any{}
			for _, word := range strings.Fields(req.Inputs) {
				toks = append(toks, map[string]any{"id": 1, "text": word, "special": false})
			}
			_ = json.NewEncoder(w).Encode([][]map[string]any{toks})
		case "/predict":
			var req struct {
				Inputs [][]string `json:"inputs"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([][]map[string]any, len(req.Inputs))
			for i, in := range req.Inputs {
				label, score := "LABEL_1", 0.9
				if strings.Contains(in[0], "awful") {
					label, score = "LABEL_0", 0.7
				}
				out[i] = []map[string]any{{"label": label, "score": score}}
			}
			_ = json.NewEncoder(w).Encode(out)
		case "/info":
			_, _ = w.Write([]byte(`{"model_id":"fake/sentiment","max_input_length":256}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	dir      string
	config   string
	dataset  string
	requests *atomic.Int32 // calls to the fake inference server
}

func newFixture(t *testing.T, rows string) fixture {
	t.Helper()

	requests := &atomic.Int32{}
	srv := newFakeTEI(t, requests)
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yml")
	cfg := `logging:
  level: error
models:
  - id: alpha
    task: text-classification
    url: ` + srv.URL + `
    label_map: {LABEL_0: NEGATIVE, LABEL_1: POSITIVE}
  - id: beta
    task: sentiment-analysis
    url: ` + srv.URL + `
    label_map: {LABEL_0: negative, LABEL_1: positive}
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	dataPath := filepath.Join(dir, "reviews.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(rows), 0o600))

	return fixture{dir: dir, config: cfgPath, dataset: dataPath, requests: requests}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const labelledRows = "review;sentiment\nA wonderful film.;positive\nAn awful mess.;negative\nawful but fun;positive\n"

func TestClassify_WritesPerModelColumns(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)
	outPath := filepath.Join(fx.dir, "classified.csv")

	_, err := runCLI(t, "classify", "--config", fx.config, "--input", fx.dataset, "--encoding", "utf-8", "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "review,alpha,alpha score,beta,beta score", lines[0])
	assert.Equal(t, "A wonderful film.,positive,0.9,positive,0.9", lines[1])
	assert.Equal(t, "An awful mess.,negative,0.7,negative,0.7", lines[2])
}

func TestClassify_Stdout(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "review\nGreat.\n")
	out, err := runCLI(t, "classify", "--config", fx.config, "-i", fx.dataset, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Great.,positive,0.9,positive,0.9")
}

func TestBenchmark_JSON(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)
	out, err := runCLI(t, "benchmark", "--config", fx.config, "--input", fx.dataset, "--json")
	require.NoError(t, err)

	var metrics map[string]domain.BenchmarkMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &metrics))

	// Predictions: positive, negative, negative against positive, negative, positive.
	alpha := metrics["alpha"]
	assert.InDelta(t, 2.0/3.0, alpha.Accuracy, 1e-9)
	assert.InDelta(t, 1.0, alpha.Precision, 1e-9)
	assert.InDelta(t, 0.5, alpha.Recall, 1e-9)
	assert.Equal(t, 3, alpha.Support)
	assert.Equal(t, alpha, metrics["beta"])
}

func TestBenchmark_Table(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)
	out, err := runCLI(t, "benchmark", "--config", fx.config, "--input", fx.dataset)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "66.67%")
}

func TestBenchmark_RequiresLabels(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "review\nGreat.\n")
	_, err := runCLI(t, "benchmark", "--config", fx.config, "--input", fx.dataset)
	require.ErrorIs(t, err, errUnlabelled)
	assert.Zero(t, fx.requests.Load(), "unlabelled input must be rejected before inference")
}

func TestModels(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)
	out, err := runCLI(t, "models", "--config", fx.config)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "LABEL_1→POSITIVE")
	assert.NotContains(t, out, "fake/sentiment")
}

func TestModels_Probe(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)
	out, err := runCLI(t, "models", "--config", fx.config, "--probe")
	require.NoError(t, err)
	assert.Contains(t, out, "fake/sentiment")
	assert.Contains(t, out, "256")
}

func TestDatasetFlags_Validation(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, labelledRows)

	_, err := runCLI(t, "classify", "--config", fx.config, "--input", fx.dataset, "--delimiter", ";;")
	require.ErrorIs(t, err, errBadDelimiter)

	_, err = runCLI(t, "classify", "--config", fx.config, "--input", fx.dataset, "--encoding", "latin-9")
	require.Error(t, err)

	_, err = runCLI(t, "classify", "--config", fx.config)
	require.Error(t, err)
}
