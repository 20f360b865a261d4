package teiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/sentiment/internal/classifier"
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mltransport"
	"github.com/jonesrussell/north-cloud/sentiment/internal/teiclient"
)

// Compile-time check that the client satisfies the backend contract.
var (
	_ classifier.Backend         = (*teiclient.Client)(nil)
	_ classifier.ConcurrencySafe = (*teiclient.Client)(nil)
)

func newClient(t *testing.T, handler http.HandlerFunc) *teiclient.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr, err := mltransport.New(mltransport.Config{
		BaseURL: srv.URL,
		Retry:   retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return teiclient.New(tr)
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokenize", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I love it.", body["inputs"])
		assert.Equal(t, false, body["add_special_tokens"])

		_, _ = w.Write([]byte(`[[
			{"id":100,"text":"I","special":false,"start":0,"stop":1},
			{"id":200,"text":"love","special":false,"start":2,"stop":6},
			{"id":300,"text":"it","special":false,"start":7,"stop":9},
			{"id":400,"text":".","special":false,"start":9,"stop":10}
		]]`))
	})

	n, err := c.CountTokens(context.Background(), "I love it.")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, c.ConcurrencySafe())
}

func TestCountTokens_BadShape(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.CountTokens(context.Background(), "x")
	assert.ErrorIs(t, err, teiclient.ErrTokenizeShape)
}

func TestInfer_TakesTopScorePerInput(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)

		var body struct {
			Inputs   [][]string `json:"inputs"`
			Truncate bool       `json:"truncate"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, [][]string{{"great"}, {"awful"}}, body.Inputs)
		assert.True(t, body.Truncate)

		_, _ = w.Write([]byte(`[
			[{"label":"LABEL_1","score":0.97},{"label":"LABEL_0","score":0.03}],
			[{"label":"LABEL_1","score":0.1},{"label":"LABEL_0","score":0.9}]
		]`))
	})

	got, err := c.Infer(context.Background(), []string{"great", "awful"})
	require.NoError(t, err)
	assert.Equal(t, []domain.RawPrediction{
		{Label: "LABEL_1", Score: 0.97},
		{Label: "LABEL_0", Score: 0.9},
	}, got)
}

func TestInfer_EmptyScores(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[]]`))
	})

	_, err := c.Infer(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, teiclient.ErrEmptyPrediction)
}

func TestInfer_ServerError(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"error":"batch size 300 > maximum allowed batch size 128","error_type":"Validation"}`))
	})

	_, err := c.Infer(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum allowed batch size")
}

func TestInfo(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info":
			_, _ = w.Write([]byte(`{"model_id":"siebert/sentiment-roberta-large-english","max_input_length":512,"version":"1.5.0"}`))
		default:
			http.NotFound(w, r)
		}
	})

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "siebert/sentiment-roberta-large-english", info.ModelID)
	assert.Equal(t, 512, info.MaxInputLen)
	assert.Equal(t, "1.5.0", info.Version)
}
