// Package teiclient implements the classification backend against a
// text-embeddings-inference (TEI) server hosting a sequence
// classification model.
//
// TEI truncates inputs longer than the model's maximum length when
// "truncate" is set, so oversized segments are classified on their
// leading tokens rather than rejected.
package teiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mltransport"
)

var (
	// ErrEmptyPrediction is returned when TEI answers an input with no scores.
	ErrEmptyPrediction = errors.New("tei returned no scores for input")
	// ErrTokenizeShape is returned when /tokenize answers an unexpected shape.
	ErrTokenizeShape = errors.New("tei tokenize returned unexpected shape")
)

type predictRequest struct {
	Inputs   [][]string `json:"inputs"`
	Truncate bool       `json:"truncate"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type tokenizeRequest struct {
	Inputs           string `json:"inputs"`
	AddSpecialTokens bool   `json:"add_special_tokens"`
}

type token struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Special bool   `json:"special"`
}

// Info is the subset of GET /info the service reports.
type Info struct {
	ModelID      string `json:"model_id"`
	ModelDType   string `json:"model_dtype"`
	MaxInputLen  int    `json:"max_input_length"`
	MaxBatchSize int    `json:"max_client_batch_size"`
	Version      string `json:"version"`
}

// Client is a classifier backend talking to one TEI server.
type Client struct {
	transport *mltransport.Transport
}

// New returns a Client over t.
func New(t *mltransport.Transport) *Client {
	return &Client{transport: t}
}

// ConcurrencySafe reports true: each call is an independent HTTP request.
func (c *Client) ConcurrencySafe() bool { return true }

// CountTokens counts text's tokens without special tokens.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	var resp [][]token
	err := c.transport.PostJSON(ctx, "/tokenize", tokenizeRequest{Inputs: text, AddSpecialTokens: false}, &resp)
	if err != nil {
		return 0, fmt.Errorf("tokenize: %w", err)
	}
	if len(resp) != 1 {
		return 0, fmt.Errorf("%w: %d sequences", ErrTokenizeShape, len(resp))
	}

	n := 0
	for _, tok := range resp[0] {
		if !tok.Special {
			n++
		}
	}
	return n, nil
}

// Infer classifies inputs in one request and returns each input's top label.
func (c *Client) Infer(ctx context.Context, inputs []string) ([]domain.RawPrediction, error) {
	req := predictRequest{Inputs: make([][]string, len(inputs)), Truncate: true}
	for i, in := range inputs {
		req.Inputs[i] = []string{in}
	}

	var resp [][]labelScore
	if err := c.transport.PostJSON(ctx, "/predict", req, &resp); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out := make([]domain.RawPrediction, len(resp))
	for i, scores := range resp {
		if len(scores) == 0 {
			return nil, fmt.Errorf("input %d: %w", i, ErrEmptyPrediction)
		}
		best := scores[0]
		for _, s := range scores[1:] {
			if s.Score > best.Score {
				best = s
			}
		}
		out[i] = domain.RawPrediction{Label: best.Label, Score: best.Score}
	}
	return out, nil
}

// Info fetches the server's model metadata.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.transport.GetJSON(ctx, "/info", &info); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	return info, nil
}
