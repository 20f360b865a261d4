// Package segmenter packs sentences greedily into segments that fit a
// model's token budget.
package segmenter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// ErrNoBudget is returned when max length minus reserved tokens leaves no room.
var ErrNoBudget = errors.New("segment token budget must be positive")

// TokenCounter counts tokens the way the target model's tokenizer does,
// without special tokens.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithReservedTokens overrides the headroom kept for special tokens.
func WithReservedTokens(n int) Option {
	return func(s *Segmenter) { s.reserved = n }
}

// Segmenter turns text into budget-sized segments for one model.
type Segmenter struct {
	splitter  SentenceSplitter
	counter   TokenCounter
	maxLength int
	reserved  int
}

// New builds a Segmenter for a model with the given maximum input length.
func New(splitter SentenceSplitter, counter TokenCounter, maxLength int, opts ...Option) (*Segmenter, error) {
	s := &Segmenter{
		splitter:  splitter,
		counter:   counter,
		maxLength: maxLength,
		reserved:  domain.DefaultReservedTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Budget() <= 0 {
		return nil, fmt.Errorf("%w: max length %d, reserved %d", ErrNoBudget, s.maxLength, s.reserved)
	}
	return s, nil
}

// Budget is the largest token count a regular segment may hold.
func (s *Segmenter) Budget() int {
	return s.maxLength - s.reserved
}

// Segments yields the segments of text lazily. The sequence is finite and
// can be ranged over repeatedly. On a token counting error it yields the
// error once and stops.
func (s *Segmenter) Segments(ctx context.Context, text string) iter.Seq2[domain.Segment, error] {
	return func(yield func(domain.Segment, error) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		budget := s.Budget()
		index := 0
		var (
			pending []string
			running int
		)

		emit := func(sentences []string, tokens int, oversized bool) bool {
			seg := domain.Segment{
				Index:      index,
				Text:       strings.Join(sentences, " "),
				Sentences:  sentences,
				TokenCount: tokens,
				Oversized:  oversized,
			}
			index++
			return yield(seg, nil)
		}

		for _, sentence := range s.splitter.Split(text) {
			if err := ctx.Err(); err != nil {
				yield(domain.Segment{}, err)
				return
			}

			n, err := s.counter.CountTokens(ctx, sentence)
			if err != nil {
				yield(domain.Segment{}, fmt.Errorf("count tokens: %w", err))
				return
			}

			if running+n > budget && len(pending) > 0 {
				if !emit(pending, running, false) {
					return
				}
				pending, running = nil, 0
			}

			if n > budget {
				if !emit([]string{sentence}, n, true) {
					return
				}
				continue
			}

			pending = append(pending, sentence)
			running += n
		}

		if len(pending) > 0 {
			emit(pending, running, false)
		}
	}
}

// Split collects Segments into a slice.
func (s *Segmenter) Split(ctx context.Context, text string) ([]domain.Segment, error) {
	var out []domain.Segment
	for seg, err := range s.Segments(ctx, text) {
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}
