package segmenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceSplitter breaks text into sentences in reading order.
type SentenceSplitter interface {
	Split(text string) []string
}

// SplitterFunc adapts a function to SentenceSplitter.
type SplitterFunc func(text string) []string

func (f SplitterFunc) Split(text string) []string { return f(text) }

// LanguageEnglish is the only language with bundled Punkt training data.
const LanguageEnglish = "english"

// ErrUnsupportedLanguage is returned for a language without a Punkt model.
var ErrUnsupportedLanguage = errors.New("unsupported sentence splitter language")

// IsSupportedLanguage reports whether NewSplitter accepts language.
func IsSupportedLanguage(language string) bool {
	return strings.EqualFold(strings.TrimSpace(language), LanguageEnglish)
}

// PunktSplitter splits text with a pretrained Punkt model.
// It is safe for concurrent use once built.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	language  string
}

// NewPunktSplitter loads the embedded English Punkt training data.
func NewPunktSplitter() (*PunktSplitter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load punkt english model: %w", err)
	}
	return &PunktSplitter{tokenizer: tokenizer, language: LanguageEnglish}, nil
}

// NewSplitter returns the Punkt splitter for language.
func NewSplitter(language string) (*PunktSplitter, error) {
	if !IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	return NewPunktSplitter()
}

// Language names the Punkt model in use.
func (p *PunktSplitter) Language() string {
	return p.language
}

// Split returns the trimmed, non-empty sentences of text.
func (p *PunktSplitter) Split(text string) []string {
	tokens := p.tokenizer.Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, s := range tokens {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
