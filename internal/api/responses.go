package api

import (
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// Error messages returned by POST /api/predict.
const (
	msgExpectedJSON    = "Invalid input. Expected JSON request body."
	msgInvalidJSON     = "Invalid JSON payload."
	msgMissingFields   = "Invalid input. Provide 'text' and 'model_path'."
	msgTextNotString   = "Invalid input. 'text' must be a string."
	msgEmptyText       = "Text cannot be empty."
	msgModelNotFoundFm = "Model '%s' not found."
	msgInternalError   = "An unexpected error occurred"
	msgMissingTexts    = "Invalid input. Provide a non-empty 'texts' array of strings."
	msgTooManyTextsFmt = "Invalid input. At most %d texts per batch."
)

// ModelsResponse is the GET /api/models body.
type ModelsResponse struct {
	AvailableModels []string `json:"available_models"`
}

// PredictResponse is the POST /api/predict body.
type PredictResponse struct {
	ModelPath string `json:"model_path"`
	Sentiment string `json:"sentiment"`
}

// ErrorResponse is every error body. Message carries fault details on 500s.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// BatchRequest is the POST /api/classify/batch body.
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// ModelPrediction is one model's verdict on one text.
type ModelPrediction struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Segments  int     `json:"segments"`
}

// BatchRecord is one classified text.
type BatchRecord struct {
	Text    string                     `json:"text"`
	Results map[string]ModelPrediction `json:"results"`
}

// BatchResponse is the POST /api/classify/batch body.
type BatchResponse struct {
	Models  []string      `json:"models"`
	Records []BatchRecord `json:"records"`
	Count   int           `json:"count"`
}

func toBatchRecord(rec domain.ClassificationRecord) BatchRecord {
	results := rec.Results()
	out := BatchRecord{Text: rec.Text, Results: make(map[string]ModelPrediction, len(results))}
	for id, res := range results {
		out.Results[id] = ModelPrediction{
			Sentiment: res.Label.Lower(),
			Score:     res.Score,
			Segments:  res.Segments,
		}
	}
	return out
}
