// Package api exposes sentiment classification over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

const (
	defaultMaxBatchTexts = 100
	maxBodyBytes         = 8 << 20
)

// Classifier is the registry surface the handlers need.
type Classifier interface {
	Models() []string
	ClassifyOne(ctx context.Context, modelID, text string) (domain.ModelResult, error)
	ClassifyBatch(ctx context.Context, texts []string) ([]domain.ClassificationRecord, error)
}

// Handler serves the sentiment API.
type Handler struct {
	classifier    Classifier
	logger        logger.Logger
	maxBatchTexts int
}

// NewHandler creates a Handler. maxBatchTexts <= 0 uses the default of 100.
func NewHandler(c Classifier, log logger.Logger, maxBatchTexts int) *Handler {
	if maxBatchTexts <= 0 {
		maxBatchTexts = defaultMaxBatchTexts
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{classifier: c, logger: log, maxBatchTexts: maxBatchTexts}
}

// ListModels handles GET /api/models.
func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{AvailableModels: h.classifier.Models()})
}

// Predict handles POST /api/predict. Request shape is validated before the
// classifier is invoked.
func (h *Handler) Predict(c *gin.Context) {
	fields, ok := h.readObject(c)
	if !ok {
		return
	}

	rawText, hasText := fields["text"]
	rawModel, hasModel := fields["model_path"]
	if !hasText || !hasModel {
		badRequest(c, msgMissingFields, "")
		return
	}

	var text string
	if err := json.Unmarshal(rawText, &text); err != nil || isNull(rawText) {
		badRequest(c, msgTextNotString, "")
		return
	}
	if strings.TrimSpace(text) == "" {
		badRequest(c, msgEmptyText, "")
		return
	}

	var modelID string
	if err := json.Unmarshal(rawModel, &modelID); err != nil || isNull(rawModel) {
		badRequest(c, msgMissingFields, "'model_path' must be a string")
		return
	}

	res, err := h.classifier.ClassifyOne(c.Request.Context(), modelID, text)
	if err != nil {
		h.classifyError(c, err, logger.String("model", modelID))
		return
	}

	c.JSON(http.StatusOK, PredictResponse{ModelPath: modelID, Sentiment: res.Label.Lower()})
}

// ClassifyBatch handles POST /api/classify/batch: every text through every model.
func (h *Handler) ClassifyBatch(c *gin.Context) {
	fields, ok := h.readObject(c)
	if !ok {
		return
	}

	var req BatchRequest
	raw, present := fields["texts"]
	if !present || json.Unmarshal(raw, &req.Texts) != nil || len(req.Texts) == 0 {
		badRequest(c, msgMissingTexts, "")
		return
	}
	if len(req.Texts) > h.maxBatchTexts {
		badRequest(c, fmt.Sprintf(msgTooManyTextsFmt, h.maxBatchTexts), "")
		return
	}
	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			badRequest(c, msgEmptyText, fmt.Sprintf("texts[%d]", i))
			return
		}
	}

	logger.FromContext(c.Request.Context()).Info("Batch classifying texts", logger.Int("batch_size", len(req.Texts)))

	records, err := h.classifier.ClassifyBatch(c.Request.Context(), req.Texts)
	if err != nil {
		h.classifyError(c, err, logger.Int("batch_size", len(req.Texts)))
		return
	}

	resp := BatchResponse{
		Models:  h.classifier.Models(),
		Records: make([]BatchRecord, len(records)),
		Count:   len(records),
	}
	for i, rec := range records {
		resp.Records[i] = toBatchRecord(rec)
	}
	c.JSON(http.StatusOK, resp)
}

// readObject enforces a JSON content type and decodes the body as an
// object. It writes the 400 response itself and reports false on failure.
func (h *Handler) readObject(c *gin.Context) (map[string]json.RawMessage, bool) {
	if !isJSONContentType(c.ContentType()) {
		badRequest(c, msgExpectedJSON, "")
		return nil, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, msgInvalidJSON, err.Error())
		return nil, false
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		badRequest(c, msgInvalidJSON, err.Error())
		return nil, false
	}
	if _, isObject := payload.(map[string]any); !isObject {
		badRequest(c, msgMissingFields, "request body must be a JSON object")
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		badRequest(c, msgInvalidJSON, err.Error())
		return nil, false
	}
	return fields, true
}

// classifyError maps core errors: an unknown model is 404, anything else 500.
func (h *Handler) classifyError(c *gin.Context, err error, fields ...logger.Field) {
	log := logger.FromContext(c.Request.Context())

	var unknown *domain.UnknownModelError
	if errors.As(err, &unknown) {
		log.Warn("Model not found", append(fields, logger.Error(err))...)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf(msgModelNotFoundFm, unknown.ModelID)})
		return
	}

	log.Error("Classification failed", append(fields, logger.Error(err))...)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternalError, Message: err.Error()})
}

func badRequest(c *gin.Context, msg, details string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Details: details})
}

func isJSONContentType(ct string) bool {
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
