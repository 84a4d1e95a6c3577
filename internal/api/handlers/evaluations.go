package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evorag-ai/evorag/internal/api"
	"github.com/evorag-ai/evorag/internal/domain"
)

// EvaluationReader is the read side of the evaluation log.
type EvaluationReader interface {
	Iterate(ctx context.Context, limit int) ([]*domain.EvaluationResult, error)
	GetByInteractionID(ctx context.Context, interactionID string) (*domain.EvaluationResult, error)
}

// EvaluationsHandler exposes stored judge verdicts for offline analysis.
type EvaluationsHandler struct {
	log EvaluationReader
}

func NewEvaluationsHandler(log EvaluationReader) *EvaluationsHandler {
	return &EvaluationsHandler{log: log}
}

type EvaluationResponse struct {
	InteractionID    string                  `json:"interaction_id"`
	RawQuery         string                  `json:"raw_query,omitempty"`
	RewrittenQuery   string                  `json:"rewritten_query,omitempty"`
	Answer           string                  `json:"answer,omitempty"`
	QueryEvaluation  domain.QueryEvaluation  `json:"query_evaluation"`
	AnswerEvaluation domain.AnswerEvaluation `json:"answer_evaluation"`
	Timestamp        string                  `json:"timestamp"`
}

type EvaluationListResponse struct {
	Evaluations []*EvaluationResponse `json:"evaluations"`
	Count       int                   `json:"count"`
}

// List handles GET /evaluations.
func (h *EvaluationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.log.Iterate(r.Context(), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EvaluationResponse, len(results))
	for i, result := range results {
		responses[i] = toEvaluationResponse(result)
	}

	api.Success(w, http.StatusOK, EvaluationListResponse{
		Evaluations: responses,
		Count:       len(responses),
	})
}

// Get handles GET /evaluations/{interaction_id}.
func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interaction_id")
	if interactionID == "" {
		api.Error(w, http.StatusBadRequest, "interaction_id is required")
		return
	}

	result, err := h.log.GetByInteractionID(r.Context(), interactionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toEvaluationResponse(result))
}

func toEvaluationResponse(result *domain.EvaluationResult) *EvaluationResponse {
	return &EvaluationResponse{
		InteractionID:    result.InteractionID,
		RawQuery:         result.RawQuery,
		RewrittenQuery:   result.RewrittenQuery,
		Answer:           result.Answer,
		QueryEvaluation:  result.QueryEvaluation,
		AnswerEvaluation: result.AnswerEvaluation,
		Timestamp:        result.JudgedAt.UTC().Format(time.RFC3339Nano),
	}
}
