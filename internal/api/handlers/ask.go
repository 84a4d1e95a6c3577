package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/evorag-ai/evorag/internal/api"
	"github.com/evorag-ai/evorag/internal/service"
)

// AskService answers one user query through the full pipeline.
type AskService interface {
	Ask(ctx context.Context, rawQuery string) (*service.AskResult, error)
}

// AskHandler serves the synchronous question-answering endpoint.
type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Query string `json:"query"`
}

type AskResponse struct {
	InteractionID  string   `json:"interaction_id"`
	Answer         string   `json:"answer"`
	CitedDocs      []string `json:"cited_docs"`
	ReferencedDocs []string `json:"referenced_docs"`
}

// Ask handles POST /ask. The response returns as soon as the answer is
// synthesized; evaluation happens asynchronously and never delays it.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Ask(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := AskResponse{
		InteractionID:  result.InteractionID,
		Answer:         result.Answer,
		CitedDocs:      result.CitedDocs,
		ReferencedDocs: result.ReferencedDocs,
	}
	if resp.CitedDocs == nil {
		resp.CitedDocs = []string{}
	}
	if resp.ReferencedDocs == nil {
		resp.ReferencedDocs = []string{}
	}

	api.Success(w, http.StatusOK, resp)
}
