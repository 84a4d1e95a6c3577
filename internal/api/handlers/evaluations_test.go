package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evorag-ai/evorag/internal/domain"
)

type MockEvaluationReader struct {
	mock.Mock
}

func (m *MockEvaluationReader) Iterate(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EvaluationResult), args.Error(1)
}

func (m *MockEvaluationReader) GetByInteractionID(ctx context.Context, interactionID string) (*domain.EvaluationResult, error) {
	args := m.Called(ctx, interactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EvaluationResult), args.Error(1)
}

func storedResult(interactionID string) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		InteractionID:  interactionID,
		RawQuery:       "new tax rules?",
		RewrittenQuery: "corporate tax rate changes in the 2025 Finance Act",
		Answer:         "The corporate tax rate was reduced to 15% for SMEs.",
		QueryEvaluation: domain.QueryEvaluation{
			Reasoning:       "Preserved intent.",
			Score:           5,
			IdentifiedIssue: domain.IssueNone,
		},
		AnswerEvaluation: domain.AnswerEvaluation{
			Reasoning:         "Omits the effective date.",
			RelevanceScore:    5,
			CorrectnessScore:  5,
			CompletenessScore: 3,
			IdentifiedIssue:   "INCOMPLETE",
		},
		JudgedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluationsHandler_List_Success(t *testing.T) {
	mockLog := new(MockEvaluationReader)
	handler := NewEvaluationsHandler(mockLog)

	mockLog.On("Iterate", mock.Anything, 100).
		Return([]*domain.EvaluationResult{storedResult("int-1"), storedResult("int-2")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/evaluations", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data EvaluationListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Count)
	require.Len(t, resp.Data.Evaluations, 2)
	assert.Equal(t, "int-1", resp.Data.Evaluations[0].InteractionID)
	assert.Equal(t, "2025-06-01T12:00:00Z", resp.Data.Evaluations[0].Timestamp)
	mockLog.AssertExpectations(t)
}

func TestEvaluationsHandler_List_CustomLimit(t *testing.T) {
	mockLog := new(MockEvaluationReader)
	handler := NewEvaluationsHandler(mockLog)

	mockLog.On("Iterate", mock.Anything, 5).Return([]*domain.EvaluationResult{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/evaluations?limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockLog.AssertExpectations(t)
}

func TestEvaluationsHandler_List_InvalidLimit(t *testing.T) {
	mockLog := new(MockEvaluationReader)
	handler := NewEvaluationsHandler(mockLog)

	for _, limit := range []string{"0", "-3", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/evaluations?limit="+limit, nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	mockLog.AssertNotCalled(t, "Iterate", mock.Anything, mock.Anything)
}

func TestEvaluationsHandler_Get_Success(t *testing.T) {
	mockLog := new(MockEvaluationReader)
	handler := NewEvaluationsHandler(mockLog)

	mockLog.On("GetByInteractionID", mock.Anything, "int-1").Return(storedResult("int-1"), nil)

	r := chi.NewRouter()
	r.Get("/evaluations/{interaction_id}", handler.Get)

	req := httptest.NewRequest(http.MethodGet, "/evaluations/int-1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data EvaluationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "int-1", resp.Data.InteractionID)
	assert.Equal(t, 3, resp.Data.AnswerEvaluation.CompletenessScore)
	mockLog.AssertExpectations(t)
}

func TestEvaluationsHandler_Get_NotFound(t *testing.T) {
	mockLog := new(MockEvaluationReader)
	handler := NewEvaluationsHandler(mockLog)

	mockLog.On("GetByInteractionID", mock.Anything, "missing").Return(nil, domain.ErrEvaluationNotFound)

	r := chi.NewRouter()
	r.Get("/evaluations/{interaction_id}", handler.Get)

	req := httptest.NewRequest(http.MethodGet, "/evaluations/missing", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
