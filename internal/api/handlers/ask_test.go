package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/service"
)

type MockAskService struct {
	mock.Mock
}

func (m *MockAskService) Ask(ctx context.Context, rawQuery string) (*service.AskResult, error) {
	args := m.Called(ctx, rawQuery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskResult), args.Error(1)
}

func TestAskHandler_Ask_Success(t *testing.T) {
	mockSvc := new(MockAskService)
	handler := NewAskHandler(mockSvc)

	mockSvc.On("Ask", mock.Anything, "new tax rules?").Return(&service.AskResult{
		InteractionID:  "int-1",
		Answer:         "The corporate tax rate was reduced to 15% for SMEs.",
		CitedDocs:      []string{"finance_act_2025.pdf"},
		ReferencedDocs: []string{"finance_act_2025.pdf", "budget_memo.pdf"},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"new tax rules?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data AskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "int-1", resp.Data.InteractionID)
	assert.Equal(t, "The corporate tax rate was reduced to 15% for SMEs.", resp.Data.Answer)
	assert.Equal(t, []string{"finance_act_2025.pdf"}, resp.Data.CitedDocs)
	assert.Equal(t, []string{"finance_act_2025.pdf", "budget_memo.pdf"}, resp.Data.ReferencedDocs)
	mockSvc.AssertExpectations(t)
}

func TestAskHandler_Ask_InvalidBody(t *testing.T) {
	mockSvc := new(MockAskService)
	handler := NewAskHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
}

func TestAskHandler_Ask_EmptyQuery(t *testing.T) {
	mockSvc := new(MockAskService)
	handler := NewAskHandler(mockSvc)

	mockSvc.On("Ask", mock.Anything, "").Return(nil, domain.ErrEmptyQuery)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":""}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeValidation, resp.Code)
}

func TestAskHandler_Ask_RetrievalFailure(t *testing.T) {
	mockSvc := new(MockAskService)
	handler := NewAskHandler(mockSvc)

	mockSvc.On("Ask", mock.Anything, "q").
		Return(nil, domain.NewDomainError(domain.ErrCodeRetrievalFailure, "document retrieval failed"))

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"q"}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAskHandler_Ask_EmptySliceFieldsSerializeAsArrays(t *testing.T) {
	mockSvc := new(MockAskService)
	handler := NewAskHandler(mockSvc)

	mockSvc.On("Ask", mock.Anything, "obscure").Return(&service.AskResult{
		InteractionID: "int-2",
		Answer:        "I could not find any relevant information in the provided documents to answer your question.",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"obscure"}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cited_docs":[]`)
	assert.Contains(t, w.Body.String(), `"referenced_docs":[]`)
}
