package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evorag-ai/evorag/internal/domain"
)

// MockEvaluationJobCreator is a mock implementation of EvaluationJobCreator
type MockEvaluationJobCreator struct {
	mock.Mock
}

func (m *MockEvaluationJobCreator) Create(ctx context.Context, job *domain.EvaluationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func completedInteraction() *domain.Interaction {
	return domain.NewInteraction(
		"new tax rules?",
		"corporate tax rate changes in the 2025 Finance Act",
		[]domain.RetrievedChunk{
			{ChunkID: "c1", Source: "finance_act_2025.pdf", Text: "The corporate tax rate is reduced to 15% for SMEs.", Score: 0.93},
		},
		"The corporate tax rate was reduced to 15% for SMEs.",
		[]string{"finance_act_2025.pdf"},
	)
}

func TestDispatcher_Enqueue(t *testing.T) {
	mockRepo := new(MockEvaluationJobCreator)
	interaction := completedInteraction()

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.EvaluationJob) bool {
		return job.ID != "" &&
			job.InteractionID == interaction.ID &&
			job.Status == domain.EvaluationJobStatusPending &&
			job.Attempts == 0 &&
			job.Interaction == interaction &&
			!job.NextAttemptAt.IsZero()
	})).Return(nil)

	dispatcher := NewDispatcher(mockRepo)
	err := dispatcher.Enqueue(context.Background(), interaction)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestDispatcher_Enqueue_IncompleteInteraction(t *testing.T) {
	mockRepo := new(MockEvaluationJobCreator)
	dispatcher := NewDispatcher(mockRepo)

	interaction := completedInteraction()
	interaction.Answer = "   "

	err := dispatcher.Enqueue(context.Background(), interaction)
	assert.ErrorIs(t, err, domain.ErrIncompleteInteraction)

	err = dispatcher.Enqueue(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrIncompleteInteraction)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispatcher_Enqueue_RepositoryError(t *testing.T) {
	mockRepo := new(MockEvaluationJobCreator)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	dispatcher := NewDispatcher(mockRepo)
	err := dispatcher.Enqueue(context.Background(), completedInteraction())

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeDispatch, domainErr.Code)
	mockRepo.AssertExpectations(t)
}
