package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reardonm/trivia/models"
)

type mockQuestionStore struct {
	saveQuestion      func(ctx context.Context, q models.Question) error
	listCategories    func(ctx context.Context) ([]string, error)
	allocateQuestions func(ctx context.Context, category string, n int) ([]models.Question, error)
}

func (m *mockQuestionStore) SaveQuestion(ctx context.Context, q models.Question) error {
	return m.saveQuestion(ctx, q)
}

func (m *mockQuestionStore) ListCategories(ctx context.Context) ([]string, error) {
	return m.listCategories(ctx)
}

func (m *mockQuestionStore) AllocateQuestions(ctx context.Context, category string, n int) ([]models.Question, error) {
	return m.allocateQuestions(ctx, category, n)
}

func TestAllocateQuestions(t *testing.T) {
	store := &mockQuestionStore{
		allocateQuestions: func(_ context.Context, category string, n int) ([]models.Question, error) {
			assert.Equal(t, "Math", category)
			require.Equal(t, 2, n)
			return []models.Question{sampleQuestion(), sampleQuestion()}, nil
		},
	}
	svc := NewQuestionService(store, 2)

	questions, err := svc.AllocateQuestions(context.Background(), "Math")
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestAllocateQuestionsInsufficientData(t *testing.T) {
	store := &mockQuestionStore{
		allocateQuestions: func(context.Context, string, int) ([]models.Question, error) {
			return []models.Question{sampleQuestion()}, nil
		},
	}
	svc := NewQuestionService(store, 10)

	_, err := svc.AllocateQuestions(context.Background(), "Math")
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestListCategories(t *testing.T) {
	store := &mockQuestionStore{
		listCategories: func(context.Context) ([]string, error) {
			return []string{"Math", "Music"}, nil
		},
	}
	svc := NewQuestionService(store, 10)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Music"}, categories)
}
