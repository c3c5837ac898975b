package services

import (
	"context"
	"fmt"

	"github.com/reardonm/trivia/models"
)

// QuestionStore is the slice of the shared store backing the question pool.
type QuestionStore interface {
	SaveQuestion(ctx context.Context, q models.Question) error
	ListCategories(ctx context.Context) ([]string, error)
	AllocateQuestions(ctx context.Context, category string, n int) ([]models.Question, error)
}

// QuestionService allocates questions for new games from the shared pool.
type QuestionService struct {
	store         QuestionStore
	roundsPerGame int
}

func NewQuestionService(store QuestionStore, roundsPerGame int) *QuestionService {
	return &QuestionService{store: store, roundsPerGame: roundsPerGame}
}

// ListCategories returns every category with questions available.
func (s *QuestionService) ListCategories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

// AllocateQuestions picks exactly one question per round for a new game,
// stalest first. It fails before any game state is created when the category
// cannot fill the round count.
func (s *QuestionService) AllocateQuestions(ctx context.Context, category string) ([]models.Question, error) {
	questions, err := s.store.AllocateQuestions(ctx, category, s.roundsPerGame)
	if err != nil {
		return nil, err
	}
	if len(questions) < s.roundsPerGame {
		return nil, fmt.Errorf("%w: category %q has %d questions, need %d",
			models.ErrInsufficientData, category, len(questions), s.roundsPerGame)
	}
	return questions, nil
}
