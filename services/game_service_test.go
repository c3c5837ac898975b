package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reardonm/trivia/models"
)

type mockGameStore struct {
	createGame           func(ctx context.Context, title string, questions []models.Question) (string, error)
	findGame             func(ctx context.Context, gameID string) (*models.Game, error)
	addPlayer            func(ctx context.Context, gameID, username string) (*models.Game, models.JoinStatus, error)
	findQuestionForRound func(ctx context.Context, gameID string, round int) (*models.Question, error)
	findPlayerCount      func(ctx context.Context, gameID string, round int) (int, error)
	findStats            func(ctx context.Context, gameID string, round int) (map[string]int, error)
	recordAnswer         func(ctx context.Context, gameID string, round int, username, answer string) (bool, error)
}

func (m *mockGameStore) CreateGame(ctx context.Context, title string, questions []models.Question) (string, error) {
	return m.createGame(ctx, title, questions)
}

func (m *mockGameStore) FindGame(ctx context.Context, gameID string) (*models.Game, error) {
	return m.findGame(ctx, gameID)
}

func (m *mockGameStore) AddPlayer(ctx context.Context, gameID, username string) (*models.Game, models.JoinStatus, error) {
	return m.addPlayer(ctx, gameID, username)
}

func (m *mockGameStore) FindQuestionForRound(ctx context.Context, gameID string, round int) (*models.Question, error) {
	return m.findQuestionForRound(ctx, gameID, round)
}

func (m *mockGameStore) FindPlayerCount(ctx context.Context, gameID string, round int) (int, error) {
	return m.findPlayerCount(ctx, gameID, round)
}

func (m *mockGameStore) FindStats(ctx context.Context, gameID string, round int) (map[string]int, error) {
	return m.findStats(ctx, gameID, round)
}

func (m *mockGameStore) RecordAnswer(ctx context.Context, gameID string, round int, username, answer string) (bool, error) {
	return m.recordAnswer(ctx, gameID, round, username, answer)
}

func (m *mockGameStore) SubscribeGameChannel(ctx context.Context) <-chan string {
	return nil
}

func (m *mockGameStore) SubscribeRoundChannel(ctx context.Context) <-chan models.RoundEvent {
	return nil
}

func sampleQuestion() models.Question {
	return models.Question{
		Category:         "Math",
		Difficulty:       models.DifficultyEasy,
		Text:             "What is 2 + 2?",
		CorrectAnswer:    "4",
		IncorrectAnswers: []string{"3", "5", "Donkey"},
	}
}

func TestCreateGameValidation(t *testing.T) {
	store := &mockGameStore{
		createGame: func(context.Context, string, []models.Question) (string, error) {
			t.Fatal("store must not be touched for invalid input")
			return "", nil
		},
	}
	svc := NewGameService(store, 3)

	_, err := svc.CreateGame(context.Background(), "  ", []models.Question{sampleQuestion()})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.CreateGame(context.Background(), "Math", nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateGame(t *testing.T) {
	store := &mockGameStore{
		createGame: func(_ context.Context, title string, questions []models.Question) (string, error) {
			assert.Equal(t, "Math", title)
			assert.Len(t, questions, 1)
			return "42", nil
		},
	}
	svc := NewGameService(store, 3)

	game, err := svc.CreateGame(context.Background(), "Math", []models.Question{sampleQuestion()})
	require.NoError(t, err)
	assert.Equal(t, "42", game.ID)
	assert.Equal(t, "Math", game.Title)
	assert.Equal(t, 1, game.TotalRounds)
	assert.False(t, game.Started())
}

func TestJoinGameValidation(t *testing.T) {
	store := &mockGameStore{
		addPlayer: func(context.Context, string, string) (*models.Game, models.JoinStatus, error) {
			t.Fatal("store must not be touched for invalid input")
			return nil, 0, nil
		},
	}
	svc := NewGameService(store, 3)

	_, _, err := svc.JoinGame(context.Background(), "42", "   ", "session-1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestJoinGame(t *testing.T) {
	store := &mockGameStore{
		addPlayer: func(_ context.Context, gameID, username string) (*models.Game, models.JoinStatus, error) {
			assert.Equal(t, "42", gameID)
			assert.Equal(t, "alice", username)
			return &models.Game{ID: "42", Title: "Math", TotalRounds: 2, Players: 1}, models.PlayerAdded, nil
		},
	}
	svc := NewGameService(store, 3)

	game, status, err := svc.JoinGame(context.Background(), "42", "alice", "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerAdded, status)
	assert.Equal(t, 1, game.Players)
}

func TestAnswerQuestionBeforeStart(t *testing.T) {
	store := &mockGameStore{
		findGame: func(context.Context, string) (*models.Game, error) {
			return &models.Game{ID: "42", Title: "Math", TotalRounds: 2}, nil
		},
	}
	svc := NewGameService(store, 3)

	_, err := svc.AnswerQuestion(context.Background(), "42", "alice", "4")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAnswerQuestion(t *testing.T) {
	round := 1
	var recorded []string
	store := &mockGameStore{
		findGame: func(context.Context, string) (*models.Game, error) {
			return &models.Game{ID: "42", Title: "Math", TotalRounds: 2, CurrentRound: &round}, nil
		},
		findQuestionForRound: func(_ context.Context, _ string, gotRound int) (*models.Question, error) {
			assert.Equal(t, round, gotRound)
			q := sampleQuestion()
			return &q, nil
		},
		recordAnswer: func(_ context.Context, _ string, gotRound int, username, answer string) (bool, error) {
			assert.Equal(t, round, gotRound)
			recorded = append(recorded, username+"="+answer)
			return true, nil
		},
	}
	svc := NewGameService(store, 3)

	correct, err := svc.AnswerQuestion(context.Background(), "42", "alice", "4")
	require.NoError(t, err)
	assert.True(t, correct)

	correct, err = svc.AnswerQuestion(context.Background(), "42", "bob", "Donkey")
	require.NoError(t, err)
	assert.False(t, correct)

	assert.Equal(t, []string{"alice=4", "bob=Donkey"}, recorded)
}

func TestAnswerQuestionDuplicate(t *testing.T) {
	round := 0
	store := &mockGameStore{
		findGame: func(context.Context, string) (*models.Game, error) {
			return &models.Game{ID: "42", Title: "Math", TotalRounds: 2, CurrentRound: &round}, nil
		},
		findQuestionForRound: func(context.Context, string, int) (*models.Question, error) {
			q := sampleQuestion()
			return &q, nil
		},
		recordAnswer: func(context.Context, string, int, string, string) (bool, error) {
			return false, nil // already voted this round
		},
	}
	svc := NewGameService(store, 3)

	// The correctness reply still goes out even when the vote is ignored.
	correct, err := svc.AnswerQuestion(context.Background(), "42", "alice", "4")
	require.NoError(t, err)
	assert.True(t, correct)
}

func TestAnswerQuestionUnknownGame(t *testing.T) {
	store := &mockGameStore{
		findGame: func(context.Context, string) (*models.Game, error) {
			return nil, models.ErrNotFound
		},
	}
	svc := NewGameService(store, 3)

	_, err := svc.AnswerQuestion(context.Background(), "999", "alice", "4")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindRound(t *testing.T) {
	store := &mockGameStore{
		findQuestionForRound: func(context.Context, string, int) (*models.Question, error) {
			q := sampleQuestion()
			return &q, nil
		},
		findPlayerCount: func(context.Context, string, int) (int, error) {
			return 5, nil
		},
	}
	svc := NewGameService(store, 3)

	round, err := svc.FindRound(context.Background(), "42", 1)
	require.NoError(t, err)
	assert.Equal(t, "42", round.GameID)
	assert.Equal(t, 1, round.Number)
	assert.Equal(t, 5, round.Players)
	assert.Equal(t, "4", round.Question.CorrectAnswer)
}

func TestFindRoundStoreError(t *testing.T) {
	wantErr := errors.New("redis gone")
	store := &mockGameStore{
		findQuestionForRound: func(context.Context, string, int) (*models.Question, error) {
			return nil, wantErr
		},
	}
	svc := NewGameService(store, 3)

	_, err := svc.FindRound(context.Background(), "42", 1)
	assert.ErrorIs(t, err, wantErr)
}
