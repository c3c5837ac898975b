package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/models"
)

// GameStore is the slice of the shared store the game engine depends on.
type GameStore interface {
	CreateGame(ctx context.Context, title string, questions []models.Question) (string, error)
	FindGame(ctx context.Context, gameID string) (*models.Game, error)
	AddPlayer(ctx context.Context, gameID, username string) (*models.Game, models.JoinStatus, error)
	FindQuestionForRound(ctx context.Context, gameID string, round int) (*models.Question, error)
	FindPlayerCount(ctx context.Context, gameID string, round int) (int, error)
	FindStats(ctx context.Context, gameID string, round int) (map[string]int, error)
	RecordAnswer(ctx context.Context, gameID string, round int, username, answer string) (bool, error)
	SubscribeGameChannel(ctx context.Context) <-chan string
	SubscribeRoundChannel(ctx context.Context) <-chan models.RoundEvent
}

// SchedulerStore is the slice of the shared store the round scheduler polls.
type SchedulerStore interface {
	AdvancePendingRounds(ctx context.Context, startDelay, roundDuration time.Duration) error
	StartPendingGames(ctx context.Context, startDelay time.Duration, minPlayers int) error
}

// GameService is the public game engine consumed by the connection layer. It
// is stateless; any number of instances can run concurrently against the same
// store.
type GameService struct {
	store      GameStore
	minPlayers int
	log        *logrus.Entry
}

func NewGameService(store GameStore, minPlayers int) *GameService {
	return &GameService{
		store:      store,
		minPlayers: minPlayers,
		log:        logrus.WithField("component", "game_service"),
	}
}

// CreateGame validates the request and creates a game in the waiting room
// phase with its questions pre-assigned to rounds.
func (s *GameService) CreateGame(ctx context.Context, title string, questions []models.Question) (*models.Game, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title must not be blank", models.ErrInvalidInput)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: questions are required", models.ErrInvalidInput)
	}
	id, err := s.store.CreateGame(ctx, title, questions)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"game": id, "title": title, "rounds": len(questions)}).Info("game created")
	return &models.Game{
		ID:          id,
		Title:       title,
		TotalRounds: len(questions),
		Players:     0,
	}, nil
}

// JoinGame adds a player to a game's waiting room. The sessionId is accepted
// for session affinity but is not needed for lifecycle correctness.
func (s *GameService) JoinGame(ctx context.Context, gameID, username, sessionID string) (*models.Game, models.JoinStatus, error) {
	if strings.TrimSpace(username) == "" {
		return nil, 0, fmt.Errorf("%w: username must not be blank", models.ErrInvalidInput)
	}
	game, status, err := s.store.AddPlayer(ctx, gameID, username)
	if err != nil {
		return nil, 0, err
	}
	s.log.WithFields(logrus.Fields{
		"game":     gameID,
		"username": username,
		"session":  sessionID,
		"status":   status.String(),
		"players":  game.Players,
	}).Info("join game")
	return game, status, nil
}

// FindGame loads a game by id.
func (s *GameService) FindGame(ctx context.Context, gameID string) (*models.Game, error) {
	return s.store.FindGame(ctx, gameID)
}

// FindRound composes the round's question and player snapshot into a single
// read model.
func (s *GameService) FindRound(ctx context.Context, gameID string, round int) (*models.Round, error) {
	question, err := s.store.FindQuestionForRound(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	players, err := s.store.FindPlayerCount(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	return &models.Round{
		GameID:   gameID,
		Number:   round,
		Question: *question,
		Players:  players,
	}, nil
}

// AnswerQuestion records the player's answer against the game's current round
// and reports whether it was correct. Only a player's first answer per round
// counts toward the tally; the correctness reply is computed either way.
func (s *GameService) AnswerQuestion(ctx context.Context, gameID, username, answer string) (bool, error) {
	game, err := s.store.FindGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	if !game.Started() {
		return false, fmt.Errorf("%w: game %s has not started", models.ErrInvalidInput, gameID)
	}
	round := *game.CurrentRound
	question, err := s.store.FindQuestionForRound(ctx, gameID, round)
	if err != nil {
		return false, err
	}
	counted, err := s.store.RecordAnswer(ctx, gameID, round, username, answer)
	if err != nil {
		return false, err
	}
	if !counted {
		s.log.WithFields(logrus.Fields{"game": gameID, "round": round, "username": username}).
			Debug("duplicate answer ignored")
	}
	return answer == question.CorrectAnswer, nil
}

// FindStats returns the answer tally for a round.
func (s *GameService) FindStats(ctx context.Context, gameID string, round int) (map[string]int, error) {
	return s.store.FindStats(ctx, gameID, round)
}

// MinPlayers is the configured auto-start threshold.
func (s *GameService) MinPlayers() int {
	return s.minPlayers
}

// SubscribeGameChannel streams ids of games as they start.
func (s *GameService) SubscribeGameChannel(ctx context.Context) <-chan string {
	return s.store.SubscribeGameChannel(ctx)
}

// SubscribeRoundChannel streams round lifecycle transitions.
func (s *GameService) SubscribeRoundChannel(ctx context.Context) <-chan models.RoundEvent {
	return s.store.SubscribeRoundChannel(ctx)
}
