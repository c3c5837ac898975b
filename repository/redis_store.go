package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/models"
)

// Key scheme. Every piece of shared state lives in one of these keyspaces and
// is mutated only by this package.
const (
	questionKeyPrefix = "q:"       // zset per category, score = last-served epoch millis
	gameKeyPrefix     = "game:"    // hash per game; the bare prefix is the id counter
	playersKeyPrefix  = "players:" // set of usernames per game
	roundKeyPrefix    = "round:"   // hash per (game, round)
	pendingGamesKey   = "games_pending:" // zset gameId -> player count
	roundAdvanceKey   = "round_advance:" // zset RoundEvent JSON -> due epoch millis

	gameChannel  = "game_channel:"
	roundChannel = "round_channel:"
)

// Game hash fields. The round field is absent until the game starts.
const (
	fieldTitle  = "title"
	fieldRounds = "rounds"
	fieldRound  = "round"
)

// Round hash fields. Answer tallies and per-player vote marks share the round
// hash under distinct field prefixes.
const (
	fieldQuestion     = "question"
	fieldPlayers      = "players"
	answerFieldPrefix = "answer:"
	votedFieldPrefix  = "voted:"
)

const (
	maxTxRetries = 10
	batchLimit   = 100
)

// RedisStore is the authoritative shared state for games, rounds, the pending
// game index and the delayed transition queue. All multi-step mutations run
// under WATCH/MULTI optimistic locking so concurrent engine instances and
// scheduler pollers can race safely.
type RedisStore struct {
	client *redis.Client
	log    *logrus.Entry
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		log:    logrus.WithField("component", "store"),
		now:    time.Now,
	}
}

// watch runs txn under optimistic locking on keys, retrying on write
// conflicts up to maxTxRetries before giving up with ErrConflict.
func (s *RedisStore) watch(ctx context.Context, txn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return models.ErrConflict
}

// CreateGame allocates a fresh numeric game id and stores the game hash plus
// one round hash per question. Input validation is the service layer's job.
func (s *RedisStore) CreateGame(ctx context.Context, title string, questions []models.Question) (string, error) {
	id, err := s.client.Incr(ctx, gameKeyPrefix).Result()
	if err != nil {
		return "", fmt.Errorf("allocate game id: %w", err)
	}
	gameID := strconv.FormatInt(id, 10)

	encoded := make([]string, len(questions))
	for i, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return "", fmt.Errorf("encode question: %w", err)
		}
		encoded[i] = string(data)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, gameKey(gameID), fieldTitle, title, fieldRounds, len(questions))
		for i, q := range encoded {
			pipe.HSet(ctx, roundKey(gameID, i), fieldQuestion, q)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create game %s: %w", gameID, err)
	}
	return gameID, nil
}

// FindGame loads a game and its live player count.
func (s *RedisStore) FindGame(ctx context.Context, gameID string) (*models.Game, error) {
	pipe := s.client.Pipeline()
	fieldsCmd := pipe.HGetAll(ctx, gameKey(gameID))
	playersCmd := pipe.SCard(ctx, playersKey(gameID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("find game %s: %w", gameID, err)
	}
	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}
	return gameFromFields(gameID, fields, int(playersCmd.Val()))
}

// AddPlayer adds username to the game's membership. The check-and-add is one
// transaction: two concurrent joins can never both observe the same player
// count. A net membership increase also refreshes the pending game index.
func (s *RedisStore) AddPlayer(ctx context.Context, gameID, username string) (*models.Game, models.JoinStatus, error) {
	var (
		game   *models.Game
		status models.JoinStatus
	)
	txn := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, gameKey(gameID)).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return models.ErrNotFound
		}
		count, err := tx.SCard(ctx, playersKey(gameID)).Result()
		if err != nil {
			return err
		}
		if _, started := fields[fieldRound]; started {
			status = models.GameAlreadyStarted
			game, err = gameFromFields(gameID, fields, int(count))
			return err
		}
		member, err := tx.SIsMember(ctx, playersKey(gameID), username).Result()
		if err != nil {
			return err
		}
		if member {
			status = models.AlreadyJoined
			game, err = gameFromFields(gameID, fields, int(count))
			return err
		}
		newCount := count + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, playersKey(gameID), username)
			pipe.ZAdd(ctx, pendingGamesKey, redis.Z{Score: float64(newCount), Member: gameID})
			return nil
		})
		if err != nil {
			return err
		}
		status = models.PlayerAdded
		game, err = gameFromFields(gameID, fields, int(newCount))
		return err
	}
	if err := s.watch(ctx, txn, gameKey(gameID), playersKey(gameID)); err != nil {
		return nil, 0, err
	}
	return game, status, nil
}

// StartPendingGames scans the pending index for games with enough players and
// schedules their first round. Each game is handled in its own transaction;
// one failure does not abort the rest of the batch.
func (s *RedisStore) StartPendingGames(ctx context.Context, startDelay time.Duration, minPlayers int) error {
	ids, err := s.client.ZRangeByScore(ctx, pendingGamesKey, &redis.ZRangeBy{
		Min:   strconv.Itoa(minPlayers),
		Max:   "+inf",
		Count: batchLimit,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan pending games: %w", err)
	}
	for _, gameID := range ids {
		if err := s.startGame(ctx, gameID, startDelay); err != nil {
			s.log.WithError(err).WithField("game", gameID).Error("failed to start pending game")
		}
	}
	return nil
}

func (s *RedisStore) startGame(ctx context.Context, gameID string, startDelay time.Duration) error {
	event := encodeEvent(models.RoundEvent{GameID: gameID, Round: 0, Started: true})
	due := float64(s.now().Add(startDelay).UnixMilli())

	txn := func(tx *redis.Tx) error {
		if _, err := tx.ZScore(ctx, pendingGamesKey, gameID).Result(); errors.Is(err, redis.Nil) {
			return nil // another poller got here first
		} else if err != nil {
			return err
		}
		// A join racing the scheduler can re-queue a game whose start is
		// already scheduled or applied. Only clean the index in that case.
		started, err := tx.HExists(ctx, gameKey(gameID), fieldRound).Result()
		if err != nil {
			return err
		}
		scheduled := false
		if _, err := tx.ZScore(ctx, roundAdvanceKey, event).Result(); err == nil {
			scheduled = true
		} else if !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, pendingGamesKey, gameID)
			if !started && !scheduled {
				pipe.ZAdd(ctx, roundAdvanceKey, redis.Z{Score: due, Member: event})
				pipe.Publish(ctx, gameChannel, gameID)
			}
			return nil
		})
		return err
	}
	return s.watch(ctx, txn, pendingGamesKey, roundAdvanceKey, gameKey(gameID))
}

// AdvancePendingRounds processes every due entry of the delayed transition
// queue. A started entry advances the game's round counter, snapshots the
// player count and schedules the round's completion; a completed entry
// schedules the next round's start, or nothing when the game is over. The
// entry is removed in the same transaction that applies its effect, so
// concurrent pollers process each transition exactly once.
func (s *RedisStore) AdvancePendingRounds(ctx context.Context, startDelay, roundDuration time.Duration) error {
	members, err := s.client.ZRangeByScore(ctx, roundAdvanceKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: batchLimit,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan due transitions: %w", err)
	}
	for _, member := range members {
		var event models.RoundEvent
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			s.log.WithError(err).WithField("entry", member).Error("dropping malformed transition entry")
			s.client.ZRem(ctx, roundAdvanceKey, member)
			continue
		}
		if err := s.advanceRound(ctx, member, event, startDelay, roundDuration); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"game":    event.GameID,
				"round":   event.Round,
				"started": event.Started,
			}).Error("failed to advance round")
		}
	}
	return nil
}

func (s *RedisStore) advanceRound(ctx context.Context, member string, event models.RoundEvent, startDelay, roundDuration time.Duration) error {
	gk := gameKey(event.GameID)
	txn := func(tx *redis.Tx) error {
		if _, err := tx.ZScore(ctx, roundAdvanceKey, member).Result(); errors.Is(err, redis.Nil) {
			return nil // another poller got here first
		} else if err != nil {
			return err
		}

		if event.Started {
			players, err := tx.SCard(ctx, playersKey(event.GameID)).Result()
			if err != nil {
				return err
			}
			completed := encodeEvent(models.RoundEvent{GameID: event.GameID, Round: event.Round, Started: false})
			due := float64(s.now().Add(roundDuration).UnixMilli())
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, gk, fieldRound, event.Round)
				pipe.HSet(ctx, roundKey(event.GameID, event.Round), fieldPlayers, players)
				pipe.ZAdd(ctx, roundAdvanceKey, redis.Z{Score: due, Member: completed})
				pipe.ZRem(ctx, roundAdvanceKey, member)
				pipe.Publish(ctx, roundChannel, member)
				return nil
			})
			return err
		}

		total, err := tx.HGet(ctx, gk, fieldRounds).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		var next string
		if n := event.Round + 1; n < total {
			next = encodeEvent(models.RoundEvent{GameID: event.GameID, Round: n, Started: true})
		}
		due := float64(s.now().Add(startDelay).UnixMilli())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next != "" {
				pipe.ZAdd(ctx, roundAdvanceKey, redis.Z{Score: due, Member: next})
			}
			pipe.ZRem(ctx, roundAdvanceKey, member)
			pipe.Publish(ctx, roundChannel, member)
			return nil
		})
		return err
	}
	return s.watch(ctx, txn, roundAdvanceKey, gk)
}

// FindQuestionForRound returns the question pre-assigned to a round.
func (s *RedisStore) FindQuestionForRound(ctx context.Context, gameID string, round int) (*models.Question, error) {
	data, err := s.client.HGet(ctx, roundKey(gameID, round), fieldQuestion).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find question for game %s round %d: %w", gameID, round, err)
	}
	var q models.Question
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil, fmt.Errorf("decode question for game %s round %d: %w", gameID, round, err)
	}
	return &q, nil
}

// RecordAnswer counts a player's vote in the round's tally. The first vote
// per player and round wins; repeats report counted=false and leave the
// tally untouched.
func (s *RedisStore) RecordAnswer(ctx context.Context, gameID string, round int, username, answer string) (bool, error) {
	rk := roundKey(gameID, round)
	counted := false
	txn := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, rk).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return models.ErrNotFound
		}
		voted, err := tx.HExists(ctx, rk, votedFieldPrefix+username).Result()
		if err != nil {
			return err
		}
		if voted {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rk, votedFieldPrefix+username, answer)
			pipe.HIncrBy(ctx, rk, answerFieldPrefix+answer, 1)
			return nil
		})
		if err == nil {
			counted = true
		}
		return err
	}
	if err := s.watch(ctx, txn, rk); err != nil {
		return false, err
	}
	return counted, nil
}

// FindPlayerCount returns the membership count snapshotted when the round
// started, or zero if the round has not started.
func (s *RedisStore) FindPlayerCount(ctx context.Context, gameID string, round int) (int, error) {
	n, err := s.client.HGet(ctx, roundKey(gameID, round), fieldPlayers).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find player count for game %s round %d: %w", gameID, round, err)
	}
	return n, nil
}

// FindStats returns the round's answer tally.
func (s *RedisStore) FindStats(ctx context.Context, gameID string, round int) (map[string]int, error) {
	fields, err := s.client.HGetAll(ctx, roundKey(gameID, round)).Result()
	if err != nil {
		return nil, fmt.Errorf("find stats for game %s round %d: %w", gameID, round, err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}
	stats := make(map[string]int)
	for field, value := range fields {
		if !strings.HasPrefix(field, answerFieldPrefix) {
			continue
		}
		count, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("decode tally for game %s round %d: %w", gameID, round, err)
		}
		stats[strings.TrimPrefix(field, answerFieldPrefix)] = count
	}
	return stats, nil
}

// SaveQuestion adds a question to its category's pool. New questions enter at
// score zero so they sort ahead of anything already served; re-saving an
// existing question does not reset its staleness.
func (s *RedisStore) SaveQuestion(ctx context.Context, q models.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode question: %w", err)
	}
	if err := s.client.ZAddNX(ctx, questionKey(q.Category), redis.Z{Score: 0, Member: string(data)}).Err(); err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

// ListCategories returns every category with at least one question.
func (s *RedisStore) ListCategories(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, questionKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]string, 0, len(keys))
	for _, key := range keys {
		categories = append(categories, strings.TrimPrefix(key, questionKeyPrefix))
	}
	return categories, nil
}

// AllocateQuestions returns up to n questions from a category, stalest first,
// and re-scores each returned question with the current time so repeated
// allocations rotate through the whole pool before repeating.
func (s *RedisStore) AllocateQuestions(ctx context.Context, category string, n int) ([]models.Question, error) {
	key := questionKey(category)
	var questions []models.Question
	txn := func(tx *redis.Tx) error {
		members, err := tx.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   "+inf",
			Count: int64(n),
		}).Result()
		if err != nil {
			return err
		}
		questions = questions[:0]
		served := float64(s.now().UnixMilli())
		rescored := make([]redis.Z, 0, len(members))
		for _, member := range members {
			var q models.Question
			if err := json.Unmarshal([]byte(member), &q); err != nil {
				return fmt.Errorf("decode question: %w", err)
			}
			questions = append(questions, q)
			rescored = append(rescored, redis.Z{Score: served, Member: member})
		}
		if len(rescored) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, key, rescored...)
			return nil
		})
		return err
	}
	if err := s.watch(ctx, txn, key); err != nil {
		return nil, err
	}
	return questions, nil
}

// SubscribeGameChannel streams the ids of games as they start. The channel
// closes when ctx is cancelled.
func (s *RedisStore) SubscribeGameChannel(ctx context.Context) <-chan string {
	pubsub := s.client.Subscribe(ctx, gameChannel)
	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// SubscribeRoundChannel streams round lifecycle transitions. The channel
// closes when ctx is cancelled.
func (s *RedisStore) SubscribeRoundChannel(ctx context.Context) <-chan models.RoundEvent {
	pubsub := s.client.Subscribe(ctx, roundChannel)
	out := make(chan models.RoundEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event models.RoundEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.log.WithError(err).WithField("payload", msg.Payload).Error("dropping malformed round event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func gameFromFields(gameID string, fields map[string]string, players int) (*models.Game, error) {
	total, err := strconv.Atoi(fields[fieldRounds])
	if err != nil {
		return nil, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	game := &models.Game{
		ID:          gameID,
		Title:       fields[fieldTitle],
		TotalRounds: total,
		Players:     players,
	}
	if value, ok := fields[fieldRound]; ok {
		round, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("decode game %s: %w", gameID, err)
		}
		game.CurrentRound = &round
	}
	return game, nil
}

func encodeEvent(event models.RoundEvent) string {
	data, err := json.Marshal(event)
	if err != nil {
		// RoundEvent has no unmarshalable fields.
		panic(err)
	}
	return string(data)
}

func questionKey(category string) string {
	return questionKeyPrefix + category
}

func gameKey(gameID string) string {
	return gameKeyPrefix + gameID
}

func playersKey(gameID string) string {
	return playersKeyPrefix + gameID
}

func roundKey(gameID string, round int) string {
	return fmt.Sprintf("%s%s:%d", roundKeyPrefix, gameID, round)
}
