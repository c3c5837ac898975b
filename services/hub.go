package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/models"
)

// Hub tracks every live websocket session and fans game events out to the
// sessions of the right game. It owns only connection-local state: all game
// state lives in the store, and a disconnecting client never mutates it.
type Hub struct {
	mutex   sync.RWMutex
	clients map[*Client]bool
	games   *GameService
	log     *logrus.Entry
}

// Client is one player's websocket session.
type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	gameID   string
	username string
}

func NewHub(games *GameService) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		games:   games,
		log:     logrus.WithField("component", "hub"),
	}
}

// ListenEvents bridges the store's pub/sub channels onto connected clients.
// Delivery is best-effort: clients connected after an event fires catch up
// through the sync performed on open.
func (h *Hub) ListenEvents(ctx context.Context) {
	gameCh := h.games.SubscribeGameChannel(ctx)
	roundCh := h.games.SubscribeRoundChannel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case gameID, ok := <-gameCh:
			if !ok {
				return
			}
			h.log.WithField("game", gameID).Info("game started")
			h.BroadcastToGame(gameID, models.NewGameStarted(gameID))
		case event, ok := <-roundCh:
			if !ok {
				return
			}
			h.handleRoundEvent(ctx, event)
		}
	}
}

func (h *Hub) handleRoundEvent(ctx context.Context, event models.RoundEvent) {
	round, err := h.games.FindRound(ctx, event.GameID, event.Round)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"game": event.GameID, "round": event.Round}).
			Error("cannot resolve round for event")
		return
	}
	if event.Started {
		h.log.WithFields(logrus.Fields{"game": event.GameID, "round": event.Round}).Info("round started")
		h.BroadcastToGame(event.GameID,
			models.NewRoundStarted(event.Round, round.Question.Text, round.Question.ShuffledAnswers()))
		return
	}
	stats, err := h.games.FindStats(ctx, event.GameID, event.Round)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"game": event.GameID, "round": event.Round}).
			Error("cannot resolve stats for event")
		return
	}
	h.log.WithFields(logrus.Fields{"game": event.GameID, "round": event.Round}).Info("round completed")
	h.BroadcastToGame(event.GameID,
		models.NewRoundCompleted(event.Round, round.Question.CorrectAnswer, stats))
}

// RegisterClient wires a new websocket connection into the hub, joins the
// player to the game, and replays any transitions a late joiner missed.
func (h *Hub) RegisterClient(ctx context.Context, conn *websocket.Conn, gameID, username string) (*Client, error) {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, 256),
		gameID:   gameID,
		username: username,
	}
	h.add(client)
	go client.writePump()
	go client.readPump()

	game, status, err := h.games.JoinGame(ctx, gameID, username, client.id)
	if err != nil {
		h.remove(client)
		return nil, err
	}
	if status == models.PlayerAdded {
		h.BroadcastToGame(gameID, models.NewPlayerJoined(username, game.Players))
	}
	if game.Started() {
		// Synthesize the transitions this session missed so late joiners
		// and reconnecting players see a consistent game.
		h.send(client, models.NewGameStarted(gameID))
		if round, err := h.games.FindRound(ctx, gameID, *game.CurrentRound); err == nil {
			h.send(client, models.NewRoundStarted(round.Number, round.Question.Text, round.Question.ShuffledAnswers()))
		}
	}
	return client, nil
}

// BroadcastToGame sends a message to every session of one game. Slow clients
// are dropped rather than allowed to stall the rest.
func (h *Hub) BroadcastToGame(gameID string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast message")
		return
	}
	for _, client := range h.clientsForGame(gameID) {
		if !h.trySend(client, data) {
			h.log.WithField("client", client.id).Warn("send buffer full, dropping client")
			h.remove(client)
		}
	}
}

// trySend queues data for one client. Checking membership and sending under
// the same read lock guarantees the send can never race the close in remove.
func (h *Hub) trySend(client *Client, data []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return true // already dropped
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// ConnectedPlayers lists the usernames with a live session for a game.
func (h *Hub) ConnectedPlayers(gameID string) []string {
	clients := h.clientsForGame(gameID)
	usernames := make([]string, 0, len(clients))
	for _, client := range clients {
		usernames = append(usernames, client.username)
	}
	return usernames
}

func (h *Hub) clientsForGame(gameID string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	var clients []*Client
	for client := range h.clients {
		if strings.EqualFold(client.gameID, gameID) {
			clients = append(clients, client)
		}
	}
	return clients
}

func (h *Hub) add(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mutex.Unlock()
	h.log.WithFields(logrus.Fields{
		"client":   client.id,
		"game":     client.gameID,
		"username": client.username,
		"total":    total,
	}).Info("client registered")
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mutex.Unlock()
	if ok {
		h.log.WithFields(logrus.Fields{
			"client":   client.id,
			"game":     client.gameID,
			"username": client.username,
			"total":    total,
		}).Info("client unregistered")
	}
}

func (h *Hub) send(client *Client, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal message")
		return
	}
	h.trySend(client, data)
}

// readPump treats every inbound text frame as the player's answer to the
// current question and replies privately with the outcome.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("client", c.id).Warn("websocket read error")
			}
			return
		}
		answer := strings.TrimSpace(string(message))
		if answer == "" {
			continue
		}
		correct, err := c.hub.games.AnswerQuestion(context.Background(), c.gameID, c.username, answer)
		if err != nil {
			c.hub.log.WithError(err).WithFields(logrus.Fields{
				"game":     c.gameID,
				"username": c.username,
			}).Warn("answer rejected")
			continue
		}
		if correct {
			c.hub.send(c, models.NewPlayerAdvanced(c.username))
		} else {
			c.hub.send(c, models.NewPlayerEliminated(c.username))
		}
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()
	for message := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
