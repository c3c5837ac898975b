package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reardonm/trivia/models"
	"github.com/reardonm/trivia/services"
)

type GameHandler struct {
	gameService     *services.GameService
	questionService *services.QuestionService
}

func NewGameHandler(gameService *services.GameService, questionService *services.QuestionService) *GameHandler {
	return &GameHandler{
		gameService:     gameService,
		questionService: questionService,
	}
}

type CreateGameRequest struct {
	Category string `json:"category" binding:"required"`
}

type JoinGameRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateGame allocates questions for the requested category and creates a
// game in the waiting room phase.
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.questionService.AllocateQuestions(c.Request.Context(), req.Category)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), req.Category, questions)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Location", "/api/games/"+game.ID)
	c.JSON(http.StatusCreated, game)
}

func (h *GameHandler) GetGame(c *gin.Context) {
	game, err := h.gameService.FindGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, game)
}

// JoinGame is the HTTP companion to joining over a websocket; it reports the
// join outcome alongside the game so clients can tell a fresh join from a
// rejoin or a game already in progress.
func (h *GameHandler) JoinGame(c *gin.Context) {
	var req JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, status, err := h.gameService.JoinGame(c.Request.Context(), c.Param("id"), req.Username, "")
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game, "status": status.String()})
}

func (h *GameHandler) GetRound(c *gin.Context) {
	round, ok := roundNumber(c)
	if !ok {
		return
	}
	result, err := h.gameService.FindRound(c.Request.Context(), c.Param("id"), round)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) GetStats(c *gin.Context) {
	round, ok := roundNumber(c)
	if !ok {
		return
	}
	stats, err := h.gameService.FindStats(c.Request.Context(), c.Param("id"), round)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func roundNumber(c *gin.Context) (int, bool) {
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil || round < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round number"})
		return 0, false
	}
	return round, true
}

// errStatus maps the service error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
