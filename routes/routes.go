package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/handlers"
	"github.com/reardonm/trivia/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	questionHandler *handlers.QuestionHandler,
	hub *services.Hub,
) {
	api := router.Group("/api")
	{
		api.GET("/categories", questionHandler.Categories)

		games := api.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.GET("/:id", gameHandler.GetGame)
			games.POST("/:id/join", gameHandler.JoinGame)
			games.GET("/:id/rounds/:round", gameHandler.GetRound)
			games.GET("/:id/rounds/:round/stats", gameHandler.GetStats)
		}
	}

	// WebSocket endpoint: opening the socket joins the game, text frames are
	// answers to the current round's question.
	router.GET("/ws/:gameId/:username", func(c *gin.Context) {
		gameID := c.Param("gameId")
		username := c.Param("username")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.WithError(err).WithField("game", gameID).Warn("websocket upgrade failed")
			return
		}

		if _, err := hub.RegisterClient(c.Request.Context(), conn, gameID, username); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"game":     gameID,
				"username": username,
			}).Warn("websocket join failed")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
			conn.Close()
		}
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
