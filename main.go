package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/config"
	"github.com/reardonm/trivia/handlers"
	"github.com/reardonm/trivia/repository"
	"github.com/reardonm/trivia/routes"
	"github.com/reardonm/trivia/services"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := config.InitRedis(cfg)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}
	store := repository.NewRedisStore(redisClient)

	questionService := services.NewQuestionService(store, cfg.RoundsPerGame)
	gameService := services.NewGameService(store, cfg.MinPlayers)

	loader := services.NewDataLoader(store, cfg.DataPath)
	go func() {
		if err := loader.Load(ctx); err != nil {
			logrus.WithError(err).Error("question data load failed")
		}
	}()

	scheduler := services.NewScheduler(store, services.SchedulerConfig{
		MinPlayers:    cfg.MinPlayers,
		StartDelay:    cfg.StartDelay,
		RoundDuration: cfg.RoundDuration,
		PollInterval:  cfg.PollInterval,
		InitialDelay:  cfg.InitialDelay,
	})
	go scheduler.Run(ctx)

	hub := services.NewHub(gameService)
	go hub.ListenEvents(ctx)

	gameHandler := handlers.NewGameHandler(gameService, questionService)
	questionHandler := handlers.NewQuestionHandler(questionService)

	router := gin.Default()
	routes.SetupRoutes(router, gameHandler, questionHandler, hub)

	logrus.WithField("port", cfg.Port).Info("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("failed to start server")
	}
}
