package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rexmirak/Chat-app/internal/ai"
	"github.com/rexmirak/Chat-app/internal/config"
	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/fanout"
	"github.com/rexmirak/Chat-app/internal/handler"
	"github.com/rexmirak/Chat-app/internal/middleware"
	"github.com/rexmirak/Chat-app/internal/presence"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/internal/repository"
	"github.com/rexmirak/Chat-app/internal/service"
	"github.com/rexmirak/Chat-app/internal/token"
	"github.com/rexmirak/Chat-app/pkg/database"
	"github.com/rexmirak/Chat-app/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-app",
	})
	logger := log.L()

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.ChatModel{},
		&domain.ChatParticipantModel{},
		&domain.MessageModel{},
		&domain.AttachmentModel{},
		&domain.NotificationModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("Database migration completed")

	store := repository.NewGormStore(db)

	// Token manager. An empty secret is tolerated: the relay rejects
	// handshakes with an internal-error close instead of refusing to boot.
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.AccessDuration, cfg.JWT.Issuer)
	if !tokens.Configured() {
		logger.Warn().Msg("JWT_SECRET is not set; websocket handshakes will be rejected")
	}

	// Relay wiring
	reg := registry.New()
	fan := fanout.New(reg)
	tracker := presence.NewTracker(reg, fan, store)

	// The generative provider is optional: without an API key the relay
	// runs with AI replies disabled and reports chat:ai:error on demand.
	var generator ai.Generator
	if cfg.AI.APIKey != "" {
		g, err := ai.NewGeminiGenerator(context.Background(), cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		generator = g
		logger.Info().Str("model", cfg.AI.Model).Msg("Gemini provider enabled")
	} else {
		logger.Warn().Msg("GEMINI_API_KEY is not set; AI replies are disabled")
	}
	orchestrator := ai.NewOrchestrator(store, fan, generator, cfg.AI.Timeout, cfg.AI.HistoryWindow)

	relay := service.NewRelay(store, fan, orchestrator)

	authMiddleware := middleware.NewAuth(tokens)
	httpHandler := handler.NewHTTPHandler(store, tokens, authMiddleware)
	wsHandler := handler.NewWSHandler(tracker, relay, orchestrator, tokens, cfg.WebSocket)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(log.GinMiddleware(logger), gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Chat App listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Chat App stopped")
}
