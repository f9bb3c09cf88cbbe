package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialnet/backend/internal/auth"
	"socialnet/backend/internal/config"
	"socialnet/backend/internal/connection"
	"socialnet/backend/internal/database"
	"socialnet/backend/internal/handler"
	"socialnet/backend/internal/hub"
	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/logging"
	"socialnet/backend/internal/messaging"
	"socialnet/backend/internal/storage"
	"socialnet/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	// Swagger imports
	_ "socialnet/backend/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Social Network API
// @version         1.0
// @description     Connections and direct messaging between users.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	log := logging.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pictures *storage.ProfilePictures
	if cfg.ProfilePicturesEnabled() {
		pictures, err = storage.NewProfilePictures(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.PresignTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("object storage unavailable")
		}
	} else {
		log.Warn().Msg("S3_BUCKET not set, profile picture uploads are disabled")
	}

	users := identity.NewStore(db)
	connections := connection.NewManager(db, users)
	tokens := jwt.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	sessions := auth.NewSessionStore(db)

	h := handler.New(handler.Deps{
		Users:       users,
		Tokens:      tokens,
		Sessions:    sessions,
		Connections: connections,
		Messages:    messaging.NewService(db, users, connections),
		Hub:         hub.NewHub(log.With().Str("component", "hub").Logger()),
		Pictures:    pictures,
		Origins:     cfg.AllowedOrigins,
		Log:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, h, auth.AuthMiddleware(tokens, sessions, log), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server is running")
		log.Info().Msgf("Swagger UI is available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newRouter(cfg *config.Config, h *handler.Handler, requireAuth gin.HandlerFunc, log zerolog.Logger) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(log))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	h.RegisterRoutes(router.Group("/api"), requireAuth)

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)
}
