package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohits-web03/chatvault/internal/api"
	"github.com/rohits-web03/chatvault/internal/api/handlers"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rohits-web03/chatvault/internal/encryption"
	"github.com/rohits-web03/chatvault/internal/repositories"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if config.Envs.Environment != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(config.Envs.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	setupLogging()

	// Connect to database
	repositories.ConnectDatabase()

	params := encryption.DefaultParams()
	params.Iterations = config.Envs.Encryption.Iterations
	ring, err := encryption.NewKeyRing(config.Envs.Encryption.KeyTags...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid encryption key tags")
	}

	profiles := repositories.NewProfileStore(repositories.DB)
	codec, err := encryption.NewCodec(profiles, encryption.Options{Params: params, KeyRing: ring})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize conversation encryption")
	}

	conversations := &handlers.Conversations{
		Store: repositories.NewConversationStore(repositories.DB),
		Codec: codec,
	}
	if config.Envs.R2.Enabled() {
		conversations.Backups = repositories.NewBackupBucket(config.Envs.R2)
	} else {
		log.Warn().Msg("R2 not configured, conversation backups disabled")
	}

	handler := api.SetupRouter(api.Dependencies{
		Conversations: conversations,
		Profiles:      &handlers.Profiles{Store: profiles},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", config.Envs.Port).Msg("Starting chatvault server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", config.Envs.Port).Msg("Could not listen")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
