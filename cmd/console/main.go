package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/triageops/console/internal/config"
	"github.com/triageops/console/internal/notify"
	"github.com/triageops/console/internal/platform"
	"github.com/triageops/console/internal/server"
	"github.com/triageops/console/internal/session"
	"github.com/triageops/console/internal/store/memory"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("CONSOLE_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("CONSOLE_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM; sessions derive from this
	// context, so shutdown also tears the active sync session down.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Platform REST client.
	platformClient := platform.New(cfg.Platform.BaseURL, cfg.Platform.Timeout)

	// In-process fan-out bus for browser clients.
	pubsub := memory.New()
	defer pubsub.Close()

	// Exhaustion alerts: Slack when configured, log fallback otherwise.
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Slack.Enabled() {
		notifier = notify.NewSlackNotifier(slacklib.New(cfg.Slack.BotToken), cfg.Slack.Channel)
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack exhaustion alerts enabled")
	}

	// Session manager owning the live sync state.
	dialer := &session.WSDialer{BaseURL: cfg.Platform.WSURL}
	manager := session.NewManager(ctx, dialer, platformClient, pubsub, notifier, session.BackoffPolicy{
		Base:        cfg.Reconnect.Base,
		Cap:         cfg.Reconnect.Cap,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	})
	defer manager.Deactivate()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, manager, platformClient, pubsub)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
