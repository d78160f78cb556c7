package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/circletalk/circletalk/internal/adapters/http"
	signalws "github.com/circletalk/circletalk/internal/adapters/signal"
	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/config"
	"github.com/circletalk/circletalk/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db := store.NewMemory()
	accounts := app.NewAccounts(db.Users, db.Requests, db.Messages, cfg.BcryptCost)

	presence := app.NewPresence()
	limiter := app.NewCallRateLimiter(cfg.CallRateLimit, cfg.CallRateWindow)
	relay := app.NewRelay(presence, limiter, accounts)

	chatTokens, err := app.NewChatTokens(cfg.ChatAPIKey, cfg.ChatAPISecret, cfg.ChatTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("chat token service")
	}

	hub := signalws.NewHub()
	signalCtl := signalws.NewController(relay, hub, cfg)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Accounts:   accounts,
		Presence:   presence,
		ChatTokens: chatTokens,
		Signal:     signalCtl,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("CircleTalk server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
