package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/gamecentr/assets"
	"github.com/robalobadob/gamecentr/internal/achievement"
	"github.com/robalobadob/gamecentr/internal/auth"
	"github.com/robalobadob/gamecentr/internal/catalog"
	"github.com/robalobadob/gamecentr/internal/config"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/db"
	"github.com/robalobadob/gamecentr/internal/events"
	"github.com/robalobadob/gamecentr/internal/httpserver"
	"github.com/robalobadob/gamecentr/internal/round"
	"github.com/robalobadob/gamecentr/internal/score"
	"github.com/robalobadob/gamecentr/internal/scoreclient"
	"github.com/robalobadob/gamecentr/internal/store"
	"github.com/robalobadob/gamecentr/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	if err := words.Init(cfg.HangmanWordsFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}
	cat, err := catalog.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("create data dir")
		}
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer sqlDB.Close()
	if err := db.Migrate(sqlDB, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	pub := publisher(cfg)
	defer pub.Close()

	scores := score.NewStore(sqlDB, clock)
	recorder := score.NewLocalSubmitter(scores, cat, pub, log.Logger)
	users := auth.NewUsers(sqlDB, clock)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL(), clock)
	sessions := store.NewMemoryStore(clock)

	// Finished games go to the remote Scoring API when one is configured.
	// Those scores never reach the local store, so its counters are not
	// used for achievement progress.
	var sub round.Submitter = recorder
	var counters achievement.ScoreCounter = scores
	if cfg.ScoringAPIURL != "" {
		counters = nil
		client := scoreclient.New(cfg.ScoringAPIURL)
		client.SetTimeout(cfg.SubmitTimeout)
		sub = events.Publishing(client, pub, clock, log.Logger)
		log.Info().Str("url", cfg.ScoringAPIURL).Msg("submitting scores to remote scoring API")
	}

	srv := httpserver.New(httpserver.Options{
		Origins:       cfg.ClientOrigins,
		DailySalt:     cfg.DailySalt,
		Words:         words.List(),
		SubmitTimeout: cfg.SubmitTimeout,
	}, httpserver.Deps{
		Sessions:     sessions,
		Scores:       scores,
		Recorder:     recorder,
		Submitter:    sub,
		Achievements: achievement.NewService(cat, achievement.NewStore(sqlDB, clock), counters, users, clock, log.Logger),
		Auth: auth.New(tokens, users, auth.Options{
			CookieName: cfg.CookieName,
			Secure:     cfg.Production(),
		}),
		Daily: daily.NewStore(sqlDB),
		Clock: clock,
		Log:   log.Logger,
	})

	go store.RunJanitor(ctx, sessions, clock, time.Minute, cfg.SessionIdleTTL)

	go func() {
		log.Info().Str("port", cfg.Port).Int("games", len(cat.GameTypes)).Msg("starting gamecentr server")
		if err := srv.Start(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()
	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// setupLogging applies LOG_LEVEL and LOG_FORMAT to the global logger.
func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// publisher connects to NATS when NATS_URL is set and logs events otherwise.
func publisher(cfg config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		return events.NewLogPublisher(log.Logger)
	}
	p, err := events.Connect(cfg.NATSURL)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, logging score events instead")
		return events.NewLogPublisher(log.Logger)
	}
	log.Info().Str("url", cfg.NATSURL).Msg("publishing score events to NATS")
	return p
}
