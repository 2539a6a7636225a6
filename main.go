package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladimiradmaev/chronic-care/internal/api"
	"github.com/vladimiradmaev/chronic-care/internal/bot"
	"github.com/vladimiradmaev/chronic-care/internal/bot/handlers"
	"github.com/vladimiradmaev/chronic-care/internal/bot/state"
	"github.com/vladimiradmaev/chronic-care/internal/config"
	"github.com/vladimiradmaev/chronic-care/internal/database"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/repository"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn(".env file not found, using environment only")
	}
	logger.Info("Starting Chronic Care Assistant...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal := newJournal(cfg)

	sessions := session.NewRegistry(func() *store.Store {
		return store.New(nil, store.WithLogger(logger.WithFields("component", "store")))
	})
	sessions.OnCreate(func(s *session.Session) {
		s.OnClose(services.WatchStore(s.ID, s.Store, journal))
	})
	defer sessions.Close()

	advice, err := services.NewAdviceService(cfg.GeminiAPIKey, cfg.OpenAIAPIKey)
	if err != nil {
		logger.Fatal("Failed to initialize advice service", "error", err)
	}
	if !advice.Available() {
		logger.Warn("No AI provider configured, care tips are disabled")
	}

	var wg sync.WaitGroup

	if cfg.TelegramToken != "" {
		stateManager := newStateManager(cfg)
		if closer, ok := stateManager.(io.Closer); ok {
			defer closer.Close()
		}

		telegramBot, err := bot.NewBot(cfg.TelegramToken, handlers.Dependencies{
			Sessions: sessions,
			Journal:  journal,
			Advice:   advice,
		}, stateManager)
		if err != nil {
			logger.Fatal("Failed to create bot", "error", err)
		}

		reminders, err := services.NewReminderService(sessions, telegramBot, cfg.Reminders)
		if err != nil {
			logger.Fatal("Failed to schedule reminders", "error", err)
		}
		reminders.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			reminders.Stop(shutdownCtx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telegramBot.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Bot stopped with error", "error", err)
				stop()
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		server := api.NewServer(cfg.HTTPAddr, api.Dependencies{
			Sessions: sessions,
			Tokens:   api.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
			Journal:  journal,
			Advice:   advice,
		})

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				logger.Error("HTTP API stopped with error", "error", err)
				stop()
			}
		}()
		go func() {
			defer wg.Done()
			sweepSessions(ctx, sessions, cfg.SessionTTL)
		}()
	}

	logger.Info("Chronic Care Assistant is running. Press Ctrl+C to stop.")
	wg.Wait()
	logger.Info("Chronic Care Assistant stopped")
}

// newJournal returns the Postgres journal, or a no-op one when the database is disabled
func newJournal(cfg *config.Config) domain.JournalService {
	if !cfg.DB.Enabled {
		logger.Info("Database disabled, submissions are not journaled")
		return services.NopJournal{}
	}

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	return services.NewJournalService(repository.NewJournalRepository(db))
}

// newStateManager keeps prompt state in Redis when configured, in memory otherwise
func newStateManager(cfg *config.Config) state.StateManager {
	if !cfg.Redis.Enabled() {
		return state.NewManager()
	}

	manager, err := state.NewRedisManager(cfg.Redis.Addr())
	if err != nil {
		logger.Warn("Redis unavailable, keeping prompt state in memory", "addr", cfg.Redis.Addr(), "error", err)
		return state.NewManager()
	}
	logger.Info("Prompt state stored in Redis", "addr", cfg.Redis.Addr())
	return manager
}

// sweepSessions drops HTTP sessions older than ttl until ctx is done
func sweepSessions(ctx context.Context, sessions *session.Registry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Expire(ttl); n > 0 {
				logger.Info("Expired HTTP sessions", "count", n)
			}
		}
	}
}
