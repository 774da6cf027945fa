// Package server initializes and runs the backend application: it wires the
// database, repositories, profile document store, services, the HTTP API and
// the Telegram bot, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/luvhive/backend/internal/bot"
	"github.com/luvhive/backend/internal/httpapi"
	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/profiles"
	"github.com/luvhive/backend/internal/server/repositories/repomanager"
	"github.com/luvhive/backend/internal/server/services"
	"github.com/luvhive/backend/internal/telegram"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	httpSrv *httpapi.Server
	bot     *bot.Bot
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	profileStore := profiles.NewS3Store(cfg)
	verifier := telegram.NewVerifier(cfg.BotToken, cfg.LoginMaxClaimAge)

	identity := services.NewIdentityService(db, m, verifier, profileStore, logger, cfg)
	premium := services.NewPremiumService(db, m, profileStore, logger, cfg)

	app := &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		httpSrv: httpapi.NewServer(cfg, logger, identity, db),
	}

	if cfg.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("bot init error: %w", err)
		}
		app.bot = bot.New(api, identity, premium, logger, cfg)
	} else {
		logger.Warn(ctx, "bot token not configured, running http api only")
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpSrv.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server stopped", "error", err)
			cancelFunc()
		}
	}()

	if app.bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.bot.Run(ctx); err != nil {
				app.logger.Error(ctx, "bot stopped", "error", err)
				cancelFunc()
			}
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "app stopped")
}
