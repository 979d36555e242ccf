// Package server initializes and runs the panel application.
// It selects the tracking store backend, wires the lifecycle manager to the
// account authority, starts the Telegram command router and the optional
// backup loop, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/accountkeeper/internal/authority"
	"github.com/dmitrijs2005/accountkeeper/internal/backup"
	"github.com/dmitrijs2005/accountkeeper/internal/bot"
	"github.com/dmitrijs2005/accountkeeper/internal/diag"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/manager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/store"
	filestore "github.com/dmitrijs2005/accountkeeper/internal/store/file"
	pgstore "github.com/dmitrijs2005/accountkeeper/internal/store/postgres"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	bot      *bot.Bot
	uploader *backup.Uploader
	db       *sql.DB
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	var st store.Store
	var db *sql.DB

	switch c.StoreBackend {
	case "file":
		s, err := filestore.Open(c.StorePath)
		if err != nil {
			return nil, fmt.Errorf("store init error: %w", err)
		}
		st = s
	case "postgres":
		s, sqlDB, err := pgstore.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("store init error: %w", err)
		}
		st = s
		db = sqlDB
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	auth := authority.NewShell(c.AuthorityTimeout, logger)
	mgr := manager.New(auth, st, logger)
	runner := diag.NewRunner(c.ExecAllowList, c.ExecTimeout, logger)

	b, err := bot.New(c.BotToken, c.AdminChatID, mgr, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("bot init error: %w", err)
	}

	app := &App{config: c, logger: logger, bot: b, db: db}

	// backups run only when a bucket is configured
	if c.S3Bucket != "" {
		client, err := backup.NewClient(ctx, backup.S3Settings{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		app.uploader = backup.NewUploader(client, c.S3Bucket, st, c.BackupInterval, logger)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startBot(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.bot.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startBot(ctx, cancelFunc)
	}()

	if app.uploader != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.uploader.Run(ctx)
		}()
	}

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}
}
