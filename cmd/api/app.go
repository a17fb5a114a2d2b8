package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taiwoajasa245/streak-api/internal/database"
	"github.com/taiwoajasa245/streak-api/internal/motivation"
	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/config"
	"github.com/taiwoajasa245/streak-api/pkg/logger"
)

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     database.Service
	store  store.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log}
	if err := a.openStore(ctx); err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StorageDriver {
	case config.StorageFile:
		a.store = store.NewFile(a.cfg.DataFile)
		a.logger.Info("using JSON file storage", zap.String("path", a.cfg.DataFile))
	default:
		db, err := database.New(a.cfg)
		if err != nil {
			return err
		}
		a.db = db
		if db.Driver() == config.StoragePostgres {
			a.store = store.NewPostgres(db.DB())
		} else {
			a.store = store.NewSQLite(db.DB())
		}
		a.logger.Info("using SQL storage", zap.String("driver", db.Driver()))
	}

	if err := a.store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialise %s storage: %w", a.cfg.StorageDriver, err)
	}
	return nil
}

// generator returns nil when no generator credential is configured.
func (a *app) generator(ctx context.Context) (motivation.BatchGenerator, error) {
	if !a.cfg.GeneratorConfigured() {
		a.logger.Warn("GEMINI_API_KEY not set, serving the static pool only")
		return nil, nil
	}

	completer, err := motivation.NewGeminiCompleter(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	a.logger.Info("motivation generator configured", zap.String("model", completer.Model()))

	return motivation.NewGenerator(completer, a.logger, motivation.WithTimeout(a.cfg.GeneratorTimeout)), nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		}
	}
	a.logger.Sync()
}
