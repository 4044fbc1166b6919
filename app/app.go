// Package app wires the configured stores, the holiday provider and the
// engine. cmd/server and cmd/overtimectl share it.
package app

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/directory"
	"github.com/warp/overtime-engine/holiday"
	"github.com/warp/overtime-engine/logger"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
)

type App struct {
	Engine    *overtime.Engine
	Directory *directory.Store
	Ledger    *sqlite.Store
	Holidays  *holiday.Provider

	// HasFeed is false when no holiday feed URL is configured.
	HasFeed bool

	db *sql.DB
}

// New opens the database and builds the engine. The ledger and the
// directory share one connection pool.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	ledger, err := sqlite.NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	dir, err := directory.NewFromSQL(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	var feed holiday.Fetcher
	if cfg.Holidays.FeedURL != "" {
		feed = holiday.NewFeedClient(cfg.Holidays.FeedURL, cfg.Holidays.FeedTimeout, log)
	}
	provider := holiday.NewProvider(dir, feed, cfg.Holidays.Region, log)

	engine := overtime.NewEngine(overtime.Dependencies{
		Employees:   dir,
		TimeEntries: dir,
		Absences:    dir,
		Corrections: dir,
		Holidays:    provider,
		Ledger:      ledger,
	},
		overtime.WithRegion(cfg.Holidays.Region),
		overtime.WithLogger(log),
		overtime.WithConcurrency(cfg.Engine.AggregateConcurrency),
	)

	log.Info().
		Str("database", cfg.Database.Path).
		Str("region", cfg.Holidays.Region).
		Bool("holiday_feed", feed != nil).
		Msg("engine ready")

	return &App{
		Engine:    engine,
		Directory: dir,
		Ledger:    ledger,
		Holidays:  provider,
		HasFeed:   feed != nil,
		db:        db,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
