package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/playperu/vrquest/internal/catalog"
	"github.com/playperu/vrquest/internal/config"
	"github.com/playperu/vrquest/internal/database"
	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/migrations"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/store/postgres"
	"github.com/playperu/vrquest/internal/store/sqlite"
)

// stores is what every read command needs, opened from the same environment
// variables the server uses.
type stores struct {
	db       *sql.DB
	sqlStore *sqlite.Store
	catalog  quest.Catalog
	progress quest.ProgressStore
	closers  []func()
}

func openStores(ctx context.Context) (*stores, error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s := &stores{db: db, closers: []func(){func() { db.Close() }}}
	if _, err := migrations.Run(ctx, db); err != nil {
		s.Close()
		return nil, err
	}

	s.sqlStore = sqlite.New(db)
	s.catalog = s.sqlStore
	s.progress = s.sqlStore

	if cfg.CatalogFile != "" {
		c, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.catalog = c
	}
	if cfg.ProgressDSN != "" {
		pg, err := postgres.New(ctx, cfg.ProgressDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
		s.progress = pg
	}
	return s, nil
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// engine builds a read-mostly engine; logs go to w so they do not mix with
// command output.
func (s *stores) engine(w io.Writer) *engine.Engine {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return engine.New(s.catalog, s.progress, logger)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
