package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/config"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/memory"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
)

// Store bundles the repository factory with the transactor that scopes it.
type Store struct {
	Repos repomanager.RepositoryManager
	Tx    dbx.Transactor
	db    *sql.DB
}

// Close releases the database pool, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStore connects to the configured database and applies pending
// migrations. The "memory://" DSN selects a process-local store.
func OpenStore(ctx context.Context, c *config.Config, logger logging.Logger) (*Store, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		logger.Warn(ctx, "using in-memory store, data will not survive a restart")
		m := memory.NewStore()
		return &Store{Repos: m, Tx: m}, nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{Repos: m, Tx: dbx.NewSQLTransactor(db), db: db}, nil
}

// NewLogger builds the process logger from LogFormat and LogLevel.
func NewLogger(c *config.Config) (logging.Logger, error) {
	switch strings.ToLower(c.LogFormat) {
	case "zap":
		return logging.NewZapProduction(c.LogLevel)
	case "json", "text", "":
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if strings.EqualFold(c.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return logging.NewSlogLogger(slog.New(h)), nil
}
