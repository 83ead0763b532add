package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-hooks/core"
	hookmigrations "github.com/goliatone/go-hooks/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// persistenceConfig adapts core.DatabaseConfig to the go-persistence-bun
// config contract.
type persistenceConfig struct {
	cfg    core.DatabaseConfig
	driver string
}

func (c persistenceConfig) GetDebug() bool { return c.cfg.Debug }

func (c persistenceConfig) GetDriver() string { return c.driver }

func (c persistenceConfig) GetServer() string { return c.cfg.DSN }

func (c persistenceConfig) GetPingTimeout() time.Duration {
	if c.cfg.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.cfg.PingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string { return "go-hooks" }

// Open connects to the configured database and, when AutoMigrate is set,
// applies the hooks schema for its dialect.
func Open(ctx context.Context, cfg core.DatabaseConfig) (*persistence.Client, error) {
	driver, migrationDialect, dialect, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: database dsn is required")
	}
	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg, driver: driver}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}
	if !cfg.AutoMigrate {
		return client, nil
	}
	if err := Migrate(ctx, client, migrationDialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Migrate registers the embedded hooks migrations for dialect and applies
// them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	if _, err := hookmigrations.ForDialect(dialect); err != nil {
		return err
	}
	_, err := hookmigrations.Register(ctx, func(_ context.Context, target string, _ string, fsys fs.FS) error {
		if target != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, hookmigrations.WithValidationTargets(dialect))
	if err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func resolveDriver(raw string) (string, string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, hookmigrations.DialectPostgres, pgdialect.New(), nil
	case "sqlite", "sqlite3":
		return DriverSQLite, hookmigrations.DialectSQLite, sqlitedialect.New(), nil
	default:
		return "", "", nil, fmt.Errorf("sqlstore: unsupported database driver %q", raw)
	}
}
