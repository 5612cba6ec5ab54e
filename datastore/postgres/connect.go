// Package postgres wires the store's config.Database settings into a
// pgxpool.Pool, runs schema migrations, and registers pool metrics.
//
// Grounded on claircore's datastore/postgres/connect.go (ParseConfig +
// ConnectConfig + poolstats registration), generalized from a single
// MaxConns literal to config.Database's min/max connection counts and its
// connect, max-lifetime and idle timeouts, and from pgx/v4 to pgx/v5.
// config.Database.AcquireTimeout is not applied to the pool.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quay/zlog"
	"github.com/remind101/migrate"
	"go.opentelemetry.io/otel"

	"github.com/trustd-project/trustd/config"
	"github.com/trustd-project/trustd/datastore/postgres/migrations"
)

var tracer = otel.Tracer("github.com/trustd-project/trustd/datastore/postgres")

const applicationName = "trustd"

// Connect parses cfg into a pgxpool.Config, applies the pool-sizing knobs
// and the connect, max-lifetime and idle timeouts (AcquireTimeout is not
// used), opens the pool, and registers a prometheus collector reporting its
// stats.
func Connect(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	pcfg, err := pgxpool.ParseConfig(cfg.URLString())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}
	pcfg.MaxConns = int32(cfg.MaxConn)
	pcfg.MinConns = int32(cfg.MinConn)
	pcfg.MaxConnLifetime = cfg.MaxLifetime
	pcfg.MaxConnIdleTime = cfg.IdleTimeout
	pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	params := pcfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := prometheus.Register(newPoolCollector(pool, applicationName)); err != nil {
		zlog.Info(ctx).Err(err).Msg("pool metrics already registered")
	}

	return pool, nil
}

// Migrate runs every pending schema migration against cfg's database,
// using database/sql over the pgx stdlib driver since remind101/migrate
// operates on *sql.Tx.
func Migrate(ctx context.Context, cfg config.Database) error {
	_, span := tracer.Start(ctx, "Migrate")
	defer span.End()

	db, err := sql.Open("pgx", cfg.URLString())
	if err != nil {
		return fmt.Errorf("postgres: open migration connection: %w", err)
	}
	defer db.Close()

	migrator := migrate.NewPostgresMigrator(db)
	migrator.Table = migrations.MigrationTable
	if err := migrator.Exec(migrate.Up, migrations.Migrations...); err != nil {
		return fmt.Errorf("postgres: run migrations: %w", err)
	}
	return nil
}
