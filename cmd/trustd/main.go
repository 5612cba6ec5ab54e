// Command trustd starts the HTTP server over a Postgres-backed store:
// running migrations, wiring the database pool, filesystem storage
// backend, OIDC authenticator and core services into transport/http's
// mux, then serving.
//
// Grounded on claircore's cmd/libvulnhttp/main.go: zerolog console
// writer, context.Background as the request BaseContext, plain
// net/http.Server.ListenAndServe, fatal-log-and-exit on any setup error.
package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/quay/zlog"
	"github.com/rs/zerolog"

	"github.com/trustd-project/trustd/auth"
	"github.com/trustd-project/trustd/config"
	"github.com/trustd-project/trustd/datastore/postgres"
	"github.com/trustd-project/trustd/service"
	"github.com/trustd-project/trustd/storage/fs"
	transporthttp "github.com/trustd-project/trustd/transport/http"
)

func main() {
	ctx := context.Background()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true}).
		With().Timestamp().Caller().
		Logger()
	zlog.Set(&log)

	dbConf, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load database config")
	}
	srvConf := config.ServerFromEnv()

	if err := postgres.Migrate(ctx, dbConf); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	pool, err := postgres.Connect(ctx, dbConf)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create db pool")
	}
	defer pool.Close()

	backend, err := fs.New(srvConf.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage backend")
	}

	clients, err := auth.ClientsFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load OIDC client config")
	}
	authenticator := &auth.Authenticator{Clients: clients}

	srv := &transporthttp.Server{
		Pool:         pool,
		Storage:      backend,
		Auth:         authenticator,
		Advisory:     service.NewAdvisoryService(pool),
		Sbom:         service.NewSbomService(pool),
		Organization: service.NewOrganizationService(pool),
		UploadLimit:  srvConf.UploadLimit,
	}

	httpSrv := &http.Server{
		Addr:        srvConf.ListenAddr,
		Handler:     transporthttp.NewMux(srv),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	log.Info().Str("addr", srvConf.ListenAddr).Msg("starting http server")
	if err := httpSrv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}
