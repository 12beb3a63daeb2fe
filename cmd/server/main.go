// Command server runs the task board API as a standalone HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	handler "taskboard-backend/api"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.IsProduction())
	if cfg.UsesDefaultSecret() {
		log.Warn("using default JWT secret")
	}

	db, err := database.NewDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Error("cannot open database", "error", err)
		os.Exit(1)
	}

	if pg, ok := db.(*database.PostgresDatabase); ok {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := pg.Migrate(ctx)
		cancel()
		if err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(cfg, db, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Info("shutting down http server")
				return srv.Shutdown(ctx)
			},
			"database": func(ctx context.Context) error {
				return db.Close()
			},
		},
	)

	exitCode := <-wait
	log.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
