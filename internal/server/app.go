// Package server initializes and runs the main application server.
// It opens the database, runs migrations, selects the signing-key source,
// wires the services together and serves the HTTP API until shutdown.
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
	"time"

	"github.com/mkuznecov/authkeeper/internal/logging"
	"github.com/mkuznecov/authkeeper/internal/server/auth"
	"github.com/mkuznecov/authkeeper/internal/server/config"
	"github.com/mkuznecov/authkeeper/internal/server/httpapi"
	"github.com/mkuznecov/authkeeper/internal/server/keys"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/repomanager"
	"github.com/mkuznecov/authkeeper/internal/server/services"
)

// expiredTokenSweepInterval is how often fully expired refresh-token records
// are purged from storage.
const expiredTokenSweepInterval = time.Hour

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	tokenService *services.TokenService
	userService  *services.UserService
	httpServer   *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var source keys.Source
	if cfg.S3Bucket != "" {
		source = &keys.S3Source{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Object:       cfg.S3PrivateKeyObject,
		}
	} else {
		source = keys.NewFileSource(cfg.PrivateKeyFile)
	}

	issuer := auth.NewIssuer(keys.NewProvider(source), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenValidityDuration)

	ts := services.NewTokenService(db, m, issuer, cfg.RefreshTokenValidityDuration, logger)
	us := services.NewUserService(db, m, ts, logger)

	srv := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, us, ts, issuer, cfg.CORSAllowedOrigins)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		tokenService: ts,
		userService:  us,
		httpServer:   srv,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepExpiredTokens periodically deletes refresh-token records whose expiry
// has passed. Revoked but unexpired records are kept so that replays of
// rotated tokens stay detectable for the whole token lifetime.
func (app *App) sweepExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(expiredTokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := app.tokenService.DeleteExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "error purging expired tokens", "error", err.Error())
				continue
			}
			if deleted > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "deleted", deleted)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweepExpiredTokens(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err.Error())
	}
}
