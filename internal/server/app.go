// Package server wires configuration, storage, services and transports into
// the running paleolab application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/archive"
	"github.com/dmitrijs2005/paleolab/internal/server/config"
	"github.com/dmitrijs2005/paleolab/internal/server/httpapi"
	"github.com/dmitrijs2005/paleolab/internal/server/metrics"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/paleolab/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

var (
	openDB        = repomanager.Open
	runMigrations = func(ctx context.Context, m repomanager.RepositoryManager, db *sql.DB) error {
		return m.RunMigrations(ctx, db)
	}
)

// Store is an opened and migrated database.
type Store struct {
	DB      *sql.DB
	Manager repomanager.RepositoryManager
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, c *config.Config) (*Store, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := runMigrations(ctx, m, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db, Manager: m}, nil
}

// NewLogger builds the JSON logger for the configured level.
func NewLogger(c *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewJSON(os.Stdout, level).With("env", c.Environment), nil
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *Store
	redis      *redis.Client
	httpServer *http.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, store: store}

	sess, err := app.sessionStore(ctx)
	if err != nil {
		store.DB.Close()
		return nil, err
	}

	es := services.NewEmployeeService(store.DB, store.Manager, sess, logger)
	cs := services.NewCoreService(store.DB, store.Manager, logger, c.CoreMutationsRequireAdmin)
	as := services.NewAuthService(store.DB, store.Manager, sess, es, c.SecretKey, c.SessionTTL, logger)

	handler := httpapi.NewRouter(httpapi.Deps{
		Auth:          as,
		Employees:     es,
		Cores:         cs,
		Archive:       archive.NewArchiver(cs, c, logger),
		Metrics:       metrics.New(),
		DB:            store.DB,
		Logger:        logger,
		SecureCookies: c.SecureCookies,
	})

	app.httpServer = &http.Server{Addr: c.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	app.grpcServer = gs.NewGRPCServer(c.GRPCAddr, logger, store.DB)
	return app, nil
}

func (app *App) sessionStore(ctx context.Context) (sessions.Repository, error) {
	if app.config.SessionStore != config.SessionStoreRedis {
		return app.store.Manager.Sessions(app.store.DB), nil
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.redis.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return sessions.NewRedisRepository(app.redis), nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a signal arrives, then shuts both
// servers down and releases the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	app.logger.Info(ctx, "Stopping app...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "error", err)
	}

	wg.Wait()
	app.close()
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close", "error", err)
		}
	}
	if err := app.store.DB.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close", "error", err)
	}
}
