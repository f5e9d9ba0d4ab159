package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Todo/internal/config"
	"Todo/internal/logging"
	"Todo/internal/migrations"
	"Todo/internal/repo"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	logger *log.Logger
	repo   repo.TodoRepo
	close  func() error
	router *gin.Engine
}

// New opens the configured store, applies pending migrations for SQL stores
// and builds the router.
func New(cfg config.Config, logger *log.Logger) (*App, error) {
	migrations.SetLogger(logging.Printer{Logger: logger})
	r, closeFn, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store ready", "driver", cfg.Store.Driver)

	a := NewWithRepo(cfg, logger, r)
	a.close = closeFn
	return a, nil
}

// NewWithRepo builds an App around an already opened store.
func NewWithRepo(cfg config.Config, logger *log.Logger, r repo.TodoRepo) *App {
	a := &App{cfg: cfg, logger: logger, repo: r}
	a.router = newRouter(cfg, logger, r)
	return a
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.close != nil {
		return a.close()
	}
	return nil
}

func openStore(cfg config.Config) (repo.TodoRepo, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := runMigrations(cfg); err != nil {
			return nil, nil, err
		}
		pool, err := newPostgres(cfg.PG)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewPGTodoRepo(pool), func() error { pool.Close(); return nil }, nil

	case config.DriverSQLite:
		db, err := repo.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Up(db, cfg.Store.Driver); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo.NewSQLiteTodoRepo(db), db.Close, nil

	case config.DriverRedis:
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewRedisTodoRepo(rdb), rdb.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// pgPoolConfig applies the configured pool limits on top of the DSN.
// Pool parameters embedded in the DSN lose to the config values.
func pgPoolConfig(c config.PGConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	pc.MaxConns = c.MaxConns
	pc.MinConns = c.MinConns
	if d := c.MaxConnIdleTime.Duration(); d > 0 {
		pc.MaxConnIdleTime = d
	}
	if d := c.MaxConnLifetime.Duration(); d > 0 {
		pc.MaxConnLifetime = d
	}
	if d := c.ConnectTimeout.Duration(); d > 0 {
		pc.ConnConfig.ConnectTimeout = d
	}
	return pc, nil
}

func newPostgres(c config.PGConfig) (*pgxpool.Pool, error) {
	pc, err := pgPoolConfig(c)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pc)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := withTimeout(c.ConnectTimeout.Duration())
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping %s: %w", pc.ConnConfig.Host, err)
	}
	return pool, nil
}

func redisOptions(c config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout.Duration(),
	}
}

func newRedis(c config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(redisOptions(c))

	ctx, cancel := withTimeout(c.DialTimeout.Duration())
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.Addr, err)
	}
	return rdb, nil
}

// withTimeout bounds startup checks; zero falls back to five seconds.
func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// ErrNoMigrations is returned for stores without a schema.
var ErrNoMigrations = errors.New("store driver has no migrations")

// OpenMigrationDB opens a database/sql handle for the configured SQL store.
func OpenMigrationDB(cfg config.Config) (*sql.DB, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := goose.OpenDBWithDriver("pgx", cfg.PG.DSN)
		if err != nil {
			return nil, fmt.Errorf("goose open db: %w", err)
		}
		return db, nil
	case config.DriverSQLite:
		return repo.OpenSQLite(cfg.SQLite.Path)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMigrations, cfg.Store.Driver)
}

func runMigrations(cfg config.Config) error {
	db, err := OpenMigrationDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrations.Up(db, cfg.Store.Driver)
}

func newRouter(cfg config.Config, logger *log.Logger, r repo.TodoRepo) *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(logging.RequestID(), logging.Requests(logger))

	e.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", logging.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	Setup(e, cfg, r)
	return e
}
