package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/crypto"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/errorreporting"
	"github.com/sipas/persuratan/internal/httpapi"
	"github.com/sipas/persuratan/internal/kategori"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/report"
	"github.com/sipas/persuratan/internal/surat"
	"github.com/sipas/persuratan/internal/suratmasuk"
	"github.com/sipas/persuratan/internal/users"
)

const limiterPruneInterval = 10 * time.Minute

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Store
	Loader         *cache.Loader
	Invalidator    *cache.Invalidator
	KategoriSvc    *kategori.Service
	SuratSvc       *surat.Service
	SuratMasukSvc  *suratmasuk.Service
	UsersSvc       *users.Service
	ReportSvc      *report.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	DB             *database.DB
	memory         *cache.MemoryStore
	redis          *cache.RedisStore
}

// New connects to the database, runs migrations and wires every service
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	app.Cache = app.initCache()
	app.Loader = cache.NewLoader(app.Cache)
	app.Invalidator = cache.NewInvalidator(app.Cache, logger).WithLoader(app.Loader)

	if err := app.initDatabase(); err != nil {
		app.closeCache()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.Shutdown(context.Background())
		return nil, err
	}
	app.initServer()

	return app, nil
}

// NewLogger builds the process logger from configuration
func NewLogger(cfg config.LoggingConfig) *logging.Logger {
	return logging.NewWithOptions(logging.ParseLevel(cfg.Level), logging.Options{
		Output: os.Stdout,
		JSON:   cfg.Format == "json",
	})
}

func (a *App) initCache() cache.Store {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisStore, err := cache.NewRedis(cache.RedisConfig{
			Addr:     a.Config.Cache.RedisAddr,
			Password: a.Config.Cache.RedisPassword,
			DB:       a.Config.Cache.RedisDB,
			Prefix:   a.Config.Cache.RedisPrefix,
		}, a.Logger)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return a.newMemory()
		}
		a.redis = redisStore
		return redisStore
	default:
		a.Logger.Info("Using in-memory cache backend")
		return a.newMemory()
	}
}

func (a *App) newMemory() cache.Store {
	a.memory = cache.NewMemory(a.Logger,
		cache.WithSweepInterval(a.Config.Cache.SweepInterval),
		cache.WithSizeGauge(),
	)
	return a.memory
}

func (a *App) initDatabase() error {
	db, err := database.New(database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.Logger.Info("Connected to PostgreSQL")

	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.DB = db
	return nil
}

func (a *App) initServices() error {
	ttlRef := a.Config.Cache.TTLReference
	ttlLetters := a.Config.Cache.TTLLetters

	userStore := database.NewUserStore(a.DB)
	a.AuthService = auth.NewService(userStore, a.Config.Auth, a.Logger)
	a.AuthMiddleware = auth.NewMiddleware(a.AuthService)
	a.UsersSvc = users.NewService(userStore, a.Loader, a.Invalidator, ttlRef, a.Config.Auth.BcryptCost, a.Logger)

	a.KategoriSvc = kategori.NewService(database.NewKategoriStore(a.DB), a.Loader, a.Invalidator, ttlRef, a.Logger)
	a.SuratSvc = surat.NewService(database.NewSuratStore(a.DB), a.KategoriSvc, a.Loader, a.Invalidator, ttlLetters, a.Logger)
	sealer, err := a.initSealer()
	if err != nil {
		return err
	}
	a.SuratMasukSvc = suratmasuk.NewService(database.NewSuratMasukStore(a.DB, sealer), a.Loader, a.Invalidator, ttlLetters, a.Logger)
	a.ReportSvc = report.NewService(a.SuratSvc, a.SuratMasukSvc, a.Logger)

	if a.Config.Auth.JWTSecret == config.DefaultJWTSecret {
		a.Logger.Warn("AUTH_JWT_SECRET is not set, using the development default")
	}
	return nil
}

// initSealer returns nil when no secret is configured, which stores
// disposisi and keterangan in plaintext
func (a *App) initSealer() (*crypto.Sealer, error) {
	if a.Config.Crypto.FieldSecret == "" {
		a.Logger.Warn("FIELD_ENCRYPTION_SECRET is not set, surat masuk disposisi will be stored in plaintext")
		return nil, nil
	}
	sealer, err := crypto.NewSealer([]byte(a.Config.Crypto.FieldSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize field encryption: %w", err)
	}
	return sealer, nil
}

func (a *App) initServer() {
	a.HTTPServer = httpapi.New(a.Config.Server, httpapi.Services{
		Auth:       a.AuthService,
		Surat:      a.SuratSvc,
		SuratMasuk: a.SuratMasukSvc,
		Kategori:   a.KategoriSvc,
		Users:      a.UsersSvc,
		Report:     a.ReportSvc,
		Cache:      a.Invalidator,
	}, a.AuthMiddleware, a.Logger)
}

// Run starts the cache sweeper and the HTTP server and blocks until ctx is
// cancelled or the server fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.memory != nil {
		a.memory.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	go a.pruneLimiter(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Shutting down...")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	a.Shutdown(shutdownCtx)

	return runErr
}

func (a *App) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.HTTPServer.PruneLoginLimiter(limiterPruneInterval); n > 0 {
				a.Logger.Debug("Pruned login limiter", logging.WithField("keys", n))
			}
		}
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	a.closeCache()

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	errorreporting.Flush(2 * time.Second)
	return nil
}

func (a *App) closeCache() {
	if a.memory != nil {
		a.memory.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}
}
