// Package server wires the postfeed components together and runs the HTTP
// API until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/auth"
	"github.com/Eyad010/postfeed/internal/server/config"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/notify"
	"github.com/Eyad010/postfeed/internal/server/observability"
	"github.com/Eyad010/postfeed/internal/server/ratelimit"
	"github.com/Eyad010/postfeed/internal/server/repositories/repomanager"
	"github.com/Eyad010/postfeed/internal/server/services"

	hs "github.com/Eyad010/postfeed/internal/server/http"
)

const passwordHashCost = 12

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db, closers: []io.Closer{db}}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := media.NewS3Store(ctx, c)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("media store init error: %w", err)
	}

	sender, err := notify.NewSender(c, logger)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("mail sender init error: %w", err)
	}

	registry, metrics := observability.NewRegistry()

	as := services.NewAuthService(db, rm, c, auth.NewBcryptHasher(passwordHashCost), sender, logger)
	us := services.NewUserService(db, rm, store, logger)
	ps := services.NewPostService(db, rm, store, logger)

	h := hs.NewHandler(as, us, ps, logger, metrics, c.CookieSecure)
	app.handler = h.Router(hs.RouterOptions{
		CORSOrigins: c.CORSOrigins,
		Limiter:     app.newLimiter(ctx),
		TrustProxy:  c.TrustProxy,
		Metrics:     observability.Handler(registry),
		Ping:        db.PingContext,
	})

	return app, nil
}

// newLimiter uses Redis when an address is configured so that several
// instances share one budget; otherwise counters live in process memory.
func (app *App) newLimiter(ctx context.Context) ratelimit.Limiter {
	c := app.config
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, client)
		app.logger.Info(ctx, "Using redis rate limiter", "address", c.RedisAddr)
		return ratelimit.NewRedisLimiter(client, "", c.RateLimit, c.RateLimitWindow)
	}

	l := ratelimit.NewMemoryLimiter(c.RateLimit, c.RateLimitWindow)
	app.closers = append(app.closers, l)
	return l
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewHTTPServer(app.config.HTTPAddr, app.logger, app.handler)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
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

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}
