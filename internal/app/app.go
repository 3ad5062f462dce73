// Package app wires configuration, storage, conversations and Telegram
// handlers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/playlistbot/core/bootstrap"
	corecmd "github.com/m3rciful/playlistbot/core/cmd"
	coreconfig "github.com/m3rciful/playlistbot/core/config"
	"github.com/m3rciful/playlistbot/core/health"
	"github.com/m3rciful/playlistbot/core/logger"
	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/router"
	"github.com/m3rciful/playlistbot/core/telegram/state"
	"github.com/m3rciful/playlistbot/internal/bot"
	"github.com/m3rciful/playlistbot/internal/config"
	"github.com/m3rciful/playlistbot/internal/convo"
	"github.com/m3rciful/playlistbot/internal/playlist"
	"github.com/m3rciful/playlistbot/internal/store"
)

const redisPingTimeout = 5 * time.Second

// Options overrides infrastructure hooks, mostly for tests.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	// Redis replaces the client built from configuration.
	Redis *redis.Client
}

// App owns every long lived component of the bot.
type App struct {
	cfg *config.Config

	infra    *bootstrap.Result
	redis    *redis.Client
	store    *store.Store
	service  *playlist.Service
	machine  *convo.Machine
	janitor  *convo.Janitor
	flows    *bot.Flows
	handlers *bot.Handlers
	registry *tg.Registry
}

var (
	_ corecmd.TelegramApp   = (*App)(nil)
	_ corecmd.BackgroundApp = (*App)(nil)
)

// New connects storage, applies migrations and registers handlers.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: store.Migrations(),
		LoggerInit: opts.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra, registry: tg.NewRegistry()}
	if err := a.wire(opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(opts Options) error {
	a.store = store.New(a.infra.DB)
	a.service = playlist.NewService(a.store)

	sessions, err := a.sessionStore(opts.Redis)
	if err != nil {
		return err
	}
	a.machine = convo.New(state.NewManager(sessions), convo.Config{
		AddWindow:          a.cfg.Session.AddWindow(),
		RefreshOnEachTrack: a.cfg.Session.RefreshOnEachTrack,
		ConfirmTTL:         a.cfg.Session.DeleteConfirmTTL(),
	})
	a.janitor, err = convo.NewJanitor(a.machine, a.cfg.Session.JanitorSpec)
	if err != nil {
		return err
	}

	a.flows = bot.NewFlows(a.service, a.machine)
	a.handlers = bot.NewHandlers(a.flows)
	return a.handlers.Register(a.registry)
}

func (a *App) sessionStore(client *redis.Client) (state.Store, error) {
	if a.cfg.Session.Backend != config.SessionRedis {
		return state.NewMemoryStore(), nil
	}
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
	}
	a.redis = client

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	rs := state.NewRedisStore(client, a.cfg.Redis.Prefix, a.cfg.Session.TTL())
	if err := rs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("app: redis unreachable at %s: %w", a.cfg.Redis.Addr, err)
	}
	logger.LogEvent(ctx, logger.Convo, slog.LevelInfo, "session_backend",
		slog.String("backend", config.SessionRedis),
		slog.String("addr", a.cfg.Redis.Addr),
	)
	return rs, nil
}

// Flows exposes the conversation layer.
func (a *App) Flows() *bot.Flows { return a.flows }

// Registry exposes registered commands and callbacks.
func (a *App) Registry() *tg.Registry { return a.registry }

// TelegramRunOptions assembles routes and middlewares for the runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	h := a.handlers
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: h.AdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: h.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(h, a.registry, router.TextOptions{
		Buttons:         h.Buttons(),
		Audio:           h.Audio,
		UnknownText:     h.UnknownText(),
		UnknownDocument: h.UnknownDocument(),
		UnknownPhoto:    h.UnknownPhoto(),
	})...)
	routes = append(routes, router.InlineRoute(h.Inline))

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), a.handlers.Throttled),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.flows.SetBotUsername(rt.Username)
			if rt.Dispatcher != nil {
				a.flows.SetSendFailures(rt.Dispatcher.ErrorCount)
			}
			return nil
		},
	}, nil
}

// Background lists the services started next to the bot.
func (a *App) Background() []corecmd.Service {
	services := []corecmd.Service{
		{Name: "janitor", Run: a.janitor.Run},
	}
	if a.cfg.Health.Listen != "" {
		checks := map[string]health.Pinger{"db": a.store}
		if rs, ok := a.machine.Manager().Store().(*state.RedisStore); ok {
			checks["redis"] = rs
		}
		services = append(services, corecmd.Service{
			Name: "health",
			Run:  health.New(a.cfg.Health.Listen, checks).Run,
		})
	}
	return services
}

// Close releases the Redis client and the database.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.infra != nil {
		errs = append(errs, a.infra.Close())
		a.infra = nil
	}
	return errors.Join(errs...)
}
