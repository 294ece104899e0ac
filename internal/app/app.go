package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/config"
	"github.com/ykvlv/event-reminder-bot/internal/conversation"
	"github.com/ykvlv/event-reminder-bot/internal/scheduler"
	"github.com/ykvlv/event-reminder-bot/internal/store"
	"github.com/ykvlv/event-reminder-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	loc     *time.Location
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    *store.SQLRepo
	rdb     *redis.Client
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, loc: loc, bot: bot}, nil
}

// setup opens the store, seeds global categories and builds the router and scheduler.
func (a *App) setup(ctx context.Context) error {
	repo, err := store.Open(ctx, a.cfg.DBDriver, a.cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open %s store: %w", a.cfg.DBDriver, err)
	}
	a.repo = repo
	a.log.Info("store ready", zap.String("driver", a.cfg.DBDriver))

	seed, err := store.LoadSeed(a.cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	if err := store.ApplySeed(ctx, repo, seed); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}

	states, err := a.stateStore(ctx)
	if err != nil {
		return err
	}

	a.router = telegram.NewRouter(a.bot, a.log, repo, states,
		telegram.WithLocation(a.loc),
		telegram.WithAdmin(a.cfg.AdminID),
	)
	a.sched = scheduler.New(repo, a.log, a.router,
		scheduler.WithLocation(a.loc),
		scheduler.WithSpec(a.cfg.TickSpec),
	)
	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      newHTTPHandler(a.log, repo.Ping),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	return nil
}

func (a *App) stateStore(ctx context.Context) (conversation.StateStore, error) {
	if a.cfg.StateBackend != "redis" {
		return conversation.NewMemoryStateStore(), nil
	}
	rdb, err := conversation.ConnectRedis(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	a.log.Info("redis session store ready", zap.Duration("ttl", a.cfg.StateTTL))
	return conversation.NewRedisStateStore(rdb, a.cfg.StateTTL), nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting event-reminder-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.loc.String()),
		zap.String("state", a.cfg.StateBackend),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.setup(ctx); err != nil {
		a.log.Error("setup failed", zap.Error(err))
		a.close()
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := a.sched.Run(ctx); err != nil {
			a.log.Error("scheduler stopped", zap.Error(err))
			stop()
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	// Queued handlers outlive the signal so that shutdown can drain them.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()
			<-schedDone
			a.router.Wait()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			a.close()
			return nil

		case upd, ok := <-updCh:
			if !ok {
				updCh = nil
				continue
			}
			a.router.HandleUpdate(handlerCtx, upd)
		}
	}
}

func (a *App) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis close error", zap.Error(err))
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("store close error", zap.Error(err))
		}
	}
}
