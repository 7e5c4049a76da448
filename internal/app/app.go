// Package app собирает зависимости витрины: хранилище настроек, кошелек,
// мост к контракту, сервисы и HTTP-маршруты.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cryptourist/internal/chain"
	"cryptourist/internal/config"
	"cryptourist/internal/handler"
	"cryptourist/internal/log"
	"cryptourist/internal/metrics"
	"cryptourist/internal/middleware"
	"cryptourist/internal/repository"
	"cryptourist/internal/service"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL драйвер
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// App готовое к работе приложение. Закрывается через Close.
type App struct {
	Config   *config.Config
	Log      log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Tours    *service.TourService
	Carts    *service.CartService
	Bookings *service.BookingService
	Settings *service.SettingsService
	Wallet   *service.WalletService

	closers []func() error
}

type options struct {
	provider chain.Provider
}

type Option func(*options)

// WithProvider подставляет готовый провайдер кошелька вместо подключения по wallet.rpc_url.
func WithProvider(p chain.Provider) Option {
	return func(o *options) { o.provider = p }
}

// New подключает хранилище, кошелек и контракт и загружает настройки.
// Отсутствие кошелька не ошибка: чтение бронирований тогда дает пустые списки.
func New(ctx context.Context, cfg *config.Config, logger log.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	storage, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider := o.provider
	if provider == nil && cfg.Wallet.RPCURL != "" {
		rpcProvider, err := chain.Dial(ctx, cfg.Wallet.RPCURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { rpcProvider.Close(); return nil })
		provider = rpcProvider
	}
	if provider == nil {
		logger.Warnw("Провайдер кошелька не задан, операции с контрактом недоступны")
	}

	contractABI, err := loadABI(cfg.Contract.ABIPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	tours, err := repository.NewTourRepository(cfg.Catalog.Path)
	if err != nil {
		a.Close()
		return nil, err
	}

	bridge := chain.NewBridge(provider, contractABI, logger.Named("contract"), a.Metrics).
		WithPollInterval(cfg.Wallet.PollInterval)

	a.Settings = service.NewSettingsService(storage, service.DefaultSettings(cfg.Contract.DefaultAddress), logger.Named("settings"))
	a.Settings.Load(ctx)

	a.Wallet = service.NewWalletService(provider, cfg.Network.Params(), logger.Named("wallet"))
	if provider != nil {
		if err := a.Wallet.CheckConnection(ctx); err != nil {
			logger.Warnw("Не удалось проверить подключение кошелька", "error", err)
		}
	}

	a.Tours = service.NewTourService(tours)
	a.Carts = service.NewCartService().WithTTL(cfg.HTTP.CartTTL)
	a.Bookings = service.NewBookingService(bridge, a.Settings, a.Wallet, logger.Named("bookings"))
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (service.SettingsStorage, error) {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case "postgres":
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := repository.Migrate(db, cfg.Migrations, a.Log.Named("migrate")); err != nil {
			return nil, err
		}
		a.Log.Infow("Настройки хранятся в PostgreSQL", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
		return repository.NewSettingsRepository(db), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
		}
		a.Log.Infow("Настройки хранятся в Redis", "addr", cfg.Redis.Addr)
		return repository.NewRedisSettingsRepository(client, "cryptourist:"), nil
	default:
		a.Log.Infow("Настройки хранятся в памяти процесса")
		return repository.NewMemorySettingsRepository(), nil
	}
}

func loadABI(path string) (abi.ABI, error) {
	if path == "" {
		return chain.ParseABI(chain.BookingContractABI)
	}
	return chain.LoadABI(path)
}

// Router маршруты API, /health и /metrics с CORS для фронтенда.
func (a *App) Router() http.Handler {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(a.Log.Named("http"), a.Metrics),
		middleware.ErrorHandler(a.Log),
		middleware.Recovery(a.Log),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "wallet": a.Wallet.State().Connected})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	h := handler.NewHandler(a.Tours, a.Carts, a.Bookings, a.Settings, a.Wallet)
	h.Register(r.Group("/api"), middleware.RateLimit(a.Config.HTTP.RateLimit, a.Config.HTTP.RateBurst))

	return cors.New(cors.Options{
		AllowedOrigins:   a.Config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: true,
	}).Handler(r)
}

// Close закрывает подключения в обратном порядке.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
