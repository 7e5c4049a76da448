package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptourist/internal/app"
	"cryptourist/internal/config"
	"cryptourist/internal/log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	configF         = "config"
	configFlagUsage = "Путь к YAML-файлу конфигурации. Переменные TOURS_* имеют приоритет."
	shutdownTimeout = 10 * time.Second
)

func main() {
	// .env необязателен, переменные могут прийти из окружения
	_ = godotenv.Load()

	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "api [flags]",
		Short:        "HTTP API витрины велотуров с оплатой через смарт-контракт.",
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&cfgFile, configF, "", configFlagUsage)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(viper.New(), cfgFile)
		if err != nil {
			return err
		}
		logger, err := log.NewProductionLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logger.Debugw(fmt.Sprintf(format, args...))
		})); err != nil {
			logger.Warnw("Не удалось настроить GOMAXPROCS", "error", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, logger)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Errorw("Ошибка при закрытии подключений", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP-сервер запущен", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	case <-ctx.Done():
	}

	logger.Infow("Остановка HTTP-сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
