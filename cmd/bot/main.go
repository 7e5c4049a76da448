package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cryptourist/internal/app"
	"cryptourist/internal/config"
	"cryptourist/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	_ = godotenv.Load()

	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "bot [flags]",
		Short:        "Telegram-бот витрины: каталог, корзина и оплата бронирований.",
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "Путь к YAML-файлу конфигурации.")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(viper.New(), cfgFile)
		if err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return errors.New("не указан токен бота (TOURS_TELEGRAM_TOKEN)")
		}
		logger, err := log.NewProductionLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("ошибка инициализации бота: %w", err)
		}
		logger.Infow("Запущен бот", "username", api.Self.UserName)

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		defer api.StopReceivingUpdates()

		NewBot(api, a, logger.Named("bot")).Run(ctx, updates)
		logger.Infow("Бот остановлен")
		return nil
	}
	return cmd
}
