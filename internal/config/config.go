// Package config описывает настройки витрины и их загрузку через viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"cryptourist/internal/chain"

	"github.com/spf13/viper"
)

const EnvPrefix = "TOURS"

// DefaultContractAddress развернутый контракт бронирований в сети Columbus.
const DefaultContractAddress = "0x06F15D6E234CD1F5815DDf2949b537eae91bf565"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Network  NetworkConfig  `mapstructure:"network"`
	Contract ContractConfig `mapstructure:"contract"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit запросов в секунду на изменяющие маршруты, 0 - без ограничения.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// CartTTL сколько хранится корзина без обращений.
	CartTTL time.Duration `mapstructure:"cart_ttl"`
}

// StorageConfig где хранится запись настроек: memory, postgres или redis.
type StorageConfig struct {
	Driver     string         `mapstructure:"driver"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Migrations string         `mapstructure:"migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN строка подключения для lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WalletConfig провайдер кошелька. Пустой RPCURL означает, что кошелька нет.
type WalletConfig struct {
	RPCURL       string        `mapstructure:"rpc_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type NetworkConfig struct {
	ChainID        string   `mapstructure:"chain_id"`
	ChainName      string   `mapstructure:"chain_name"`
	CurrencyName   string   `mapstructure:"currency_name"`
	CurrencySymbol string   `mapstructure:"currency_symbol"`
	Decimals       int      `mapstructure:"decimals"`
	RPCURLs        []string `mapstructure:"rpc_urls"`
	ExplorerURLs   []string `mapstructure:"explorer_urls"`
}

// Params параметры сети для wallet_addEthereumChain.
func (c NetworkConfig) Params() chain.NetworkParams {
	return chain.NetworkParams{
		ChainID:   c.ChainID,
		ChainName: c.ChainName,
		NativeCurrency: chain.NativeCurrency{
			Name:     c.CurrencyName,
			Symbol:   c.CurrencySymbol,
			Decimals: c.Decimals,
		},
		RPCURLs:           c.RPCURLs,
		BlockExplorerURLs: c.ExplorerURLs,
	}
}

type ContractConfig struct {
	DefaultAddress string `mapstructure:"default_address"`
	ABIPath        string `mapstructure:"abi_path"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// SetDefaults регистрирует значения по умолчанию: сеть Columbus и хранение настроек в памяти.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("http.cart_ttl", "24h")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.name", "")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.migrations", "migrations")

	v.SetDefault("wallet.rpc_url", "")
	v.SetDefault("wallet.poll_interval", time.Second)

	v.SetDefault("network.chain_id", chain.Columbus.ChainID)
	v.SetDefault("network.chain_name", chain.Columbus.ChainName)
	v.SetDefault("network.currency_name", chain.Columbus.NativeCurrency.Name)
	v.SetDefault("network.currency_symbol", chain.Columbus.NativeCurrency.Symbol)
	v.SetDefault("network.decimals", chain.Columbus.NativeCurrency.Decimals)
	v.SetDefault("network.rpc_urls", chain.Columbus.RPCURLs)
	v.SetDefault("network.explorer_urls", chain.Columbus.BlockExplorerURLs)

	v.SetDefault("contract.default_address", DefaultContractAddress)
	v.SetDefault("contract.abi_path", "")
	v.SetDefault("catalog.path", "")
	v.SetDefault("telegram.token", "")
}

// Load читает конфигурацию: значения по умолчанию, затем файл (если задан),
// затем переменные окружения TOURS_* (TOURS_STORAGE_DRIVER и т.п.).
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("чтение файла конфигурации %s: %w", file, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("неизвестное хранилище настроек %q (memory, postgres, redis)", c.Storage.Driver)
	}
	if c.Contract.DefaultAddress != "" && !strings.HasPrefix(strings.ToLower(c.Contract.DefaultAddress), "0x") {
		return fmt.Errorf("адрес контракта по умолчанию должен начинаться с 0x: %q", c.Contract.DefaultAddress)
	}
	if c.Network.Decimals != chain.Decimals {
		return fmt.Errorf("поддерживается только %d знаков валюты, задано %d", chain.Decimals, c.Network.Decimals)
	}
	if c.Wallet.PollInterval <= 0 {
		return fmt.Errorf("интервал опроса кошелька должен быть положительным: %s", c.Wallet.PollInterval)
	}
	return nil
}
