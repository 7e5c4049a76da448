package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SettingsKey ключ единственной записи настроек.
const SettingsKey = "settings"

// SettingsRepository хранит JSON-строку настроек в PostgreSQL.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository создает репозиторий настроек поверх PostgreSQL.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load читает сохраненную запись. ok == false, если настройки еще не сохранялись.
func (r *SettingsRepository) Load(ctx context.Context) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key=$1", SettingsKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка при чтении настроек: %w", err)
	}
	return value, true, nil
}

// Save перезаписывает запись настроек.
func (r *SettingsRepository) Save(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		SettingsKey, value)
	if err != nil {
		return fmt.Errorf("не удалось сохранить настройки: %w", err)
	}
	return nil
}

// RedisSettingsRepository хранит настройки в Redis под ключом prefix + SettingsKey.
type RedisSettingsRepository struct {
	client *redis.Client
	key    string
}

// NewRedisSettingsRepository создает репозиторий настроек поверх клиента Redis.
func NewRedisSettingsRepository(client *redis.Client, prefix string) *RedisSettingsRepository {
	return &RedisSettingsRepository{client: client, key: prefix + SettingsKey}
}

// Load читает ключ настроек; ok == false, если ключа нет.
func (r *RedisSettingsRepository) Load(ctx context.Context) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка при чтении настроек из redis: %w", err)
	}
	return value, true, nil
}

// Save записывает ключ настроек без срока жизни.
func (r *RedisSettingsRepository) Save(ctx context.Context, value string) error {
	if err := r.client.Set(ctx, r.key, value, 0).Err(); err != nil {
		return fmt.Errorf("не удалось сохранить настройки в redis: %w", err)
	}
	return nil
}

// MemorySettingsRepository хранит настройки в памяти процесса (тесты, запуск без БД).
type MemorySettingsRepository struct {
	mu    sync.RWMutex
	value string
	ok    bool
}

// NewMemorySettingsRepository создает пустой репозиторий в памяти.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{}
}

// Load возвращает последнее сохраненное значение.
func (r *MemorySettingsRepository) Load(context.Context) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.ok, nil
}

// Save запоминает значение.
func (r *MemorySettingsRepository) Save(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value, r.ok = value, true
	return nil
}
