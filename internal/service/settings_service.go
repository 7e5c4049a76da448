package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cryptourist/internal/log"
	"cryptourist/internal/model"
)

// SettingsStorage долговременное хранилище одной JSON-записи настроек.
type SettingsStorage interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, value string) error
}

// SettingsService хранит настройки в памяти и в SettingsStorage.
// Последняя запись побеждает.
type SettingsService struct {
	storage  SettingsStorage
	defaults model.Settings
	log      log.Logger

	mu      sync.RWMutex
	current model.Settings
}

// DefaultSettings настройки до первого сохранения.
func DefaultSettings(contractAddress string) model.Settings {
	return model.Settings{
		ContractAddress: contractAddress,
		Theme:           model.ThemeLight,
		Notifications:   true,
	}
}

func NewSettingsService(storage SettingsStorage, defaults model.Settings, logger log.Logger) *SettingsService {
	return &SettingsService{
		storage:  storage,
		defaults: defaults,
		log:      logger,
		current:  defaults,
	}
}

// Load загружает настройки из хранилища. Ошибки чтения и разбора не фатальны:
// они логируются, и остаются значения по умолчанию.
func (s *SettingsService) Load(ctx context.Context) {
	loaded := s.defaults
	raw, ok, err := s.storage.Load(ctx)
	switch {
	case err != nil:
		s.log.Warnw("Не удалось прочитать настройки, используются значения по умолчанию", "error", err)
	case ok:
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			s.log.Warnw("Не удалось разобрать настройки, используются значения по умолчанию", "error", err)
			loaded = s.defaults
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
}

// Read возвращает настройки из памяти.
func (s *SettingsService) Read() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update применяет патч, сохраняет результат и только затем обновляет память.
func (s *SettingsService) Update(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := patch.Apply(s.current)
	raw, err := json.Marshal(merged)
	if err != nil {
		return model.Settings{}, fmt.Errorf("кодирование настроек: %w", err)
	}
	if err := s.storage.Save(ctx, string(raw)); err != nil {
		s.log.Errorw("Не удалось сохранить настройки", "error", err)
		return model.Settings{}, err
	}
	s.current = merged
	s.log.Infow("Настройки обновлены", "contractAddress", merged.ContractAddress, "theme", merged.Theme)
	return merged, nil
}

// ContractAddress читает адрес контракта прямо из хранилища, минуя память.
// Пустая строка, если настройки не сохранялись или запись не читается.
func (s *SettingsService) ContractAddress(ctx context.Context) string {
	raw, ok, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warnw("Не удалось прочитать адрес контракта", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	var stored struct {
		ContractAddress string `json:"contractAddress"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return ""
	}
	return stored.ContractAddress
}
