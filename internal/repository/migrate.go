package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cryptourist/internal/log"

	"github.com/jmoiron/sqlx"
)

// Migrate применяет *.sql файлы из каталога dir по порядку имен, каждый в своей транзакции.
// Ошибка одной миграции откатывает только ее и прерывает применение остальных.
func Migrate(db *sqlx.DB, dir string, logger log.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("поиск миграций: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("чтение миграции %s: %w", file, err)
		}
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("ошибка при инициации транзакции миграции: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			logger.Errorw("Миграция завершилась ошибкой", "file", file, "error", err)
			return fmt.Errorf("миграция %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("фиксация миграции %s: %w", file, err)
		}
		logger.Infow("Миграция применена", "file", file)
	}
	return nil
}
