package repository

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"cryptourist/internal/chain"
	"cryptourist/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed data/tours.yaml
var defaultCatalog []byte

// ErrNotFound запись не найдена.
var ErrNotFound = errors.New("not found")

type catalogFile struct {
	Tours   []tourRecord   `yaml:"tours"`
	Reviews []model.Review `yaml:"reviews"`
}

type tourRecord struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	City        string `yaml:"city"`
	Country     string `yaml:"country"`
	Duration    string `yaml:"duration"`
	Price       string `yaml:"price"` // в валюте сети
	Distance    string `yaml:"distance"`
	ImageURL    string `yaml:"image_url"`
	Description string `yaml:"description"`
}

// TourRepository обеспечивает доступ к статическому каталогу туров и отзывов.
// Каталог загружается один раз и не меняется.
type TourRepository struct {
	tours   []model.Tour
	reviews []model.Review
}

// NewTourRepository загружает каталог из файла path; пустой путь означает встроенный каталог.
func NewTourRepository(path string) (*TourRepository, error) {
	raw := defaultCatalog
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("не удалось прочитать каталог туров: %w", err)
		}
	}
	return ParseCatalog(raw)
}

// ParseCatalog разбирает YAML каталога и переводит цены в минимальные единицы.
func ParseCatalog(raw []byte) (*TourRepository, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога туров: %w", err)
	}

	repo := &TourRepository{reviews: file.Reviews}
	seen := make(map[string]bool, len(file.Tours))
	for _, rec := range file.Tours {
		if rec.ID == "" || seen[rec.ID] {
			return nil, fmt.Errorf("пустой или повторяющийся id тура %q", rec.ID)
		}
		seen[rec.ID] = true

		price, err := chain.ToWei(rec.Price)
		if err != nil {
			return nil, fmt.Errorf("цена тура %s: %w", rec.ID, err)
		}
		repo.tours = append(repo.tours, model.Tour{
			ID:          rec.ID,
			Slug:        Slug(rec.Title),
			Title:       rec.Title,
			City:        rec.City,
			Country:     rec.Country,
			Duration:    rec.Duration,
			Price:       price,
			Distance:    rec.Distance,
			ImageURL:    rec.ImageURL,
			Description: strings.TrimSpace(rec.Description),
		})
	}
	return repo, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug адрес тура: название в нижнем регистре, пробелы заменены на "-".
func Slug(title string) string {
	return whitespace.ReplaceAllString(strings.ToLower(title), "-")
}

// FindAll возвращает все туры каталога.
func (r *TourRepository) FindAll() []model.Tour {
	return append([]model.Tour(nil), r.tours...)
}

// FindByFilters ищет туры по стране, городу и ключевому слову в названии или описании.
// Пустой фильтр или "any" не ограничивает выборку.
func (r *TourRepository) FindByFilters(country, city, keyword string) []model.Tour {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	var out []model.Tour
	for _, t := range r.tours {
		if !matches(t.Country, country) || !matches(t.City, city) {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(t.Title), kw) && !strings.Contains(strings.ToLower(t.Description), kw) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(value, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "any") {
		return true
	}
	return strings.EqualFold(value, filter)
}

// GetByID получает тур по его идентификатору.
func (r *TourRepository) GetByID(id string) (model.Tour, error) {
	for _, t := range r.tours {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Tour{}, fmt.Errorf("тур %s: %w", id, ErrNotFound)
}

// GetBySlug получает тур по адресу страницы.
func (r *TourRepository) GetBySlug(slug string) (model.Tour, error) {
	for _, t := range r.tours {
		if t.Slug == slug {
			return t, nil
		}
	}
	return model.Tour{}, fmt.Errorf("тур %q: %w", slug, ErrNotFound)
}

// Reviews возвращает отзывы; tour фильтрует по названию тура без учета регистра.
func (r *TourRepository) Reviews(tour string) []model.Review {
	var out []model.Review
	for _, rv := range r.reviews {
		if tour == "" || strings.EqualFold(rv.Tour, tour) {
			out = append(out, rv)
		}
	}
	return out
}
