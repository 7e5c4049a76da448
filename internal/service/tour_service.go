package service

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"cryptourist/internal/apperr"
	"cryptourist/internal/model"
	"cryptourist/internal/repository"
)

const (
	defaultDateCount = 10
	bookingWindow    = 30 // дней вперед
)

// TourService содержит бизнес-логику, связанную с каталогом туров.
type TourService struct {
	tourRepo *repository.TourRepository
	now      func() time.Time
}

// NewTourService создает новый сервис туров.
func NewTourService(tourRepo *repository.TourRepository) *TourService {
	return &TourService{tourRepo: tourRepo, now: time.Now}
}

func (s *TourService) List() []model.Tour {
	return s.tourRepo.FindAll()
}

// Search выполняет поиск туров по стране, городу и/или ключевому слову.
func (s *TourService) Search(country, city, keyword string) []model.Tour {
	return s.tourRepo.FindByFilters(country, city, keyword)
}

func (s *TourService) Get(id string) (model.Tour, error) {
	tour, err := s.tourRepo.GetByID(id)
	return tour, notFound(err)
}

func (s *TourService) GetBySlug(slug string) (model.Tour, error) {
	tour, err := s.tourRepo.GetBySlug(slug)
	return tour, notFound(err)
}

// Reviews отзывы, tour фильтрует по названию тура.
func (s *TourService) Reviews(tour string) []model.Review {
	return s.tourRepo.Reviews(tour)
}

// AvailableDates возвращает n разных дней в ближайшие 30 дней по возрастанию.
// n <= 0 означает 10, больше 30 дней выбрать нельзя.
func (s *TourService) AvailableDates(n int) []time.Time {
	if n <= 0 {
		n = defaultDateCount
	}
	if n > bookingWindow {
		n = bookingWindow
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	dates := make([]time.Time, 0, n)
	for _, offset := range rand.Perm(bookingWindow)[:n] {
		dates = append(dates, today.AddDate(0, 0, offset+1))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFoundErr("Тур не найден.")
	}
	return err
}
