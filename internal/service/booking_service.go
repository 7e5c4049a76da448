package service

import (
	"context"
	"errors"
	"strconv"

	"cryptourist/internal/apperr"
	"cryptourist/internal/chain"
	"cryptourist/internal/log"
	"cryptourist/internal/model"

	"github.com/sourcegraph/conc/pool"
)

// BookingService бронирования и позиции контракта, оплата и оформление корзины.
type BookingService struct {
	contract Contract
	settings *SettingsService
	wallet   *WalletService
	log      log.Logger
}

// NewBookingService создает новый сервис бронирований.
func NewBookingService(contract Contract, settings *SettingsService, wallet *WalletService, logger log.Logger) *BookingService {
	return &BookingService{contract: contract, settings: settings, wallet: wallet, log: logger}
}

// Dashboard бронирования и позиции контракта вместе со сводкой.
type Dashboard struct {
	Bookings []model.Booking `json:"bookings"`
	Articles []model.Article `json:"articles"`
	Stats    BookingStats    `json:"stats"`
}

type BookingStats struct {
	Total     int     `json:"total"`
	Paid      int     `json:"paid"`
	Completed int     `json:"completed"`
	Refunded  int     `json:"refunded"`
	PaidSum   float64 `json:"paidSum"`
}

// AllBookings читает бронирования контракта. Без кошелька возвращает пустой список.
func (s *BookingService) AllBookings(ctx context.Context) ([]model.Booking, error) {
	bookings, err := s.contract.GetAllBookings(ctx, s.contractAddress(ctx))
	if errors.Is(err, chain.ErrNoWallet) {
		return []model.Booking{}, nil
	}
	if err != nil {
		s.log.Errorw("Ошибка загрузки бронирований", "error", err)
		return nil, chainError(err)
	}
	return bookings, nil
}

// Articles читает позиции контракта. Без кошелька возвращает пустой список.
func (s *BookingService) Articles(ctx context.Context) ([]model.Article, error) {
	articles, err := s.contract.GetAllArticles(ctx, s.contractAddress(ctx))
	if errors.Is(err, chain.ErrNoWallet) {
		return []model.Article{}, nil
	}
	if err != nil {
		s.log.Errorw("Ошибка загрузки позиций", "error", err)
		return nil, chainError(err)
	}
	return articles, nil
}

// Booking ищет бронирование по id среди всех бронирований контракта.
func (s *BookingService) Booking(ctx context.Context, id int64) (model.Booking, error) {
	bookings, err := s.AllBookings(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	return findBooking(bookings, id)
}

// Pay оплачивает бронирование его полной суммой. Без кошелька возвращает ошибку.
func (s *BookingService) Pay(ctx context.Context, id int64) error {
	address := s.contractAddress(ctx)
	bookings, err := s.contract.GetAllBookings(ctx, address)
	if err != nil {
		return chainError(err)
	}
	booking, err := findBooking(bookings, id)
	if err != nil {
		return err
	}
	if booking.IsPaid {
		return apperr.ConflictErr("Бронирование уже оплачено.", nil)
	}

	amount := strconv.FormatFloat(booking.TotalAmount, 'f', -1, 64)
	if err := s.contract.PayBooking(ctx, id, amount, address); err != nil {
		s.log.Errorw("Ошибка оплаты бронирования", "id", id, "amount", amount, "error", err)
		return chainError(err)
	}
	s.log.Infow("Бронирование оплачено", "id", id, "amount", amount)
	return nil
}

// Checkout создает бронирование на все туры корзины от имени подключенного кошелька
// и очищает корзину после подтверждения транзакции.
func (s *BookingService) Checkout(ctx context.Context, cart *Cart) error {
	state := s.wallet.State()
	if !state.Connected {
		return apperr.UnauthorizedErr("Подключите кошелек, чтобы оформить бронирование.")
	}
	ids := cart.TourIDs()
	if len(ids) == 0 {
		return apperr.InvalidErr("Корзина пуста.", nil)
	}

	if err := s.contract.CreateBooking(ctx, ids, state.Address, s.contractAddress(ctx)); err != nil {
		s.log.Errorw("Ошибка оформления бронирования", "tours", ids, "error", err)
		return chainError(err)
	}
	cart.Clear()
	s.log.Infow("Бронирование оформлено", "tours", ids, "buyer", state.Address)
	return nil
}

// RecordReceipt принимает подтверждение бронирования от клиента. Ничего не сохраняет.
func (s *BookingService) RecordReceipt(receipt model.BookingReceipt) {
	s.log.Infow("Получено подтверждение бронирования",
		"tourId", receipt.TourID, "date", receipt.Date, "transactionHash", receipt.TransactionHash)
}

// Dashboard загружает бронирования и позиции параллельно.
func (s *BookingService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		bookings, err := s.AllBookings(ctx)
		d.Bookings = bookings
		return err
	})
	p.Go(func(ctx context.Context) error {
		articles, err := s.Articles(ctx)
		d.Articles = articles
		return err
	})
	if err := p.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.Stats = bookingStats(d.Bookings)
	return d, nil
}

// contractAddress адрес из хранилища; если настройки еще не сохранялись, берется адрес по умолчанию.
func (s *BookingService) contractAddress(ctx context.Context) string {
	if address := s.settings.ContractAddress(ctx); address != "" {
		return address
	}
	return s.settings.Read().ContractAddress
}

func findBooking(bookings []model.Booking, id int64) (model.Booking, error) {
	for _, b := range bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Booking{}, apperr.NotFoundErr("Бронирование не найдено.")
}

func bookingStats(bookings []model.Booking) BookingStats {
	stats := BookingStats{Total: len(bookings)}
	for _, b := range bookings {
		if b.IsPaid {
			stats.Paid++
			stats.PaidSum += b.TotalAmount
		}
		if b.IsCompleted {
			stats.Completed++
		}
		if b.IsRefunded {
			stats.Refunded++
		}
	}
	return stats
}
