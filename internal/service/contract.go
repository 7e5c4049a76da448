package service

import (
	"context"

	"cryptourist/internal/model"
)

//go:generate mockgen -destination=../../mocks/mock_contract.go -package=mocks cryptourist/internal/service Contract

// Contract методы контракта бронирований, которыми пользуются сервисы.
type Contract interface {
	GetAllBookings(ctx context.Context, contractAddress string) ([]model.Booking, error)
	GetAllArticles(ctx context.Context, contractAddress string) ([]model.Article, error)
	PayBooking(ctx context.Context, bookingID int64, amount string, contractAddress string) error
	CreateBooking(ctx context.Context, articleIDs []string, buyerAddress string, contractAddress string) error
}
