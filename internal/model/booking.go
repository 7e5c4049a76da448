package model

import (
	"math/big"
	"time"
)

// Booking представляет бронирование тура, записанное в смарт-контракте.
type Booking struct {
	ID          int64     `json:"id"`
	TotalAmount float64   `json:"totalAmount"` // сумма в валюте сети (CAM)
	OperatorFee float64   `json:"operatorFee"` // комиссия оператора в валюте сети
	Timestamp   time.Time `json:"timestamp"`
	Customer    string    `json:"customer"` // адрес клиента
	Payer       string    `json:"payer"`    // адрес плательщика
	IsPaid      bool      `json:"isPaid"`
	IsCompleted bool      `json:"isCompleted"`
	IsRefunded  bool      `json:"isRefunded"`
}

// Article представляет бронируемую позицию (тур), зарегистрированную в контракте.
type Article struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Provider     string   `json:"provider"`     // адрес провайдера
	Price        *big.Int `json:"price"`        // цена в минимальных единицах
	DisplayPrice float64  `json:"displayPrice"` // цена в валюте сети
	Active       bool     `json:"active"`       // можно ли еще бронировать
}

// BookingReceipt подтверждение бронирования, присылаемое клиентом после транзакции.
type BookingReceipt struct {
	TourID          string `json:"tourId" binding:"required"`
	Date            string `json:"date" binding:"required"`
	TransactionHash string `json:"transactionHash" binding:"required"`
}
