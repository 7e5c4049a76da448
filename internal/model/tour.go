package model

import "math/big"

// Tour представляет велотур из статического каталога.
type Tour struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Duration    string   `json:"duration"`
	Price       *big.Int `json:"price"` // цена в минимальных единицах (1 CAM = 10^18)
	Distance    string   `json:"distance"`
	ImageURL    string   `json:"imageUrl"`
	Description string   `json:"description"`
}

// Review отзыв туриста о туре.
type Review struct {
	Name   string  `json:"name" yaml:"name"`
	Tour   string  `json:"tour" yaml:"tour"`
	Quote  string  `json:"quote" yaml:"quote"`
	Rating float64 `json:"rating" yaml:"rating"`
}
