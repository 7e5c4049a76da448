package model

// CartItem тур в корзине вместе с количеством (всегда >= 1).
type CartItem struct {
	Tour     Tour `json:"tour"`
	Quantity int  `json:"quantity"`
}
