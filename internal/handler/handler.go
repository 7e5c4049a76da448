package handler

import (
	"errors"
	"net/http"
	"strconv"

	"cryptourist/internal/apperr"
	"cryptourist/internal/chain"
	"cryptourist/internal/middleware"
	"cryptourist/internal/model"
	"cryptourist/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	cartCookie    = "cart_id"
	cartCookieAge = 30 * 24 * 60 * 60
)

// Handler структурирует зависимости сервисов для обработки HTTP-запросов.
type Handler struct {
	TourService     *service.TourService
	CartService     *service.CartService
	BookingService  *service.BookingService
	SettingsService *service.SettingsService
	WalletService   *service.WalletService
}

// NewHandler создает новый Handler с внедрением зависимостей (сервисов).
func NewHandler(ts *service.TourService, cs *service.CartService, bs *service.BookingService,
	ss *service.SettingsService, ws *service.WalletService) *Handler {
	return &Handler{
		TourService:     ts,
		CartService:     cs,
		BookingService:  bs,
		SettingsService: ss,
		WalletService:   ws,
	}
}

// Register регистрирует маршруты API. limit ограничивает маршруты, которые обращаются к кошельку.
func (h *Handler) Register(api gin.IRouter, limit gin.HandlerFunc) {
	api.GET("/tours", h.ListTours)
	api.GET("/tours/:slug", h.GetTour)
	api.GET("/tours/:slug/dates", h.TourDates)
	api.GET("/reviews", h.ListReviews)

	api.GET("/cart", h.GetCart)
	api.POST("/cart/items", h.AddCartItem)
	api.PATCH("/cart/items/:tourId", h.UpdateCartItem)
	api.DELETE("/cart/items/:tourId", h.RemoveCartItem)
	api.DELETE("/cart", h.ClearCart)
	api.POST("/cart/checkout", limit, h.Checkout)

	api.GET("/bookings", h.ListBookings)
	api.GET("/bookings/:id", h.GetBooking)
	api.POST("/bookings/:id/pay", limit, h.PayBooking)
	api.POST("/bookings", h.RecordBooking)

	api.GET("/articles", h.ListArticles)
	api.GET("/dashboard", h.Dashboard)

	api.GET("/settings", h.GetSettings)
	api.PATCH("/settings", h.UpdateSettings)

	api.GET("/wallet", h.GetWallet)
	api.POST("/wallet/connect", limit, h.ConnectWallet)
	api.POST("/wallet/disconnect", h.DisconnectWallet)
}

// ListTours обработчик для GET /api/tours - туры с фильтрами country, city и q.
func (h *Handler) ListTours(c *gin.Context) {
	tours := h.TourService.Search(c.Query("country"), c.Query("city"), c.Query("q"))
	if tours == nil {
		tours = []model.Tour{}
	}
	c.JSON(http.StatusOK, tours)
}

// GetTour обработчик для GET /api/tours/:slug.
func (h *Handler) GetTour(c *gin.Context) {
	tour, err := h.TourService.GetBySlug(c.Param("slug"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// TourDates обработчик для GET /api/tours/:slug/dates?n= - ближайшие свободные даты.
func (h *Handler) TourDates(c *gin.Context) {
	if _, err := h.TourService.GetBySlug(c.Param("slug")); err != nil {
		middleware.Fail(c, err)
		return
	}
	n := 0
	if raw := c.Query("n"); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil || n < 1 {
			middleware.Fail(c, apperr.InvalidErr("Параметр n должен быть положительным числом.", nil))
			return
		}
	}
	c.JSON(http.StatusOK, h.TourService.AvailableDates(n))
}

// ListReviews обработчик для GET /api/reviews?tour= - отзывы, при необходимости по одному туру.
func (h *Handler) ListReviews(c *gin.Context) {
	reviews := h.TourService.Reviews(c.Query("tour"))
	if reviews == nil {
		reviews = []model.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

// cartResponse корзина с итогом в минимальных единицах и в виде для показа.
type cartResponse struct {
	Items        []model.CartItem `json:"items"`
	Count        int              `json:"count"`
	Total        string           `json:"total"`
	DisplayTotal string           `json:"displayTotal"`
}

// renderCart отдает корзину с итогом в валюте текущей сети.
func (h *Handler) renderCart(c *gin.Context, cart *service.Cart) {
	items := cart.Items()
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	total := cart.Total()
	c.JSON(http.StatusOK, cartResponse{
		Items:        items,
		Count:        count,
		Total:        total.String(),
		DisplayTotal: chain.FormatAmount(total, h.WalletService.Network().NativeCurrency.Symbol),
	})
}

// existingCart возвращает корзину по cookie cart_id, если сессия уже известна.
// Новую сессию не создает: чтение корзины без cookie отдает пустую корзину.
func (h *Handler) existingCart(c *gin.Context) (*service.Cart, string, bool) {
	id, err := c.Cookie(cartCookie)
	if err != nil {
		return nil, "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", false
	}
	cart, ok := h.CartService.Lookup(id)
	return cart, id, ok
}

// cart возвращает корзину сессии, заводя новую сессию и cookie при необходимости.
// Вызывается только при добавлении тура.
func (h *Handler) cart(c *gin.Context) *service.Cart {
	if cart, _, ok := h.existingCart(c); ok {
		return cart
	}
	id := h.CartService.NewSession()
	c.SetCookie(cartCookie, id, cartCookieAge, "/", "", false, true)
	return h.CartService.Get(id)
}

// GetCart обработчик для GET /api/cart.
func (h *Handler) GetCart(c *gin.Context) {
	cart, _, ok := h.existingCart(c)
	if !ok {
		cart = service.NewCart()
	}
	h.renderCart(c, cart)
}

type addCartItemRequest struct {
	TourID string `json:"tourId" binding:"required"`
}

// AddCartItem обработчик для POST /api/cart/items. Единственный путь, создающий сессию корзины.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BindError(err, &req))
		return
	}
	tour, err := h.TourService.Get(req.TourID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	cart := h.cart(c)
	cart.Add(tour)
	h.renderCart(c, cart)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem задает количество; значения меньше 1 приводятся к 1.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BindError(err, &req))
		return
	}
	qty := max(req.Quantity, 1)

	cart, _, ok := h.existingCart(c)
	if !ok || !cart.SetQuantity(c.Param("tourId"), qty) {
		middleware.Fail(c, apperr.NotFoundErr("Тура нет в корзине."))
		return
	}
	h.renderCart(c, cart)
}

// RemoveCartItem обработчик для DELETE /api/cart/items/:tourId.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	cart, _, ok := h.existingCart(c)
	if !ok {
		cart = service.NewCart()
	}
	cart.Remove(c.Param("tourId"))
	h.renderCart(c, cart)
}

// ClearCart обработчик для DELETE /api/cart. Забывает сессию и сбрасывает cookie.
func (h *Handler) ClearCart(c *gin.Context) {
	if _, id, ok := h.existingCart(c); ok {
		h.CartService.Drop(id)
		c.SetCookie(cartCookie, "", -1, "/", "", false, true)
	}
	h.renderCart(c, service.NewCart())
}

// Checkout обработчик для POST /api/cart/checkout - бронирование всей корзины.
func (h *Handler) Checkout(c *gin.Context) {
	cart, _, ok := h.existingCart(c)
	if !ok {
		cart = service.NewCart()
	}
	if err := h.BookingService.Checkout(c.Request.Context(), cart); err != nil {
		middleware.Fail(c, err)
		return
	}
	h.renderCart(c, cart)
}

// ListBookings обработчик для GET /api/bookings - все бронирования из контракта.
func (h *Handler) ListBookings(c *gin.Context) {
	bookings, err := h.BookingService.AllBookings(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GetBooking обработчик для GET /api/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	booking, err := h.BookingService.Booking(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// PayBooking обработчик для POST /api/bookings/:id/pay - оплата бронирования из кошелька.
func (h *Handler) PayBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.BookingService.Pay(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// bookingID разбирает номер бронирования из пути; при ошибке уже ответил 400.
func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		middleware.Fail(c, apperr.InvalidErr("Некорректный номер бронирования.", nil))
		return 0, false
	}
	return id, true
}

// RecordBooking обработчик для POST /api/bookings - подтверждение транзакции от клиента.
// Ничего не сохраняет, только подтверждает получение.
func (h *Handler) RecordBooking(c *gin.Context) {
	var receipt model.BookingReceipt
	if err := c.ShouldBindJSON(&receipt); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			middleware.Fail(c, apperr.InvalidErr("Missing required fields", middleware.FromBindError(err, &receipt)))
			return
		}
		middleware.Fail(c, &apperr.AppError{Kind: apperr.Internal, PublicMsg: "Failed to process booking", Err: err})
		return
	}
	h.BookingService.RecordReceipt(receipt)
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Booking recorded successfully",
		"transactionHash": receipt.TransactionHash,
	})
}

// ListArticles обработчик для GET /api/articles - статьи из контракта.
func (h *Handler) ListArticles(c *gin.Context) {
	articles, err := h.BookingService.Articles(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

// Dashboard обработчик для GET /api/dashboard - сводка по бронированиям.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.BookingService.Dashboard(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetSettings обработчик для GET /api/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.SettingsService.Read())
}

// UpdateSettings обработчик для PATCH /api/settings - частичное обновление настроек.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		middleware.Fail(c, middleware.BindError(err, &patch))
		return
	}
	settings, err := h.SettingsService.Update(c.Request.Context(), patch)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, settings)
}

// walletResponse состояние кошелька вместе с параметрами сети.
type walletResponse struct {
	model.WalletState
	Network chain.NetworkParams `json:"network"`
}

// GetWallet обработчик для GET /api/wallet.
func (h *Handler) GetWallet(c *gin.Context) {
	c.JSON(http.StatusOK, walletResponse{WalletState: h.WalletService.State(), Network: h.WalletService.Network()})
}

// ConnectWallet обработчик для POST /api/wallet/connect.
func (h *Handler) ConnectWallet(c *gin.Context) {
	if err := h.WalletService.Connect(c.Request.Context()); err != nil {
		middleware.Fail(c, err)
		return
	}
	h.GetWallet(c)
}

// DisconnectWallet обработчик для POST /api/wallet/disconnect.
func (h *Handler) DisconnectWallet(c *gin.Context) {
	h.WalletService.Disconnect()
	h.GetWallet(c)
}
