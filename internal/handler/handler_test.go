package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptourist/internal/chain"
	"cryptourist/internal/chain/chaintest"
	"cryptourist/internal/handler"
	"cryptourist/internal/log"
	"cryptourist/internal/middleware"
	"cryptourist/internal/model"
	"cryptourist/internal/repository"
	"cryptourist/internal/service"
	"cryptourist/mocks"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	defaultContract = "0x06F15D6E234CD1F5815DDf2949b537eae91bf565"
	berlinID        = "04dbc84b-6b05-4da8-9110-663c4c0af1e6"
	parisID         = "e8d89c32-1e54-4c65-93e4-d8c9f48e6583"
)

var alice = common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	contract *mocks.MockContract
	wallet   *service.WalletService
	carts    *service.CartService
	cookies  []*http.Cookie
}

// newServer собирает API с каталогом по умолчанию, настройками в памяти и
// мок-контрактом. withWallet подключает фейковый кошелек.
func newServer(t *testing.T, withWallet bool) *testServer {
	t.Helper()
	logger := log.NewNopLogger()

	tours, err := repository.NewTourRepository("")
	require.NoError(t, err)

	var provider chain.Provider
	if withWallet {
		contractABI, err := chain.ParseABI(chain.BookingContractABI)
		require.NoError(t, err)
		fake := chaintest.NewFakeWallet(contractABI)
		fake.Available = []common.Address{alice}
		provider = fake.Provider(t)
	}

	contract := mocks.NewMockContract(gomock.NewController(t))
	settings := service.NewSettingsService(repository.NewMemorySettingsRepository(),
		service.DefaultSettings(defaultContract), logger)
	wallet := service.NewWalletService(provider, chain.Columbus, logger)
	carts := service.NewCartService()

	h := handler.NewHandler(
		service.NewTourService(tours),
		carts,
		service.NewBookingService(contract, settings, wallet, logger),
		settings,
		wallet,
	)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(logger), middleware.Recovery(logger))
	h.Register(r.Group("/api"), func(c *gin.Context) { c.Next() })

	return &testServer{router: r, contract: contract, wallet: wallet, carts: carts}
}

// do выполняет запрос, передавая cookie предыдущих ответов.
func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type cartBody struct {
	Items []struct {
		Tour     model.Tour `json:"tour"`
		Quantity int        `json:"quantity"`
	} `json:"items"`
	Count        int    `json:"count"`
	Total        string `json:"total"`
	DisplayTotal string `json:"displayTotal"`
}

func TestTours(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodGet, "/api/tours", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]model.Tour](t, w), 5)

	w = s.do(t, http.MethodGet, "/api/tours?country=Turkey", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]model.Tour](t, w), 2)

	w = s.do(t, http.MethodGet, "/api/tours?q=nothing-matches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/tours/berlin-wall-trail", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, berlinID, decodeJSON[model.Tour](t, w).ID)

	w = s.do(t, http.MethodGet, "/api/tours/atlantis", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTourDates(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodGet, "/api/tours/paris-city-explorer/dates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]string](t, w), 10)

	w = s.do(t, http.MethodGet, "/api/tours/paris-city-explorer/dates?n=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]string](t, w), 3)

	w = s.do(t, http.MethodGet, "/api/tours/paris-city-explorer/dates?n=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/tours/atlantis/dates", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviews(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodGet, "/api/reviews?tour=Berlin%20Wall%20Trail", "")
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decodeJSON[[]model.Review](t, w)
	require.Len(t, reviews, 5)
	for _, r := range reviews {
		assert.Equal(t, "Berlin Wall Trail", r.Tour)
	}
}

func TestCartFlow(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.cookies, "чтение корзины не заводит сессию")
	assert.Equal(t, "0", decodeJSON[cartBody](t, w).Total)

	s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"`+berlinID+`"}`)
	require.NotEmpty(t, s.cookies, "сессия корзины выдается через cookie")
	assert.Equal(t, 1, s.carts.Sessions())
	s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"`+berlinID+`"}`)
	w = s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"`+parisID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	cart := decodeJSON[cartBody](t, w)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.Count)
	assert.Equal(t, "213000000000000000000", cart.Total)
	assert.Equal(t, "213.00 CAM", cart.DisplayTotal)

	w = s.do(t, http.MethodPatch, "/api/cart/items/"+berlinID, `{"quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeJSON[cartBody](t, w).Items[0].Quantity)

	w = s.do(t, http.MethodDelete, "/api/cart/items/"+parisID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[cartBody](t, w).Items, 1)

	w = s.do(t, http.MethodPatch, "/api/cart/items/"+parisID, `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeJSON[cartBody](t, w).Items)
	assert.Zero(t, s.carts.Sessions(), "очистка забывает сессию")
}

func TestCartReadsDoNotCreateSessions(t *testing.T) {
	s := newServer(t, false)

	for i := 0; i < 20; i++ {
		w := s.do(t, http.MethodGet, "/api/cart", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Result().Cookies())
	}
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.AddCookie(&http.Cookie{Name: "cart_id", Value: fmt.Sprintf("attacker-%d", i)})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	for _, path := range []string{"/api/cart/items/" + berlinID, "/api/cart"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		req.AddCookie(&http.Cookie{Name: "cart_id", Value: "2b1f0f3e-9d7c-4c52-9f0a-6c1c4b7d2e11"})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Zero(t, s.carts.Sessions())

	w := s.do(t, http.MethodPatch, "/api/cart/items/"+berlinID, `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, s.carts.Sessions())
}

func TestCartRejectsUnknownTour(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/cart/items", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeJSON[map[string]any](t, w)
	assert.Contains(t, body["fields"], "tourId")
}

func TestCheckout(t *testing.T) {
	t.Run("without wallet", func(t *testing.T) {
		s := newServer(t, false)
		s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"`+berlinID+`"}`)

		w := s.do(t, http.MethodPost, "/api/cart/checkout", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("connected", func(t *testing.T) {
		s := newServer(t, true)
		require.NoError(t, s.wallet.Connect(context.Background()))

		w := s.do(t, http.MethodPost, "/api/cart/checkout", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "пустая корзина")

		s.do(t, http.MethodPost, "/api/cart/items", `{"tourId":"`+berlinID+`"}`)
		s.contract.EXPECT().
			CreateBooking(gomock.Any(), []string{berlinID}, alice.Hex(), defaultContract).
			Return(nil)

		w = s.do(t, http.MethodPost, "/api/cart/checkout", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeJSON[cartBody](t, w).Items)
	})
}

func TestBookings(t *testing.T) {
	s := newServer(t, true)
	bookings := []model.Booking{
		{ID: 1, TotalAmount: 1.5, Customer: alice.Hex()},
		{ID: 2, TotalAmount: 69, IsPaid: true, Customer: alice.Hex(), Payer: alice.Hex()},
	}
	s.contract.EXPECT().GetAllBookings(gomock.Any(), defaultContract).Return(bookings, nil).AnyTimes()

	w := s.do(t, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]model.Booking](t, w), 2)

	w = s.do(t, http.MethodGet, "/api/bookings/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeJSON[model.Booking](t, w).IsPaid)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/bookings/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/bookings/x", "").Code)

	s.contract.EXPECT().PayBooking(gomock.Any(), int64(1), "1.5", defaultContract).Return(nil)
	w = s.do(t, http.MethodPost, "/api/bookings/1/pay", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/bookings/2/pay", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingsWithoutWallet(t *testing.T) {
	s := newServer(t, false)
	s.contract.EXPECT().GetAllBookings(gomock.Any(), gomock.Any()).Return(nil, chain.ErrNoWallet).AnyTimes()
	s.contract.EXPECT().GetAllArticles(gomock.Any(), gomock.Any()).Return(nil, chain.ErrNoWallet).AnyTimes()

	w := s.do(t, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decodeJSON[service.Dashboard](t, w)
	assert.Zero(t, d.Stats.Total)

	w = s.do(t, http.MethodPost, "/api/bookings/1/pay", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecordBooking(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodPost, "/api/bookings",
		`{"tourId":"`+berlinID+`","date":"2026-11-02","transactionHash":"0xabc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON[map[string]any](t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Booking recorded successfully", body["message"])
	assert.Equal(t, "0xabc", body["transactionHash"])

	w = s.do(t, http.MethodPost, "/api/bookings", `{"tourId":"`+berlinID+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body = decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Contains(t, body["fields"], "transactionHash")

	for _, raw := range []string{
		`{"tourId":`,
		`{"tourId":7,"date":"2026-11-02","transactionHash":"0xabc"}`,
	} {
		w = s.do(t, http.MethodPost, "/api/bookings", raw)
		require.Equal(t, http.StatusInternalServerError, w.Code, raw)
		assert.Equal(t, "Failed to process booking", decodeJSON[map[string]any](t, w)["error"])
	}
}

func TestSettings(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	settings := decodeJSON[model.Settings](t, w)
	assert.Equal(t, defaultContract, settings.ContractAddress)
	assert.Equal(t, model.ThemeLight, settings.Theme)

	w = s.do(t, http.MethodPatch, "/api/settings", `{"theme":"dark","notifications":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	settings = decodeJSON[model.Settings](t, w)
	assert.Equal(t, model.ThemeDark, settings.Theme)
	assert.False(t, settings.Notifications)
	assert.Equal(t, defaultContract, settings.ContractAddress)

	w = s.do(t, http.MethodPatch, "/api/settings", `{"theme":"neon","contractAddress":"0xABC"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeJSON[map[string]any](t, w)["fields"]
	assert.Contains(t, fields, "theme")
	assert.Contains(t, fields, "contractAddress")
}

func TestWallet(t *testing.T) {
	s := newServer(t, true)

	w := s.do(t, http.MethodGet, "/api/wallet", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON[map[string]any](t, w)
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, "0x1f5", body["network"].(map[string]any)["chainId"])

	w = s.do(t, http.MethodPost, "/api/wallet/connect", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON[map[string]any](t, w)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, alice.Hex(), body["address"])

	w = s.do(t, http.MethodPost, "/api/wallet/disconnect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON[map[string]any](t, w)["connected"])
}

func TestWalletConnectWithoutProvider(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodPost, "/api/wallet/connect", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
