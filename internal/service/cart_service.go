package service

import (
	"math/big"
	"sync"
	"time"

	"cryptourist/internal/model"

	"github.com/google/uuid"
)

// Cart корзина туров одной сессии. Не зависит от блокчейна до оформления заказа.
type Cart struct {
	mu    sync.Mutex
	items []model.CartItem
}

// NewCart создает пустую корзину.
func NewCart() *Cart {
	return &Cart{}
}

// Add увеличивает количество тура на 1 или добавляет его с количеством 1.
func (c *Cart) Add(tour model.Tour) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Tour.ID == tour.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, model.CartItem{Tour: tour, Quantity: 1})
}

// Remove удаляет тур из корзины, если он там есть.
func (c *Cart) Remove(tourID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Tour.ID == tourID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity заменяет количество тура. Проверка qty >= 1 на вызывающей стороне.
// Возвращает false, если тура нет в корзине.
func (c *Cart) SetQuantity(tourID string, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Tour.ID == tourID {
			c.items[i].Quantity = qty
			return true
		}
	}
	return false
}

// Clear очищает корзину.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items возвращает копию содержимого корзины.
func (c *Cart) Items() []model.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CartItem{}, c.items...)
}

// Len число разных туров в корзине.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// TourIDs идентификаторы туров в порядке добавления.
func (c *Cart) TourIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.Tour.ID
	}
	return ids
}

// Total сумма price * quantity в минимальных единицах.
func (c *Cart) Total() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := new(big.Int)
	for _, item := range c.items {
		if item.Tour.Price == nil {
			continue
		}
		line := new(big.Int).Mul(item.Tour.Price, big.NewInt(int64(item.Quantity)))
		total.Add(total, line)
	}
	return total
}

// DefaultCartTTL сколько живет корзина без обращений.
const DefaultCartTTL = 24 * time.Hour

// CartService хранит корзины по идентификатору сессии (cookie в API, чат в боте).
// Корзины, к которым не обращались дольше ttl, удаляются при создании новых.
type CartService struct {
	mu    sync.Mutex
	carts map[string]*cartSession
	ttl   time.Duration
}

type cartSession struct {
	cart     *Cart
	lastSeen time.Time
}

// NewCartService создает хранилище корзин со сроком жизни DefaultCartTTL.
func NewCartService() *CartService {
	return &CartService{carts: make(map[string]*cartSession), ttl: DefaultCartTTL}
}

// WithTTL задает срок жизни корзины без обращений; d <= 0 оставляет прежний.
func (s *CartService) WithTTL(d time.Duration) *CartService {
	if d > 0 {
		s.ttl = d
	}
	return s
}

// NewSession создает пустую корзину и возвращает ее идентификатор.
func (s *CartService) NewSession() string {
	id := uuid.NewString()
	now := time.Now()
	s.mu.Lock()
	s.sweep(now)
	s.carts[id] = &cartSession{cart: NewCart(), lastSeen: now}
	s.mu.Unlock()
	return id
}

// Get возвращает корзину сессии, создавая ее при первом обращении.
func (s *CartService) Get(sessionID string) *Cart {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.carts[sessionID]
	if !ok {
		s.sweep(now)
		sess = &cartSession{cart: NewCart()}
		s.carts[sessionID] = sess
	}
	sess.lastSeen = now
	return sess.cart
}

// Lookup возвращает корзину только существующей сессии, новую не создает.
func (s *CartService) Lookup(sessionID string) (*Cart, bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.carts[sessionID]
	if !ok {
		return nil, false
	}
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.carts, sessionID)
		return nil, false
	}
	sess.lastSeen = now
	return sess.cart, true
}

// Drop забывает корзину сессии.
func (s *CartService) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.carts, sessionID)
	s.mu.Unlock()
}

// Sweep удаляет корзины, к которым не обращались дольше ttl до момента now,
// и возвращает число удаленных.
func (s *CartService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(now)
}

// Sessions число хранимых корзин.
func (s *CartService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *CartService) sweep(now time.Time) int {
	removed := 0
	for id, sess := range s.carts {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}
