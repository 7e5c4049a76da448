package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"cryptourist/internal/app"
	"cryptourist/internal/apperr"
	"cryptourist/internal/chain"
	"cryptourist/internal/log"
	"cryptourist/internal/model"
	"cryptourist/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbTour     = "TOUR_"
	cbAdd      = "ADD_"
	cbDates    = "DATES_"
	cbPay      = "PAY_"
	cbCheckout = "CHECKOUT"

	botDateCount = 5
	maxTitleLen  = 30
)

const helpText = `Велотуры с оплатой в CAM.

/tours [слово] - каталог туров
/cart - корзина
/clear - очистить корзину
/bookings - бронирования в контракте
/pay <номер> - оплатить бронирование
/connect - подключить кошелек
/wallet - состояние кошелька
/reviews - отзывы

Любой текст ищет туры по названию и описанию.`

// sender часть tgbotapi.BotAPI, которой пользуется бот.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot отвечает на команды и нажатия кнопок. Корзина ведется на каждый чат.
type Bot struct {
	api sender
	app *app.App
	log log.Logger
}

func NewBot(api sender, a *app.App, logger log.Logger) *Bot {
	return &Bot{api: api, app: a, log: logger}
}

// Run обрабатывает обновления, пока канал открыт и ctx не отменен.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Handle(ctx, update)
		}
	}
}

func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Warnw("Не удалось ответить на callback", "error", err)
		}
		if cq.Message != nil {
			b.handleCallback(ctx, cq.Message.Chat.ID, cq.Data)
		}
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		b.searchTours(chatID, msg.Text)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
	case "tours":
		b.searchTours(chatID, msg.CommandArguments())
	case "cart":
		b.showCart(chatID)
	case "clear":
		b.cart(chatID).Clear()
		b.reply(chatID, "Корзина очищена.")
	case "bookings":
		b.showBookings(ctx, chatID)
	case "pay":
		id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil {
			b.reply(chatID, "Используйте: /pay <номер бронирования>")
			return
		}
		b.pay(ctx, chatID, id)
	case "connect":
		if err := b.app.Wallet.Connect(ctx); err != nil {
			b.fail(chatID, err)
			return
		}
		b.showWallet(chatID)
	case "wallet":
		b.showWallet(chatID)
	case "reviews":
		b.showReviews(chatID, msg.CommandArguments())
	default:
		b.reply(chatID, "Неизвестная команда. /help - список команд.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, data string) {
	switch {
	case strings.HasPrefix(data, cbTour):
		b.showTour(chatID, strings.TrimPrefix(data, cbTour))
	case strings.HasPrefix(data, cbAdd):
		tour, err := b.app.Tours.Get(strings.TrimPrefix(data, cbAdd))
		if err != nil {
			b.fail(chatID, err)
			return
		}
		cart := b.cart(chatID)
		cart.Add(tour)
		b.reply(chatID, fmt.Sprintf("%s в корзине. Туров в корзине: %d. /cart", tour.Title, cart.Len()))
	case strings.HasPrefix(data, cbDates):
		if _, err := b.app.Tours.Get(strings.TrimPrefix(data, cbDates)); err != nil {
			b.fail(chatID, err)
			return
		}
		var sb strings.Builder
		sb.WriteString("Ближайшие даты:\n")
		for _, d := range b.app.Tours.AvailableDates(botDateCount) {
			sb.WriteString(d.Format("02.01.2006") + "\n")
		}
		b.reply(chatID, sb.String())
	case strings.HasPrefix(data, cbPay):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbPay), 10, 64)
		if err != nil {
			return
		}
		b.pay(ctx, chatID, id)
	case data == cbCheckout:
		if err := b.app.Bookings.Checkout(ctx, b.cart(chatID)); err != nil {
			b.fail(chatID, err)
			return
		}
		b.reply(chatID, "Бронирование оформлено. /bookings")
	}
}

func (b *Bot) searchTours(chatID int64, keyword string) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "*" {
		keyword = ""
	}
	tours := b.app.Tours.Search("", "", keyword)
	if len(tours) == 0 {
		b.reply(chatID, "Ничего не найдено.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, len(tours))
	for i, t := range tours {
		rows[i] = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(shortTitle(t.Title), cbTour+t.ID))
	}
	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Найдено: %d", len(tours)))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(reply)
}

// shortTitle обрезает название до maxTitleLen символов для текста кнопки.
func shortTitle(title string) string {
	if r := []rune(title); len(r) > maxTitleLen {
		return string(r[:maxTitleLen]) + "..."
	}
	return title
}

func (b *Bot) showTour(chatID int64, id string) {
	t, err := b.app.Tours.Get(id)
	if err != nil {
		b.fail(chatID, err)
		return
	}
	text := fmt.Sprintf("*%s*\n%s, %s\n%s, %s\nЦена: %s\n\n%s",
		t.Title, t.City, t.Country, t.Duration, t.Distance, b.amount(t.Price), t.Description)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("В корзину", cbAdd+t.ID),
		tgbotapi.NewInlineKeyboardButtonData("Даты", cbDates+t.ID),
	))
	b.send(msg)
}

func (b *Bot) showCart(chatID int64) {
	cart := b.cart(chatID)
	items := cart.Items()
	if len(items) == 0 {
		b.reply(chatID, "Корзина пуста. /tours - каталог.")
		return
	}

	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "%s x%d\n", item.Tour.Title, item.Quantity)
	}
	fmt.Fprintf(&sb, "\nИтого: %s", b.amount(cart.Total()))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Оформить", cbCheckout),
	))
	b.send(msg)
}

func (b *Bot) showBookings(ctx context.Context, chatID int64) {
	bookings, err := b.app.Bookings.AllBookings(ctx)
	if err != nil {
		b.fail(chatID, err)
		return
	}
	if len(bookings) == 0 {
		b.reply(chatID, "Бронирований нет.")
		return
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, bk := range bookings {
		fmt.Fprintf(&sb, "#%d %s %s\n", bk.ID, formatFloat(bk.TotalAmount, b.symbol()), bookingStatus(bk))
		if !bk.IsPaid {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Оплатить #%d", bk.ID), cbPay+strconv.FormatInt(bk.ID, 10)),
			))
		}
	}
	msg := tgbotapi.NewMessage(chatID, sb.String())
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.send(msg)
}

func (b *Bot) pay(ctx context.Context, chatID int64, id int64) {
	if err := b.app.Bookings.Pay(ctx, id); err != nil {
		b.fail(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Бронирование #%d оплачено.", id))
}

func (b *Bot) showWallet(chatID int64) {
	state := b.app.Wallet.State()
	if !state.Connected {
		b.reply(chatID, "Кошелек не подключен. /connect")
		return
	}
	b.reply(chatID, fmt.Sprintf("Кошелек подключен: %s\nСеть: %s", state.Address, b.app.Wallet.Network().ChainName))
}

func (b *Bot) showReviews(chatID int64, tour string) {
	reviews := b.app.Tours.Reviews(strings.TrimSpace(tour))
	if len(reviews) == 0 {
		b.reply(chatID, "Отзывов нет.")
		return
	}
	var sb strings.Builder
	for _, r := range reviews {
		fmt.Fprintf(&sb, "%s (%s, %.1f): %s\n\n", r.Name, r.Tour, r.Rating, r.Quote)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) cart(chatID int64) *service.Cart {
	return b.app.Carts.Get(chatKey(chatID))
}

func chatKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func bookingStatus(bk model.Booking) string {
	switch {
	case bk.IsRefunded:
		return "возвращено"
	case bk.IsCompleted:
		return "завершено"
	case bk.IsPaid:
		return "оплачено"
	default:
		return "ожидает оплаты"
	}
}

func (b *Bot) symbol() string {
	return b.app.Wallet.Network().NativeCurrency.Symbol
}

func (b *Bot) amount(v *big.Int) string {
	return chain.FormatAmount(v, b.symbol())
}

func formatFloat(v float64, symbol string) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " " + symbol
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) fail(chatID int64, err error) {
	b.log.Warnw("Ошибка обработки команды", "chat", chatID, "error", err)
	b.reply(chatID, apperr.PublicMessage(err))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Errorw("Не удалось отправить сообщение", "error", err)
	}
}
