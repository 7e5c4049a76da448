package chain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"cryptourist/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mitchellh/mapstructure"
)

// RawBookings ответ getAllBookings: девять параллельных массивов.
type RawBookings struct {
	IDs             []*big.Int       `mapstructure:"ids"`
	Amounts         []*big.Int       `mapstructure:"amounts"`
	OperatorFees    []*big.Int       `mapstructure:"operatorFees"`
	Timestamps      []*big.Int       `mapstructure:"timestamps"`
	Customers       []common.Address `mapstructure:"customers"`
	Payers          []common.Address `mapstructure:"payers"`
	PaidStatus      []bool           `mapstructure:"paidStatus"`
	CompletedStatus []bool           `mapstructure:"completedStatus"`
	RefundedStatus  []bool           `mapstructure:"refundedStatus"`
}

// RawArticles ответ getAllArticles: пять параллельных массивов.
type RawArticles struct {
	IDs          []string         `mapstructure:"ids"`
	Titles       []string         `mapstructure:"titles"`
	Addresses    []common.Address `mapstructure:"addresses"`
	Prices       []*big.Int       `mapstructure:"prices"`
	ActiveStatus []bool           `mapstructure:"activeStatus"`
}

// Порядок полей в позиционном кортеже.
var (
	bookingFields = []string{
		"ids", "amounts", "operatorFees", "timestamps", "customers",
		"payers", "paidStatus", "completedStatus", "refundedStatus",
	}
	articleFields = []string{"ids", "titles", "addresses", "prices", "activeStatus"}
)

// DecodeBookings приводит ответ контракта к RawBookings. Принимает именованную
// структуру (RawBookings, map с именами полей) или позиционный кортеж из 9 массивов.
func DecodeBookings(v any) (RawBookings, error) {
	var out RawBookings
	if err := decodeShape(v, bookingFields, &out); err != nil {
		return RawBookings{}, err
	}
	return out, nil
}

// DecodeArticles то же для getAllArticles (кортеж из 5 массивов).
func DecodeArticles(v any) (RawArticles, error) {
	var out RawArticles
	if err := decodeShape(v, articleFields, &out); err != nil {
		return RawArticles{}, err
	}
	return out, nil
}

// NormalizeBookings строит по одной записи на каждый индекс параллельных массивов.
func NormalizeBookings(raw RawBookings) ([]model.Booking, error) {
	n := len(raw.IDs)
	if err := sameLength(n, len(raw.Amounts), len(raw.OperatorFees), len(raw.Timestamps),
		len(raw.Customers), len(raw.Payers), len(raw.PaidStatus), len(raw.CompletedStatus), len(raw.RefundedStatus)); err != nil {
		return nil, err
	}

	bookings := make([]model.Booking, n)
	for i := range raw.IDs {
		bookings[i] = model.Booking{
			ID:          toInt64(raw.IDs[i]),
			TotalAmount: FromWei(raw.Amounts[i]).InexactFloat64(),
			OperatorFee: FromWei(raw.OperatorFees[i]).InexactFloat64(),
			Timestamp:   time.UnixMilli(toInt64(raw.Timestamps[i]) * 1000).UTC(),
			Customer:    raw.Customers[i].Hex(),
			Payer:       raw.Payers[i].Hex(),
			IsPaid:      raw.PaidStatus[i],
			IsCompleted: raw.CompletedStatus[i],
			IsRefunded:  raw.RefundedStatus[i],
		}
	}
	return bookings, nil
}

// NormalizeArticles собирает статьи из параллельных массивов getAllArticles.
func NormalizeArticles(raw RawArticles) ([]model.Article, error) {
	n := len(raw.IDs)
	if err := sameLength(n, len(raw.Titles), len(raw.Addresses), len(raw.Prices), len(raw.ActiveStatus)); err != nil {
		return nil, err
	}

	articles := make([]model.Article, n)
	for i := range raw.IDs {
		price := raw.Prices[i]
		if price == nil {
			price = new(big.Int)
		}
		articles[i] = model.Article{
			ID:           raw.IDs[i],
			Title:        raw.Titles[i],
			Provider:     raw.Addresses[i].Hex(),
			Price:        price,
			DisplayPrice: FromWei(price).InexactFloat64(),
			Active:       raw.ActiveStatus[i],
		}
	}
	return articles, nil
}

// ParseBookings декодирует и нормализует ответ getAllBookings.
func ParseBookings(v any) ([]model.Booking, error) {
	raw, err := DecodeBookings(v)
	if err != nil {
		return nil, err
	}
	return NormalizeBookings(raw)
}

// ParseArticles декодирует и нормализует ответ getAllArticles.
func ParseArticles(v any) ([]model.Article, error) {
	raw, err := DecodeArticles(v)
	if err != nil {
		return nil, err
	}
	return NormalizeArticles(raw)
}

func decodeShape(v any, fields []string, out any) error {
	switch raw := v.(type) {
	case nil:
		return ErrNoData
	case []any:
		if len(raw) == 0 {
			return ErrNoData
		}
		if len(raw) != len(fields) {
			return fmt.Errorf("%w: ожидалось %d массивов, получено %d", ErrShapeMismatch, len(fields), len(raw))
		}
		named := make(map[string]any, len(fields))
		for i, name := range fields {
			named[name] = raw[i]
		}
		v = named
	case map[string]any:
		if len(raw) == 0 {
			return ErrNoData
		}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ErrNoData
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: coerceHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("декодирование ответа контракта: %w", err)
	}
	return nil
}

func sameLength(n int, lengths ...int) error {
	for _, l := range lengths {
		if l != n {
			return fmt.Errorf("%w: %d и %d", ErrShapeMismatch, n, l)
		}
	}
	return nil
}

var (
	bigIntType  = reflect.TypeOf((*big.Int)(nil))
	addressType = reflect.TypeOf(common.Address{})
	boolType    = reflect.TypeOf(false)
	stringType  = reflect.TypeOf("")
)

func coerceHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case bigIntType:
		return toBigInt(data)
	case addressType:
		return toAddress(data)
	case boolType:
		return truthy(data), nil
	case stringType:
		if b, ok := data.(*big.Int); ok {
			return b.String(), nil
		}
	}
	return data, nil
}

func toBigInt(data any) (*big.Int, error) {
	switch v := data.(type) {
	case *big.Int:
		return v, nil
	case big.Int:
		return &v, nil
	case json.Number:
		return parseBigInt(v.String())
	case string:
		return parseBigInt(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("не целое число: %v", v)
		}
		b, _ := big.NewFloat(v).Int(nil)
		return b, nil
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("неподдерживаемый тип числа %T", data)
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeBig(strings.ToLower(s))
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("не число: %q", s)
	}
	return b, nil
}

func toAddress(data any) (any, error) {
	switch v := data.(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, v)
		}
		return common.HexToAddress(v), nil
	}
	return data, nil
}

// truthy повторяет приведение к boolean в JavaScript: ноль, пустая строка и nil ложны.
func truthy(data any) bool {
	if data == nil {
		return false
	}
	switch v := data.(type) {
	case bool:
		return v
	case *big.Int:
		return v != nil && v.Sign() != 0
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.String:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// toInt64 идентификаторы и время в этом домене малы, потеря точности допустима.
func toInt64(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	return v.Int64()
}
