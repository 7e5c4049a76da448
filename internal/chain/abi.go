package chain

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodGetAllBookings = "getAllBookings"
	methodGetAllArticles = "getAllArticles"
	methodPayBooking     = "payBooking"
	methodCreateBooking  = "createBooking"
)

// BookingContractABI интерфейс внешнего контракта бронирований.
const BookingContractABI = `[
  {"type":"function","name":"getAllBookings","stateMutability":"view","inputs":[],"outputs":[
    {"name":"ids","type":"uint256[]"},
    {"name":"amounts","type":"uint256[]"},
    {"name":"operatorFees","type":"uint256[]"},
    {"name":"timestamps","type":"uint256[]"},
    {"name":"customers","type":"address[]"},
    {"name":"payers","type":"address[]"},
    {"name":"paidStatus","type":"bool[]"},
    {"name":"completedStatus","type":"bool[]"},
    {"name":"refundedStatus","type":"bool[]"}]},
  {"type":"function","name":"getAllArticles","stateMutability":"view","inputs":[],"outputs":[
    {"name":"ids","type":"string[]"},
    {"name":"titles","type":"string[]"},
    {"name":"addresses","type":"address[]"},
    {"name":"prices","type":"uint256[]"},
    {"name":"activeStatus","type":"bool[]"}]},
  {"type":"function","name":"payBooking","stateMutability":"payable","inputs":[
    {"name":"bookingId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"createBooking","stateMutability":"nonpayable","inputs":[
    {"name":"articleIds","type":"string[]"},
    {"name":"buyer","type":"address"}],"outputs":[]}
]`

// ParseABI разбирает JSON-описание интерфейса контракта и проверяет, что в нем есть все нужные методы.
func ParseABI(abiJSON string) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("разбор ABI контракта: %w", err)
	}
	for _, name := range []string{methodGetAllBookings, methodGetAllArticles, methodPayBooking, methodCreateBooking} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("в ABI контракта нет метода %s", name)
		}
	}
	return parsed, nil
}

// LoadABI читает ABI из файла; пустой путь означает встроенный BookingContractABI.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return ParseABI(BookingContractABI)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("чтение ABI контракта: %w", err)
	}
	return ParseABI(string(raw))
}

// namedOutputs сообщает, все ли выходные параметры метода именованы.
func namedOutputs(args abi.Arguments) bool {
	for _, arg := range args {
		if arg.Name == "" {
			return false
		}
	}
	return len(args) > 0
}
