package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals число знаков минимальной единицы валюты (1 CAM = 10^18).
const Decimals = 18

// FromWei переводит сумму из минимальных единиц в валюту сети.
func FromWei(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// ToWei переводит десятичную строку ("1.5") в минимальные единицы.
// Больше 18 знаков после запятой и отрицательные суммы не допускаются.
func ToWei(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: отрицательная сумма %q", ErrInvalidAmount, amount)
	}
	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: слишком много знаков после запятой в %q", ErrInvalidAmount, amount)
	}
	return wei.BigInt(), nil
}

// FormatAmount форматирует сумму в минимальных единицах для показа: "89.00 CAM".
func FormatAmount(v *big.Int, symbol string) string {
	return FromWei(v).StringFixed(2) + " " + symbol
}
