package valueobject

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const DefaultCurrency = "NGN"

// Money is an amount in minor currency units (kobo for NGN).
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, apperror.Validation("amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return Money{}, apperror.Validation("currency must be a 3-letter ISO code")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

func (m Money) String() string {
	return fmt.Sprintf("%s %d.%02d", m.Currency, m.Amount/100, m.Amount%100)
}

// SumAmounts adds minor-unit amounts; it reports false on int64 overflow.
func SumAmounts(amounts ...int64) (int64, bool) {
	var total int64
	for _, a := range amounts {
		if a > 0 && total > (1<<63-1)-a {
			return 0, false
		}
		total += a
	}
	return total, true
}
