package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the storefront's display currency.
const DefaultCurrency = "DT"

// FormatMoney renders minor units with two decimals followed by the
// currency label. Dinar and dirham codes are all shown as "DT".
func FormatMoney(cents int64, currency string) string {
	amount := decimal.New(cents, -2).StringFixed(2)

	code := strings.ToUpper(strings.TrimSpace(currency))
	switch code {
	case "", "DT", "TND", "MAD":
		return amount + " " + DefaultCurrency
	default:
		return amount + " " + code
	}
}
