package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		expected string
	}{
		{name: "Default currency", cents: 1234, currency: "", expected: "12.34 DT"},
		{name: "Dinar", cents: 1900, currency: "TND", expected: "19.00 DT"},
		{name: "Dirham shown as DT", cents: 5, currency: "MAD", expected: "0.05 DT"},
		{name: "Other currency", cents: 250000, currency: "eur", expected: "2500.00 EUR"},
		{name: "Zero", cents: 0, currency: "DT", expected: "0.00 DT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(tt.cents, tt.currency))
		})
	}
}
