package posting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndicators() map[string]TaxKey {
	return map[string]TaxKey{
		"0": "-", "0,00": "-",
		"5": "USt5", "5,00": "USt5",
		"7": "USt7", "7,00": "USt7",
		"16": "USt16", "16,00": "USt16",
		"19": "USt19", "19,00": "USt19",
	}
}

func testCounterAccounts() map[AccountKey]string {
	goods := map[TaxKey]string{"-": "4000", "50": "4000", "USt5": "4300", "USt7": "4300", "USt16": "4400", "USt19": "4400"}
	service := map[TaxKey]string{"-": "4001", "50": "4001", "USt5": "4301", "USt7": "4301", "USt16": "4401", "USt19": "4401"}

	out := make(map[AccountKey]string)
	for k, v := range goods {
		out[AccountKey{CategoryGoods, k}] = v
	}
	for k, v := range service {
		out[AccountKey{CategoryService, k}] = v
	}
	return out
}

func testConfig() Config {
	return Config{
		Indicators:       testIndicators(),
		ExemptKey:        "-",
		UnresolvedKey:    "50",
		CounterAccounts:  testCounterAccounts(),
		DefaultAccount:   "0000",
		IntrinsicAccount: "1600",
	}
}

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	resolver, err := NewTaxKeyResolver(testIndicators(), "50")
	require.NoError(t, err)
	classifier, err := NewClassifier(testCounterAccounts(), "0000", "-", "50")
	require.NoError(t, err)
	n, err := NewNormalizer(resolver, classifier, "1600", time.UTC)
	require.NoError(t, err)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func tx(receipt int64, date, clock, price string, qty int64, category Category, rate string) RawTransaction {
	return RawTransaction{
		Row:           int(receipt) + 1,
		ReceiptNumber: receipt,
		Date:          date,
		Time:          clock,
		UnitPrice:     dec(price),
		Quantity:      qty,
		Product:       "Artikel",
		Category:      category,
		TaxRate:       rate,
	}
}
