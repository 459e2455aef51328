package posting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Run(t *testing.T) {
	cfg := testConfig()
	cfg.Overrides = []OverrideRule{corona19()}
	cfg.Vouchers = VoucherAccounts{Issue: []string{"3272"}, Redemption: "1607"}

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	voucher := tx(4, "02.07.2020", "09:00:00", "30", 1, CategoryGoods, "0")
	voucher.Account = "3272"
	voucher.VoucherID = "G-100"

	input := []RawTransaction{
		tx(1, "30.06.2020", "17:00:00", "10", 1, CategoryGoods, "19"),
		tx(1, "30.06.2020", "17:00:00", "3", 2, CategoryService, "7"),
		tx(2, "01.07.2020", "10:00:00", "8", 1, CategoryGoods, "19"),
		voucher,
		tx(5, "02.07.2020", "12:00:00", "2", -1, CategoryGoods, "99"),
	}

	res, err := engine.Run(Input{Transactions: input, SourceRows: len(input)})
	require.NoError(t, err)

	assert.Equal(t, HeadingAll, res.Heading)
	assert.Len(t, res.Postings, len(input))
	assert.Equal(t, res.Postings, res.Selected)

	require.Len(t, res.Gaps, 1)
	assert.Equal(t, []int64{3}, res.Gaps[0].Missing())

	assert.Equal(t, 1, res.Diagnostics.Count(DiagSequenceGap))
	assert.Equal(t, 1, res.Diagnostics.Count(DiagFallbackTaxKey))
	assert.Zero(t, res.Diagnostics.Count(DiagRowCountMismatch))

	require.Len(t, res.Vouchers, 1)
	assert.Equal(t, "G-100", res.Vouchers[0].VoucherID)

	// Goods at the standard rate: 30.06. and 01.07. share a bucket whose latest
	// member lies inside the reduced-rate window.
	var goods *CollectivePosting
	for i := range res.Collective {
		if res.Collective[i].CreditAccount == "4400" {
			goods = &res.Collective[i]
		}
	}
	require.NotNil(t, goods)
	assert.Equal(t, TaxKey("USt16"), goods.TaxKey)
	assertDecimal(t, "18", goods.Amount)

	total := decimal.Zero
	for _, c := range res.Collective {
		if c.Side == SideCredit {
			total = total.Sub(c.Amount)
		} else {
			total = total.Add(c.Amount)
		}
	}
	assertDecimal(t, "52", total)
}

func TestEngine_RunWithPeriod(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	period, err := ParsePeriod("2020-07-01", "2020-07-31", nil)
	require.NoError(t, err)

	input := []RawTransaction{
		tx(1, "30.06.2020", "17:00:00", "10", 1, CategoryGoods, "19"),
		tx(2, "15.07.2020", "10:00:00", "8", 1, CategoryGoods, "19"),
		tx(9, "15.08.2020", "10:00:00", "8", 1, CategoryGoods, "19"),
	}

	res, err := engine.Run(Input{Transactions: input, Period: &period})
	require.NoError(t, err)

	assert.Equal(t, "_vom_2020-07-01_bis_2020-07-31", res.Heading)
	assert.Len(t, res.Postings, 3)
	require.Len(t, res.Selected, 1)
	require.Len(t, res.Collective, 1)
	assert.Equal(t, "Sammelbuchung_vom_2020-07-01_bis_2020-07-31", res.Collective[0].Text)

	// Gaps are computed on the unfiltered input.
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, int64(6), res.Gaps[0].MissingCount())
}

func TestEngine_GapsOverExcludedRows(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	// Receipt 2 was read but excluded before it became a transaction.
	input := []RawTransaction{
		tx(1, "01.07.2020", "10:00:00", "1", 1, CategoryGoods, "19"),
		tx(3, "01.07.2020", "12:00:00", "1", 1, CategoryGoods, "19"),
	}
	receipts := []ReceiptRef{{Row: 2, Number: 1}, {Row: 3, Number: 2}, {Row: 4, Number: 3}}

	res, err := engine.Run(Input{Transactions: input, SourceRows: 3, Receipts: receipts})
	require.NoError(t, err)
	assert.Empty(t, res.Gaps)
	assert.Zero(t, res.Diagnostics.Count(DiagSequenceGap))
	assert.Equal(t, 1, res.Diagnostics.Count(DiagRowCountMismatch))

	// Without the full sequence the typed records are checked.
	res, err = engine.Run(Input{Transactions: input})
	require.NoError(t, err)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, []int64{2}, res.Gaps[0].Missing())

	gaps := res.Diagnostics.OfKind(DiagSequenceGap)
	require.Len(t, gaps, 1)
	assert.Equal(t, 4, gaps[0].Row)
}

func TestEngine_RowCountMismatch(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	res, err := engine.Run(Input{
		Transactions: []RawTransaction{tx(1, "01.07.2020", "10:00:00", "1", 1, CategoryGoods, "19")},
		SourceRows:   2,
	})
	require.NoError(t, err)

	mismatch := res.Diagnostics.OfKind(DiagRowCountMismatch)
	require.Len(t, mismatch, 1)
	assert.Equal(t, -1, mismatch[0].Index)
	assert.Contains(t, mismatch[0].String(), "2 rows")
}

func TestEngine_FatalInput(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	res, err := engine.Run(Input{Transactions: []RawTransaction{
		tx(1, "2020-07-01", "10:00:00", "1", 1, CategoryGoods, "19"),
	}})
	require.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Nil(t, res)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no exempt key", func(c *Config) { c.ExemptKey = "" }},
		{"no unresolved key", func(c *Config) { c.UnresolvedKey = "" }},
		{"indicator key without accounts", func(c *Config) { c.Indicators["10"] = "USt10" }},
		{"no intrinsic account", func(c *Config) { c.IntrinsicAccount = "" }},
		{"no default account", func(c *Config) { c.DefaultAccount = "" }},
		{"invalid override", func(c *Config) { c.Overrides = []OverrideRule{{Name: "empty"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			_, err := NewEngine(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
