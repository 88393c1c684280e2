package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWindowStart(t *testing.T) {
	now := time.Date(2025, time.March, 15, 14, 30, 45, 0, time.UTC)

	t.Run("daily is midnight UTC", func(t *testing.T) {
		got := PeriodDaily.WindowStart(now)
		assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("weekly is rolling 7 days at day granularity", func(t *testing.T) {
		got := PeriodWeekly.WindowStart(now)
		assert.Equal(t, time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("weekly start is stable within a day", func(t *testing.T) {
		morning := PeriodWeekly.WindowStart(time.Date(2025, time.March, 15, 2, 5, 0, 0, time.UTC))
		evening := PeriodWeekly.WindowStart(time.Date(2025, time.March, 15, 23, 55, 0, 0, time.UTC))
		assert.Equal(t, morning, evening)
	})

	t.Run("monthly is first of month", func(t *testing.T) {
		got := PeriodMonthly.WindowStart(now)
		assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("all-time is epoch anchored", func(t *testing.T) {
		got := PeriodAllTime.WindowStart(now)
		assert.Equal(t, time.Unix(0, 0).UTC(), got)
	})

	t.Run("non-UTC input is normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		// 01:00 on March 16 in UTC+9 is still March 15 in UTC.
		local := time.Date(2025, time.March, 16, 1, 0, 0, 0, loc)
		got := PeriodDaily.WindowStart(local)
		assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestMonthWindow(t *testing.T) {
	t.Run("mid month", func(t *testing.T) {
		start, end := MonthWindow(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("december rolls into next year", func(t *testing.T) {
		start, end := MonthWindow(time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC))
		assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("february has short window", func(t *testing.T) {
		start, end := MonthWindow(time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, 28, int(end.Sub(start).Hours()/24))
	})
}

func TestValidPeriod(t *testing.T) {
	for _, p := range AllPeriods {
		assert.True(t, ValidPeriod(p), string(p))
	}
	assert.False(t, ValidPeriod(Period("yearly")))
	assert.False(t, ValidPeriod(Period("")))
}

func TestFillTradeType(t *testing.T) {
	cases := []struct {
		coin string
		want TradeType
	}{
		{"BTC", TradeTypePerp},
		{"ETH", TradeTypePerp},
		{"PURR/USDC", TradeTypeSpot},
		{"@107", TradeTypeSpot},
		{"", TradeTypePerp},
	}
	for _, tc := range cases {
		f := Fill{Coin: tc.coin}
		assert.Equal(t, tc.want, f.TradeType(), tc.coin)
	}
}

func TestFeeTransactionCheckSplit(t *testing.T) {
	tx := FeeTransaction{
		TotalFee:       decimal.RequireFromString("1.25"),
		PlatformShare:  decimal.RequireFromString("0.875"),
		LiquidlabShare: decimal.RequireFromString("0.375"),
	}
	assert.True(t, tx.CheckSplit())

	tx.LiquidlabShare = decimal.RequireFromString("0.374")
	assert.False(t, tx.CheckSplit())
}

func TestValidFeeTxStatus(t *testing.T) {
	for _, s := range []FeeTxStatus{FeeTxPending, FeeTxClaimed, FeeTxDistributed, FeeTxFailed} {
		assert.True(t, ValidFeeTxStatus(s), string(s))
	}
	assert.False(t, ValidFeeTxStatus(FeeTxStatus("settled")))
}
