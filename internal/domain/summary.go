package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is a summary aggregation window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all-time"
)

// AllPeriods lists every aggregation window, in recomputation order.
var AllPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// ValidPeriod reports whether p is a known aggregation period.
func ValidPeriod(p Period) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// allTimeEpoch is the fixed lower bound of the all-time window.
var allTimeEpoch = time.Unix(0, 0).UTC()

// WindowStart returns the start of the aggregation window for p as of now.
// Daily and monthly are calendar-aligned in UTC, weekly is a rolling 7 days
// truncated to the day boundary, and all-time is anchored at the Unix epoch.
func (p Period) WindowStart(now time.Time) time.Time {
	now = now.UTC()
	switch p {
	case PeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeekly:
		// Day-aligned so successive recomputes within a day converge on the
		// same summary row instead of minting a new one per cycle.
		w := now.Add(-7 * 24 * time.Hour)
		return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return allTimeEpoch
	}
}

// MonthWindow returns the calendar-month bounds [start, end) containing t.
// Payouts settle on these windows.
func MonthWindow(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// RevenueSummary is a derived cache row: the ledger aggregated over one
// (platform, period, window-start). It is always recomputable from the
// ledger and never a source of truth.
type RevenueSummary struct {
	PlatformID        string          `json:"platform_id"`
	Period            Period          `json:"period"`
	StartDate         time.Time       `json:"start_date"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	PlatformEarnings  decimal.Decimal `json:"platform_earnings"`
	LiquidlabEarnings decimal.Decimal `json:"liquidlab_earnings"`
	TradeCount        int64           `json:"trade_count"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// PlatformRevenue is one leaderboard entry for the all-platform revenue view.
type PlatformRevenue struct {
	PlatformID       string          `json:"platform_id"`
	PlatformName     string          `json:"platform_name"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	PlatformEarnings decimal.Decimal `json:"platform_earnings"`
	TradeCount       int64           `json:"trade_count"`
	LastUpdated      time.Time       `json:"last_updated"`
}
