// Package fees implements the revenue-sharing contract: the fee schedule per
// trade type and the split policy per revenue stream. Every rate and ratio in
// the system is looked up here; call sites never carry their own constants.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// Stream identifies a revenue stream. Trading fees and the fiat-onramp
// affiliate program settle under different split ratios.
type Stream string

const (
	StreamTrading Stream = "trading"
	StreamOnramp  Stream = "onramp"
)

// RateTable holds the contract fee rate per trade type, as a fraction of
// trade volume.
type RateTable struct {
	Spot decimal.Decimal
	Perp decimal.Decimal
}

// Rate returns the fee rate for the given trade type.
func (r RateTable) Rate(t domain.TradeType) decimal.Decimal {
	if t == domain.TradeTypeSpot {
		return r.Spot
	}
	return r.Perp
}

// SplitPolicy is the platform's fraction of a revenue stream's fees. The
// operator keeps the remainder.
type SplitPolicy struct {
	Stream        Stream
	PlatformRatio decimal.Decimal
}

// PolicyTable maps every revenue stream to its split policy.
type PolicyTable struct {
	rates    RateTable
	policies map[Stream]SplitPolicy
}

// PolicyConfig is the raw configuration shape for building a PolicyTable.
// Values are strings so they round-trip through TOML without float drift.
type PolicyConfig struct {
	SpotFeeRate          string
	PerpFeeRate          string
	TradingPlatformRatio string
	OnrampPlatformRatio  string
}

// NewPolicyTable validates cfg and builds the canonical policy table.
func NewPolicyTable(cfg PolicyConfig) (*PolicyTable, error) {
	spot, err := parseRate("spot_fee_rate", cfg.SpotFeeRate)
	if err != nil {
		return nil, err
	}
	perp, err := parseRate("perp_fee_rate", cfg.PerpFeeRate)
	if err != nil {
		return nil, err
	}
	trading, err := parseRatio("trading_platform_ratio", cfg.TradingPlatformRatio)
	if err != nil {
		return nil, err
	}
	onramp, err := parseRatio("onramp_platform_ratio", cfg.OnrampPlatformRatio)
	if err != nil {
		return nil, err
	}

	return &PolicyTable{
		rates: RateTable{Spot: spot, Perp: perp},
		policies: map[Stream]SplitPolicy{
			StreamTrading: {Stream: StreamTrading, PlatformRatio: trading},
			StreamOnramp:  {Stream: StreamOnramp, PlatformRatio: onramp},
		},
	}, nil
}

// Rates returns the fee schedule.
func (t *PolicyTable) Rates() RateTable {
	return t.rates
}

// Split returns the split policy for the given stream.
func (t *PolicyTable) Split(s Stream) (SplitPolicy, error) {
	p, ok := t.policies[s]
	if !ok {
		return SplitPolicy{}, fmt.Errorf("fees: unknown revenue stream %q", s)
	}
	return p, nil
}

func parseRate(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fees: parse %s %q: %w", name, raw, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("fees: %s must be in [0, 1], got %s", name, d)
	}
	return d, nil
}

func parseRatio(name, raw string) (decimal.Decimal, error) {
	// Same bounds as a rate; kept separate for clearer error text.
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fees: parse %s %q: %w", name, raw, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("fees: %s must be in [0, 1], got %s", name, d)
	}
	return d, nil
}
