package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// Computation is the fee split derived from a single fill. It carries no
// identity; the ingestor attaches platform and trade IDs when it builds the
// ledger row.
type Computation struct {
	TradeType      domain.TradeType
	TradeVolume    decimal.Decimal
	FeeRate        decimal.Decimal
	TotalFee       decimal.Decimal
	PlatformShare  decimal.Decimal
	LiquidlabShare decimal.Decimal
}

// Compute derives the fee split for a fill under the trading-stream policy.
// It is pure and deterministic: no I/O, no clock, identical input gives
// identical output.
//
// The operator share is computed by subtraction rather than a second
// multiplication so that PlatformShare + LiquidlabShare == TotalFee holds
// exactly.
func (t *PolicyTable) Compute(fill domain.Fill) (Computation, error) {
	split, err := t.Split(StreamTrading)
	if err != nil {
		return Computation{}, err
	}

	tradeType := fill.TradeType()
	volume := fill.Volume()
	rate := t.rates.Rate(tradeType)

	totalFee := volume.Mul(rate)
	platformShare := totalFee.Mul(split.PlatformRatio)
	liquidlabShare := totalFee.Sub(platformShare)

	c := Computation{
		TradeType:      tradeType,
		TradeVolume:    volume,
		FeeRate:        rate,
		TotalFee:       totalFee,
		PlatformShare:  platformShare,
		LiquidlabShare: liquidlabShare,
	}
	if err := c.check(); err != nil {
		return Computation{}, err
	}
	return c, nil
}

// check verifies the split invariant. It can only fail if the computation
// above is changed incorrectly, and exists so a future bug surfaces here
// instead of as a corrupt ledger row.
func (c Computation) check() error {
	if !c.PlatformShare.Add(c.LiquidlabShare).Equal(c.TotalFee) {
		return fmt.Errorf("fees: %w: platform %s + liquidlab %s != total %s",
			domain.ErrSplitInvariant, c.PlatformShare, c.LiquidlabShare, c.TotalFee)
	}
	return nil
}
