package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType distinguishes spot fills from perpetual fills. The fee schedule
// and split policy are keyed by it.
type TradeType string

const (
	TradeTypeSpot TradeType = "spot"
	TradeTypePerp TradeType = "perp"
)

// Fill is a single trade fill reported by the venue for an attributed wallet.
// TradeID is the venue-assigned unique identifier and is the dedup key for
// the fee ledger together with the platform ID.
type Fill struct {
	TradeID   string
	Coin      string
	Side      string // "B" (bid) or "A" (ask), venue encoding
	Size      decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
	Crossed   bool // true when the fill took liquidity (taker)
	Hash      string
}

// TradeType classifies a fill by its coin symbol. Hyperliquid spot pairs are
// reported either as "BASE/QUOTE" or as "@<index>" placeholders; everything
// else is a perpetual.
func (f Fill) TradeType() TradeType {
	for i := 0; i < len(f.Coin); i++ {
		if f.Coin[i] == '/' {
			return TradeTypeSpot
		}
	}
	if len(f.Coin) > 0 && f.Coin[0] == '@' {
		return TradeTypeSpot
	}
	return TradeTypePerp
}

// Volume returns the notional value of the fill (size * price).
func (f Fill) Volume() decimal.Decimal {
	return f.Size.Mul(f.Price)
}
