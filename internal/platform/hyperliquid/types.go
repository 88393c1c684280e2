package hyperliquid

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// infoRequest is the request envelope for the Hyperliquid /info endpoint.
// Every read is a POST with a "type" discriminator.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	Coin string `json:"coin,omitempty"`
}

// wireFill is a single fill as reported by the "userFills" info query.
// Numeric fields arrive as strings.
type wireFill struct {
	Coin    string `json:"coin"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"` // "B" or "A"
	Time    int64  `json:"time"` // unix millis
	Dir     string `json:"dir"`
	Hash    string `json:"hash"`
	Oid     int64  `json:"oid"`
	Crossed bool   `json:"crossed"`
	Fee     string `json:"fee"`
	Tid     int64  `json:"tid"`
}

// toDomain converts a wire fill into a domain.Fill, parsing the decimal
// string fields. The venue's tid is the ledger dedup key.
func (f wireFill) toDomain() (domain.Fill, error) {
	px, err := decimal.NewFromString(f.Px)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("hyperliquid: parse px %q: %w", f.Px, err)
	}
	sz, err := decimal.NewFromString(f.Sz)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("hyperliquid: parse sz %q: %w", f.Sz, err)
	}
	return domain.Fill{
		TradeID:   strconv.FormatInt(f.Tid, 10),
		Coin:      f.Coin,
		Side:      f.Side,
		Size:      sz,
		Price:     px,
		Timestamp: time.UnixMilli(f.Time).UTC(),
		Crossed:   f.Crossed,
		Hash:      f.Hash,
	}, nil
}

// AssetMeta describes one perpetual asset from the "meta" info query.
type AssetMeta struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	MaxLevage  int    `json:"maxLeverage"`
}

// Meta is the venue's perpetuals universe.
type Meta struct {
	Universe []AssetMeta `json:"universe"`
}

// L2Level is one price level of the venue orderbook.
type L2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// L2Book is an orderbook snapshot from the "l2Book" info query.
// Levels[0] holds bids, Levels[1] holds asks.
type L2Book struct {
	Coin   string       `json:"coin"`
	Levels [2][]L2Level `json:"levels"`
	Time   int64        `json:"time"`
}
