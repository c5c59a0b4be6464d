// Package bidask holds the Bidask DTO and the Price Cache (spec §4.1).
package bidask

import "fmt"

// Bidask is a single bid/ask quote for an instrument or a synthesized
// cross/inverse rate. All currency/instrument symbols are short interned
// strings in the source system; plain strings serve the same purpose here.
type Bidask struct {
	ID    string
	Bid   float64
	Ask   float64
	Base  string
	Quote string
}

// Blank is the neutral identity bidask used when no conversion is needed
// (quote == collateral). bid=ask=1.0 so multiplying by it is a no-op.
func Blank() Bidask {
	return Bidask{ID: "", Bid: 1.0, Ask: 1.0, Base: "", Quote: ""}
}

// WithMarkup returns bid/ask shifted by the given markup, before any
// spread clamp is applied (spec §4.3 step 1).
func (b Bidask) WithMarkup(markupBid, markupAsk float64) (bid, ask float64) {
	return b.Bid + markupBid, b.Ask + markupAsk
}

// OpenPrice returns the price at which a position in the given direction
// was (or would be) opened: ask for buy, bid for sell.
func (b Bidask) OpenPrice(isBuy bool) float64 {
	if isBuy {
		return b.Ask
	}
	return b.Bid
}

// ClosePrice returns the price at which a position in the given direction
// would currently be closed: bid for buy, ask for sell.
func (b Bidask) ClosePrice(isBuy bool) float64 {
	if isBuy {
		return b.Bid
	}
	return b.Ask
}

// Reverse returns the inverse quote: base and quote swapped, bid/ask
// swapped and reciprocated, id prefixed with "REVERSE-". For any bidask
// with non-zero legs, reverse(reverse(x)) has x's base, quote, bid and ask
// up to floating-point rounding (spec §8 property 2); its id carries the
// prefix twice.
func (b Bidask) Reverse() Bidask {
	return Bidask{
		ID:    fmt.Sprintf("REVERSE-%s", b.ID),
		Bid:   1.0 / b.Ask,
		Ask:   1.0 / b.Bid,
		Base:  b.Quote,
		Quote: b.Base,
	}
}

// IsBlank reports whether this is the identity bidask (base==quote==""
// with bid=ask=1.0), as produced by Blank().
func (b Bidask) IsBlank() bool {
	return b.Base == "" && b.Quote == "" && b.Bid == 1.0 && b.Ask == 1.0
}

// Instrument is an immutable instrument definition, referenced by id.
type Instrument struct {
	ID    string
	Base  string
	Quote string
}
