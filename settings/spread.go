package settings

import (
	"github.com/fxrisk/microengine/bidask"
	"github.com/shopspring/decimal"
)

// CalculateBidAsk applies markup then enforces spread clamps, in the
// max-before-min order the original engine uses (spec §4.3). An
// instrument with no markup settings passes its bidask through unchanged.
// bid<=ask is never re-imposed afterward — the engine tolerates inverted
// markets by design (spec §9 Open Question, resolved: preserve permissiveness).
func (s InstrumentSettings) CalculateBidAsk(b bidask.Bidask) (bid, ask float64) {
	if s.Markup == nil {
		return b.Bid, b.Ask
	}

	bid, ask = b.WithMarkup(s.Markup.MarkupBid, s.Markup.MarkupAsk)

	if s.Markup.MaxSpread != nil {
		bid, ask = applyMaxSpread(bid, ask, *s.Markup.MaxSpread, s.Digits)
	}
	if s.Markup.MinSpread != nil {
		bid, ask = applyMinSpread(bid, ask, *s.Markup.MinSpread, s.Digits)
	}
	return bid, ask
}

func calculateSpread(bid, ask float64, digits int32) decimal.Decimal {
	b := decimal.NewFromFloat(bid)
	a := decimal.NewFromFloat(ask)
	return a.Sub(b).Truncate(digits)
}

// splitHalf computes spreadDiff/2 truncated to digits, and whether
// spreadDiff*10^digits is an even integer (spec §4.3 step 2/3): when even
// the adjustment splits symmetrically; when odd the extra pip goes to bid
// so the bid/ask midpoint's parity is preserved exactly.
func splitHalf(spreadDiff decimal.Decimal, digits int32) (half float64, pip float64, isEven bool) {
	halfDec := spreadDiff.Div(decimal.NewFromInt(2)).Truncate(digits)
	factor := decimal.New(1, digits)
	isEven = spreadDiff.Mul(factor).IntPart()%2 == 0

	half, _ = halfDec.Float64()
	pipDec := decimal.New(1, -digits)
	pip, _ = pipDec.Float64()
	return half, pip, isEven
}

// applyMaxSpread implements spec §4.3 step 2: if the spread exceeds
// max_spread, narrow it back to exactly max_spread, splitting the
// reduction between bid and ask (asymmetrically by one pip when the
// excess doesn't split evenly).
func applyMaxSpread(bid, ask, maxSpread float64, digits int32) (float64, float64) {
	spread := calculateSpread(bid, ask, digits)
	maxSpreadDec := decimal.NewFromFloat(maxSpread)

	if !spread.GreaterThan(maxSpreadDec) {
		return bid, ask
	}

	diff := spread.Sub(maxSpreadDec).Truncate(digits)
	half, pip, isEven := splitHalf(diff, digits)

	if isEven {
		return bid + half, ask - half
	}
	return bid + half + pip, ask - half
}

// applyMinSpread implements spec §4.3 step 3: if the spread is narrower
// than min_spread, widen it back out, mirroring applyMaxSpread's
// even/odd pip handling with the adjustment signs reversed.
func applyMinSpread(bid, ask, minSpread float64, digits int32) (float64, float64) {
	spread := calculateSpread(bid, ask, digits)
	minSpreadDec := decimal.NewFromFloat(minSpread)

	if !spread.LessThan(minSpreadDec) {
		return bid, ask
	}

	diff := minSpreadDec.Sub(spread).Truncate(digits)
	half, pip, isEven := splitHalf(diff, digits)

	if isEven {
		return bid - half, ask + half
	}
	return bid - half - pip, ask + half
}
