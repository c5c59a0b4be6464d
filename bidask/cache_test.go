package bidask

import "testing"

func TestReverseInvolution(t *testing.T) {
	b := Bidask{ID: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"}
	back := b.Reverse().Reverse()

	if back.Base != b.Base || back.Quote != b.Quote {
		t.Fatalf("reverse(reverse(x)) changed base/quote: got %+v want %+v", back, b)
	}
	if diff := back.Bid - b.Bid; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("reverse(reverse(x)).Bid = %v, want %v", back.Bid, b.Bid)
	}
	if diff := back.Ask - b.Ask; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("reverse(reverse(x)).Ask = %v, want %v", back.Ask, b.Ask)
	}
}

func TestGetPriceIdentity(t *testing.T) {
	pc, errs := NewPriceCache(map[string]struct{}{"USD": {}}, nil, nil, 2)
	if len(errs) != 0 {
		t.Fatalf("unexpected cross errors: %v", errs)
	}

	price, ok := pc.GetPrice("USD", "USD")
	if !ok || !price.IsBlank() {
		t.Fatalf("GetPrice(USD,USD) = %+v, ok=%v, want blank identity", price, ok)
	}
}

func TestGetPriceDirectAndReversed(t *testing.T) {
	pc, _ := NewPriceCache(map[string]struct{}{}, []Instrument{{ID: "EURUSD", Base: "EUR", Quote: "USD"}},
		[]Bidask{{ID: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"}}, 1)

	direct, ok := pc.GetPrice("EUR", "USD")
	if !ok || direct.Bid != 1.1000 {
		t.Fatalf("direct GetPrice wrong: %+v ok=%v", direct, ok)
	}

	reversed, ok := pc.GetPrice("USD", "EUR")
	if !ok {
		t.Fatalf("reversed GetPrice failed")
	}
	wantBid := 1.0 / 1.1002
	if diff := reversed.Bid - wantBid; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("reversed.Bid = %v, want %v", reversed.Bid, wantBid)
	}
}

func TestGetPriceWithSourceCross(t *testing.T) {
	instruments := []Instrument{
		{ID: "EURUSD", Base: "EUR", Quote: "USD"},
		{ID: "USDJPY", Base: "USD", Quote: "JPY"},
	}
	prices := []Bidask{
		{ID: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"},
		{ID: "USDJPY", Bid: 150.00, Ask: 150.02, Base: "USD", Quote: "JPY"},
	}
	pc, errs := NewPriceCache(map[string]struct{}{}, instruments, prices, 4)
	if len(errs) != 0 {
		t.Fatalf("unexpected cross errors: %v", errs)
	}

	cross, sources, ok := pc.GetPriceWithSource("EUR", "JPY")
	if !ok {
		t.Fatalf("cross EUR/JPY should resolve")
	}
	wantBid := 1.1000 * 150.00
	if diff := cross.Bid - wantBid; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("cross.Bid = %v, want %v", cross.Bid, wantBid)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 leg sources, got %v", sources)
	}
}

func TestGetPriceWithSourceDirectHasNoSources(t *testing.T) {
	pc, _ := NewPriceCache(map[string]struct{}{}, []Instrument{{ID: "EURUSD", Base: "EUR", Quote: "USD"}},
		[]Bidask{{ID: "EURUSD", Bid: 1.1, Ask: 1.1002, Base: "EUR", Quote: "USD"}}, 1)

	_, sources, ok := pc.GetPriceWithSource("EUR", "USD")
	if !ok || sources != nil {
		t.Fatalf("direct hit should have nil sources, got %v ok=%v", sources, ok)
	}
}

func TestHandleNewUpsertsWithoutDuplicatingIndex(t *testing.T) {
	pc, _ := NewPriceCache(map[string]struct{}{}, nil, nil, 1)
	pc.HandleNew(Bidask{ID: "EURUSD", Bid: 1.10, Ask: 1.1002, Base: "EUR", Quote: "USD"})
	pc.HandleNew(Bidask{ID: "EURUSD", Bid: 1.11, Ask: 1.1102, Base: "EUR", Quote: "USD"})

	got, ok := pc.GetByID("EURUSD")
	if !ok || got.Bid != 1.11 {
		t.Fatalf("expected upserted price 1.11, got %+v", got)
	}

	direct, ok := pc.GetPrice("EUR", "USD")
	if !ok || direct.Bid != 1.11 {
		t.Fatalf("index should resolve to latest price, got %+v", direct)
	}
}
