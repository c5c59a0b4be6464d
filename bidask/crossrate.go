package bidask

import "fmt"

// PriceSource is the read-only view of live prices the cross-rate solver
// consumes (spec §4.2's CrossCalculationsPriceSource contract). PriceCache
// satisfies this directly.
type PriceSource interface {
	GetByID(id string) (Bidask, bool)
}

// CrossCalculationsError reports that a requested (base, quote) pair could
// not be resolved against the known instrument topology. These are
// non-fatal (spec §7): construction proceeds, the pair simply never
// resolves via GetPrice/GetPriceWithSource.
type CrossCalculationsError struct {
	Base  string
	Quote string
	Cause string
}

func (e CrossCalculationsError) Error() string {
	return fmt.Sprintf("cross %s/%s unresolved: %s", e.Base, e.Quote, e.Cause)
}

// CrossRate is a resolved synthetic rate, optionally carrying the two leg
// instrument ids that were chained to produce it.
type CrossRate struct {
	Base      string
	Quote     string
	Bid       float64
	Ask       float64
	LeftLegID string
	RightLegID string
	HasSource bool
}

type edge struct {
	neighbor     string
	instrumentID string
	fromBase     bool // true if this edge's instrument has base==the node we're leaving from
}

// Matrix is the precomputed adjacency of known instruments, indexed by
// currency/asset symbol. It never changes after construction — new prices
// update the PriceCache's live quotes, not the topology.
type Matrix struct {
	adjacency map[string][]edge
}

func buildAdjacency(instruments []Instrument) map[string][]edge {
	adjacency := make(map[string][]edge, len(instruments)*2)
	for _, instr := range instruments {
		adjacency[instr.Base] = append(adjacency[instr.Base], edge{
			neighbor: instr.Quote, instrumentID: instr.ID, fromBase: true,
		})
		adjacency[instr.Quote] = append(adjacency[instr.Quote], edge{
			neighbor: instr.Base, instrumentID: instr.ID, fromBase: false,
		})
	}
	return adjacency
}

// NewCrossPairsMatrix builds the matrix and reports, for each requested
// (base, quote) pair, whether a chain of at most two legs connects them
// through the known instrument topology. Pairs that don't resolve are
// returned as CrossCalculationsErrors; construction is never aborted by them.
func NewCrossPairsMatrix(requiredPairs [][2]string, instruments []Instrument) (Matrix, []CrossCalculationsError) {
	m := Matrix{adjacency: buildAdjacency(instruments)}

	var errs []CrossCalculationsError
	for _, pair := range requiredPairs {
		base, quote := pair[0], pair[1]
		if _, _, ok := m.findTwoLegPath(base, quote); !ok {
			errs = append(errs, CrossCalculationsError{
				Base: base, Quote: quote, Cause: "no two-leg chain through known instruments",
			})
		}
	}
	return m, errs
}

// findTwoLegPath looks for an intermediate node x such that base-x and
// x-quote are both known instruments, returning the two edges used.
func (m Matrix) findTwoLegPath(base, quote string) (edge, edge, bool) {
	for _, first := range m.adjacency[base] {
		if first.neighbor == quote {
			continue // direct/reverse hit handled by the PriceCache before reaching the solver
		}
		for _, second := range m.adjacency[first.neighbor] {
			if second.neighbor == quote {
				return first, second, true
			}
		}
	}
	return edge{}, edge{}, false
}

// Solver is the external collaborator contract of spec §4.2: given base,
// quote, a matrix, and a live price source, resolve a rate or fail.
type Solver interface {
	Resolve(base, quote string, matrix Matrix, source PriceSource, withSource bool) (CrossRate, error)
}

// BFSSolver is the default Solver: it chains two legs of known instruments,
// multiplying bid*bid and ask*ask, inverting a leg when traversed against
// its native base->quote direction (spec §4.2: "inversion swaps bid/ask;
// multiplication preserves bid×bid and ask×ask").
type BFSSolver struct{}

func (BFSSolver) Resolve(base, quote string, matrix Matrix, source PriceSource, withSource bool) (CrossRate, error) {
	first, second, ok := matrix.findTwoLegPath(base, quote)
	if !ok {
		return CrossRate{}, CrossCalculationsError{Base: base, Quote: quote, Cause: "no two-leg chain available"}
	}

	leftLeg, ok := legPrice(source, first, base)
	if !ok {
		return CrossRate{}, CrossCalculationsError{Base: base, Quote: quote, Cause: fmt.Sprintf("leg %s has no live price", first.instrumentID)}
	}
	rightLeg, ok := legPrice(source, second, first.neighbor)
	if !ok {
		return CrossRate{}, CrossCalculationsError{Base: base, Quote: quote, Cause: fmt.Sprintf("leg %s has no live price", second.instrumentID)}
	}

	rate := CrossRate{
		Base:  base,
		Quote: quote,
		Bid:   leftLeg.Bid * rightLeg.Bid,
		Ask:   leftLeg.Ask * rightLeg.Ask,
	}
	if withSource {
		rate.HasSource = true
		rate.LeftLegID = first.instrumentID
		rate.RightLegID = second.instrumentID
	}
	return rate, nil
}

// legPrice fetches the live bidask for an edge and orients it so that
// Base==from, Quote==the edge's neighbor, inverting if the instrument's
// native direction runs the other way.
func legPrice(source PriceSource, e edge, from string) (Bidask, bool) {
	quote, ok := source.GetByID(e.instrumentID)
	if !ok {
		return Bidask{}, false
	}
	if quote.Base == from {
		return quote, true
	}
	return quote.Reverse(), true
}
