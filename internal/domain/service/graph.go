package service

import (
	"math"
	"sort"

	"triarb/internal/domain/model"
)

// CurrencyGraph 货币有向图：节点为货币，边权为 -ln(有效汇率)
// 每个周期从当前 MarketSnapshot 整体重建，不做增量更新，避免残留过期边。
type CurrencyGraph struct {
	currencies []string
	index      map[string]int
	weight     [][]float64
	hops       [][]model.Hop
	liquidity  [][]float64 // 24h notional volume of the instrument behind each edge
}

// BuildCurrencyGraph constructs the graph for one snapshot. Instruments whose
// quote is missing or invalid contribute no edges; a currency that appears only
// in such instruments is excluded from the index entirely.
func BuildCurrencyGraph(snap *model.MarketSnapshot, instruments []model.Instrument, feeRate float64) *CurrencyGraph {
	set := make(map[string]struct{})
	for _, inst := range instruments {
		if _, ok := snap.Quote(inst); !ok {
			continue
		}
		set[inst.Base] = struct{}{}
		set[inst.Quote] = struct{}{}
	}

	currencies := make([]string, 0, len(set))
	for c := range set {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies) // stable alphabetical index for determinism

	n := len(currencies)
	g := &CurrencyGraph{
		currencies: currencies,
		index:      make(map[string]int, n),
		weight:     make([][]float64, n),
		hops:       make([][]model.Hop, n),
		liquidity:  make([][]float64, n),
	}
	for i, c := range currencies {
		g.index[c] = i
		g.weight[i] = make([]float64, n)
		g.hops[i] = make([]model.Hop, n)
		g.liquidity[i] = make([]float64, n)
		for j := range g.weight[i] {
			g.weight[i][j] = math.Inf(1)
		}
		g.weight[i][i] = 0
	}

	fee := 1.0 - feeRate
	for _, inst := range instruments {
		q, ok := snap.Quote(inst)
		if !ok {
			continue
		}
		i := g.index[inst.Base]
		j := g.index[inst.Quote]
		notional := q.Volume24h * q.Last

		// base -> quote: sell base at bid
		if w := -math.Log(q.Bid * fee); finite(w) {
			g.weight[i][j] = w
			g.hops[i][j] = model.Hop{From: inst.Base, To: inst.Quote, Instrument: inst, Side: model.SideSell, Price: q.Bid}
			g.liquidity[i][j] = notional
		}
		// quote -> base: buy base at ask
		if w := -math.Log((1 / q.Ask) * fee); finite(w) {
			g.weight[j][i] = w
			g.hops[j][i] = model.Hop{From: inst.Quote, To: inst.Base, Instrument: inst, Side: model.SideBuy, Price: q.Ask}
			g.liquidity[j][i] = notional
		}
	}
	return g
}

func (g *CurrencyGraph) Size() int { return len(g.currencies) }

func (g *CurrencyGraph) Currency(i int) string { return g.currencies[i] }

// Index returns the node index of a currency, or -1 if absent.
func (g *CurrencyGraph) Index(currency string) int {
	if i, ok := g.index[currency]; ok {
		return i
	}
	return -1
}

func (g *CurrencyGraph) Weight(i, j int) float64 { return g.weight[i][j] }

func (g *CurrencyGraph) Hop(i, j int) model.Hop { return g.hops[i][j] }

func (g *CurrencyGraph) Liquidity(i, j int) float64 { return g.liquidity[i][j] }

// HasEdge reports whether a usable edge i->j exists.
func (g *CurrencyGraph) HasEdge(i, j int) bool {
	return i != j && finite(g.weight[i][j])
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
