package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"triarb/internal/domain/model"
)

const (
	// maxCycleHops caps predecessor-chain reconstruction so a perverse chain
	// can never loop forever.
	maxCycleHops = 10

	relaxEps = 1e-12
)

// CycleDetector 负环检测器：对每个货币跑 Bellman-Ford，负权环即套利机会
type CycleDetector struct {
	MinProfit float64 // minimum implied profit fraction, e.g. 0.008
}

func NewCycleDetector(minProfit float64) *CycleDetector {
	return &CycleDetector{MinProfit: minProfit}
}

// Detect returns the arbitrage cycles present in the snapshot, most profitable
// first. Supplied quotes are assumed finite and positive; callers filter
// malformed instruments out beforehand. A snapshot with no negative cycle
// yields an empty result, not an error. Detection is deterministic: the same
// snapshot always produces the same cycles in the same order.
func (d *CycleDetector) Detect(snap *model.MarketSnapshot, instruments []model.Instrument, feeRate float64) []model.ArbitrageOpportunity {
	g := BuildCurrencyGraph(snap, instruments, feeRate)
	n := g.Size()
	if n == 0 {
		return nil
	}

	now := time.Now()
	seen := make(map[string]struct{})
	var out []model.ArbitrageOpportunity

	for src := 0; src < n; src++ {
		dist, pred := bellmanFord(g, src)

		// One more relaxation pass: any edge that still improves sits on or
		// reaches a negative cycle.
		for u := 0; u < n; u++ {
			if !finite(dist[u]) {
				continue
			}
			for v := 0; v < n; v++ {
				if !g.HasEdge(u, v) {
					continue
				}
				cand := dist[u] + g.Weight(u, v)
				if !finite(cand) || cand >= dist[v]-relaxEps {
					continue
				}
				cycle := traceCycle(pred, n, u, v)
				if len(cycle) == 0 {
					continue
				}
				op, ok := d.buildOpportunity(g, cycle, now)
				if !ok {
					continue
				}
				sig := op.Signature()
				if _, dup := seen[sig]; dup {
					continue
				}
				seen[sig] = struct{}{}
				out = append(out, op)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		return out[i].Signature() < out[j].Signature()
	})
	return out
}

// bellmanFord relaxes n-1 rounds from src. Relaxations producing NaN or Inf
// are treated as "no improvement" so numerical blow-ups cannot crash a cycle.
func bellmanFord(g *CurrencyGraph, src int) (dist []float64, pred []int) {
	n := g.Size()
	dist = make([]float64, n)
	pred = make([]int, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = -1
	}
	dist[src] = 0

	for round := 0; round < n-1; round++ {
		improved := false
		for u := 0; u < n; u++ {
			if !finite(dist[u]) {
				continue
			}
			for v := 0; v < n; v++ {
				if !g.HasEdge(u, v) {
					continue
				}
				cand := dist[u] + g.Weight(u, v)
				if !finite(cand) {
					continue
				}
				if cand < dist[v]-relaxEps {
					dist[v] = cand
					pred[v] = u
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return dist, pred
}

// traceCycle walks predecessor pointers from a still-relaxable edge (u,v)
// until it closes a loop. Returns the cycle nodes in forward (trade) order,
// or nil if no closed loop of acceptable length exists.
func traceCycle(pred []int, n, u, v int) []int {
	// Step into the cycle: after n pred hops from v we are guaranteed to be
	// inside it (not merely downstream of it).
	pred = append([]int(nil), pred...)
	pred[v] = u
	x := v
	for i := 0; i < n; i++ {
		if pred[x] < 0 {
			return nil
		}
		x = pred[x]
	}

	// Collect the loop. pred[b] = a means edge a->b, so the walk yields the
	// cycle reversed.
	rev := []int{x}
	for cur := pred[x]; cur != x; cur = pred[cur] {
		if cur < 0 || len(rev) > maxCycleHops {
			return nil
		}
		rev = append(rev, cur)
	}

	cycle := make([]int, len(rev))
	for i, node := range rev {
		cycle[len(rev)-1-i] = node
	}
	return cycle
}

// buildOpportunity converts a node cycle into an opportunity, summing the
// actual cycle edge weights for the implied profit.
func (d *CycleDetector) buildOpportunity(g *CurrencyGraph, cycle []int, now time.Time) (model.ArbitrageOpportunity, bool) {
	if len(cycle) < 2 || len(cycle) > maxCycleHops {
		return model.ArbitrageOpportunity{}, false
	}

	// Rotate so the lexicographically smallest currency leads: a canonical
	// start regardless of which source node found the cycle.
	best := 0
	for i := 1; i < len(cycle); i++ {
		if g.Currency(cycle[i]) < g.Currency(cycle[best]) {
			best = i
		}
	}

	var (
		weight    float64
		liquidity = math.Inf(1)
		hops      = make([]model.Hop, 0, len(cycle))
	)
	for i := 0; i < len(cycle); i++ {
		from := cycle[(best+i)%len(cycle)]
		to := cycle[(best+i+1)%len(cycle)]
		if !g.HasEdge(from, to) {
			return model.ArbitrageOpportunity{}, false
		}
		weight += g.Weight(from, to)
		if l := g.Liquidity(from, to); l < liquidity {
			liquidity = l
		}
		hops = append(hops, g.Hop(from, to))
	}

	profit := math.Exp(-weight) - 1
	if !finite(profit) || profit < d.MinProfit {
		return model.ArbitrageOpportunity{}, false
	}
	if !finite(liquidity) {
		liquidity = 0
	}

	return model.ArbitrageOpportunity{
		ID:            uuid.NewString(),
		Path:          hops,
		Profit:        profit,
		StartCurrency: g.Currency(cycle[best]),
		Liquidity:     liquidity,
		DetectedAt:    now,
	}, true
}
