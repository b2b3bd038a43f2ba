package service

import (
	"math"
	"testing"
	"time"

	"triarb/internal/domain/model"
)

func mkInstruments(keys ...string) []model.Instrument {
	out := make([]model.Instrument, 0, len(keys))
	for _, k := range keys {
		inst, err := model.ParseInstrument(k)
		if err != nil {
			panic(err)
		}
		out = append(out, inst)
	}
	return out
}

func mkSnapshot(quotes map[string]model.Quote) *model.MarketSnapshot {
	return &model.MarketSnapshot{Quotes: quotes, Ts: time.Now()}
}

// flat quote: no spread, synthetic volume
func flatQuote(price, volume float64) model.Quote {
	return model.Quote{Bid: price, Ask: price, Last: price, Volume24h: volume}
}

func TestDetectNoCycle(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC")
	// consistent prices: ETH/BTC exactly equals ETH/USD / BTC/USD
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": flatQuote(2000, 100),
		"ETH/BTC": flatQuote(0.04, 100),
	})

	d := NewCycleDetector(0.008)
	ops := d.Detect(snap, instruments, 0.0026)
	if len(ops) != 0 {
		t.Fatalf("expected no opportunities on consistent prices, got %d", len(ops))
	}
}

func TestDetectTriangularCycle(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC")
	// ETH/BTC priced 1% above fair: USD -> ETH -> BTC -> USD yields 1%
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": flatQuote(2000, 100),
		"ETH/BTC": flatQuote(0.0404, 100),
	})

	d := NewCycleDetector(0.008)
	ops := d.Detect(snap, instruments, 0) // zero fee keeps the arithmetic exact
	if len(ops) == 0 {
		t.Fatal("expected a triangular opportunity")
	}

	best := ops[0]
	want := 0.0404*50000/2000 - 1 // 1%
	if math.Abs(best.Profit-want) > 1e-9 {
		t.Errorf("profit = %v, want %v", best.Profit, want)
	}
	if len(best.Path) != 3 {
		t.Fatalf("path length = %d, want 3", len(best.Path))
	}
	if best.Path[0].From != best.StartCurrency {
		t.Errorf("path starts at %s, StartCurrency is %s", best.Path[0].From, best.StartCurrency)
	}
	// closed loop
	last := best.Path[len(best.Path)-1]
	if last.To != best.StartCurrency {
		t.Errorf("path ends at %s, want %s", last.To, best.StartCurrency)
	}
	// canonical start is the lexicographically smallest currency on the loop
	if best.StartCurrency != "BTC" {
		t.Errorf("StartCurrency = %s, want BTC", best.StartCurrency)
	}

	// liquidity is the thinnest hop's 24h notional
	wantLiq := math.Min(10*50000, math.Min(100*2000, 100*0.0404))
	if math.Abs(best.Liquidity-wantLiq) > 1e-9 {
		t.Errorf("liquidity = %v, want %v", best.Liquidity, wantLiq)
	}
}

func TestDetectBelowThreshold(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC")
	// 0.5% edge, below the 0.8% bar
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": flatQuote(2000, 100),
		"ETH/BTC": flatQuote(0.0402, 100),
	})

	d := NewCycleDetector(0.008)
	if ops := d.Detect(snap, instruments, 0); len(ops) != 0 {
		t.Fatalf("expected sub-threshold cycle to be dropped, got %d opportunities", len(ops))
	}
}

func TestDetectDeterministic(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC", "SOL/USD", "SOL/BTC")
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": flatQuote(2000, 100),
		"ETH/BTC": flatQuote(0.0404, 100),
		"SOL/USD": flatQuote(100, 1000),
		"SOL/BTC": flatQuote(0.00204, 1000), // 2% rich vs fair 0.002
	})

	d := NewCycleDetector(0.008)
	a := d.Detect(snap, instruments, 0)
	b := d.Detect(snap, instruments, 0)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("detection not stable: %d vs %d results", len(a), len(b))
	}
	for i := range a {
		if a[i].Signature() != b[i].Signature() {
			t.Errorf("result %d differs: %s vs %s", i, a[i].Signature(), b[i].Signature())
		}
		if a[i].Profit != b[i].Profit {
			t.Errorf("result %d profit differs: %v vs %v", i, a[i].Profit, b[i].Profit)
		}
	}
	// sorted most profitable first
	for i := 1; i < len(a); i++ {
		if a[i].Profit > a[i-1].Profit {
			t.Errorf("results not sorted by profit at %d", i)
		}
	}
}

func TestDetectEqualProfitTiebreakBySignature(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC", "SOL/USD", "SOL/BTC")
	// SOL mirrors ETH exactly, so both triangles start at BTC with the same profit
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": flatQuote(2000, 100),
		"ETH/BTC": flatQuote(0.0404, 100),
		"SOL/USD": flatQuote(2000, 100),
		"SOL/BTC": flatQuote(0.0404, 100),
	})

	d := NewCycleDetector(0.008)
	ops := d.Detect(snap, instruments, 0)
	if len(ops) < 2 {
		t.Fatalf("expected both mirrored triangles, got %d opportunities", len(ops))
	}
	if ops[0].Profit != ops[1].Profit {
		t.Fatalf("mirrored triangles should tie on profit: %v vs %v", ops[0].Profit, ops[1].Profit)
	}
	if ops[0].Signature() != "BTC>USD>ETH>BTC" || ops[1].Signature() != "BTC>USD>SOL>BTC" {
		t.Errorf("equal-profit order = %s, %s; want BTC>USD>ETH>BTC, BTC>USD>SOL>BTC",
			ops[0].Signature(), ops[1].Signature())
	}
}

func TestDetectSkipsInvalidQuotes(t *testing.T) {
	instruments := mkInstruments("BTC/USD", "ETH/USD", "ETH/BTC")
	snap := mkSnapshot(map[string]model.Quote{
		"BTC/USD": flatQuote(50000, 10),
		"ETH/USD": {Bid: 0, Ask: 2000, Last: 2000}, // unusable
		"ETH/BTC": flatQuote(0.0404, 100),
	})

	d := NewCycleDetector(0.008)
	// the only profitable loop needs ETH/USD, which is invalid
	if ops := d.Detect(snap, instruments, 0); len(ops) != 0 {
		t.Fatalf("expected no opportunities with a broken leg, got %d", len(ops))
	}
}

func TestSignatureRotationInvariant(t *testing.T) {
	hops := []model.Hop{
		{From: "USD", To: "ETH"},
		{From: "ETH", To: "BTC"},
		{From: "BTC", To: "USD"},
	}
	a := model.ArbitrageOpportunity{Path: hops}
	rotated := model.ArbitrageOpportunity{Path: []model.Hop{hops[1], hops[2], hops[0]}}
	if a.Signature() != rotated.Signature() {
		t.Errorf("signatures differ across rotation: %s vs %s", a.Signature(), rotated.Signature())
	}
	if a.Signature() != "BTC>USD>ETH>BTC" {
		t.Errorf("signature = %s, want BTC>USD>ETH>BTC", a.Signature())
	}
}
