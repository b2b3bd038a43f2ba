package kraken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"triarb/internal/domain/model"
)

func TestPairCodeUsesKrakenAliases(t *testing.T) {
	btcUSD := model.Instrument{Base: "BTC", Quote: "USD"}
	if got := PairCode(btcUSD); got != "XBTUSD" {
		t.Errorf("PairCode(BTC/USD) = %s, want XBTUSD", got)
	}
	ethUSD := model.Instrument{Base: "ETH", Quote: "USD"}
	if got := PairCode(ethUSD); got != "ETHUSD" {
		t.Errorf("PairCode(ETH/USD) = %s, want ETHUSD", got)
	}
}

func TestLookupTickerPrefixedKeys(t *testing.T) {
	tickers := map[string]TickerInfo{
		"XXBTZUSD": {Bid: []string{"50000"}},
		"ETHUSD":   {Bid: []string{"2000"}},
	}
	if _, ok := lookupTicker(tickers, model.Instrument{Base: "BTC", Quote: "USD"}); !ok {
		t.Error("XXBTZUSD key not matched for BTC/USD")
	}
	if _, ok := lookupTicker(tickers, model.Instrument{Base: "ETH", Quote: "USD"}); !ok {
		t.Error("plain ETHUSD key not matched")
	}
	if _, ok := lookupTicker(tickers, model.Instrument{Base: "SOL", Quote: "USD"}); ok {
		t.Error("absent pair matched")
	}
}

func tickerDepthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/0/public/Ticker"):
			w.Write([]byte(`{"error":[],"result":{
				"XXBTZUSD":{"a":["50010.0","1","1"],"b":["50000.0","1","1"],"c":["50005.0","0.1"],"v":["100","120"]},
				"XETHZUSD":{"a":["2001.0","1","1"],"b":["2000.0","1","1"],"c":["2000.5","0.1"],"v":["900","1000"]}}}`))
		case strings.HasPrefix(r.URL.Path, "/0/public/Depth"):
			w.Write([]byte(`{"error":[],"result":{"PAIR":{
				"asks":[["50010.0","0.5",1],["50020.0","1.0",1]],
				"bids":[["50000.0","0.8",1]]}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestGetSnapshot(t *testing.T) {
	srv := tickerDepthServer(t)
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "", ""))
	insts := []model.Instrument{
		{Base: "BTC", Quote: "USD"},
		{Base: "ETH", Quote: "USD"},
	}
	snap, err := a.GetSnapshot(context.Background(), insts)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	q, ok := snap.Quote(insts[0])
	if !ok {
		t.Fatal("BTC/USD quote missing")
	}
	if q.Bid != 50000 || q.Ask != 50010 || q.Last != 50005 {
		t.Errorf("quote = %+v", q)
	}
	if q.Volume24h != 120 {
		t.Errorf("Volume24h = %v, want the 24h figure", q.Volume24h)
	}
	wantAsk := 50010.0*0.5 + 50020.0*1.0
	if q.AskDepth != wantAsk {
		t.Errorf("AskDepth = %v, want %v", q.AskDepth, wantAsk)
	}
	if q.BidDepth != 50000.0*0.8 {
		t.Errorf("BidDepth = %v, want %v", q.BidDepth, 50000.0*0.8)
	}
	if _, ok := snap.Quote(insts[1]); !ok {
		t.Error("ETH/USD quote missing")
	}
}

func TestGetSnapshotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "", ""))
	_, err := a.GetSnapshot(context.Background(), []model.Instrument{{Base: "BTC", Quote: "USD"}})
	if !errors.Is(err, model.ErrMarketDataUnavailable) {
		t.Fatalf("err = %v, want ErrMarketDataUnavailable", err)
	}
}

func TestGetBalancePrefixFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"ZUSD":"1234.56","XXBT":"0.5"}}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "key", "c2VjcmV0"))
	got, err := a.GetBalance(context.Background(), "USD")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if got != 1234.56 {
		t.Errorf("balance = %v, want 1234.56", got)
	}

	// absent asset is a zero balance, not an error
	got, err = a.GetBalance(context.Background(), "SOL")
	if err != nil || got != 0 {
		t.Errorf("absent asset = (%v, %v), want (0, nil)", got, err)
	}
}

func TestGetBalanceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EGeneral:Internal error"],"result":null}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "key", "c2VjcmV0"))
	if _, err := a.GetBalance(context.Background(), "USD"); !errors.Is(err, model.ErrBalanceUnavailable) {
		t.Fatalf("err = %v, want ErrBalanceUnavailable", err)
	}
}

func TestPlaceOrderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EOrder:Insufficient funds"],"result":null}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "key", "c2VjcmV0"))
	req := model.OrderRequest{
		Instrument: model.Instrument{Base: "BTC", Quote: "USD"},
		Side:       model.SideBuy,
		Type:       model.OrderTypeLimit,
		Volume:     1,
		Price:      50000,
	}
	_, err := a.PlaceOrder(context.Background(), req)
	if !model.IsOrderRejected(err) {
		t.Fatalf("err = %v, want OrderRejectedError", err)
	}
}

func TestPlaceOrderTransportFailureIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL, "key", "c2VjcmV0"))
	req := model.OrderRequest{
		Instrument: model.Instrument{Base: "BTC", Quote: "USD"},
		Side:       model.SideBuy,
		Type:       model.OrderTypeLimit,
		Volume:     1,
		Price:      50000,
	}
	_, err := a.PlaceOrder(context.Background(), req)
	if err == nil || model.IsOrderRejected(err) {
		t.Fatalf("err = %v, want transport error, not a rejection", err)
	}
}
