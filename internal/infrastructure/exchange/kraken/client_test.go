package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Signature test vector from Kraken's API documentation.
func TestSignKnownVector(t *testing.T) {
	c := NewClient("", "key",
		"kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg==")

	body := "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25"
	sig, err := c.sign("/0/private/AddOrder", "1616492376594", body)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	want := "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ=="
	if sig != want {
		t.Errorf("sign = %s, want %s", sig, want)
	}
}

func TestSignRejectsBadSecret(t *testing.T) {
	c := NewClient("", "key", "not base64 !!!")
	if _, err := c.sign("/0/private/Balance", "1", "nonce=1"); err == nil {
		t.Fatal("expected decode error for malformed secret")
	}
}

func TestTickerDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/0/public/Ticker") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"error":[],"result":{"XXBTZUSD":{
			"a":["50010.0","1","1.000"],
			"b":["50000.0","2","2.000"],
			"c":["50005.0","0.1"],
			"v":["120.5","250.75"]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	tickers, err := c.Ticker(context.Background(), []string{"XBTUSD"})
	if err != nil {
		t.Fatalf("Ticker failed: %v", err)
	}
	info, ok := tickers["XXBTZUSD"]
	if !ok {
		t.Fatalf("pair missing from result: %v", tickers)
	}
	if info.Bid[0] != "50000.0" || info.Ask[0] != "50010.0" {
		t.Errorf("bid/ask = %v/%v", info.Bid, info.Ask)
	}
	if info.Volume[1] != "250.75" {
		t.Errorf("volume = %v", info.Volume)
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EOrder:Insufficient funds"],"result":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "c2VjcmV0")
	_, err := c.AddOrder(context.Background(), "XBTUSD", "buy", "limit", 1, 50000)
	if err == nil {
		t.Fatal("expected error from envelope")
	}
	if !strings.Contains(err.Error(), "EOrder:Insufficient funds") {
		t.Errorf("error %q does not carry the Kraken code", err)
	}
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	if _, err := c.Ticker(context.Background(), []string{"XBTUSD"}); err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}

func TestAddOrderSendsSignedRequest(t *testing.T) {
	var gotKey, gotSign string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("API-Key")
		gotSign = r.Header.Get("API-Sign")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("nonce") == "" {
			t.Error("nonce missing")
		}
		if r.PostForm.Get("pair") != "XBTUSD" || r.PostForm.Get("type") != "buy" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Write([]byte(`{"error":[],"result":{"txid":["OTX-123"]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", "c2VjcmV0")
	txid, err := c.AddOrder(context.Background(), "XBTUSD", "buy", "limit", 1.25, 37500)
	if err != nil {
		t.Fatalf("AddOrder failed: %v", err)
	}
	if txid != "OTX-123" {
		t.Errorf("txid = %s", txid)
	}
	if gotKey != "api-key" || gotSign == "" {
		t.Errorf("auth headers = (%q, %q)", gotKey, gotSign)
	}
}
