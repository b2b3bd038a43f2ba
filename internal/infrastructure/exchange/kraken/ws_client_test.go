package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"triarb/internal/domain/model"
)

func TestParseTickerMessage(t *testing.T) {
	msg := []byte(`[42,{"a":["50010.0","1","1"],"b":["50000.0","1","1"],"c":["50005.5","0.1"]},"ticker","XBT/USD"]`)
	tick, ok := parseTickerMessage(msg)
	if !ok {
		t.Fatal("valid ticker frame not parsed")
	}
	if tick.Instrument != "BTC/USD" {
		t.Errorf("instrument = %s, want BTC/USD", tick.Instrument)
	}
	if tick.Price != 50005.5 {
		t.Errorf("price = %v, want 50005.5", tick.Price)
	}
}

func TestParseTickerMessageSkipsEvents(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"event":"heartbeat"}`),
		[]byte(`{"event":"subscriptionStatus","status":"subscribed","pair":"XBT/USD"}`),
		[]byte(`[42,{"c":["0","0"]},"ticker","XBT/USD"]`),  // zero price
		[]byte(`[42,{"x":[]},"trade","XBT/USD"]`),          // other channel
		[]byte(`garbage`),
	}
	for _, msg := range cases {
		if _, ok := parseTickerMessage(msg); ok {
			t.Errorf("frame %s parsed as ticker", msg)
		}
	}
}

// A cancelled subscription must close the tick channel cleanly even when the
// buffer is full and the producer is blocked mid-send.
func TestSubscribeShutdownWithBackloggedTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	frame := []byte(`[42,{"c":["50005.5","0.1"]},"ticker","XBT/USD"]`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			// swallow the subscribe request and any pings
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for i := 0; i < 3000; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	feed := NewTickerFeed("ws" + strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := feed.Subscribe(ctx, []model.Instrument{{Base: "BTC", Quote: "USD"}})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// let the buffer fill so the producer is parked on a send
	deadline := time.Now().Add(5 * time.Second)
	for len(out) < cap(out) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(out) < cap(out) {
		t.Fatalf("buffer never filled: %d of %d", len(out), cap(out))
	}

	cancel()

	done := make(chan struct{})
	go func() {
		for range out {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tick channel did not close after cancellation")
	}
}

func TestWsPairRoundtrip(t *testing.T) {
	inst := model.Instrument{Base: "BTC", Quote: "USD"}
	if got := wsPair(inst); got != "XBT/USD" {
		t.Errorf("wsPair = %s, want XBT/USD", got)
	}
	if got := wsPairToKey("XBT/USD"); got != "BTC/USD" {
		t.Errorf("wsPairToKey = %s, want BTC/USD", got)
	}
	if got := wsPairToKey("ETH/USD"); got != "ETH/USD" {
		t.Errorf("wsPairToKey = %s, want ETH/USD", got)
	}
}
