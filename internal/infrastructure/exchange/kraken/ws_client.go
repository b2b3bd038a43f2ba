package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

// TickerFeed streams Kraken public ticker updates over the v1 websocket API.
type TickerFeed struct {
	wsURL string // e.g. wss://ws.kraken.com
}

var _ port.PriceFeed = (*TickerFeed)(nil)

func NewTickerFeed(wsURL string) *TickerFeed {
	return &TickerFeed{wsURL: strings.TrimSpace(wsURL)}
}

func (f *TickerFeed) Name() string { return "kraken" }

// wsPair is the "XBT/USD" form the websocket API subscribes with.
func wsPair(inst model.Instrument) string {
	return AssetCode(inst.Base) + "/" + AssetCode(inst.Quote)
}

// wsPairToKey inverts wsPair back to the instrument key form.
func wsPairToKey(pair string) string {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 {
		return pair
	}
	base := parts[0]
	if base == "XBT" {
		base = "BTC"
	}
	return base + "/" + parts[1]
}

func (f *TickerFeed) Subscribe(ctx context.Context, instruments []model.Instrument) (<-chan port.Tick, error) {
	if f.wsURL == "" {
		return nil, errors.New("kraken ws url empty")
	}
	pairs := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		pairs = append(pairs, wsPair(inst))
	}
	if len(pairs) == 0 {
		return nil, errors.New("no instruments to subscribe")
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, pairs, out)
	return out, nil
}

type subscribeMsg struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

func (f *TickerFeed) run(ctx context.Context, pairs []string, out chan<- port.Tick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		sub := subscribeMsg{Event: "subscribe", Pair: pairs}
		sub.Subscription.Name = "ticker"
		if err := conn.WriteJSON(sub); err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws subscribe failed")
			_ = conn.Close()
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Strs("pairs", pairs).Msg("ws connected")

		err = readLoop(ctx, conn, func(b []byte) {
			tick, ok := parseTickerMessage(b)
			if !ok {
				return
			}
			select {
			case out <- tick:
			case <-ctx.Done():
			}
		})

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = minDur(backoff*2, maxBackoff)
	}
}

// parseTickerMessage decodes Kraken's array-framed ticker updates:
// [channelID, {"c":["price","vol"],...}, "ticker", "XBT/USD"].
// Event objects (heartbeat, subscriptionStatus) are skipped.
func parseTickerMessage(b []byte) (port.Tick, bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(b, &frame); err != nil || len(frame) < 4 {
		return port.Tick{}, false
	}
	var channel, pair string
	if json.Unmarshal(frame[2], &channel) != nil || !strings.HasPrefix(channel, "ticker") {
		return port.Tick{}, false
	}
	if json.Unmarshal(frame[len(frame)-1], &pair) != nil || pair == "" {
		return port.Tick{}, false
	}
	var payload struct {
		Close []string `json:"c"`
	}
	if json.Unmarshal(frame[1], &payload) != nil || len(payload.Close) == 0 {
		return port.Tick{}, false
	}
	price, err := strconv.ParseFloat(payload.Close[0], 64)
	if err != nil || price <= 0 {
		return port.Tick{}, false
	}
	return port.Tick{
		Instrument: wsPairToKey(pair),
		Price:      price,
		Ts:         time.Now().UnixMilli(),
	}, true
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			}
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	// Close the connection and join the reader before returning, so the
	// caller may tear down whatever onMsg writes to without racing a send.
	defer func() {
		_ = conn.Close()
		<-errCh
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
