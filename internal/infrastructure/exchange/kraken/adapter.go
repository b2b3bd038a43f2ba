package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

const depthLevels = 10

// Adapter adapts the Kraken REST client to the application's exchange port.
type Adapter struct {
	client *Client
}

var _ port.Exchange = (*Adapter)(nil)

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// GetSnapshot fetches one ticker batch plus per-instrument depth. Ticker
// failure means no snapshot; depth failure only loses the depth fields.
func (a *Adapter) GetSnapshot(ctx context.Context, instruments []model.Instrument) (*model.MarketSnapshot, error) {
	pairs := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		pairs = append(pairs, PairCode(inst))
	}
	tickers, err := a.client.Ticker(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMarketDataUnavailable, err)
	}

	snap := &model.MarketSnapshot{
		Quotes: make(map[string]model.Quote, len(instruments)),
		Ts:     time.Now(),
	}
	for _, inst := range instruments {
		info, ok := lookupTicker(tickers, inst)
		if !ok {
			log.Warn().Str("instrument", inst.Key()).Msg("ticker missing from response")
			continue
		}
		q := model.Quote{
			Bid:       firstFloat(info.Bid),
			Ask:       firstFloat(info.Ask),
			Last:      firstFloat(info.Last),
			Volume24h: secondFloat(info.Volume),
		}
		if !q.Valid() {
			continue
		}
		if book, err := a.client.Depth(ctx, PairCode(inst), depthLevels); err == nil {
			q.BidDepth = notionalDepth(book.Bids)
			q.AskDepth = notionalDepth(book.Asks)
		} else {
			log.Debug().Err(err).Str("instrument", inst.Key()).Msg("depth fetch failed")
		}
		snap.Quotes[inst.Key()] = q
	}
	if len(snap.Quotes) == 0 {
		return nil, fmt.Errorf("%w: no usable tickers", model.ErrMarketDataUnavailable)
	}
	return snap, nil
}

// GetBalance returns the free balance of one currency. Kraken prefixes some
// asset codes (ZUSD, XXBT), so the exact code is tried first and the
// prefixed aliases after.
func (a *Adapter) GetBalance(ctx context.Context, currency string) (float64, error) {
	balances, err := a.client.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrBalanceUnavailable, err)
	}
	code := AssetCode(currency)
	for _, key := range []string{code, "Z" + code, "X" + code} {
		if v, ok := balances[key]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: bad amount %q", model.ErrBalanceUnavailable, v)
			}
			return f, nil
		}
	}
	// asset not present at all means a zero balance, not an error
	return 0, nil
}

// PlaceOrder submits one order and returns the exchange transaction id.
func (a *Adapter) PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	txid, err := a.client.AddOrder(ctx, PairCode(req.Instrument), req.Side, req.Type, req.Volume, req.Price)
	if err != nil {
		if isRejection(err) {
			return "", &model.OrderRejectedError{Reason: err.Error()}
		}
		return "", err
	}
	return txid, nil
}

// isRejection tells order rejections (EOrder:* / EGeneral:Invalid) apart
// from transport failures.
func isRejection(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "EOrder:") || strings.Contains(msg, "EGeneral:Invalid")
}

// AssetCode maps a currency symbol to Kraken's asset code (BTC is XBT).
func AssetCode(currency string) string {
	if currency == "BTC" {
		return "XBT"
	}
	return currency
}

// PairCode builds Kraken's concatenated pair code for an instrument.
func PairCode(inst model.Instrument) string {
	return AssetCode(inst.Base) + AssetCode(inst.Quote)
}

// lookupTicker finds an instrument's entry in the ticker response. Kraken
// keys results by its internal pair name (XXBTZUSD), so the plain code and
// the X/Z-prefixed form are both tried.
func lookupTicker(tickers map[string]TickerInfo, inst model.Instrument) (TickerInfo, bool) {
	base := AssetCode(inst.Base)
	quote := AssetCode(inst.Quote)
	for _, key := range []string{
		base + quote,
		"X" + base + "Z" + quote,
		"X" + base + quote,
		base + "Z" + quote,
	} {
		if info, ok := tickers[key]; ok {
			return info, true
		}
	}
	return TickerInfo{}, false
}

func firstFloat(vals []string) float64 {
	if len(vals) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(vals[0], 64)
	return f
}

func secondFloat(vals []string) float64 {
	if len(vals) < 2 {
		return firstFloat(vals)
	}
	f, _ := strconv.ParseFloat(vals[1], 64)
	return f
}

// notionalDepth sums price*volume over the book levels.
func notionalDepth(levels [][]json.Number) float64 {
	var total float64
	for _, lvl := range levels {
		if len(lvl) < 2 {
			continue
		}
		price, _ := lvl[0].Float64()
		vol, _ := lvl[1].Float64()
		total += price * vol
	}
	return total
}
