package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client Kraken REST 客户端：公共行情 + 私有下单/余额
type Client struct {
	baseURL string
	key     string
	secret  string
	client  *http.Client
	nonce   func() int64
}

func NewClient(baseURL, key, secret string) *Client {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		secret:  secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		nonce: func() int64 { return time.Now().UnixMilli() },
	}
}

// TickerInfo 单个交易对的 ticker 字段（Kraken 原始形状）
type TickerInfo struct {
	Ask    []string `json:"a"` // [price, whole lot volume, lot volume]
	Bid    []string `json:"b"`
	Last   []string `json:"c"` // [price, lot volume]
	Volume []string `json:"v"` // [today, last 24h]
}

// DepthInfo 盘口深度（价格、数量、时间戳三元组）
type DepthInfo struct {
	Asks [][]json.Number `json:"asks"`
	Bids [][]json.Number `json:"bids"`
}

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Ticker fetches ticker information for the given pair codes.
func (c *Client) Ticker(ctx context.Context, pairs []string) (map[string]TickerInfo, error) {
	params := url.Values{"pair": {strings.Join(pairs, ",")}}
	raw, err := c.public(ctx, "Ticker", params)
	if err != nil {
		return nil, err
	}
	var out map[string]TickerInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("kraken ticker decode: %w", err)
	}
	return out, nil
}

// Depth fetches the top-count order book levels of one pair.
func (c *Client) Depth(ctx context.Context, pair string, count int) (*DepthInfo, error) {
	if count <= 0 {
		count = 10
	}
	params := url.Values{
		"pair":  {pair},
		"count": {strconv.Itoa(count)},
	}
	raw, err := c.public(ctx, "Depth", params)
	if err != nil {
		return nil, err
	}
	var book map[string]DepthInfo
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("kraken depth decode: %w", err)
	}
	// result is keyed by the (possibly aliased) pair code; take the only entry
	for _, d := range book {
		di := d
		return &di, nil
	}
	return nil, fmt.Errorf("kraken depth: empty result for %s", pair)
}

// Balance fetches account balances keyed by asset code.
func (c *Client) Balance(ctx context.Context) (map[string]string, error) {
	raw, err := c.private(ctx, "Balance", url.Values{})
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("kraken balance decode: %w", err)
	}
	return out, nil
}

type addOrderResult struct {
	TxIDs []string `json:"txid"`
}

// AddOrder places one order and returns the transaction id.
func (c *Client) AddOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (string, error) {
	data := url.Values{
		"pair":      {pair},
		"type":      {side},
		"ordertype": {orderType},
		"volume":    {strconv.FormatFloat(volume, 'f', 8, 64)},
	}
	if price > 0 {
		data.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	}
	raw, err := c.private(ctx, "AddOrder", data)
	if err != nil {
		return "", err
	}
	var res addOrderResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("kraken addorder decode: %w", err)
	}
	if len(res.TxIDs) == 0 {
		return "", fmt.Errorf("kraken addorder: no txid returned")
	}
	return res.TxIDs[0], nil
}

func (c *Client) public(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/0/public/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) private(ctx context.Context, endpoint string, data url.Values) (json.RawMessage, error) {
	path := "/0/private/" + endpoint
	data.Set("nonce", strconv.FormatInt(c.nonce(), 10))
	body := data.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	sig, err := c.sign(path, data.Get("nonce"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.key)
	req.Header.Set("API-Sign", sig)
	return c.do(req)
}

// sign computes API-Sign: HMAC-SHA512 of path + SHA256(nonce + postdata),
// keyed with the base64-decoded secret.
func (c *Client) sign(path, nonce, body string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.secret)
	if err != nil {
		return "", fmt.Errorf("kraken secret decode: %w", err)
	}
	sum := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(sum[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("kraken api error: %d %s", resp.StatusCode, string(b))
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("kraken response decode: %w", err)
	}
	if len(env.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %s", strings.Join(env.Error, "; "))
	}
	return env.Result, nil
}
