// Package binance prices coins from the public Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.binance.com"

// codeInvalidSymbol is the API error code for an unknown trading pair.
const codeInvalidSymbol = -1121

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Coins   market.Registry

	now func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithTimeout sets the timeout of the current HTTP client. Apply it
// after WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTP.Timeout = d }
}

func WithCoins(r market.Registry) Option {
	return func(c *Client) { c.Coins = r }
}

// New returns a client for the preset coins. The default HTTP client
// times out after 10s and honours HTTPS_PROXY / HTTP_PROXY.
func New(opts ...Option) *Client {
	c := &Client{
		BaseURL: DefaultBaseURL,
		HTTP: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		Coins: market.PresetCoins,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type ticker24h struct {
	Symbol             string          `json:"symbol"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// GetMarketData prices coinID from its USDT pair. Binance has no market
// cap, the 24h quote volume stands in for it.
func (c *Client) GetMarketData(ctx context.Context, coinID string) (market.Snapshot, error) {
	coin, err := c.Coins.Lookup(coinID)
	if err != nil {
		return market.Snapshot{}, err
	}

	var tp tickerPrice
	if err := c.get(ctx, "/api/v3/ticker/price", coin.Pair, &tp); err != nil {
		return market.Snapshot{}, err
	}
	var stats ticker24h
	if err := c.get(ctx, "/api/v3/ticker/24hr", coin.Pair, &stats); err != nil {
		return market.Snapshot{}, err
	}

	return market.Snapshot{
		CoinID:           coin.ID,
		Symbol:           coin.Symbol,
		Name:             coin.Name,
		Price:            tp.Price,
		Change24hPercent: stats.PriceChangePercent,
		MarketCap:        stats.QuoteVolume,
		Volume24h:        stats.Volume,
		Time:             c.now(),
	}, nil
}

func (c *Client) get(ctx context.Context, path, pair string, out any) error {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	u.Path = path
	q := u.Query()
	q.Set("symbol", pair)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", market.ErrFeedUnavailable, path, pair, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr apiError
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return fmt.Errorf("%w: %s: %s", market.ErrUnsupportedSymbol, pair, apiErr.Msg)
		}
		return fmt.Errorf("%w: binance http %d: %s", market.ErrFeedUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(market.ErrFeedUnavailable, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}
