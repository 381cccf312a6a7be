package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"pricebatcher/internal/httpx"
	"pricebatcher/internal/source"
)

const defaultHost = "https://pro-api.coingecko.com"

// Client queries the simple-price endpoint of a CoinGecko-style API.
type Client struct {
	host   string
	apiKey string
	http   *httpx.Client
}

func NewClient(host, apiKey string, hc *httpx.Client) *Client {
	if host == "" {
		host = defaultHost
	}
	return &Client{host: strings.TrimSuffix(host, "/"), apiKey: apiKey, http: hc}
}

// SimplePrice is one row of the simple-price response. Market cap, volume
// and the update timestamp are optional on the wire and default to zero.
type SimplePrice struct {
	USD           decimal.Decimal `json:"usd"`
	USDMarketCap  decimal.Decimal `json:"usd_market_cap"`
	USD24hVol     decimal.Decimal `json:"usd_24h_vol"`
	LastUpdatedAt int64           `json:"last_updated_at"`
}

// SimplePrices issues one batched query for all ids, vs USD, full precision.
func (c *Client) SimplePrices(ctx context.Context, ids []string) (map[string]SimplePrice, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	query.Set("precision", "full")
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")
	query.Set("include_last_updated_at", "true")

	u := fmt.Sprintf("%s/api/v3/simple/price?%s", c.host, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		// The pro and demo tiers expect different key headers.
		if strings.Contains(c.host, "pro-api") {
			req.Header.Set("x-cg-pro-api-key", c.apiKey)
		} else {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}
	}

	res, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &source.TransportError{Provider: providerName, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &source.ProtocolError{Provider: providerName, Status: res.StatusCode, Msg: strings.TrimSpace(string(b))}
	}

	var body map[string]SimplePrice
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &source.ProtocolError{Provider: providerName, Msg: fmt.Sprintf("decoding simple-price response: %v", err)}
	}
	return body, nil
}
