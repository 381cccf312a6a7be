package direct

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

const defaultTickerHost = "https://api.binance.com"

// TickerPrice is one spot ticker row.
type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// TickerClient queries a binance-style spot ticker endpoint. The cross-rate
// feed uses it to reach a more liquid market than the pair it publishes.
type TickerClient struct {
	host string
	http *httpx.Client
}

func NewTickerClient(host string, hc *httpx.Client) *TickerClient {
	if host == "" {
		host = defaultTickerHost
	}
	return &TickerClient{host: strings.TrimSuffix(host, "/"), http: hc}
}

// Price fetches the current spot price for one ticker symbol.
func (c *TickerClient) Price(ctx context.Context, symbol string) (TickerPrice, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.host, url.QueryEscape(strings.ToUpper(symbol)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return TickerPrice{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(ctx, req)
	if err != nil {
		return TickerPrice{}, &source.TransportError{Provider: providerName, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return TickerPrice{}, &source.ProtocolError{Provider: providerName, Status: res.StatusCode, Msg: strings.TrimSpace(string(b))}
	}

	var body TickerPrice
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return TickerPrice{}, &source.ProtocolError{Provider: providerName, Msg: fmt.Sprintf("decoding ticker response: %v", err)}
	}
	return body, nil
}
