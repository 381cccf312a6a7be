package fiat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"pricebatcher/internal/source"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fiat_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultBaseURL = "https://api.polygon.io"

// Client is a client for the forex ticker-snapshot API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// ClientOption is a configuration option for the snapshot client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new snapshot client authenticated with apiKey.
func NewClient(apiKey string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	if apiKey != "" {
		client.header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// TickerSnapshot is one row of the snapshot response. Timestamps are epoch
// nanoseconds.
type TickerSnapshot struct {
	Ticker    string `json:"ticker"`
	LastQuote struct {
		Bid       decimal.Decimal `json:"b"`
		Ask       decimal.Decimal `json:"a"`
		Timestamp int64           `json:"t"`
	} `json:"lastQuote"`
	PrevDay struct {
		Close decimal.Decimal `json:"c"`
	} `json:"prevDay"`
	Updated int64 `json:"updated"`
}

type snapshotResponse struct {
	Status  string           `json:"status"`
	Tickers []TickerSnapshot `json:"tickers"`
}

// Snapshots fetches the snapshot rows for the given ticker ids in a single
// request. Tickers unknown to the upstream are simply absent from the result.
func (c *Client) Snapshots(ctx context.Context, tickers []string) ([]TickerSnapshot, error) {
	query := url.Values{}
	query.Set("tickers", strings.Join(tickers, ","))

	u := fmt.Sprintf("%s/v2/snapshot/locale/global/markets/forex/tickers?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.TransportError{Provider: providerName, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &source.ProtocolError{Provider: providerName, Status: res.StatusCode, Msg: strings.TrimSpace(string(b))}
	}

	var body snapshotResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &source.ProtocolError{Provider: providerName, Msg: fmt.Sprintf("decoding snapshot response: %v", err)}
	}
	return body.Tickers, nil
}
