package direct

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/httpx"
	"pricebatcher/internal/source"
)

// IndexFeed resolves the price of exactly one designated asset via a
// single-field query against one fixed endpoint.
type IndexFeed struct {
	asset    asset.AssetSpecifier
	endpoint string
	http     *httpx.Client
}

func NewIndexFeed(a asset.AssetSpecifier, endpoint string, hc *httpx.Client) *IndexFeed {
	return &IndexFeed{asset: a, endpoint: endpoint, http: hc}
}

func (f *IndexFeed) Name() string { return "index:" + f.asset.Symbol }

func (f *IndexFeed) Supports(a asset.AssetSpecifier) bool {
	return strings.EqualFold(a.Blockchain, f.asset.Blockchain) &&
		strings.EqualFold(a.Symbol, f.asset.Symbol)
}

type indexResponse struct {
	Price decimal.Decimal `json:"price"`
}

func (f *IndexFeed) Price(ctx context.Context, _ asset.AssetSpecifier) (asset.Quotation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, http.NoBody)
	if err != nil {
		return asset.Quotation{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.http.Do(ctx, req)
	if err != nil {
		return asset.Quotation{}, &source.TransportError{Provider: f.Name(), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return asset.Quotation{}, &source.ProtocolError{Provider: f.Name(), Status: res.StatusCode, Msg: strings.TrimSpace(string(b))}
	}

	var body indexResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return asset.Quotation{}, &source.ProtocolError{Provider: f.Name(), Msg: fmt.Sprintf("decoding index response: %v", err)}
	}

	return asset.Quotation{
		Symbol:     f.asset.Symbol,
		Name:       f.asset.Symbol,
		Blockchain: f.asset.Blockchain,
		Price:      body.Price,
		Time:       time.Now().UTC(),
	}, nil
}
