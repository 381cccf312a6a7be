package direct

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pricebatcher/internal/asset"
)

var bpsDivisor = decimal.NewFromInt(10_000)

// CrossRateFeed derives a designated fiat pair as the reciprocal of a more
// liquid USDT market pair, e.g. FIAT:BRL-USD from the USDTBRL ticker. An
// optional basis-point markdown is applied to the inverted price, yielding a
// slightly favorable sell rate.
type CrossRateFeed struct {
	asset       asset.AssetSpecifier
	ticker      string
	markdownBps int64
	client      *TickerClient
}

func NewCrossRateFeed(a asset.AssetSpecifier, ticker string, markdownBps int64, client *TickerClient) *CrossRateFeed {
	return &CrossRateFeed{asset: a, ticker: ticker, markdownBps: markdownBps, client: client}
}

func (f *CrossRateFeed) Name() string { return "crossrate:" + f.asset.Symbol }

func (f *CrossRateFeed) Supports(a asset.AssetSpecifier) bool {
	return strings.EqualFold(a.Blockchain, f.asset.Blockchain) &&
		strings.EqualFold(a.Symbol, f.asset.Symbol)
}

func (f *CrossRateFeed) Price(ctx context.Context, _ asset.AssetSpecifier) (asset.Quotation, error) {
	upstream, err := f.client.Price(ctx, f.ticker)
	if err != nil {
		return asset.Quotation{}, err
	}

	// A zero upstream quote inverts to zero, not a panic; the dispatcher's
	// non-positive filter drops it.
	price := decimal.Zero
	if !upstream.Price.IsZero() {
		price = decimal.NewFromInt(1).Div(upstream.Price)
	}
	if f.markdownBps > 0 {
		markdown := price.Mul(decimal.NewFromInt(f.markdownBps)).Div(bpsDivisor)
		price = price.Sub(markdown)
	}

	return asset.Quotation{
		Symbol:     f.asset.Symbol,
		Name:       f.asset.Symbol,
		Blockchain: f.asset.Blockchain,
		Price:      price,
		Time:       time.Now().UTC(),
	}, nil
}
