package fiat

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricebatcher/internal/asset"
)

const providerName = "Fiat"

// Source resolves FIAT:<FROM>-USD pairs through one batched ticker-snapshot
// request per cycle. USD-USD is answered locally: a dollar is worth a dollar.
type Source struct {
	client *Client
	log    *zap.Logger
}

func New(client *Client, log *zap.Logger) *Source {
	return &Source{client: client, log: log}
}

func (s *Source) Name() string { return providerName }

func (s *Source) Supports(a asset.AssetSpecifier) bool {
	_, ok := sourceCurrency(a)
	return ok
}

// sourceCurrency extracts the FROM currency of a FIAT <FROM>-<TO> symbol.
// Malformed symbols and non-USD targets are unsupported.
func sourceCurrency(a asset.AssetSpecifier) (string, bool) {
	if !strings.EqualFold(a.Blockchain, "FIAT") {
		return "", false
	}
	parts := strings.Split(a.Symbol, "-")
	if len(parts) != 2 {
		return "", false
	}
	from, to := strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
	if from == "" || to != "USD" {
		return "", false
	}
	return from, true
}

// Quote batches every requested FROM currency into a single snapshot request
// and reverse-maps the returned tickers to the originating assets. A ticker
// with neither a positive bid nor a positive previous close is dropped with
// a warning; a failed batch drops all assets assigned to it.
func (s *Source) Quote(ctx context.Context, assets []asset.AssetSpecifier) ([]asset.Quotation, error) {
	now := time.Now().UTC()
	out := make([]asset.Quotation, 0, len(assets))
	assetByTicker := make(map[string]asset.AssetSpecifier, len(assets))
	tickers := make([]string, 0, len(assets))

	for _, a := range assets {
		from, ok := sourceCurrency(a)
		if !ok {
			s.log.Warn("unsupported fiat asset", zap.String("asset", a.String()))
			continue
		}
		if from == "USD" {
			out = append(out, asset.Quotation{
				Symbol:     a.Symbol,
				Name:       a.Symbol,
				Blockchain: "FIAT",
				Price:      decimal.NewFromInt(1),
				Time:       now,
			})
			continue
		}
		ticker := "C:" + from + "USD"
		assetByTicker[ticker] = a
		tickers = append(tickers, ticker)
	}

	if len(tickers) == 0 {
		return out, nil
	}

	rows, err := s.client.Snapshots(ctx, tickers)
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		// USD-USD needed no upstream call, keep it.
		s.log.Warn("fiat snapshot batch failed", zap.Int("assets", len(tickers)), zap.Error(err))
		return out, nil
	}

	for _, row := range rows {
		a, ok := assetByTicker[row.Ticker]
		if !ok {
			continue
		}
		price, ok := selectPrice(row)
		if !ok {
			s.log.Warn("no usable quote for ticker", zap.String("ticker", row.Ticker), zap.String("asset", a.String()))
			continue
		}
		out = append(out, asset.Quotation{
			Symbol:     a.Symbol,
			Name:       a.Symbol,
			Blockchain: "FIAT",
			Price:      price,
			Time:       rowTime(row, now),
		})
	}
	return out, nil
}

// selectPrice picks the most recent bid when strictly positive, falling back
// to the previous trading day's close. Zero and negative values are unusable.
func selectPrice(row TickerSnapshot) (decimal.Decimal, bool) {
	if row.LastQuote.Bid.IsPositive() {
		return row.LastQuote.Bid, true
	}
	if row.PrevDay.Close.IsPositive() {
		return row.PrevDay.Close, true
	}
	return decimal.Decimal{}, false
}

func rowTime(row TickerSnapshot, fallback time.Time) time.Time {
	ts := row.Updated
	if row.LastQuote.Timestamp > ts {
		ts = row.LastQuote.Timestamp
	}
	if ts <= 0 {
		return fallback
	}
	return time.Unix(0, ts).UTC()
}
