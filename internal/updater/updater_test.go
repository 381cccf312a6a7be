package updater

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/storage"
)

type dispatcherFunc func(ctx context.Context, assets []asset.AssetSpecifier) []asset.Quotation

func (f dispatcherFunc) GetQuotations(ctx context.Context, assets []asset.AssetSpecifier) []asset.Quotation {
	return f(ctx, assets)
}

func staticDispatcher(quotes ...asset.Quotation) Dispatcher {
	return dispatcherFunc(func(context.Context, []asset.AssetSpecifier) []asset.Quotation {
		return quotes
	})
}

func quote(blockchain, symbol, price string) asset.Quotation {
	return asset.Quotation{
		Symbol:     symbol,
		Name:       symbol,
		Blockchain: blockchain,
		Price:      decimal.RequireFromString(price),
		Time:       time.Unix(1700000000, 0).UTC(),
	}
}

func specs(quotes ...asset.Quotation) []asset.AssetSpecifier {
	out := make([]asset.AssetSpecifier, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, asset.AssetSpecifier{Blockchain: q.Blockchain, Symbol: q.Symbol})
	}
	return out
}

func TestRunOnce_PublishesScaledPrices(t *testing.T) {
	quotes := []asset.Quotation{
		quote("Bitcoin", "BTC", "1"),
		quote("Ethereum", "ETH", "1.000000000000"),
		quote("Ethereum", "USDT", "1.000000000001"),
		quote("Ethereum", "USDC", "123456789.123456789012345"),
	}
	store := storage.New()
	u := New(store, staticDispatcher(quotes...), specs(quotes...), time.Second, zap.NewNop(), nil)

	u.RunOnce(context.Background())

	want := map[string]string{
		"BTC":  "1000000000000",
		"ETH":  "1000000000000",
		"USDT": "1000000000001",
		"USDC": "123456789123456789012",
	}
	records := store.Lookup(specs(quotes...))
	if len(records) != len(want) {
		t.Fatalf("want %d records, got %d", len(want), len(records))
	}
	for _, r := range records {
		if r.Price.String() != want[r.Symbol] {
			t.Fatalf("%s: price %s, want %s", r.Symbol, r.Price, want[r.Symbol])
		}
		if r.Supply.Sign() != 0 {
			t.Fatalf("%s: supply should be zero, got %s", r.Symbol, r.Supply)
		}
		if r.LastUpdateTimestamp != 1700000000 {
			t.Fatalf("%s: timestamp %d", r.Symbol, r.LastUpdateTimestamp)
		}
	}
}

func TestRunOnce_ReplacesWholeSnapshot(t *testing.T) {
	btc := quote("Bitcoin", "BTC", "50000")
	eth := quote("Ethereum", "ETH", "3000")

	store := storage.New()
	u := New(store, staticDispatcher(btc, eth), specs(btc, eth), time.Second, zap.NewNop(), nil)
	u.RunOnce(context.Background())
	if store.Len() != 2 {
		t.Fatalf("first cycle: want 2 records, got %d", store.Len())
	}

	// Next cycle the dispatcher only returns BTC; ETH must vanish.
	u = New(store, staticDispatcher(btc), specs(btc, eth), time.Second, zap.NewNop(), nil)
	u.RunOnce(context.Background())

	if store.Len() != 1 {
		t.Fatalf("second cycle: want 1 record, got %d", store.Len())
	}
	if got := store.Lookup(specs(eth)); len(got) != 0 {
		t.Fatalf("stale record survived: %+v", got)
	}
}

func TestRunOnce_OverflowDropsOnlyThatAsset(t *testing.T) {
	good := quote("Bitcoin", "BTC", "50000")
	huge := quote("Ethereum", "BAD", "10000000000000000000000000000") // 1e28, over 2^128 once scaled

	store := storage.New()
	u := New(store, staticDispatcher(good, huge), specs(good, huge), time.Second, zap.NewNop(), nil)
	u.RunOnce(context.Background())

	records := store.Lookup(specs(good, huge))
	if len(records) != 1 || records[0].Symbol != "BTC" {
		t.Fatalf("want only the convertible record, got %+v", records)
	}
}

func TestRunOnce_EmptyBlockchainDefaultsToFiat(t *testing.T) {
	q := quote("", "MXN-USD", "0.053712327")

	store := storage.New()
	u := New(store, staticDispatcher(q), nil, time.Second, zap.NewNop(), nil)
	u.RunOnce(context.Background())

	records := store.Lookup([]asset.AssetSpecifier{{Blockchain: "FIAT", Symbol: "MXN-USD"}})
	if len(records) != 1 {
		t.Fatalf("want the record under FIAT, got %+v", records)
	}
	if records[0].Price.String() != "53712327000" {
		t.Fatalf("price = %s", records[0].Price)
	}
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	store := storage.New()
	u := New(store, staticDispatcher(), nil, time.Hour, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSleepFor(t *testing.T) {
	cases := []struct {
		interval, elapsed, want time.Duration
	}{
		{10 * time.Second, 4 * time.Second, 6 * time.Second},
		{10 * time.Second, 10 * time.Second, 0},
		{10 * time.Second, 12 * time.Second, 0},
		{0, time.Millisecond, 0},
	}
	for _, c := range cases {
		if got := sleepFor(c.interval, c.elapsed); got != c.want {
			t.Fatalf("sleepFor(%v, %v) = %v, want %v", c.interval, c.elapsed, got, c.want)
		}
	}
}
