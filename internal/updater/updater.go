package updater

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/convert"
	"pricebatcher/internal/metrics"
	"pricebatcher/internal/storage"
)

// Dispatcher provides quotations for the configured asset universe. It never
// fails as a whole; a bad cycle is simply a small or empty result.
type Dispatcher interface {
	GetQuotations(ctx context.Context, assets []asset.AssetSpecifier) []asset.Quotation
}

// Updater drives the fetch, convert, replace cycle at a fixed cadence. It is
// started once at process start and is the sole writer of the storage.
type Updater struct {
	storage    *storage.CoinInfoStorage
	dispatcher Dispatcher
	assets     []asset.AssetSpecifier
	interval   time.Duration
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(store *storage.CoinInfoStorage, d Dispatcher, assets []asset.AssetSpecifier, interval time.Duration, log *zap.Logger, m *metrics.Metrics) *Updater {
	return &Updater{
		storage:    store,
		dispatcher: d,
		assets:     assets,
		interval:   interval,
		log:        log,
		metrics:    m,
	}
}

// Run executes cycles until ctx is canceled. A cycle that overran the
// interval is followed immediately by the next one, so the cadence corrects
// itself instead of drifting; a cycle never runs twice for one tick.
func (u *Updater) Run(ctx context.Context) {
	for {
		start := time.Now()
		u.RunOnce(ctx)

		timer := time.NewTimer(sleepFor(u.interval, time.Since(start)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single update cycle: dispatch the universe, convert
// every quotation to its fixed-point form and replace the snapshot with
// whatever converted. Assets that failed conversion are dropped for this
// cycle only and logged as errors.
func (u *Updater) RunOnce(ctx context.Context) {
	cycle := uuid.NewString()
	start := time.Now()

	quotes := u.dispatcher.GetQuotations(ctx, u.assets)

	records := make([]asset.CoinInfo, 0, len(quotes))
	for _, q := range quotes {
		record, err := toCoinInfo(q)
		if err != nil {
			u.log.Error("converting quotation",
				zap.String("cycle", cycle),
				zap.String("symbol", q.Symbol),
				zap.Error(err))
			if u.metrics != nil {
				u.metrics.ConversionErrors.Inc()
			}
			continue
		}
		records = append(records, record)
	}
	u.storage.Replace(records)

	elapsed := time.Since(start)
	if u.metrics != nil {
		u.metrics.CycleDuration.Observe(elapsed.Seconds())
		u.metrics.PublishedRecords.Set(float64(len(records)))
	}
	u.log.Info("currencies updated",
		zap.String("cycle", cycle),
		zap.Int("requested", len(u.assets)),
		zap.Int("published", len(records)),
		zap.Duration("elapsed", elapsed))
}

// sleepFor is the self-correcting pause between cycles: zero, never
// negative, when the cycle overran the interval.
func sleepFor(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// toCoinInfo converts one quotation to its fixed-point published form.
// Supply is published as zero until a reliable supply feed exists.
func toCoinInfo(q asset.Quotation) (asset.CoinInfo, error) {
	price, err := convert.DecimalToScaled(q.Price)
	if err != nil {
		return asset.CoinInfo{}, fmt.Errorf("price for %s: %w", q.Symbol, err)
	}
	blockchain := q.Blockchain
	if blockchain == "" {
		blockchain = "FIAT"
	}
	ts := q.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return asset.CoinInfo{
		Symbol:              q.Symbol,
		Name:                q.Name,
		Blockchain:          blockchain,
		Price:               price,
		Supply:              new(big.Int),
		LastUpdateTimestamp: uint64(ts.Unix()),
	}, nil
}
