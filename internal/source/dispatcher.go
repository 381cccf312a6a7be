package source

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/metrics"
)

// Dispatcher owns the priority ordering among source categories. For each
// asset the first source (in registration order, highest priority first)
// whose Supports predicate matches owns that asset exclusively for the
// cycle, even when a lower-priority source would also support it.
type Dispatcher struct {
	sources []Source
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewDispatcher builds a dispatcher over sources given in priority order,
// highest first.
func NewDispatcher(log *zap.Logger, m *metrics.Metrics, sources ...Source) *Dispatcher {
	return &Dispatcher{sources: sources, log: log, metrics: m}
}

// GetQuotations resolves the asset universe through the owning sources and
// merges the results. It never fails as a whole: a failed batched call drops
// only that category's assets for the cycle, unsupported assets are dropped
// with a warning, and non-positive prices are filtered here uniformly for
// every category.
func (d *Dispatcher) GetQuotations(ctx context.Context, assets []asset.AssetSpecifier) []asset.Quotation {
	buckets := make([][]asset.AssetSpecifier, len(d.sources))
	for _, a := range assets {
		owned := false
		for i, s := range d.sources {
			if s.Supports(a) {
				buckets[i] = append(buckets[i], a)
				owned = true
				break
			}
		}
		if !owned {
			d.log.Warn("dropping asset", zap.String("asset", a.String()), zap.Error(ErrUnsupportedAsset))
		}
	}

	// Categories fetch concurrently; ownership was already resolved above,
	// so merge order cannot change which source prices an asset.
	results := make([][]asset.Quotation, len(d.sources))
	var g errgroup.Group
	for i, s := range d.sources {
		if len(buckets[i]) == 0 {
			continue
		}
		i, s := i, s
		g.Go(func() error {
			quotes, err := s.Quote(ctx, buckets[i])
			if err != nil {
				d.log.Warn("source batch failed, dropping its assets for this cycle",
					zap.String("source", s.Name()),
					zap.Int("assets", len(buckets[i])),
					zap.Error(err))
				if d.metrics != nil {
					d.metrics.SourceErrors.WithLabelValues(s.Name()).Inc()
				}
				return nil
			}
			results[i] = quotes
			return nil
		})
	}
	_ = g.Wait()

	out := make([]asset.Quotation, 0, len(assets))
	for i, quotes := range results {
		for _, q := range quotes {
			if !q.Price.IsPositive() {
				d.log.Warn("dropping non-positive price",
					zap.String("source", d.sources[i].Name()),
					zap.String("symbol", q.Symbol),
					zap.String("price", q.Price.String()))
				continue
			}
			out = append(out, q)
		}
	}
	return out
}
