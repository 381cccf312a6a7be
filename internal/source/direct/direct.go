package direct

import (
	"context"

	"go.uber.org/zap"

	"pricebatcher/internal/asset"
	"pricebatcher/internal/source"
)

const providerName = "Direct"

// Feed is one single-purpose price feed.
type Feed interface {
	Name() string
	Supports(a asset.AssetSpecifier) bool
	Price(ctx context.Context, a asset.AssetSpecifier) (asset.Quotation, error)
}

// Source tries the registered feeds in order; the first feed whose predicate
// matches owns the asset.
type Source struct {
	feeds []Feed
	log   *zap.Logger
}

func New(log *zap.Logger, feeds ...Feed) *Source {
	return &Source{feeds: feeds, log: log}
}

func (s *Source) Name() string { return providerName }

func (s *Source) Supports(a asset.AssetSpecifier) bool {
	return s.feed(a) != nil
}

func (s *Source) feed(a asset.AssetSpecifier) Feed {
	for _, f := range s.feeds {
		if f.Supports(a) {
			return f
		}
	}
	return nil
}

// Quote resolves each asset through its owning feed. Feeds are independent:
// a failing feed drops only its own asset.
func (s *Source) Quote(ctx context.Context, assets []asset.AssetSpecifier) ([]asset.Quotation, error) {
	out := make([]asset.Quotation, 0, len(assets))
	for _, a := range assets {
		f := s.feed(a)
		if f == nil {
			s.log.Warn("dropping asset", zap.String("asset", a.String()), zap.Error(source.ErrUnsupportedAsset))
			continue
		}
		q, err := f.Price(ctx, a)
		if err != nil {
			s.log.Warn("direct feed failed", zap.String("feed", f.Name()), zap.String("asset", a.String()), zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
