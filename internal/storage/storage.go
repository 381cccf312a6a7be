package storage

import (
	"sync/atomic"

	"pricebatcher/internal/asset"
)

// CoinInfoStorage holds the currently published snapshot behind a single
// atomic pointer. The updater is the only writer; readers dereference the
// pointer and never block the writer or each other. A reader that loaded the
// old snapshot keeps seeing it in its entirety until it loads again.
type CoinInfoStorage struct {
	snapshot atomic.Pointer[map[asset.AssetSpecifier]asset.CoinInfo]
}

// New returns storage primed with an empty snapshot so readers are valid
// before the first update cycle completes.
func New() *CoinInfoStorage {
	s := &CoinInfoStorage{}
	empty := map[asset.AssetSpecifier]asset.CoinInfo{}
	s.snapshot.Store(&empty)
	return s
}

// Replace builds a brand-new snapshot from records and swaps it in. Assets
// absent from records disappear; there is no carry-over from the previous
// snapshot.
func (s *CoinInfoStorage) Replace(records []asset.CoinInfo) {
	next := make(map[asset.AssetSpecifier]asset.CoinInfo, len(records))
	for _, r := range records {
		next[r.Specifier()] = r
	}
	s.snapshot.Store(&next)
}

// Lookup returns the records present in the current snapshot for the given
// keys, in request order. Unknown keys are silently omitted.
func (s *CoinInfoStorage) Lookup(specs []asset.AssetSpecifier) []asset.CoinInfo {
	snap := *s.snapshot.Load()
	out := make([]asset.CoinInfo, 0, len(specs))
	for _, spec := range specs {
		if c, ok := snap[spec]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Len reports the number of records in the current snapshot.
func (s *CoinInfoStorage) Len() int {
	return len(*s.snapshot.Load())
}
