package storage

import (
	"math/big"
	"sync"
	"testing"

	"pricebatcher/internal/asset"
)

func record(blockchain, symbol string, price int64) asset.CoinInfo {
	return asset.CoinInfo{
		Symbol:     symbol,
		Name:       symbol,
		Blockchain: blockchain,
		Price:      big.NewInt(price),
		Supply:     new(big.Int),
	}
}

func TestLookup_EmptyBeforeFirstReplace(t *testing.T) {
	s := New()
	got := s.Lookup([]asset.AssetSpecifier{{Blockchain: "Polkadot", Symbol: "DOT"}})
	if len(got) != 0 {
		t.Fatalf("want empty result, got %d records", len(got))
	}
	if s.Len() != 0 {
		t.Fatalf("want empty snapshot, got %d", s.Len())
	}
}

func TestLookup_RequestOrderUnknownOmitted(t *testing.T) {
	s := New()
	s.Replace([]asset.CoinInfo{
		record("Polkadot", "DOT", 1),
		record("Stellar", "XLM", 2),
	})

	got := s.Lookup([]asset.AssetSpecifier{
		{Blockchain: "Stellar", Symbol: "XLM"},
		{Blockchain: "Bitcoin", Symbol: "BTC"}, // not in snapshot
		{Blockchain: "Polkadot", Symbol: "DOT"},
	})
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].Symbol != "XLM" || got[1].Symbol != "DOT" {
		t.Fatalf("records out of request order: %v, %v", got[0].Symbol, got[1].Symbol)
	}
}

func TestReplace_IsTotal(t *testing.T) {
	s := New()
	s.Replace([]asset.CoinInfo{
		record("Polkadot", "DOT", 1),
		record("Stellar", "XLM", 2),
	})
	s.Replace([]asset.CoinInfo{
		record("Polkadot", "DOT", 3),
	})

	if s.Len() != 1 {
		t.Fatalf("want 1 record after replacement, got %d", s.Len())
	}
	got := s.Lookup([]asset.AssetSpecifier{
		{Blockchain: "Stellar", Symbol: "XLM"},
		{Blockchain: "Polkadot", Symbol: "DOT"},
	})
	if len(got) != 1 || got[0].Symbol != "DOT" {
		t.Fatalf("stale record survived replacement: %+v", got)
	}
	if got[0].Price.Int64() != 3 {
		t.Fatalf("want updated price 3, got %s", got[0].Price)
	}
}

// Readers must always observe one snapshot in its entirety, never a mix of
// two cycles.
func TestLookup_ConsistentUnderConcurrentReplace(t *testing.T) {
	s := New()
	specs := []asset.AssetSpecifier{
		{Blockchain: "Polkadot", Symbol: "DOT"},
		{Blockchain: "Stellar", Symbol: "XLM"},
	}
	snapshotAt := func(price int64) []asset.CoinInfo {
		return []asset.CoinInfo{
			record("Polkadot", "DOT", price),
			record("Stellar", "XLM", price),
		}
	}
	s.Replace(snapshotAt(1))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				got := s.Lookup(specs)
				if len(got) != 2 {
					t.Errorf("torn snapshot: %d records", len(got))
					return
				}
				if got[0].Price.Cmp(got[1].Price) != 0 {
					t.Errorf("mixed cycles in one read: %s vs %s", got[0].Price, got[1].Price)
					return
				}
			}
		}()
	}

	for i := int64(2); i <= 200; i++ {
		s.Replace(snapshotAt(i))
	}
	close(done)
	wg.Wait()
}
