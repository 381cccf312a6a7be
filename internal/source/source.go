package source

import (
	"context"
	"errors"
	"fmt"

	"pricebatcher/internal/asset"
)

// Source is one category of upstream price feeds. Supports is a pure
// predicate over configuration; Quote resolves a batch and may partially
// succeed, returning whatever subset it could price.
type Source interface {
	Name() string
	Supports(a asset.AssetSpecifier) bool
	Quote(ctx context.Context, assets []asset.AssetSpecifier) ([]asset.Quotation, error)
}

// ErrUnsupportedAsset marks an asset no source claims.
var ErrUnsupportedAsset = errors.New("no source supports asset")

// TransportError reports an upstream request that never produced a response.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a non-success status or a payload that could not be
// decoded.
type ProtocolError struct {
	Provider string
	Status   int
	Msg      string
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}
