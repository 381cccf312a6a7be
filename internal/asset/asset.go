package asset

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetSpecifier identifies one trackable asset. Identity is exact-string
// equality of both fields; individual sources may normalize case internally
// before matching.
type AssetSpecifier struct {
	Blockchain string `json:"blockchain"`
	Symbol     string `json:"symbol"`
}

func (a AssetSpecifier) String() string {
	return a.Blockchain + ":" + a.Symbol
}

// Parse parses a "blockchain:symbol" entry. Fiat pairs use the form
// "FIAT:<FROM>-<TO>".
func Parse(s string) (AssetSpecifier, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AssetSpecifier{}, fmt.Errorf("invalid asset %q: want blockchain:symbol", s)
	}
	return AssetSpecifier{Blockchain: parts[0], Symbol: parts[1]}, nil
}

// ParseAll parses a list of "blockchain:symbol" entries.
func ParseAll(entries []string) ([]AssetSpecifier, error) {
	out := make([]AssetSpecifier, 0, len(entries))
	for _, e := range entries {
		a, err := Parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Quotation is one source's fresh price answer for one asset. It lives for a
// single update cycle. Price keeps full upstream precision; the converter
// turns it into the fixed-point published form.
type Quotation struct {
	Symbol     string
	Name       string
	Blockchain string // empty means FIAT
	Price      decimal.Decimal
	Supply     decimal.Decimal
	Time       time.Time
}

// CoinInfo is the published form of a quotation. Price and Supply are
// unsigned 128-bit integers, Price scaled by 10^12. Records are never
// mutated after publication; each cycle replaces them wholesale.
type CoinInfo struct {
	Symbol              string
	Name                string
	Blockchain          string
	Price               *big.Int
	Supply              *big.Int
	LastUpdateTimestamp uint64
}

// Specifier returns the storage key of the record.
func (c CoinInfo) Specifier() AssetSpecifier {
	return AssetSpecifier{Blockchain: c.Blockchain, Symbol: c.Symbol}
}

type coinInfoJSON struct {
	Symbol              string `json:"symbol"`
	Name                string `json:"name"`
	Blockchain          string `json:"blockchain"`
	Price               string `json:"price"`
	Supply              string `json:"supply"`
	LastUpdateTimestamp uint64 `json:"lastUpdateTimestamp"`
}

// MarshalJSON renders the 128-bit fields as decimal strings since they do not
// fit JSON number consumers.
func (c CoinInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinInfoJSON{
		Symbol:              c.Symbol,
		Name:                c.Name,
		Blockchain:          c.Blockchain,
		Price:               bigString(c.Price),
		Supply:              bigString(c.Supply),
		LastUpdateTimestamp: c.LastUpdateTimestamp,
	})
}

func (c *CoinInfo) UnmarshalJSON(b []byte) error {
	var raw coinInfoJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	price, err := parseBig(raw.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q", raw.Price)
	}
	supply, err := parseBig(raw.Supply)
	if err != nil {
		return fmt.Errorf("invalid supply %q", raw.Supply)
	}
	*c = CoinInfo{
		Symbol:              raw.Symbol,
		Name:                raw.Name,
		Blockchain:          raw.Blockchain,
		Price:               price,
		Supply:              supply,
		LastUpdateTimestamp: raw.LastUpdateTimestamp,
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", s)
	}
	return v, nil
}
