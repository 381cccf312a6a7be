package convert

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// FractionalDigits is the fixed-point scale of published prices: every price
// is an unsigned 128-bit integer carrying 12 implied fractional digits.
const FractionalDigits = 12

// ErrDecimalTooLarge reports a decimal whose scaled value does not fit an
// unsigned 128-bit integer. Negative inputs fail the same way: the target
// width is unsigned.
var ErrDecimalTooLarge = errors.New("decimal given is too large")

var (
	scale      = decimal.New(1, FractionalDigits)
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// DecimalToScaled converts a non-negative decimal into its fixed-point form.
// The integer and fractional parts are scaled by 10^12 independently and
// summed; fractional precision beyond 12 digits is truncated, not rounded.
// The sum saturates at the 128-bit maximum once both parts are in range.
func DecimalToScaled(d decimal.Decimal) (*big.Int, error) {
	trunc := d.Truncate(0)
	fract := d.Sub(trunc)

	scaledTrunc := trunc.Mul(scale).BigInt()
	if !fitsUint128(scaledTrunc) {
		return nil, ErrDecimalTooLarge
	}
	scaledFract := fract.Mul(scale).Truncate(0).BigInt()
	if !fitsUint128(scaledFract) {
		return nil, ErrDecimalTooLarge
	}

	sum := new(big.Int).Add(scaledTrunc, scaledFract)
	if sum.Cmp(maxUint128) > 0 {
		sum.Set(maxUint128)
	}
	return sum, nil
}

func fitsUint128(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(maxUint128) <= 0
}
