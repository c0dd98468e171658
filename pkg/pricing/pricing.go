package pricing

import (
	"math/big"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

// DefaultSlippagePercent applies when a caller supplies no slippage
const DefaultSlippagePercent int64 = 10

// MaxSlippagePercent keeps the short branch non-negative
const MaxSlippagePercent int64 = 100

var hundred = big.NewInt(100)

// AcceptablePrice returns the worst execution price a trader will accept.
//
// Longs tolerate paying more, shorts tolerate receiving less:
//
//	long:  ref * (100 + slippage) / 100
//	short: ref * (100 - slippage) / 100
//
// Division truncates. ref is in base units; slippage is whole percent in [0, 100].
func AcceptablePrice(ref *big.Int, slippagePercent int64, isLong bool) (*big.Int, error) {
	if ref == nil || ref.Sign() < 0 {
		return nil, sdkerr.New(sdkerr.KindValidation, "reference price must be a non-negative integer",
			map[string]any{"referencePrice": bigString(ref)})
	}
	if err := ValidateSlippage(slippagePercent); err != nil {
		return nil, err
	}

	multiplier := big.NewInt(100 - slippagePercent)
	if isLong {
		multiplier = big.NewInt(100 + slippagePercent)
	}

	out := new(big.Int).Mul(ref, multiplier)
	return out.Quo(out, hundred), nil
}

// ValidateSlippage rejects slippage outside [0, MaxSlippagePercent]
func ValidateSlippage(slippagePercent int64) error {
	if slippagePercent < 0 || slippagePercent > MaxSlippagePercent {
		return sdkerr.New(sdkerr.KindValidation, "slippage percent must be between 0 and 100",
			map[string]any{"slippagePercent": slippagePercent})
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}
