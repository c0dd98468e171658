package units

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

// DefaultDecimals is the fixed-point precision of venue amounts and prices
const DefaultDecimals int32 = 18

// DefaultDisplayDecimals is used by ToDisplayPrice callers that do not care
const DefaultDisplayDecimals int32 = 4

// ToBaseUnits converts a human-readable decimal string into base units
// (value * 10^decimals), truncating anything beyond the requested precision.
//
//	ToBaseUnits("0.001", 18) = 1000000000000000
func ToBaseUnits(value string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindValidation, err, "InvalidAmount: not a decimal number",
			map[string]any{"value": value})
	}
	return fromDecimal(d, decimals), nil
}

// MustToBaseUnits is ToBaseUnits for constants known to be valid
func MustToBaseUnits(value string, decimals int32) *big.Int {
	v, err := ToBaseUnits(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// ToBaseUnitsFloat converts a float using its shortest decimal representation,
// so 0.1 becomes exactly 10^17 at 18 decimals.
func ToBaseUnitsFloat(value float64, decimals int32) (*big.Int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, sdkerr.New(sdkerr.KindValidation, "InvalidAmount: not a finite number",
			map[string]any{"value": value})
	}
	return fromDecimal(decimal.NewFromFloat(value), decimals), nil
}

// DecimalToBaseUnits converts an already-parsed decimal
func DecimalToBaseUnits(d decimal.Decimal, decimals int32) *big.Int {
	return fromDecimal(d, decimals)
}

func fromDecimal(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).Truncate(0).BigInt()
}

// FromBaseUnits is the exact inverse of ToBaseUnits. Trailing zeros are trimmed.
//
//	FromBaseUnits(1000000000000000, 18) = "0.001"
func FromBaseUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

// ToDisplayPrice formats base units rounded to displayDecimals places.
// Lossy: the result must never be fed back into signing.
func ToDisplayPrice(value *big.Int, decimals, displayDecimals int32) string {
	if value == nil {
		value = new(big.Int)
	}
	return decimal.NewFromBigInt(value, -decimals).StringFixed(displayDecimals)
}

// PositionValue returns size * price in quote units with 2 decimal places.
// Both inputs are base units at the same precision.
func PositionValue(size, price *big.Int, decimals int32) string {
	if size == nil || price == nil {
		return "0.00"
	}
	s := decimal.NewFromBigInt(size, -decimals)
	p := decimal.NewFromBigInt(price, -decimals)
	return s.Mul(p).StringFixed(2)
}

// PercentageToBasisPoints: 1.5 -> 150
func PercentageToBasisPoints(percentage float64) int64 {
	return decimal.NewFromFloat(percentage).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// BasisPointsToPercentage: 150 -> 1.5
func BasisPointsToPercentage(bps int64) float64 {
	f, _ := decimal.New(bps, -2).Float64()
	return f
}
