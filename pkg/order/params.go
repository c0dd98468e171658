package order

import "math/big"

// Side is the order direction. The zero value is Long.
type Side uint8

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Params describes one market order. Empty identity fields fall back to
// the service's Session.
type Params struct {
	MarketID string
	Size     *big.Int // magnitude in base units, > 0
	Side     Side

	// AcceptablePrice is used verbatim when set; otherwise it is derived
	// from the market price and SlippagePercent.
	AcceptablePrice *big.Int
	SlippagePercent *int64 // nil: service default
	ReduceOnly      bool

	AccountID     string
	WalletAddress string
	SessionKey    string
}

// Session holds the stored identity used when Params leave it blank
type Session struct {
	AccountID     string
	WalletAddress string
	SessionKey    string
}

// Slippage returns a pointer to pct for Params.SlippagePercent
func Slippage(pct int64) *int64 { return &pct }
