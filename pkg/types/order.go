package types

// UnsignedOrder is the order before signing. Every integer that crosses the
// signing boundary is a base-10 string.
//
// EOA is carried for bookkeeping only; it is neither signed nor submitted.
type UnsignedOrder struct {
	MarketID             string
	AccountID            string
	SizeDelta            string // signed, negative = short
	SettlementStrategyID string
	ReferrerOrRelayer    string
	AllowAggregation     bool
	AllowPartialMatching bool
	ReduceOnly           bool
	AcceptablePrice      string
	TrackingCode         string // bytes32 hex
	Expiration           string // unix seconds
	Nonce                string
	ChainID              int64
	EOA                  string
}

// SignedOrder is the body of POST market_order/{marketId}. ID holds the
// EIP-712 signature.
type SignedOrder struct {
	AcceptablePrice      string `json:"acceptablePrice"`
	AccountID            string `json:"accountId"`
	AllowAggregation     bool   `json:"allowAggregation"`
	AllowPartialMatching bool   `json:"allowPartialMatching"`
	ChainID              int64  `json:"chainId"`
	Expiration           string `json:"expiration"`
	ID                   string `json:"id"`
	MarketID             string `json:"marketId"`
	Nonce                string `json:"nonce"`
	ReferrerOrRelayer    string `json:"referrerOrRelayer"`
	SettlementStrategyID string `json:"settlementStrategyId"`
	SizeDelta            string `json:"sizeDelta"`
	TrackingCode         string `json:"trackingCode"`
	ReduceOnly           bool   `json:"reduceOnly"`
}

// WithSignature attaches signature as the order id
func (o *UnsignedOrder) WithSignature(signature string) SignedOrder {
	return SignedOrder{
		AcceptablePrice:      o.AcceptablePrice,
		AccountID:            o.AccountID,
		AllowAggregation:     o.AllowAggregation,
		AllowPartialMatching: o.AllowPartialMatching,
		ChainID:              o.ChainID,
		Expiration:           o.Expiration,
		ID:                   signature,
		MarketID:             o.MarketID,
		Nonce:                o.Nonce,
		ReferrerOrRelayer:    o.ReferrerOrRelayer,
		SettlementStrategyID: o.SettlementStrategyID,
		SizeDelta:            o.SizeDelta,
		TrackingCode:         o.TrackingCode,
		ReduceOnly:           o.ReduceOnly,
	}
}

// Unsigned strips the signature. EOA cannot be recovered from the wire form.
func (s SignedOrder) Unsigned() UnsignedOrder {
	return UnsignedOrder{
		MarketID:             s.MarketID,
		AccountID:            s.AccountID,
		SizeDelta:            s.SizeDelta,
		SettlementStrategyID: s.SettlementStrategyID,
		ReferrerOrRelayer:    s.ReferrerOrRelayer,
		AllowAggregation:     s.AllowAggregation,
		AllowPartialMatching: s.AllowPartialMatching,
		ReduceOnly:           s.ReduceOnly,
		AcceptablePrice:      s.AcceptablePrice,
		TrackingCode:         s.TrackingCode,
		Expiration:           s.Expiration,
		Nonce:                s.Nonce,
		ChainID:              s.ChainID,
	}
}
