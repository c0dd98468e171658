package types

// PostTradeDetailsRequest simulates a market order. SizeDelta is a signed
// base-unit integer string.
type PostTradeDetailsRequest struct {
	AccountID string `json:"accountId"`
	MarketID  string `json:"marketId"`
	SizeDelta string `json:"sizeDelta"`
}

// PostTradeDetailsLimitRequest simulates a limit order at LimitPrice
type PostTradeDetailsLimitRequest struct {
	AccountID  string `json:"accountId"`
	MarketID   string `json:"marketId"`
	SizeDelta  string `json:"sizeDelta"`
	LimitPrice string `json:"limitPrice"`
}

type PostTradeDetailsResponse struct {
	TotalFees               string  `json:"totalFees"`
	FillPrice               string  `json:"fillPrice"`
	NewHealthFactor         float64 `json:"newHealthFactor"`
	SettlementReward        string  `json:"settlementReward"`
	AmmFees                 string  `json:"ammFees"`
	NonVipAmmFees           string  `json:"nonVipAmmFees"`
	PriceImpact             string  `json:"priceImpact"`
	NewMarginUsage          float64 `json:"newMarginUsage"`
	Feasible                bool    `json:"feasible"`
	IsPriceImpactProfitable bool    `json:"isPriceImpactProfitable"`
	LiquidationPrice        string  `json:"liquidationPrice"`
	ErrorMsg                *string `json:"errorMsg"`
}

// Reason returns the venue's error message or a fallback
func (r PostTradeDetailsResponse) Reason() string {
	if r.ErrorMsg == nil || *r.ErrorMsg == "" {
		return "Unknown reason"
	}
	return *r.ErrorMsg
}
