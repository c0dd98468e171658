package types

import "encoding/json"

// Account is a venue trading account owned by a wallet
type Account struct {
	Owner      string `json:"owner"`
	SuperOwner string `json:"superOwner"`
	AccountID  string `json:"accountId"`
	ChainID    int64  `json:"chainId"`
}

// PositionsResponse is the /positions/v2 payload
type PositionsResponse struct {
	ChainID    int64      `json:"chainId"`
	Positions  []Position `json:"positions"`
	TotalCount int        `json:"totalCount"`
}

// Position is an open position; size is signed (negative = short)
type Position struct {
	OrderType                         string          `json:"orderType"`
	AccountID                         string          `json:"accountId"`
	ChainID                           int64           `json:"chainId"`
	MarketID                          string          `json:"marketId"`
	Size                              string          `json:"size"`
	TotalRealisedFundingUsd           string          `json:"totalRealisedFundingUsd"`
	TotalRealisedPnlUsd               string          `json:"totalRealisedPnlUsd"`
	UnrealisedFundingUsd              string          `json:"unrealisedFundingUsd"`
	TotalVolumeUsd                    string          `json:"totalVolumeUsd"`
	AvgEntryPrice                     string          `json:"avgEntryPrice"`
	LatestInteractionPrice            string          `json:"latestInteractionPrice"`
	LiquidationPrice                  string          `json:"liquidationPrice"`
	EntryTimestamp                    int64           `json:"entryTimestamp"`
	BreakEvenPriceIncludingClosingFee string          `json:"breakEvenPriceIncludingClosingFee"`
	BreakEvenPriceExcludingClosingFee string          `json:"breakEvenPriceExcludingClosingFee"`
	TotalRealisedInterestUsd          string          `json:"totalRealisedInterestUsd"`
	UnrealisedInterestUsd             string          `json:"unrealisedInterestUsd"`
	TPSL                              json.RawMessage `json:"tpsl,omitempty"`
}

// AccountSummary aggregates an account with its positions. PnL totals are
// USD rendered with two decimals.
type AccountSummary struct {
	Account            Account    `json:"account"`
	Positions          []Position `json:"positions"`
	TotalPositions     int        `json:"totalPositions"`
	TotalUnrealizedPnl string     `json:"totalUnrealizedPnl"`
	TotalRealizedPnl   string     `json:"totalRealizedPnl"`
}

// SafeWithdrawableCollateralAmount is the per-synth withdrawable amount
type SafeWithdrawableCollateralAmount struct {
	SynthMarketID       string `json:"synthMarketId"`
	Amount              string `json:"amount"`
	AllowFullWithdrawal bool   `json:"allowFullWithdrawal"`
}

// MarginInfo is one element of the all-margins response
type MarginInfo struct {
	ChainID                           int64                              `json:"chainId"`
	AccountID                         string                             `json:"accountId"`
	Debt                              string                             `json:"debt"`
	AvailableMargin                   string                             `json:"availableMargin"`
	RequiredInitialMargin             string                             `json:"requiredInitialMargin"`
	RequiredMaintenanceMargin         string                             `json:"requiredMaintenanceMargin"`
	MaxLiquidationReward              string                             `json:"maxLiquidationReward"`
	WithdrawableMargin                string                             `json:"withdrawableMargin"`
	SafeWithdrawableMargin            string                             `json:"safeWithdrawableMargin"`
	SafeWithdrawableCollateralAmounts []SafeWithdrawableCollateralAmount `json:"safeWithdrawableCollateralAmounts"`
}

// MarginSummary is the subset returned by GetMarginInfo
type MarginSummary struct {
	AvailableMargin           string `json:"availableMargin"`
	RequiredMaintenanceMargin string `json:"requiredMaintenanceMargin"`
}

// MaxTradeSizeRequest is the body of margins/max-possible-trade-sizes.
// AddedCollaterals must encode as [] rather than null.
type MaxTradeSizeRequest struct {
	AccountID        string            `json:"accountId"`
	ChainID          int64             `json:"chainId"`
	MarketID         string            `json:"marketId"`
	AddedCollaterals []json.RawMessage `json:"addedCollaterals"`
}

type MaxTradeSizeResponse struct {
	MarketID                     string `json:"marketId"`
	MaxPossibleTradeSizeForLong  string `json:"maxPossibleTradeSizeForLong"`
	MaxPossibleTradeSizeForShort string `json:"maxPossibleTradeSizeForShort"`
}
