package venue

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/polyperp/pkg/types"
)

// Demo fixture identities. The wallet's session key is the well-known
// anvil/hardhat account #0, so never fund it anywhere real.
const (
	DemoWallet     = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	DemoSessionKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	DemoAccountID  = "170141183460469231731687303715884105746"

	DemoETHMarket = "100"
	DemoBTCMarket = "200"
)

// SeedDemo fills store with two markets, one account for DemoWallet and an
// open ETH position on chainID.
func SeedDemo(store *Store, chainID int64) {
	_ = store.AddMarket(chainID, types.Market{
		MarketID:                DemoETHMarket,
		Symbol:                  "ETH",
		Price:                   decimal.RequireFromString("2000"),
		MarkPrice:               "2000000000000000000000",
		CurrentOI:               "1523000000000000000000",
		CurrentFundingRate:      "12000000000000",
		TradesCount24h:          1834,
		TradesVolume24h:         decimal.RequireFromString("48210333.12"),
		Price24HrAgo:            decimal.RequireFromString("1968.5"),
		AvailableLiquidityLong:  "500000000000000000000",
		AvailableLiquidityShort: "480000000000000000000",
	})
	_ = store.AddMarket(chainID, types.Market{
		MarketID:                DemoBTCMarket,
		Symbol:                  "BTC",
		Price:                   decimal.RequireFromString("65000.5"),
		MarkPrice:               "65000500000000000000000",
		TradesCount24h:          912,
		TradesVolume24h:         decimal.RequireFromString("91000000"),
		Price24HrAgo:            decimal.RequireFromString("64100"),
		AvailableLiquidityLong:  "25000000000000000000",
		AvailableLiquidityShort: "24000000000000000000",
	})

	store.AddAccount(types.Account{
		Owner:      DemoWallet,
		SuperOwner: DemoWallet,
		AccountID:  DemoAccountID,
		ChainID:    chainID,
	})

	store.SetPositions(DemoAccountID, []types.Position{{
		OrderType:             "market",
		AccountID:             DemoAccountID,
		ChainID:               chainID,
		MarketID:              DemoETHMarket,
		Size:                  "1500000000000000000",
		TotalRealisedPnlUsd:   "12.5",
		UnrealisedFundingUsd:  "-0.75",
		UnrealisedInterestUsd: "0.1",
		AvgEntryPrice:         "1950000000000000000000",
		LiquidationPrice:      "1200000000000000000000",
	}})

	store.SetMargin(types.MarginInfo{
		ChainID:                           chainID,
		AccountID:                         DemoAccountID,
		Debt:                              "0",
		AvailableMargin:                   "10000000000000000000000",
		RequiredInitialMargin:             "300000000000000000000",
		RequiredMaintenanceMargin:         "150000000000000000000",
		MaxLiquidationReward:              "5000000000000000000",
		WithdrawableMargin:                "9700000000000000000000",
		SafeWithdrawableMargin:            "9500000000000000000000",
		SafeWithdrawableCollateralAmounts: []types.SafeWithdrawableCollateralAmount{},
	})

	store.SetMaxTradeSize(DemoAccountID, types.MaxTradeSizeResponse{
		MarketID:                     DemoETHMarket,
		MaxPossibleTradeSizeForLong:  "50000000000000000000",
		MaxPossibleTradeSizeForShort: "40000000000000000000",
	})
}
