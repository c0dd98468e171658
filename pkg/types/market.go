package types

import "github.com/shopspring/decimal"

// MarketsByChain is one element of the /markets response
type MarketsByChain struct {
	ChainID int64    `json:"chainId"`
	Markets []Market `json:"markets"`
}

// Market is a perp market as reported by the API. Price is a JSON number on
// the wire and is kept as a decimal so it converts to base units exactly.
type Market struct {
	MarketID                string          `json:"marketId"`
	Symbol                  string          `json:"symbol"`
	Skew                    string          `json:"skew"`
	Price                   decimal.Decimal `json:"price"`
	CurrentOI               string          `json:"currentOI"`
	CurrentFundingRate      string          `json:"currentFundingRate"`
	CurrentFundingVelocity  string          `json:"currentFundingVelocity"`
	MakerFeeRatio           string          `json:"makerFeeRatio"`
	TakerFeeRatio           string          `json:"takerFeeRatio"`
	SkewScale               string          `json:"skewScale"`
	MaxMarketSize           string          `json:"maxMarketSize"`
	MaxMarketValue          string          `json:"maxMarketValue"`
	TradesCount24h          int64           `json:"tradesCount24h"`
	TradesVolume24h         decimal.Decimal `json:"tradesVolume24h"`
	Price24HrAgo            decimal.Decimal `json:"price24HrAgo"`
	MarkPrice               string          `json:"markPrice"`
	LongOI                  string          `json:"longOI"`
	ShortOI                 string          `json:"shortOI"`
	CurrentSkew             string          `json:"currentSkew"`
	PositiveSkew            string          `json:"positiveSkew"`
	NegativeSkew            string          `json:"negativeSkew"`
	AvailableLiquidityLong  string          `json:"availableLiquidityLong"`
	AvailableLiquidityShort string          `json:"availableLiquidityShort"`

	CurrentFundingRate1HInPercentage  string `json:"currentFundingRate1HInPercentage"`
	CurrentFundingRate8HInPercentage  string `json:"currentFundingRate8HInPercentage"`
	CurrentFundingRate1YInPercentage  string `json:"currentFundingRate1YInPercentage"`
	CurrentInterestRate1HInPercentage string `json:"currentInterestRate1HInPercentage"`
	CurrentInterestRate8HInPercentage string `json:"currentInterestRate8HInPercentage"`
	CurrentInterestRate1YInPercentage string `json:"currentInterestRate1YInPercentage"`
	NetLongFundingRate1HInPercentage  string `json:"netLongFundingRate1HInPercentage"`
	NetLongFundingRate8HInPercentage  string `json:"netLongFundingRate8HInPercentage"`
	NetLongFundingRate1YInPercentage  string `json:"netLongFundingRate1YInPercentage"`
	NetShortFundingRate1HInPercentage string `json:"netShortFundingRate1HInPercentage"`
	NetShortFundingRate8HInPercentage string `json:"netShortFundingRate8HInPercentage"`
	NetShortFundingRate1YInPercentage string `json:"netShortFundingRate1YInPercentage"`
}

// MarketFilters narrows GetMarkets. Empty fields match everything.
type MarketFilters struct {
	Symbol   string // case-insensitive
	MarketID string
}

// MarketStats is the headline subset of a Market
type MarketStats struct {
	MarketID                string          `json:"marketId"`
	Symbol                  string          `json:"symbol"`
	Price                   decimal.Decimal `json:"price"`
	MarkPrice               string          `json:"markPrice"`
	CurrentOI               string          `json:"currentOI"`
	CurrentFundingRate      string          `json:"currentFundingRate"`
	TradesCount24h          int64           `json:"tradesCount24h"`
	TradesVolume24h         decimal.Decimal `json:"tradesVolume24h"`
	Price24HrAgo            decimal.Decimal `json:"price24HrAgo"`
	AvailableLiquidityLong  string          `json:"availableLiquidityLong"`
	AvailableLiquidityShort string          `json:"availableLiquidityShort"`
}

// Stats projects m onto its headline statistics
func (m Market) Stats() MarketStats {
	return MarketStats{
		MarketID:                m.MarketID,
		Symbol:                  m.Symbol,
		Price:                   m.Price,
		MarkPrice:               m.MarkPrice,
		CurrentOI:               m.CurrentOI,
		CurrentFundingRate:      m.CurrentFundingRate,
		TradesCount24h:          m.TradesCount24h,
		TradesVolume24h:         m.TradesVolume24h,
		Price24HrAgo:            m.Price24HrAgo,
		AvailableLiquidityLong:  m.AvailableLiquidityLong,
		AvailableLiquidityShort: m.AvailableLiquidityShort,
	}
}
