package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
)

// Service answers market queries for one chain. Nothing is cached; every
// call hits the API.
type Service struct {
	api     *transport.Client
	chainID int64
	logger  *zap.SugaredLogger
}

func NewService(api *transport.Client, chainID int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, chainID: chainID, logger: logger.Sugar()}
}

// GetMarkets lists the chain's markets matching filters (nil for all)
func (s *Service) GetMarkets(ctx context.Context, filters *types.MarketFilters) ([]types.Market, error) {
	errCtx := map[string]any{"chainId": s.chainID}

	var chains []types.MarketsByChain
	if err := s.api.Get(ctx, fmt.Sprintf("markets?chainId=%d", s.chainID), &chains); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindMarket, err, "Failed to fetch markets", errCtx)
	}

	var markets []types.Market
	found := false
	for _, c := range chains {
		if c.ChainID == s.chainID {
			markets, found = c.Markets, true
			break
		}
	}
	if !found {
		return nil, sdkerr.New(sdkerr.KindMarket,
			fmt.Sprintf("No market data found for chain ID %d", s.chainID), errCtx)
	}

	if filters == nil {
		return markets, nil
	}
	out := make([]types.Market, 0, len(markets))
	for _, m := range markets {
		if filters.Symbol != "" && !strings.EqualFold(m.Symbol, filters.Symbol) {
			continue
		}
		if filters.MarketID != "" && m.MarketID != filters.MarketID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMarketBySymbol returns nil, nil when no market has symbol
func (s *Service) GetMarketBySymbol(ctx context.Context, symbol string) (*types.Market, error) {
	markets, err := s.GetMarkets(ctx, &types.MarketFilters{Symbol: symbol})
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindMarket, err, "Failed to fetch market by symbol",
			map[string]any{"symbol": symbol, "chainId": s.chainID})
	}
	if len(markets) == 0 {
		return nil, nil
	}
	return &markets[0], nil
}

// GetMarketByID returns nil, nil when marketID is unknown
func (s *Service) GetMarketByID(ctx context.Context, marketID string) (*types.Market, error) {
	markets, err := s.GetMarkets(ctx, &types.MarketFilters{MarketID: marketID})
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindMarket, err, "Failed to fetch market by ID",
			map[string]any{"marketId": marketID, "chainId": s.chainID})
	}
	if len(markets) == 0 {
		return nil, nil
	}
	return &markets[0], nil
}

// SimulateTrade asks the venue what a market order would do
func (s *Service) SimulateTrade(ctx context.Context, req types.PostTradeDetailsRequest) (*types.PostTradeDetailsResponse, error) {
	var resp types.PostTradeDetailsResponse
	if err := s.api.Post(ctx, fmt.Sprintf("post-trade-details?chainId=%d", s.chainID), req, &resp); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindMarket, err, "Failed to simulate trade", map[string]any{
			"accountId": req.AccountID,
			"marketId":  req.MarketID,
			"sizeDelta": req.SizeDelta,
		})
	}
	s.logger.Debugw("trade_simulated",
		"market_id", req.MarketID,
		"size_delta", req.SizeDelta,
		"feasible", resp.Feasible,
		"fill_price", resp.FillPrice,
	)
	return &resp, nil
}

// GetMarketStats returns the headline statistics of one market
func (s *Service) GetMarketStats(ctx context.Context, marketID string) (*types.MarketStats, error) {
	m, err := s.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, sdkerr.New(sdkerr.KindMarket, "Market not found: "+marketID,
			map[string]any{"marketId": marketID, "chainId": s.chainID})
	}
	stats := m.Stats()
	return &stats, nil
}

// GetAvailableSymbols lists market symbols in API order
func (s *Service) GetAvailableSymbols(ctx context.Context) ([]string, error) {
	markets, err := s.GetMarkets(ctx, nil)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		symbols = append(symbols, m.Symbol)
	}
	return symbols, nil
}
