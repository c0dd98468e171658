package posttrade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
)

// Service simulates trades against the venue's post-trade endpoint
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

// GetPostTradeDetails simulates a market order of sizeDelta (signed base units)
func (s *Service) GetPostTradeDetails(ctx context.Context, accountID, marketID, sizeDelta string) (*types.PostTradeDetailsResponse, error) {
	req := types.PostTradeDetailsRequest{AccountID: accountID, MarketID: marketID, SizeDelta: sizeDelta}
	return s.post(ctx, req, map[string]any{
		"accountId": accountID,
		"marketId":  marketID,
		"sizeDelta": sizeDelta,
	})
}

// GetPostTradeDetailsLimit simulates a limit order filled at limitPrice
func (s *Service) GetPostTradeDetailsLimit(ctx context.Context, accountID, marketID, sizeDelta, limitPrice string) (*types.PostTradeDetailsResponse, error) {
	req := types.PostTradeDetailsLimitRequest{
		AccountID:  accountID,
		MarketID:   marketID,
		SizeDelta:  sizeDelta,
		LimitPrice: limitPrice,
	}
	return s.post(ctx, req, map[string]any{
		"accountId":  accountID,
		"marketId":   marketID,
		"sizeDelta":  sizeDelta,
		"limitPrice": limitPrice,
	})
}

func (s *Service) post(ctx context.Context, body any, errCtx map[string]any) (*types.PostTradeDetailsResponse, error) {
	var resp types.PostTradeDetailsResponse
	if err := s.api.Post(ctx, fmt.Sprintf("post-trade-details?chainId=%d", s.chainID), body, &resp); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindOrder, err, "Failed to get post-trade details", errCtx)
	}
	return &resp, nil
}

// IsTradeFeasible reports the venue's verdict on a market order. Any
// failure reads as not feasible.
func (s *Service) IsTradeFeasible(ctx context.Context, accountID, marketID, sizeDelta string) bool {
	resp, err := s.GetPostTradeDetails(ctx, accountID, marketID, sizeDelta)
	if err != nil {
		s.logger.Debugw("feasibility_check_failed", "market_id", marketID, "err", err)
		return false
	}
	return resp.Feasible
}

// IsLimitTradeFeasible is IsTradeFeasible for a limit order
func (s *Service) IsLimitTradeFeasible(ctx context.Context, accountID, marketID, sizeDelta, limitPrice string) bool {
	resp, err := s.GetPostTradeDetailsLimit(ctx, accountID, marketID, sizeDelta, limitPrice)
	if err != nil {
		s.logger.Debugw("feasibility_check_failed", "market_id", marketID, "err", err)
		return false
	}
	return resp.Feasible
}
