package account

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
)

// Service answers account, position and margin queries for one chain.
// Wallet addresses are validated before any request is made.
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

func (s *Service) chain() string { return strconv.FormatInt(s.chainID, 10) }

// GetAccount returns the wallet's super-owned account on this chain, or nil
func (s *Service) GetAccount(ctx context.Context, wallet string) (*types.Account, error) {
	if err := crypto.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("owner", wallet)
	q.Set("ownershipType", "SuperOwner")
	q.Set("chainIds", s.chain())

	var accounts []types.Account
	if err := s.api.Get(ctx, "accounts?"+q.Encode(), &accounts); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindAccount, err, "Failed to fetch account",
			map[string]any{"walletAddress": wallet, "chainId": s.chainID})
	}
	for i := range accounts {
		if accounts[i].ChainID == s.chainID {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

// GetAllAccountsForWallet returns every account the wallet owns on this
// chain, regardless of ownership type
func (s *Service) GetAllAccountsForWallet(ctx context.Context, wallet string) ([]types.Account, error) {
	if err := crypto.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("owner", wallet)
	q.Set("chainIds", s.chain())

	var accounts []types.Account
	if err := s.api.Get(ctx, "accounts?"+q.Encode(), &accounts); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindAccount, err, "Failed to fetch accounts for wallet",
			map[string]any{"walletAddress": wallet, "chainId": s.chainID})
	}

	onChain := make([]types.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ChainID == s.chainID {
			onChain = append(onChain, a)
		}
	}
	return onChain, nil
}

// AccountExists reports whether the wallet has an account on this chain.
// Lookup failures other than a malformed address read as false.
func (s *Service) AccountExists(ctx context.Context, wallet string) (bool, error) {
	acc, err := s.GetAccount(ctx, wallet)
	if err != nil {
		if sdkerr.HasKind(err, sdkerr.KindValidation) {
			return false, err
		}
		s.logger.Debugw("account_lookup_failed", "wallet", wallet, "err", err)
		return false, nil
	}
	return acc != nil, nil
}

// GetPositions lists the account's open positions
func (s *Service) GetPositions(ctx context.Context, accountID string) ([]types.Position, error) {
	q := url.Values{}
	q.Set("accountId", accountID)
	q.Set("chainId", s.chain())

	var resp types.PositionsResponse
	if err := s.api.Get(ctx, "positions/v2?"+q.Encode(), &resp); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindAccount, err, "Failed to fetch positions",
			map[string]any{"accountId": accountID, "chainId": s.chainID})
	}
	if resp.Positions == nil {
		return []types.Position{}, nil
	}
	return resp.Positions, nil
}

// GetPositionByMarket returns the account's position in marketID, or nil
func (s *Service) GetPositionByMarket(ctx context.Context, accountID, marketID string) (*types.Position, error) {
	positions, err := s.GetPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].MarketID == marketID {
			return &positions[i], nil
		}
	}
	return nil, nil
}

// GetAccountSummary combines the wallet's account with its positions and
// PnL totals
func (s *Service) GetAccountSummary(ctx context.Context, wallet string) (*types.AccountSummary, error) {
	acc, err := s.GetAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, sdkerr.New(sdkerr.KindAccount, "Account not found for wallet: "+wallet,
			map[string]any{"walletAddress": wallet, "chainId": s.chainID})
	}

	positions, err := s.GetPositions(ctx, acc.AccountID)
	if err != nil {
		return nil, err
	}

	realized, unrealized := decimal.Zero, decimal.Zero
	for _, p := range positions {
		realized = realized.Add(usd(p.TotalRealisedPnlUsd))
		unrealized = unrealized.Add(usd(p.UnrealisedFundingUsd)).Add(usd(p.UnrealisedInterestUsd))
	}

	return &types.AccountSummary{
		Account:            *acc,
		Positions:          positions,
		TotalPositions:     len(positions),
		TotalUnrealizedPnl: unrealized.StringFixed(2),
		TotalRealizedPnl:   realized.StringFixed(2),
	}, nil
}

// usd parses an API dollar amount; absent or malformed values count as zero
func usd(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GetMarginInfo returns available and maintenance margin for the wallet on
// this chain
func (s *Service) GetMarginInfo(ctx context.Context, wallet string) (*types.MarginSummary, error) {
	if err := crypto.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("owner", wallet)
	q.Set("ownershipType", "SuperOwner")
	q.Set("chainIds", s.chain())

	errCtx := map[string]any{"walletAddress": wallet, "chainId": s.chainID}

	var margins []types.MarginInfo
	if err := s.api.Get(ctx, "margins/all-margins?"+q.Encode(), &margins); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindAccount, err, "Failed to fetch margin info", errCtx)
	}
	for _, m := range margins {
		if m.ChainID == s.chainID {
			return &types.MarginSummary{
				AvailableMargin:           m.AvailableMargin,
				RequiredMaintenanceMargin: m.RequiredMaintenanceMargin,
			}, nil
		}
	}
	return nil, sdkerr.Newf(sdkerr.KindAccount, "No margin information found for wallet %s on chain %d", wallet, s.chainID)
}

// GetMaxPossibleTradeSizes returns the largest long and short the wallet's
// account can open in marketID
func (s *Service) GetMaxPossibleTradeSizes(ctx context.Context, wallet, marketID string) (*types.MaxTradeSizeResponse, error) {
	acc, err := s.GetAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}
	errCtx := map[string]any{"walletAddress": wallet, "marketId": marketID, "chainId": s.chainID}
	if acc == nil {
		return nil, sdkerr.New(sdkerr.KindAccount, "Account not found for wallet", errCtx)
	}

	req := types.MaxTradeSizeRequest{
		AccountID:        acc.AccountID,
		ChainID:          s.chainID,
		MarketID:         marketID,
		AddedCollaterals: []json.RawMessage{},
	}
	var resp types.MaxTradeSizeResponse
	if err := s.api.Post(ctx, "margins/max-possible-trade-sizes", req, &resp); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindAccount, err, "Failed to fetch max possible trade sizes", errCtx)
	}
	return &resp, nil
}
