package sdk

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/account"
	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/market"
	"github.com/uhyunpark/polyperp/pkg/order"
	"github.com/uhyunpark/polyperp/pkg/posttrade"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/util"
)

// SDK wires the query services and the order pipeline to one network.
// The API key is shared by the REST and orderbook clients.
type SDK struct {
	settings params.Settings
	creds    *transport.Credentials
	logger   *zap.SugaredLogger

	markets   *market.Service
	accounts  *account.Service
	orders    *order.Service
	postTrade *posttrade.Service
}

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	clock      util.Clock
	nonces     crypto.NonceSource
}

type Option func(*options)

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the time source for order expiry and nonces
func WithClock(c util.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithNonceSource(n crypto.NonceSource) Option {
	return func(o *options) { o.nonces = n }
}

// New validates cfg and builds an SDK. A missing API key is a configuration
// error; a malformed wallet address is a validation error.
func New(cfg params.Config, opts ...Option) (*SDK, error) {
	settings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop(), clock: util.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	network := settings.Network()
	if network.Synthesized {
		o.logger.Warn("unknown chain, signing with the mainnet domain",
			zap.Int64("chain_id", network.ChainID),
			zap.String("verifying_contract", network.PerpFutures.Address))
	}

	creds := transport.NewCredentials(settings.APIKey())
	clientOpts := []transport.Option{transport.WithHTTPClient(o.httpClient), transport.WithLogger(o.logger)}
	api := transport.New(settings.APIEndpoint(), creds, clientOpts...)
	orderbook := transport.New(settings.OrderbookEndpoint(), creds, clientOpts...)

	markets := market.NewService(api, settings.ChainID(), o.logger)
	orderOpts := []order.Option{
		order.WithClock(o.clock),
		order.WithLogger(o.logger),
		order.WithDefaultSlippage(settings.DefaultSlippage()),
		order.WithSession(order.Session{
			WalletAddress: settings.WalletAddress(),
			SessionKey:    settings.SessionKey(),
		}),
	}
	if o.nonces != nil {
		orderOpts = append(orderOpts, order.WithNonceSource(o.nonces))
	}

	return &SDK{
		settings:  settings,
		creds:     creds,
		logger:    o.logger.Sugar(),
		markets:   markets,
		accounts:  account.NewService(api, settings.ChainID(), o.logger),
		orders:    order.NewService(orderbook, markets, network, orderOpts...),
		postTrade: posttrade.NewService(api, settings.ChainID(), o.logger),
	}, nil
}

func (s *SDK) Markets() *market.Service            { return s.markets }
func (s *SDK) Accounts() *account.Service          { return s.accounts }
func (s *SDK) Orders() *order.Service              { return s.orders }
func (s *SDK) PostTrade() *posttrade.Service       { return s.postTrade }
func (s *SDK) Settings() params.Settings           { return s.settings }
func (s *SDK) NetworkConfig() params.NetworkConfig { return s.settings.Network() }

// UpdateAPIKey rotates the key for both clients. Requests already in flight
// keep the key they started with.
func (s *SDK) UpdateAPIKey(key string) error {
	return s.creds.Update(key)
}

func (s *SDK) validateAuthentication() error {
	if s.settings.WalletAddress() == "" {
		return sdkerr.New(sdkerr.KindValidation,
			"Wallet address is required for order operations. Please provide walletAddress when creating the SDK instance.",
			map[string]any{"operation": "order_operation"})
	}
	if s.settings.SessionKey() == "" {
		return sdkerr.New(sdkerr.KindValidation,
			"Session key is required for order operations. Please provide sessionKey when creating the SDK instance.",
			map[string]any{"operation": "order_operation"})
	}
	return nil
}

// OrderOptions are the optional parts of CreateOrder
type OrderOptions struct {
	Side            order.Side
	AcceptablePrice *big.Int
	ReduceOnly      bool
	SlippagePercent *int64
}

// CreateOrder resolves the wallet's account through the API, then builds,
// signs and submits a market order. Failures that are not validation errors
// are reported as one, with the cause attached: branch on the cause with
// sdkerr.HasKind or sdkerr.AsAPI, not KindOf.
func (s *SDK) CreateOrder(ctx context.Context, sessionKey, wallet, marketID string, size *big.Int, opts OrderOptions) (json.RawMessage, error) {
	if err := crypto.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	resp, err := s.createOrder(ctx, order.Params{
		MarketID:        marketID,
		Size:            size,
		Side:            opts.Side,
		AcceptablePrice: opts.AcceptablePrice,
		SlippagePercent: opts.SlippagePercent,
		ReduceOnly:      opts.ReduceOnly,
		WalletAddress:   wallet,
		SessionKey:      sessionKey,
	})
	if err != nil {
		if sdkerr.KindOf(err) == sdkerr.KindValidation {
			return nil, err
		}
		return nil, sdkerr.Wrap(sdkerr.KindValidation, err, "Failed to create order", map[string]any{
			"marketId":      marketID,
			"size":          bigString(size),
			"walletAddress": wallet,
		})
	}
	return resp, nil
}

func (s *SDK) createOrder(ctx context.Context, p order.Params) (json.RawMessage, error) {
	acc, err := s.accounts.GetAccount(ctx, p.WalletAddress)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, sdkerr.New(sdkerr.KindValidation, "No account found for wallet address: "+p.WalletAddress,
			map[string]any{"walletAddress": p.WalletAddress})
	}
	p.AccountID = acc.AccountID
	return s.orders.CreateOrder(ctx, p)
}

// CreateMarketOrder is CreateOrder with the stored wallet and session key
func (s *SDK) CreateMarketOrder(ctx context.Context, marketID string, size *big.Int, opts OrderOptions) (json.RawMessage, error) {
	if err := s.validateAuthentication(); err != nil {
		return nil, err
	}
	return s.CreateOrder(ctx, s.settings.SessionKey(), s.settings.WalletAddress(), marketID, size, opts)
}

// SimulatedOrder pairs the pre-trade simulation with the venue's response
type SimulatedOrder struct {
	Simulation  *types.PostTradeDetailsResponse `json:"simulation"`
	OrderResult json.RawMessage                 `json:"orderResult"`
}

// CreateMarketOrderWithSimulation simulates the trade first and only
// submits when the venue reports it feasible. The acceptable price is the
// simulated fill price widened by maxSlippage (nil: configured default).
// Errors are wrapped like CreateOrder's; use sdkerr.HasKind to find the cause.
func (s *SDK) CreateMarketOrderWithSimulation(ctx context.Context, symbol string, size *big.Int, side order.Side, maxSlippage *int64) (*SimulatedOrder, error) {
	if err := s.validateAuthentication(); err != nil {
		return nil, err
	}
	if size == nil || size.Sign() <= 0 {
		return nil, sdkerr.New(sdkerr.KindValidation, "Size must be greater than zero",
			map[string]any{"marketSymbol": symbol, "size": bigString(size)})
	}

	out, err := s.simulateAndCreate(ctx, symbol, size, side, maxSlippage)
	if err != nil {
		if sdkerr.KindOf(err) == sdkerr.KindValidation {
			return nil, err
		}
		return nil, sdkerr.Wrap(sdkerr.KindValidation, err, "Failed to create market order with simulation", map[string]any{
			"marketSymbol": symbol,
			"size":         size.String(),
			"isLong":       side == order.Long,
		})
	}
	return out, nil
}

func (s *SDK) simulateAndCreate(ctx context.Context, symbol string, size *big.Int, side order.Side, maxSlippage *int64) (*SimulatedOrder, error) {
	wallet := s.settings.WalletAddress()

	acc, err := s.accounts.GetAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, sdkerr.New(sdkerr.KindValidation, "No account found for wallet address: "+wallet,
			map[string]any{"walletAddress": wallet})
	}

	m, err := s.markets.GetMarketBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, sdkerr.New(sdkerr.KindValidation, "Market not found for symbol: "+symbol,
			map[string]any{"marketSymbol": symbol})
	}

	sizeDelta := size.String()
	if side == order.Short {
		sizeDelta = "-" + sizeDelta
	}
	sim, err := s.markets.SimulateTrade(ctx, types.PostTradeDetailsRequest{
		AccountID: acc.AccountID,
		MarketID:  m.MarketID,
		SizeDelta: sizeDelta,
	})
	if err != nil {
		return nil, err
	}
	if !sim.Feasible {
		return nil, sdkerr.New(sdkerr.KindValidation, "Trade not feasible: "+sim.Reason(),
			map[string]any{"marketId": m.MarketID, "sizeDelta": sizeDelta})
	}

	fill, ok := new(big.Int).SetString(sim.FillPrice, 10)
	if !ok {
		return nil, sdkerr.New(sdkerr.KindValidation, "Simulation returned a malformed fill price",
			map[string]any{"fillPrice": sim.FillPrice})
	}
	slippage := s.settings.DefaultSlippage()
	if maxSlippage != nil {
		slippage = *maxSlippage
	}
	acceptable, err := s.orders.AcceptablePriceWithSlippage(fill, slippage, side == order.Long)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("simulation_passed",
		"market_id", m.MarketID,
		"size_delta", sizeDelta,
		"fill_price", sim.FillPrice,
		"acceptable_price", acceptable.String(),
	)

	result, err := s.orders.CreateOrder(ctx, order.Params{
		MarketID:        m.MarketID,
		Size:            size,
		Side:            side,
		AcceptablePrice: acceptable,
		AccountID:       acc.AccountID,
	})
	if err != nil {
		return nil, err
	}
	return &SimulatedOrder{Simulation: sim, OrderResult: result}, nil
}

// GetAccountSummary returns the wallet's account, positions and PnL totals
func (s *SDK) GetAccountSummary(ctx context.Context, wallet string) (*types.AccountSummary, error) {
	if err := crypto.ValidateAddress(wallet); err != nil {
		return nil, err
	}
	return s.accounts.GetAccountSummary(ctx, wallet)
}

// MarketData holds either one market's statistics or every market
type MarketData struct {
	Stats   *types.MarketStats
	Markets []types.Market
}

// GetMarketData returns the stats of the market named symbol, or all
// markets when symbol is empty. An unknown symbol yields nil.
func (s *SDK) GetMarketData(ctx context.Context, symbol string) (*MarketData, error) {
	if symbol == "" {
		markets, err := s.markets.GetMarkets(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &MarketData{Markets: markets}, nil
	}

	m, err := s.markets.GetMarketBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	stats, err := s.markets.GetMarketStats(ctx, m.MarketID)
	if err != nil {
		return nil, err
	}
	return &MarketData{Stats: stats}, nil
}

// GetMyMarginInfo is Accounts().GetMarginInfo for the stored wallet
func (s *SDK) GetMyMarginInfo(ctx context.Context) (*types.MarginSummary, error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	return s.accounts.GetMarginInfo(ctx, s.settings.WalletAddress())
}

// GetMyMaxPossibleTradeSizes is Accounts().GetMaxPossibleTradeSizes for the
// stored wallet
func (s *SDK) GetMyMaxPossibleTradeSizes(ctx context.Context, marketID string) (*types.MaxTradeSizeResponse, error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	return s.accounts.GetMaxPossibleTradeSizes(ctx, s.settings.WalletAddress(), marketID)
}

func (s *SDK) requireWallet() error {
	if s.settings.WalletAddress() == "" {
		return sdkerr.New(sdkerr.KindValidation, "Wallet address is required. Please provide walletAddress when creating the SDK instance.", nil)
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}
