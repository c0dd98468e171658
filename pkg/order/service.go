package order

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/pricing"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/units"
	"github.com/uhyunpark/polyperp/pkg/util"
)

// OrderTTL is how long a submitted order stays valid
const OrderTTL = 7 * 24 * time.Hour

const settlementStrategyID = "0"

// PriceSource supplies reference prices. A nil market with a nil error
// means the market does not exist.
type PriceSource interface {
	GetMarketByID(ctx context.Context, marketID string) (*types.Market, error)
}

// Service builds, signs and submits market orders. Each call is a single
// pass with no retries.
type Service struct {
	orderbook       *transport.Client
	prices          PriceSource
	network         params.NetworkConfig
	signer          *crypto.EIP712Signer
	nonces          crypto.NonceSource
	clock           util.Clock
	defaultSlippage int64
	session         Session
	logger          *zap.SugaredLogger
}

type Option func(*Service)

func WithClock(c util.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithNonceSource(n crypto.NonceSource) Option {
	return func(s *Service) { s.nonces = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

// WithSession sets the identity used when Params leave it blank
func WithSession(sess Session) Option {
	return func(s *Service) { s.session = sess }
}

// WithDefaultSlippage overrides pricing.DefaultSlippagePercent
func WithDefaultSlippage(pct int64) Option {
	return func(s *Service) { s.defaultSlippage = pct }
}

// NewService creates an order service submitting to orderbook and signing
// against network's domain
func NewService(orderbook *transport.Client, prices PriceSource, network params.NetworkConfig, opts ...Option) *Service {
	s := &Service{
		orderbook:       orderbook,
		prices:          prices,
		network:         network,
		signer:          crypto.NewEIP712Signer(crypto.DomainFor(network)),
		clock:           util.RealClock{},
		defaultSlippage: pricing.DefaultSlippagePercent,
		logger:          zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.nonces == nil {
		s.nonces = crypto.NewMillisNonce(s.clock)
	}
	return s
}

// Signer exposes the EIP-712 signer for the service's network
func (s *Service) Signer() *crypto.EIP712Signer { return s.signer }

// AcceptablePriceWithSlippage is pricing.AcceptablePrice
func (s *Service) AcceptablePriceWithSlippage(ref *big.Int, slippagePercent int64, isLong bool) (*big.Int, error) {
	return pricing.AcceptablePrice(ref, slippagePercent, isLong)
}

// MarketPrice returns the market's reference price in base units
func (s *Service) MarketPrice(ctx context.Context, marketID string) (*big.Int, error) {
	m, err := s.prices.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindOrder, err, "Failed to get market price",
			map[string]any{"marketId": marketID})
	}
	if m == nil {
		return nil, sdkerr.New(sdkerr.KindValidation, "Market not found: "+marketID,
			map[string]any{"marketId": marketID})
	}
	return units.DecimalToBaseUnits(m.Price, units.DefaultDecimals), nil
}

// resolved is Params with the session applied and every input checked
type resolved struct {
	Params
	slippage int64
}

func (s *Service) resolve(p Params) (resolved, error) {
	r := resolved{Params: p, slippage: s.defaultSlippage}
	if r.AccountID == "" {
		r.AccountID = s.session.AccountID
	}
	if r.WalletAddress == "" {
		r.WalletAddress = s.session.WalletAddress
	}
	if r.SessionKey == "" {
		r.SessionKey = s.session.SessionKey
	}
	if p.SlippagePercent != nil {
		r.slippage = *p.SlippagePercent
	}

	switch {
	case r.MarketID == "":
		return r, sdkerr.New(sdkerr.KindValidation, "Market ID is required", nil)
	case r.Size == nil || r.Size.Sign() <= 0:
		return r, sdkerr.New(sdkerr.KindValidation, "Size must be greater than zero",
			map[string]any{"marketId": r.MarketID, "size": sizeString(r.Size)})
	case r.AccountID == "":
		return r, sdkerr.New(sdkerr.KindValidation, "Account ID is required for order operations",
			map[string]any{"marketId": r.MarketID})
	case r.WalletAddress == "":
		return r, sdkerr.New(sdkerr.KindValidation, "Wallet address is required for order operations",
			map[string]any{"marketId": r.MarketID})
	case r.SessionKey == "":
		return r, sdkerr.New(sdkerr.KindValidation, "Session key is required for order operations",
			map[string]any{"marketId": r.MarketID})
	}
	if _, ok := new(big.Int).SetString(r.AccountID, 10); !ok {
		return r, sdkerr.New(sdkerr.KindValidation, "Account ID must be a base-10 integer",
			map[string]any{"accountId": r.AccountID})
	}
	if err := crypto.ValidateAddress(r.WalletAddress); err != nil {
		return r, err
	}
	if err := crypto.ValidateSessionKey(r.SessionKey); err != nil {
		return r, err
	}
	if r.AcceptablePrice != nil && r.AcceptablePrice.Sign() < 0 {
		return r, sdkerr.New(sdkerr.KindValidation, "Acceptable price must not be negative",
			map[string]any{"acceptablePrice": r.AcceptablePrice.String()})
	}
	if err := pricing.ValidateSlippage(r.slippage); err != nil {
		return r, err
	}
	return r, nil
}

func sizeString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// BuildOrder validates p and assembles the unsigned order. The market price
// is fetched only when p carries no acceptable price.
func (s *Service) BuildOrder(ctx context.Context, p Params) (*types.UnsignedOrder, error) {
	r, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, r)
}

func (s *Service) build(ctx context.Context, r resolved) (*types.UnsignedOrder, error) {
	isLong := r.Side == Long

	acceptable := r.AcceptablePrice
	if acceptable == nil {
		ref, err := s.MarketPrice(ctx, r.MarketID)
		if err != nil {
			return nil, err
		}
		if acceptable, err = pricing.AcceptablePrice(ref, r.slippage, isLong); err != nil {
			return nil, err
		}
	}

	nonce, err := s.nonces.Next()
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindOrder, err, "Failed to generate nonce",
			map[string]any{"marketId": r.MarketID})
	}

	sizeDelta := r.Size.String()
	if !isLong {
		sizeDelta = "-" + sizeDelta
	}

	return &types.UnsignedOrder{
		MarketID:             r.MarketID,
		AccountID:            r.AccountID,
		SizeDelta:            sizeDelta,
		SettlementStrategyID: settlementStrategyID,
		ReferrerOrRelayer:    s.network.RelayerAddress,
		AllowAggregation:     true,
		AllowPartialMatching: true,
		ReduceOnly:           r.ReduceOnly,
		AcceptablePrice:      acceptable.String(),
		TrackingCode:         params.ZeroHex32,
		Expiration:           strconv.FormatInt(s.clock.Now().Add(OrderTTL).Unix(), 10),
		Nonce:                nonce,
		ChainID:              s.network.ChainID,
		EOA:                  r.WalletAddress,
	}, nil
}

// Sign signs order with sessionKey and attaches the signature as its id
func (s *Service) Sign(order *types.UnsignedOrder, sessionKey string) (types.SignedOrder, error) {
	sig, err := s.signer.SignOrderWithKey(sessionKey, order)
	if err != nil {
		return types.SignedOrder{}, err
	}
	return order.WithSignature(sig), nil
}

// Submit posts a signed order and returns the venue's response unmodified
func (s *Service) Submit(ctx context.Context, order types.SignedOrder) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := s.orderbook.Post(ctx, "market_order/"+order.MarketID, order, &resp); err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindOrder, err, "Failed to submit market order", map[string]any{
			"marketId":  order.MarketID,
			"orderData": orderData(order),
		})
	}

	s.logger.Infow("order_submitted",
		"market_id", order.MarketID,
		"account_id", order.AccountID,
		"size_delta", order.SizeDelta,
		"acceptable_price", order.AcceptablePrice,
		"nonce", order.Nonce,
		"sig_prefix", truncate(order.ID, 10),
	)
	return resp, nil
}

func orderData(o types.SignedOrder) map[string]any {
	return map[string]any{
		"id":              o.ID,
		"marketId":        o.MarketID,
		"accountId":       o.AccountID,
		"sizeDelta":       o.SizeDelta,
		"acceptablePrice": o.AcceptablePrice,
		"expiration":      o.Expiration,
		"nonce":           o.Nonce,
		"chainId":         o.ChainID,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CreateOrder runs the whole pipeline: resolve context, price, assemble,
// sign and submit. Inputs are checked before any request is made.
func (s *Service) CreateOrder(ctx context.Context, p Params) (json.RawMessage, error) {
	resp, err := s.createOrder(ctx, p)
	if err != nil {
		if sdkerr.IsAny(err, sdkerr.KindValidation, sdkerr.KindOrder, sdkerr.KindSigning) {
			return nil, err
		}
		return nil, sdkerr.Wrap(sdkerr.KindOrder, err, "Failed to create market order",
			map[string]any{"marketId": p.MarketID})
	}
	return resp, nil
}

func (s *Service) createOrder(ctx context.Context, p Params) (json.RawMessage, error) {
	r, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	unsigned, err := s.build(ctx, r)
	if err != nil {
		return nil, err
	}
	signed, err := s.Sign(unsigned, r.SessionKey)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, signed)
}

// CreateLongOrder is CreateOrder with Side forced to Long
func (s *Service) CreateLongOrder(ctx context.Context, p Params) (json.RawMessage, error) {
	p.Side = Long
	return s.CreateOrder(ctx, p)
}

// CreateShortOrder is CreateOrder with Side forced to Short
func (s *Service) CreateShortOrder(ctx context.Context, p Params) (json.RawMessage, error) {
	p.Side = Short
	return s.CreateOrder(ctx, p)
}
