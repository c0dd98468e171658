package order

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/market"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/units"
	"github.com/uhyunpark/polyperp/pkg/util"
	"github.com/uhyunpark/polyperp/pkg/venue"
)

var now = time.Unix(1700000000, 0)

type fixedNonce string

func (n fixedNonce) Next() (string, error) { return string(n), nil }

type failingPrices struct{ err error }

func (f failingPrices) GetMarketByID(context.Context, string) (*types.Market, error) {
	return nil, f.err
}

type harness struct {
	svc   *Service
	venue *venue.Server
}

func newHarness(t *testing.T, opts ...Option) harness {
	t.Helper()
	store := venue.NewStore()
	venue.SeedDemo(store, params.MainnetChainID)
	srv := venue.NewServer(store, venue.WithClock(util.FixedClock{At: now}))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	creds := transport.NewCredentials("test-key")
	markets := market.NewService(transport.New(ts.URL, creds), params.MainnetChainID, nil)
	orderbook := transport.New(ts.URL+venue.OrderbookPrefix, creds)

	opts = append([]Option{
		WithClock(util.FixedClock{At: now}),
		WithSession(Session{
			AccountID:     venue.DemoAccountID,
			WalletAddress: venue.DemoWallet,
			SessionKey:    venue.DemoSessionKey,
		}),
	}, opts...)
	return harness{svc: NewService(orderbook, markets, params.Mainnet(), opts...), venue: srv}
}

func ethParams(size string) Params {
	return Params{MarketID: venue.DemoETHMarket, Size: units.MustToBaseUnits(size, units.DefaultDecimals)}
}

func TestAcceptablePriceFromMarket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		side Side
		want string
	}{
		{"long widens up", Long, "2100000000000000000000"},
		{"short widens down", Short, "1900000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ethParams("0.001")
			p.Side = tt.side
			p.SlippagePercent = Slippage(5)

			o, err := h.svc.BuildOrder(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.AcceptablePrice)
		})
	}
}

func TestBuildOrderFields(t *testing.T) {
	h := newHarness(t, WithNonceSource(fixedNonce("77")))

	p := ethParams("0.001")
	p.Side = Short
	p.ReduceOnly = true
	p.AcceptablePrice = big.NewInt(123)

	o, err := h.svc.BuildOrder(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, &types.UnsignedOrder{
		MarketID:             venue.DemoETHMarket,
		AccountID:            venue.DemoAccountID,
		SizeDelta:            "-1000000000000000",
		SettlementStrategyID: "0",
		ReferrerOrRelayer:    params.MainnetRelayerAddress,
		AllowAggregation:     true,
		AllowPartialMatching: true,
		ReduceOnly:           true,
		AcceptablePrice:      "123",
		TrackingCode:         params.ZeroHex32,
		Expiration:           "1700604800",
		Nonce:                "77",
		ChainID:              params.MainnetChainID,
		EOA:                  venue.DemoWallet,
	}, o)

	// a supplied acceptable price skips the market lookup
	assert.Zero(t, h.venue.Requests())
}

func TestBuildOrderDefaultSlippage(t *testing.T) {
	h := newHarness(t)
	o, err := h.svc.BuildOrder(context.Background(), ethParams("1"))
	require.NoError(t, err)
	assert.Equal(t, "2200000000000000000000", o.AcceptablePrice)

	h = newHarness(t, WithDefaultSlippage(1))
	o, err = h.svc.BuildOrder(context.Background(), ethParams("1"))
	require.NoError(t, err)
	assert.Equal(t, "2020000000000000000000", o.AcceptablePrice)
}

func TestNoncesAreUnique(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		p := ethParams("1")
		p.AcceptablePrice = big.NewInt(1)
		o, err := h.svc.BuildOrder(ctx, p)
		require.NoError(t, err)
		assert.False(t, seen[o.Nonce], "nonce %s repeated", o.Nonce)
		seen[o.Nonce] = true
	}
}

func TestCreateOrderSubmitsSignedOrder(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.CreateLongOrder(context.Background(), ethParams("0.5"))
	require.NoError(t, err)

	var ack map[string]any
	require.NoError(t, json.Unmarshal(resp, &ack))
	assert.Equal(t, "accepted", ack["status"])
	assert.Equal(t, venue.DemoWallet, ack["signer"])

	orders := h.venue.Store().Orders()
	require.Len(t, orders, 1)
	got := orders[0]
	assert.Equal(t, "500000000000000000", got.SizeDelta)

	unsigned := got.Unsigned()
	ok, err := h.svc.Signer().VerifyOrderSignature(&unsigned, got.ID, common.HexToAddress(venue.DemoWallet))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, int64(2), h.venue.Requests(), "one price lookup and one submission")
}

func TestCreateShortOrder(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateShortOrder(context.Background(), ethParams("2"))
	require.NoError(t, err)

	orders := h.venue.Store().Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "-2000000000000000000", orders[0].SizeDelta)
	assert.Equal(t, "1800000000000000000000", orders[0].AcceptablePrice)
}

func TestCreateOrderUnknownMarket(t *testing.T) {
	h := newHarness(t)

	p := ethParams("1")
	p.MarketID = "999"
	_, err := h.svc.CreateOrder(context.Background(), p)

	require.ErrorIs(t, err, sdkerr.Validation)
	assert.Contains(t, err.Error(), "Market not found: 999")
	assert.Empty(t, h.venue.Store().Orders())
	assert.Equal(t, int64(1), h.venue.Requests(), "no submission after the failed lookup")
}

func TestCreateOrderRejectsBadInputBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{"short session key", func(p *Params) { p.SessionKey = "0x1234" }, "Invalid session key format"},
		{"non-hex session key", func(p *Params) { p.SessionKey = "0x" + strings.Repeat("g", 64) }, "Invalid session key format"},
		{"bad wallet", func(p *Params) { p.WalletAddress = "invalid-address" }, "Invalid wallet address format"},
		{"missing market", func(p *Params) { p.MarketID = "" }, "Market ID is required"},
		{"zero size", func(p *Params) { p.Size = big.NewInt(0) }, "Size must be greater than zero"},
		{"nil size", func(p *Params) { p.Size = nil }, "Size must be greater than zero"},
		{"slippage above 100", func(p *Params) { p.SlippagePercent = Slippage(101) }, "slippage percent"},
		{"negative slippage", func(p *Params) { p.SlippagePercent = Slippage(-1) }, "slippage percent"},
		{"account not numeric", func(p *Params) { p.AccountID = "acc-1" }, "Account ID must be a base-10 integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ethParams("1")
			tt.mutate(&p)
			_, err := h.svc.CreateOrder(ctx, p)
			require.ErrorIs(t, err, sdkerr.Validation)
			assert.Contains(t, err.Error(), tt.want)
			assert.NotContains(t, err.Error(), venue.DemoSessionKey[2:])
		})
	}
	assert.Zero(t, h.venue.Requests())
}

func TestCreateOrderRequiresSession(t *testing.T) {
	store := venue.NewStore()
	ts := httptest.NewServer(venue.NewServer(store))
	defer ts.Close()
	creds := transport.NewCredentials("test-key")
	svc := NewService(transport.New(ts.URL, creds), failingPrices{}, params.Mainnet())

	_, err := svc.CreateOrder(context.Background(), ethParams("1"))
	require.ErrorIs(t, err, sdkerr.Validation)
	assert.Contains(t, err.Error(), "Account ID is required")

	p := ethParams("1")
	p.AccountID = venue.DemoAccountID
	_, err = svc.CreateOrder(context.Background(), p)
	assert.Contains(t, err.Error(), "Wallet address is required")

	p.WalletAddress = venue.DemoWallet
	_, err = svc.CreateOrder(context.Background(), p)
	assert.Contains(t, err.Error(), "Session key is required")
}

func TestSigningFailureAbortsSubmission(t *testing.T) {
	h := newHarness(t)

	p := ethParams("1")
	p.AcceptablePrice = big.NewInt(1)
	p.SessionKey = "0x" + strings.Repeat("0", 64) // well-formed, not a valid scalar
	_, err := h.svc.CreateOrder(context.Background(), p)

	require.ErrorIs(t, err, sdkerr.Signing)
	e := err.(*sdkerr.Error)
	assert.Equal(t, venue.DemoETHMarket, e.Context["marketId"])
	assert.Equal(t, venue.DemoAccountID, e.Context["accountId"])
	assert.Zero(t, h.venue.Requests())
}

func TestPriceLookupFailureIsOrderError(t *testing.T) {
	cause := sdkerr.New(sdkerr.KindMarket, "Failed to fetch markets", nil)
	svc := NewService(transport.New("http://unused", transport.NewCredentials("k")), failingPrices{err: cause}, params.Mainnet(),
		WithSession(Session{AccountID: "1", WalletAddress: venue.DemoWallet, SessionKey: venue.DemoSessionKey}))

	_, err := svc.CreateOrder(context.Background(), ethParams("1"))
	require.ErrorIs(t, err, sdkerr.Order)
	assert.True(t, errors.Is(errors.Unwrap(err), sdkerr.Market))
	assert.Contains(t, err.Error(), "Failed to get market price")
}

func TestSubmitFailureRedactsSignature(t *testing.T) {
	h := newHarness(t, WithNonceSource(fixedNonce("5")))
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, ethParams("1"))
	require.NoError(t, err)

	_, err = h.svc.CreateOrder(ctx, ethParams("1"))
	require.ErrorIs(t, err, sdkerr.Order)
	assert.Contains(t, err.Error(), "Failed to submit market order")

	apiErr, ok := sdkerr.AsAPI(err)
	require.True(t, ok)
	assert.Equal(t, 409, apiErr.Status)

	e := err.(*sdkerr.Error)
	assert.Equal(t, venue.DemoETHMarket, e.Context["marketId"])
	data := e.Context["orderData"].(map[string]any)
	assert.Equal(t, sdkerr.Redacted, data["id"])
	assert.Equal(t, "5", data["nonce"])
}

func TestSubmitNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	svc := NewService(transport.New(url, transport.NewCredentials("k")), failingPrices{}, params.Mainnet())
	_, err := svc.Submit(context.Background(), types.SignedOrder{MarketID: "1", ID: "0xsig"})

	require.ErrorIs(t, err, sdkerr.Order)
	assert.True(t, sdkerr.HasKind(err, sdkerr.KindNetwork))
}

func TestSignIsDeterministic(t *testing.T) {
	h := newHarness(t, WithNonceSource(fixedNonce("9")))

	p := ethParams("1")
	p.AcceptablePrice = big.NewInt(1)
	o, err := h.svc.BuildOrder(context.Background(), p)
	require.NoError(t, err)

	a, err := h.svc.Sign(o, venue.DemoSessionKey)
	require.NoError(t, err)
	b, err := h.svc.Sign(o, venue.DemoSessionKey)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, crypto.IsValidSessionKey(venue.DemoSessionKey))
}

func TestAcceptablePriceWithSlippage(t *testing.T) {
	h := newHarness(t)
	ref := units.MustToBaseUnits("2000", units.DefaultDecimals)

	got, err := h.svc.AcceptablePriceWithSlippage(ref, 0, true)
	require.NoError(t, err)
	assert.Equal(t, ref.String(), got.String())

	_, err = h.svc.AcceptablePriceWithSlippage(ref, 150, false)
	require.ErrorIs(t, err, sdkerr.Validation)
}
