package posttrade

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/transport"
	"github.com/uhyunpark/polyperp/pkg/venue"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := venue.NewStore()
	venue.SeedDemo(store, params.MainnetChainID)
	ts := httptest.NewServer(venue.NewServer(store))
	t.Cleanup(ts.Close)

	api := transport.New(ts.URL, transport.NewCredentials("test-key"))
	return NewService(api, params.MainnetChainID, nil)
}

func TestGetPostTradeDetails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.GetPostTradeDetails(ctx, venue.DemoAccountID, venue.DemoETHMarket, "10000000000000000000")
	require.NoError(t, err)
	assert.True(t, resp.Feasible)
	assert.Equal(t, "2000000000000000000000", resp.FillPrice)

	resp, err = svc.GetPostTradeDetails(ctx, venue.DemoAccountID, venue.DemoETHMarket, "-45000000000000000000")
	require.NoError(t, err)
	assert.False(t, resp.Feasible)
	assert.Equal(t, "Insufficient margin for trade size", resp.Reason())
}

func TestGetPostTradeDetailsLimit(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.GetPostTradeDetailsLimit(context.Background(),
		venue.DemoAccountID, venue.DemoETHMarket, "1000000000000000000", "1990000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1990000000000000000000", resp.FillPrice)
}

func TestPostTradeFailureIsOrderError(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetPostTradeDetails(context.Background(), venue.DemoAccountID, "999", "1")
	require.ErrorIs(t, err, sdkerr.Order)
	assert.True(t, sdkerr.HasKind(err, sdkerr.KindAPI))
	assert.Equal(t, "999", err.(*sdkerr.Error).Context["marketId"])
}

func TestFeasibilityChecks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		marketID string
		size     string
		want     bool
	}{
		{"within long limit", venue.DemoETHMarket, "50000000000000000000", true},
		{"above long limit", venue.DemoETHMarket, "50000000000000000001", false},
		{"within short limit", venue.DemoETHMarket, "-40000000000000000000", true},
		{"unknown market swallowed", "999", "1", false},
		{"malformed size swallowed", venue.DemoETHMarket, "1.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.IsTradeFeasible(ctx, venue.DemoAccountID, tt.marketID, tt.size))
			assert.Equal(t, tt.want, svc.IsLimitTradeFeasible(ctx, venue.DemoAccountID, tt.marketID, tt.size, "2000000000000000000000"))
		})
	}
}
