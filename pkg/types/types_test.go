package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSignedOrderBody(t *testing.T) {
	u := UnsignedOrder{
		MarketID:             "100",
		AccountID:            "42",
		SizeDelta:            "-1000000000000000",
		SettlementStrategyID: "0",
		ReferrerOrRelayer:    "0x4D387f5c0Ec87e47b9Df9b8C97B89D2977431b27",
		AllowAggregation:     true,
		AllowPartialMatching: true,
		AcceptablePrice:      "1900000000000000000000",
		TrackingCode:         "0x0000000000000000000000000000000000000000000000000000000000000000",
		Expiration:           "1700604800",
		Nonce:                "1700000000000",
		ChainID:              8008,
		EOA:                  "0x1234567890123456789012345678901234567890",
	}

	body, err := json.Marshal(u.WithSignature("0xsig"))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(fields) != 14 {
		t.Errorf("body has %d fields, want 14: %s", len(fields), body)
	}
	if _, ok := fields["eoa"]; ok {
		t.Error("eoa must not be submitted")
	}
	if fields["id"] != "0xsig" {
		t.Errorf("id = %v, want 0xsig", fields["id"])
	}
	if fields["chainId"] != float64(8008) {
		t.Errorf("chainId = %v, want number 8008", fields["chainId"])
	}
	if !strings.Contains(string(body), `"sizeDelta":"-1000000000000000"`) {
		t.Errorf("sizeDelta not a string: %s", body)
	}

	back := u.WithSignature("0xsig").Unsigned()
	back.EOA = u.EOA
	if back != u {
		t.Errorf("Unsigned() = %+v, want %+v", back, u)
	}
}

func TestMarketPriceDecodesExactly(t *testing.T) {
	raw := `[{"chainId":8008,"markets":[{"marketId":"100","symbol":"ETH","price":2000.123456789012345678,"tradesCount24h":7}]}]`
	var chains []MarketsByChain
	if err := json.Unmarshal([]byte(raw), &chains); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	m := chains[0].Markets[0]
	if got := m.Price.String(); got != "2000.123456789012345678" {
		t.Errorf("price = %s, want 2000.123456789012345678", got)
	}
	if m.Stats().TradesCount24h != 7 {
		t.Errorf("stats trades = %d, want 7", m.Stats().TradesCount24h)
	}
}

func TestPostTradeReason(t *testing.T) {
	var r PostTradeDetailsResponse
	if r.Reason() != "Unknown reason" {
		t.Errorf("Reason() = %q", r.Reason())
	}
	msg := "insufficient margin"
	r.ErrorMsg = &msg
	if r.Reason() != msg {
		t.Errorf("Reason() = %q, want %q", r.Reason(), msg)
	}
}
