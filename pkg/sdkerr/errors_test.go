package sdkerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := New(KindValidation, "Invalid wallet address format", map[string]any{"walletAddress": "nope"})

	if !errors.Is(err, Validation) {
		t.Error("expected errors.Is(err, Validation)")
	}
	if errors.Is(err, Signing) {
		t.Error("validation error should not match Signing")
	}

	wrapped := fmt.Errorf("create order: %w", err)
	if !errors.Is(wrapped, Validation) {
		t.Error("sentinel match should survive fmt wrapping")
	}
	if KindOf(wrapped) != KindValidation {
		t.Errorf("KindOf = %v, want %v", KindOf(wrapped), KindValidation)
	}
}

func TestHasKindWalksChain(t *testing.T) {
	apiErr := NewAPI("rejected", 400, map[string]any{"message": "rejected"}, nil)
	orderErr := Wrap(KindOrder, apiErr, "Failed to submit market order", nil)

	if KindOf(orderErr) != KindOrder {
		t.Errorf("outermost kind = %v, want ORDER", KindOf(orderErr))
	}
	if !HasKind(orderErr, KindAPI) {
		t.Error("expected API kind in chain")
	}
	got, ok := AsAPI(orderErr)
	if !ok || got.Status != 400 {
		t.Fatalf("AsAPI = %v, %v", got, ok)
	}
	if HasKind(orderErr, KindNetwork) {
		t.Error("unexpected network kind")
	}
	if !IsAny(orderErr, KindSigning, KindOrder) {
		t.Error("IsAny should match ORDER")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewAPI("Bad Request", 400, nil, nil)
	if !strings.Contains(err.Error(), "API_ERROR") || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("unexpected message %q", err.Error())
	}

	cause := errors.New("dial tcp: connection refused")
	nerr := Wrap(KindNetwork, cause, "Network error", nil)
	if !errors.Is(nerr, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestRedact(t *testing.T) {
	ctx := map[string]any{
		"sessionKey": "0xdeadbeef",
		"apiKey":     "secret",
		"marketId":   "100",
		"orderData": map[string]any{
			"id":       "0xsignature",
			"marketId": "100",
		},
	}

	got := Redact(ctx)
	if got["sessionKey"] != Redacted || got["apiKey"] != Redacted {
		t.Errorf("secrets not redacted: %v", got)
	}
	if got["marketId"] != "100" {
		t.Errorf("marketId changed: %v", got["marketId"])
	}
	nested := got["orderData"].(map[string]any)
	if nested["id"] != Redacted {
		t.Errorf("order id not redacted: %v", nested["id"])
	}
	// input must not be mutated
	if ctx["sessionKey"] != "0xdeadbeef" {
		t.Error("Redact mutated its input")
	}
	if Redact(nil) != nil {
		t.Error("Redact(nil) should be nil")
	}
}

func TestNewStoresRedactedContext(t *testing.T) {
	err := New(KindSigning, "Invalid session key format", map[string]any{"sessionKey": "0x1234"})
	if err.Context["sessionKey"] != Redacted {
		t.Errorf("context leaked key: %v", err.Context)
	}
}
