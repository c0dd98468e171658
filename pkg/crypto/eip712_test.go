package crypto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/types"
)

func testOrder() *types.UnsignedOrder {
	return &types.UnsignedOrder{
		MarketID:             "100",
		AccountID:            "170141183460469231731687303715884105727",
		SizeDelta:            "1000000000000000",
		SettlementStrategyID: "0",
		ReferrerOrRelayer:    params.MainnetRelayerAddress,
		AllowAggregation:     true,
		AllowPartialMatching: true,
		AcceptablePrice:      "2100000000000000000000",
		TrackingCode:         params.ZeroHex32,
		Expiration:           "1700604800",
		Nonce:                "1700000000000",
		ChainID:              params.MainnetChainID,
		EOA:                  testAddress,
	}
}

func mainnetSigner() *EIP712Signer {
	return NewEIP712Signer(DomainFor(params.Mainnet()))
}

func TestDomainFor(t *testing.T) {
	d := DomainFor(params.Mainnet())
	if d.Name != "PolynomialPerpetualFutures" || d.Version != "1" {
		t.Errorf("domain = %+v", d)
	}
	if d.ChainID.Int64() != 8008 {
		t.Errorf("chainId = %s, want 8008", d.ChainID)
	}
	if d.VerifyingContract.Hex() != "0xD052Fa8b2af8Ed81C764D5d81cCf2725B2148688" {
		t.Errorf("verifyingContract = %s", d.VerifyingContract.Hex())
	}
}

func TestSignOrderDeterministic(t *testing.T) {
	e := mainnetSigner()
	first, err := e.SignOrderWithKey(testSessionKey, testOrder())
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	second, err := e.SignOrderWithKey(testSessionKey, testOrder())
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if first != second {
		t.Errorf("signatures differ:\n%s\n%s", first, second)
	}

	raw, err := hexutil.Decode(first)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}
	if len(raw) != 65 {
		t.Fatalf("signature length = %d, want 65", len(raw))
	}
	if v := raw[64]; v != 27 && v != 28 {
		t.Errorf("v = %d, want 27 or 28", v)
	}
}

func TestRecoverOrderSigner(t *testing.T) {
	e := mainnetSigner()
	order := testOrder()
	sig, err := e.SignOrderWithKey(testSessionKey, order)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	got, err := e.RecoverOrderSigner(order, sig)
	if err != nil {
		t.Fatalf("failed to recover: %v", err)
	}
	if got.Hex() != testAddress {
		t.Errorf("recovered = %s, want %s", got.Hex(), testAddress)
	}

	tampered := testOrder()
	tampered.AcceptablePrice = "2200000000000000000000"
	ok, err := e.VerifyOrderSignature(tampered, sig, got)
	if err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if ok {
		t.Error("signature should not verify for a tampered order")
	}

	other := NewEIP712Signer(DomainFor(params.NetworkForChain(1337, "", "", params.MainnetRelayerAddress)))
	order.ChainID = 1337
	if ok, _ := other.VerifyOrderSignature(order, sig, got); ok {
		t.Error("signature should not verify under another chain's domain")
	}
}

func TestHashOrderIgnoresEOA(t *testing.T) {
	e := mainnetSigner()
	a := testOrder()
	b := testOrder()
	b.EOA = "0x0000000000000000000000000000000000000001"

	ha, err := e.HashOrder(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := e.HashOrder(b)
	if err != nil {
		t.Fatal(err)
	}
	if hexutil.Encode(ha) != hexutil.Encode(hb) {
		t.Error("eoa must not affect the digest")
	}
}

func TestSignShortOrder(t *testing.T) {
	e := mainnetSigner()
	long := testOrder()
	short := testOrder()
	short.SizeDelta = "-" + long.SizeDelta

	ls, err := e.SignOrderWithKey(testSessionKey, long)
	if err != nil {
		t.Fatalf("failed to sign long: %v", err)
	}
	ss, err := e.SignOrderWithKey(testSessionKey, short)
	if err != nil {
		t.Fatalf("failed to sign short: %v", err)
	}
	if ls == ss {
		t.Error("long and short orders share a signature")
	}

	got, err := e.RecoverOrderSigner(short, ss)
	if err != nil || got.Hex() != testAddress {
		t.Errorf("recover short = %s, %v", got.Hex(), err)
	}
}

func TestSignOrderWithKeyErrors(t *testing.T) {
	e := mainnetSigner()

	_, err := e.SignOrderWithKey("invalid-key", testOrder())
	if !errors.Is(err, sdkerr.Validation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if strings.Contains(err.Error(), "invalid-key") {
		t.Error("error leaks the key")
	}

	bad := testOrder()
	bad.Nonce = "12.5"
	_, err = e.SignOrderWithKey(testSessionKey, bad)
	if !errors.Is(err, sdkerr.Signing) {
		t.Fatalf("err = %v, want signing", err)
	}
	var se *sdkerr.Error
	if !errors.As(err, &se) {
		t.Fatal("not an sdkerr.Error")
	}
	if se.Context["marketId"] != "100" || se.Context["accountId"] != bad.AccountID {
		t.Errorf("context = %v", se.Context)
	}
	for _, v := range se.Context {
		if s, ok := v.(string); ok && strings.Contains(s, testSessionKey[2:]) {
			t.Error("context leaks the key")
		}
	}

	wrongChain := testOrder()
	wrongChain.ChainID = 1
	if _, err := e.SignOrderWithKey(testSessionKey, wrongChain); !errors.Is(err, sdkerr.Signing) {
		t.Errorf("chain mismatch err = %v, want signing", err)
	}

	overflow := testOrder()
	overflow.MarketID = "340282366920938463463374607431768211456" // 2^128
	if _, err := e.SignOrderWithKey(testSessionKey, overflow); !errors.Is(err, sdkerr.Signing) {
		t.Errorf("uint128 overflow err = %v, want signing", err)
	}
}

func TestOrderToJSONHashesTheSame(t *testing.T) {
	e := mainnetSigner()
	order := testOrder()
	order.SizeDelta = "-5"

	out, err := e.OrderToJSON(order)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}
	if !strings.Contains(out, `"sizeDelta": "-5"`) {
		t.Errorf("sizeDelta not rendered as string:\n%s", out)
	}
	if strings.Contains(out, "eoa") {
		t.Error("typed data must not carry eoa")
	}

	var td apitypes.TypedData
	if err := json.Unmarshal([]byte(out), &td); err != nil {
		t.Fatalf("failed to parse typed data: %v", err)
	}
	fromJSON, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		t.Fatalf("failed to hash parsed typed data: %v", err)
	}
	direct, err := e.HashOrder(order)
	if err != nil {
		t.Fatal(err)
	}
	if hexutil.Encode(fromJSON) != hexutil.Encode(direct) {
		t.Errorf("digest mismatch: json %x, direct %x", fromJSON, direct)
	}
}
