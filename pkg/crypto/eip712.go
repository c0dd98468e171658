package crypto

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/types"
)

// OffchainOrderType is the EIP-712 primary type of a venue order
const OffchainOrderType = "OffchainOrder"

// EIP712Domain represents the domain separator for EIP-712 typed data
// This prevents replay attacks across different chains/contracts
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// DomainFor builds the signing domain of a network
func DomainFor(n params.NetworkConfig) EIP712Domain {
	return EIP712Domain{
		Name:              n.PerpFutures.Name,
		Version:           n.PerpFutures.Version,
		ChainID:           big.NewInt(n.ChainID),
		VerifyingContract: common.HexToAddress(n.PerpFutures.Address),
	}
}

var (
	domainFields = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	// field order is part of the type hash
	offchainOrderFields = []apitypes.Type{
		{Name: "marketId", Type: "uint128"},
		{Name: "accountId", Type: "uint128"},
		{Name: "sizeDelta", Type: "int128"},
		{Name: "settlementStrategyId", Type: "uint128"},
		{Name: "referrerOrRelayer", Type: "address"},
		{Name: "allowAggregation", Type: "bool"},
		{Name: "allowPartialMatching", Type: "bool"},
		{Name: "reduceOnly", Type: "bool"},
		{Name: "acceptablePrice", Type: "uint256"},
		{Name: "trackingCode", Type: "bytes32"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
	}
)

// EIP712Signer hashes and signs orders for one domain
type EIP712Signer struct {
	domain EIP712Domain
}

// NewEIP712Signer creates a new EIP-712 signer with given domain
func NewEIP712Signer(domain EIP712Domain) *EIP712Signer {
	return &EIP712Signer{domain: domain}
}

// Domain returns the signer's domain
func (e *EIP712Signer) Domain() EIP712Domain {
	return e.domain
}

// TypedData builds the eth_signTypedData_v4 payload for order. The order's
// chain id must match the domain. EOA is not part of the message.
func (e *EIP712Signer) TypedData(order *types.UnsignedOrder) (apitypes.TypedData, error) {
	if order.ChainID != e.domain.ChainID.Int64() {
		return apitypes.TypedData{}, fmt.Errorf("order chain %d does not match domain chain %s", order.ChainID, e.domain.ChainID)
	}

	message, err := orderMessage(order)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":    domainFields,
			OffchainOrderType: offchainOrderFields,
		},
		PrimaryType: OffchainOrderType,
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(e.domain.ChainID)),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: message,
	}, nil
}

func orderMessage(o *types.UnsignedOrder) (apitypes.TypedDataMessage, error) {
	ints := []struct {
		name, value string
	}{
		{"marketId", o.MarketID},
		{"accountId", o.AccountID},
		{"sizeDelta", o.SizeDelta},
		{"settlementStrategyId", o.SettlementStrategyID},
		{"acceptablePrice", o.AcceptablePrice},
		{"expiration", o.Expiration},
		{"nonce", o.Nonce},
	}

	msg := apitypes.TypedDataMessage{
		"referrerOrRelayer":    o.ReferrerOrRelayer,
		"allowAggregation":     o.AllowAggregation,
		"allowPartialMatching": o.AllowPartialMatching,
		"reduceOnly":           o.ReduceOnly,
		"trackingCode":         o.TrackingCode,
	}
	for _, f := range ints {
		v, ok := new(big.Int).SetString(f.value, 10)
		if !ok {
			return nil, fmt.Errorf("%s is not a base-10 integer: %q", f.name, f.value)
		}
		msg[f.name] = v
	}
	if !common.IsHexAddress(o.ReferrerOrRelayer) {
		return nil, fmt.Errorf("referrerOrRelayer is not an address: %q", o.ReferrerOrRelayer)
	}
	if b, err := hexutil.Decode(o.TrackingCode); err != nil || len(b) != 32 {
		return nil, fmt.Errorf("trackingCode must be 32 bytes of hex: %q", o.TrackingCode)
	}
	return msg, nil
}

// HashOrder returns the EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || hashStruct(order))
func (e *EIP712Signer) HashOrder(order *types.UnsignedOrder) ([]byte, error) {
	typedData, err := e.TypedData(order)
	if err != nil {
		return nil, err
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash order: %w", err)
	}
	return digest, nil
}

// SignOrder signs order and returns the 0x-prefixed 65-byte signature with
// V in {27, 28}. secp256k1 signing here is RFC 6979 deterministic, so the
// same order and key always give the same signature.
func (e *EIP712Signer) SignOrder(signer *Signer, order *types.UnsignedOrder) (string, error) {
	hash, err := e.HashOrder(order)
	if err != nil {
		return "", err
	}

	signature, err := signer.Sign(hash)
	if err != nil {
		return "", fmt.Errorf("failed to sign order: %w", err)
	}
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// SignOrderWithKey validates sessionKey and signs order with it. A malformed
// key is a validation error; every other failure is a signing error that
// carries the market and account ids, never the key.
func (e *EIP712Signer) SignOrderWithKey(sessionKey string, order *types.UnsignedOrder) (string, error) {
	if err := ValidateSessionKey(sessionKey); err != nil {
		return "", err
	}

	ctx := map[string]any{"marketId": order.MarketID, "accountId": order.AccountID}

	signer, err := FromPrivateKeyHex(sessionKey)
	if err != nil {
		return "", sdkerr.Wrap(sdkerr.KindSigning, err, "Failed to sign market order", ctx)
	}
	signature, err := e.SignOrder(signer, order)
	if err != nil {
		return "", sdkerr.Wrap(sdkerr.KindSigning, err, "Failed to sign market order", ctx)
	}
	return signature, nil
}

// RecoverOrderSigner recovers the address that signed an order
func (e *EIP712Signer) RecoverOrderSigner(order *types.UnsignedOrder, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}

	hash, err := e.HashOrder(order)
	if err != nil {
		return common.Address{}, err
	}

	return RecoverAddress(hash, sig)
}

// VerifyOrderSignature reports whether signature over order was made by expected
func (e *EIP712Signer) VerifyOrderSignature(order *types.UnsignedOrder, signature string, expected common.Address) (bool, error) {
	recovered, err := e.RecoverOrderSigner(order, signature)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}

// OrderToJSON renders the typed data for wallet signing (eth_signTypedData_v4)
func (e *EIP712Signer) OrderToJSON(order *types.UnsignedOrder) (string, error) {
	typedData, err := e.TypedData(order)
	if err != nil {
		return "", err
	}

	// integers as decimal strings so wallets never see floats
	msg := make(map[string]any, len(typedData.Message))
	for k, v := range typedData.Message {
		if b, ok := v.(*big.Int); ok {
			msg[k] = b.String()
			continue
		}
		msg[k] = v
	}

	jsonBytes, err := json.MarshalIndent(map[string]any{
		"types":       typedData.Types,
		"primaryType": typedData.PrimaryType,
		"domain": map[string]any{
			"name":              typedData.Domain.Name,
			"version":           typedData.Domain.Version,
			"chainId":           e.domain.ChainID.String(),
			"verifyingContract": typedData.Domain.VerifyingContract,
		},
		"message": msg,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return string(jsonBytes), nil
}
