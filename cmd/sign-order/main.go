package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/pricing"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/units"
)

func main() {
	sessionKey := flag.String("key", os.Getenv("SESSION_KEY"), "session key (0x + 64 hex); generated when empty")
	marketID := flag.String("market", "100", "market id")
	accountID := flag.String("account", "170141183460469231731687303715884105746", "account id")
	size := flag.String("size", "0.001", "order size in display units")
	price := flag.String("price", "2000", "reference price in display units")
	slippage := flag.Int64("slippage", pricing.DefaultSlippagePercent, "slippage percent")
	short := flag.Bool("short", false, "sell instead of buy")
	chainID := flag.Int64("chain", params.MainnetChainID, "chain id")
	flag.Parse()

	// Step 1: Load or generate the session key
	var signer *crypto.Signer
	var err error
	if *sessionKey == "" {
		fmt.Println("Generating new session key...")
		signer, err = crypto.GenerateKey()
	} else {
		signer, err = crypto.FromSessionKey(*sessionKey)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n\n", signer.Address().Hex())

	// Step 2: Build the order
	network := params.NetworkForChain(*chainID, params.MainnetAPIEndpoint, params.MainnetOrderbookEndpoint, params.MainnetRelayerAddress)
	sizeBase, err := units.ToBaseUnits(*size, units.DefaultDecimals)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	ref, err := units.ToBaseUnits(*price, units.DefaultDecimals)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	acceptable, err := pricing.AcceptablePrice(ref, *slippage, !*short)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	sizeDelta := sizeBase.String()
	if *short {
		sizeDelta = "-" + sizeDelta
	}
	order := &types.UnsignedOrder{
		MarketID:             *marketID,
		AccountID:            *accountID,
		SizeDelta:            sizeDelta,
		SettlementStrategyID: "0",
		ReferrerOrRelayer:    network.RelayerAddress,
		AllowAggregation:     true,
		AllowPartialMatching: true,
		AcceptablePrice:      acceptable.String(),
		TrackingCode:         params.ZeroHex32,
		Expiration:           strconv.FormatInt(time.Now().Add(7*24*time.Hour).Unix(), 10),
		Nonce:                strconv.FormatInt(time.Now().UnixMilli(), 10),
		ChainID:              network.ChainID,
		EOA:                  signer.Address().Hex(),
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Market: %s\n", order.MarketID)
	fmt.Printf("  Account: %s\n", order.AccountID)
	fmt.Printf("  Size Delta: %s (%s)\n", order.SizeDelta, *size)
	fmt.Printf("  Acceptable Price: %s (%s)\n", order.AcceptablePrice, units.ToDisplayPrice(acceptable, units.DefaultDecimals, 4))
	fmt.Printf("  Chain: %d\n\n", order.ChainID)

	// Step 3: Show the typed data a wallet would sign
	eip712Signer := crypto.NewEIP712Signer(crypto.DomainFor(network))
	typedJSON, err := eip712Signer.OrderToJSON(order)
	if err != nil {
		fmt.Printf("Error building typed data: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Typed Data (eth_signTypedData_v4):")
	fmt.Println(typedJSON)
	fmt.Println()

	// Step 4: Sign
	signature, err := eip712Signer.SignOrder(signer, order)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: %s\n\n", signature)

	// Step 5: Serialize the submission body
	body, err := json.MarshalIndent(order.WithSignature(signature), "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signed Order (JSON):")
	fmt.Println(string(body))
	fmt.Println()

	// Step 6: Verify
	fmt.Println("Verifying signature...")
	recovered, err := eip712Signer.RecoverOrderSigner(order, signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if recovered != signer.Address() {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")
	fmt.Printf("  Signer: %s\n\n", recovered.Hex())

	fmt.Println("To submit this order:")
	fmt.Printf("  POST %s/market_order/%s\n", network.OrderbookEndpoint, order.MarketID)
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  x-api-key: <your key>")
}
