package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// word encodes a base-10 integer as one ABI word, two's complement when negative
func word(t *testing.T, dec string) []byte {
	t.Helper()
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		t.Fatalf("bad integer %q", dec)
	}
	return math.U256Bytes(n)
}

func boolWord(b bool) []byte {
	if b {
		return common.LeftPadBytes([]byte{1}, 32)
	}
	return make([]byte, 32)
}

// handDigest encodes the mainnet OffchainOrder digest field by field
func handDigest(t *testing.T, sizeDelta string) []byte {
	t.Helper()

	domainType := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	domainSeparator := crypto.Keccak256(
		domainType,
		crypto.Keccak256([]byte("PolynomialPerpetualFutures")),
		crypto.Keccak256([]byte("1")),
		word(t, "8008"),
		common.LeftPadBytes(common.HexToAddress("0xD052Fa8b2af8Ed81C764D5d81cCf2725B2148688").Bytes(), 32),
	)

	orderType := crypto.Keccak256([]byte("OffchainOrder(uint128 marketId,uint128 accountId,int128 sizeDelta," +
		"uint128 settlementStrategyId,address referrerOrRelayer,bool allowAggregation,bool allowPartialMatching," +
		"bool reduceOnly,uint256 acceptablePrice,bytes32 trackingCode,uint256 expiration,uint256 nonce)"))

	o := testOrder()
	structHash := crypto.Keccak256(
		orderType,
		word(t, o.MarketID),
		word(t, o.AccountID),
		word(t, sizeDelta),
		word(t, o.SettlementStrategyID),
		common.LeftPadBytes(common.HexToAddress(o.ReferrerOrRelayer).Bytes(), 32),
		boolWord(o.AllowAggregation),
		boolWord(o.AllowPartialMatching),
		boolWord(o.ReduceOnly),
		word(t, o.AcceptablePrice),
		make([]byte, 32), // zero tracking code
		word(t, o.Expiration),
		word(t, o.Nonce),
	)

	return crypto.Keccak256([]byte("\x19\x01"), domainSeparator, structHash)
}

func TestHashOrderMatchesHandEncoding(t *testing.T) {
	for _, sizeDelta := range []string{"1000000000000000", "-1000000000000000"} {
		t.Run(sizeDelta, func(t *testing.T) {
			o := testOrder()
			o.SizeDelta = sizeDelta

			got, err := mainnetSigner().HashOrder(o)
			if err != nil {
				t.Fatalf("HashOrder: %v", err)
			}
			if want := handDigest(t, sizeDelta); !bytes.Equal(got, want) {
				t.Errorf("digest = %x, want %x", got, want)
			}
		})
	}
}
