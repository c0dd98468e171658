package params

import "sort"

const (
	// MainnetChainID is the Polynomial chain
	MainnetChainID int64 = 8008

	MainnetAPIEndpoint       = "https://perps-api-mainnet.polynomial.finance"
	MainnetOrderbookEndpoint = "https://orderbook-mainnet.polynomial.finance/api"
	MainnetRelayerAddress    = "0x4D387f5c0Ec87e47b9Df9b8C97B89D2977431b27"

	// ZeroHex32 is the tracking code attached to every order
	ZeroHex32 = "0x0000000000000000000000000000000000000000000000000000000000000000"
)

// PerpFutures describes the EIP-712 signing domain of the perps contract.
// Changing any field breaks signature verification on the venue.
type PerpFutures struct {
	Name    string
	Version string
	Address string // verifying contract
}

// MainnetPerpFutures is the deployed domain, also used for unknown chains
var MainnetPerpFutures = PerpFutures{
	Name:    "PolynomialPerpetualFutures",
	Version: "1",
	Address: "0xD052Fa8b2af8Ed81C764D5d81cCf2725B2148688",
}

// NetworkConfig is the immutable per-chain bundle of endpoints + signing domain
type NetworkConfig struct {
	ChainID           int64
	APIEndpoint       string
	OrderbookEndpoint string
	RelayerAddress    string
	PerpFutures       PerpFutures

	// Synthesized is true when the chain is not in the registry and the
	// mainnet domain was borrowed.
	Synthesized bool
}

// Networks is the static registry keyed by network name
var Networks = map[string]NetworkConfig{
	"mainnet": {
		ChainID:           MainnetChainID,
		APIEndpoint:       MainnetAPIEndpoint,
		OrderbookEndpoint: MainnetOrderbookEndpoint,
		RelayerAddress:    MainnetRelayerAddress,
		PerpFutures:       MainnetPerpFutures,
	},
}

// Mainnet returns the mainnet preset
func Mainnet() NetworkConfig { return Networks["mainnet"] }

// LookupNetwork finds a registered network by chain id
func LookupNetwork(chainID int64) (NetworkConfig, bool) {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic when two presets share a chain id

	for _, name := range names {
		if n := Networks[name]; n.ChainID == chainID {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// NetworkForChain returns the registered preset for chainID, or synthesizes one
// from the given endpoints and the mainnet signing domain.
func NetworkForChain(chainID int64, apiEndpoint, orderbookEndpoint, relayer string) NetworkConfig {
	if n, ok := LookupNetwork(chainID); ok {
		return n
	}
	return NetworkConfig{
		ChainID:           chainID,
		APIEndpoint:       apiEndpoint,
		OrderbookEndpoint: orderbookEndpoint,
		RelayerAddress:    relayer,
		PerpFutures:       MainnetPerpFutures,
		Synthesized:       true,
	}
}
