package params

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

const (
	DefaultChainID         = MainnetChainID
	DefaultSlippagePercent = int64(10)
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Config is the raw caller input. Only APIKey is mandatory; everything else
// falls back to the mainnet preset.
type Config struct {
	APIKey            string
	ChainID           int64  // 0 = DefaultChainID
	APIEndpoint       string // "" = preset
	OrderbookEndpoint string // "" = preset
	RelayerAddress    string // "" = preset
	DefaultSlippage   *int64 // nil = DefaultSlippagePercent; 0 is honoured

	// Session credentials, required only for order-producing calls
	WalletAddress string
	SessionKey    string
}

// Settings is a validated, normalized Config. It can only be obtained from
// Config.Validate, so holding one means every default has been applied.
type Settings struct {
	apiKey            string
	chainID           int64
	apiEndpoint       string
	orderbookEndpoint string
	relayerAddress    string
	defaultSlippage   int64
	walletAddress     string
	sessionKey        string
	network           NetworkConfig
}

// Validate applies defaults and checks the mandatory fields
func (c Config) Validate() (Settings, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Settings{}, sdkerr.New(sdkerr.KindConfiguration, "API key is required",
			map[string]any{"chainId": c.ChainID, "apiEndpoint": c.APIEndpoint})
	}
	if c.WalletAddress != "" && !addressPattern.MatchString(c.WalletAddress) {
		return Settings{}, sdkerr.New(sdkerr.KindValidation, "Invalid wallet address format",
			map[string]any{"walletAddress": c.WalletAddress})
	}
	slippage := DefaultSlippagePercent
	if c.DefaultSlippage != nil {
		slippage = *c.DefaultSlippage
	}
	if slippage < 0 || slippage > 100 {
		return Settings{}, sdkerr.New(sdkerr.KindConfiguration, "default slippage must be between 0 and 100",
			map[string]any{"defaultSlippage": slippage})
	}

	s := Settings{
		apiKey:            c.APIKey,
		chainID:           orInt(c.ChainID, DefaultChainID),
		apiEndpoint:       orString(c.APIEndpoint, MainnetAPIEndpoint),
		orderbookEndpoint: orString(c.OrderbookEndpoint, MainnetOrderbookEndpoint),
		relayerAddress:    orString(c.RelayerAddress, MainnetRelayerAddress),
		defaultSlippage:   slippage,
		walletAddress:     c.WalletAddress,
		sessionKey:        c.SessionKey,
	}
	if s.relayerAddress != "" && !addressPattern.MatchString(s.relayerAddress) {
		return Settings{}, sdkerr.New(sdkerr.KindConfiguration, "Invalid relayer address format",
			map[string]any{"relayerAddress": s.relayerAddress})
	}

	network := NetworkForChain(s.chainID, s.apiEndpoint, s.orderbookEndpoint, s.relayerAddress)
	// Explicit overrides beat the preset; the signing domain always comes from the registry.
	network.APIEndpoint = s.apiEndpoint
	network.OrderbookEndpoint = s.orderbookEndpoint
	if c.RelayerAddress != "" {
		network.RelayerAddress = c.RelayerAddress
	}
	s.network = network
	return s, nil
}

func (s Settings) APIKey() string            { return s.apiKey }
func (s Settings) ChainID() int64            { return s.chainID }
func (s Settings) APIEndpoint() string       { return s.apiEndpoint }
func (s Settings) OrderbookEndpoint() string { return s.orderbookEndpoint }
func (s Settings) RelayerAddress() string    { return s.network.RelayerAddress }
func (s Settings) DefaultSlippage() int64    { return s.defaultSlippage }
func (s Settings) WalletAddress() string     { return s.walletAddress }
func (s Settings) SessionKey() string        { return s.sessionKey }
func (s Settings) Network() NetworkConfig    { return s.network }

// HasSession reports whether both order credentials are present
func (s Settings) HasSession() bool {
	return s.walletAddress != "" && s.sessionKey != ""
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
// A chain id or slippage that does not parse is a configuration error.
func LoadFromEnv(envPath string) (Config, error) {
	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := Config{
		APIKey:            os.Getenv("POLYNOMIAL_API_KEY"),
		APIEndpoint:       os.Getenv("POLYNOMIAL_API_ENDPOINT"),
		OrderbookEndpoint: os.Getenv("POLYNOMIAL_ORDERBOOK_ENDPOINT"),
		RelayerAddress:    os.Getenv("POLYNOMIAL_RELAYER_ADDRESS"),
		WalletAddress:     os.Getenv("WALLET_ADDRESS"),
		SessionKey:        os.Getenv("SESSION_KEY"),
	}

	if chain := os.Getenv("POLYNOMIAL_CHAIN_ID"); chain != "" {
		id, err := strconv.ParseInt(chain, 10, 64)
		if err != nil {
			return Config{}, sdkerr.Wrap(sdkerr.KindConfiguration, err, "invalid POLYNOMIAL_CHAIN_ID",
				map[string]any{"value": chain})
		}
		cfg.ChainID = id
	}
	if slip := os.Getenv("POLYNOMIAL_DEFAULT_SLIPPAGE"); slip != "" {
		pct, err := strconv.ParseInt(slip, 10, 64)
		if err != nil {
			return Config{}, sdkerr.Wrap(sdkerr.KindConfiguration, err, "invalid POLYNOMIAL_DEFAULT_SLIPPAGE",
				map[string]any{"value": slip})
		}
		cfg.DefaultSlippage = &pct
	}

	return cfg, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}
