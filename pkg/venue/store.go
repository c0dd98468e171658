package venue

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/polyperp/pkg/storage"
	"github.com/uhyunpark/polyperp/pkg/types"
)

// Store is the venue's in-memory state. All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	markets   map[int64][]types.Market              // chainID -> markets, insertion order
	accounts  []types.Account                       // all chains
	positions map[string][]types.Position           // accountID -> positions
	margins   map[string]types.MarginInfo           // accountID -> margin
	maxSizes  map[string]types.MaxTradeSizeResponse // accountID/marketID -> limits
	signers   map[string]map[string]bool            // accountID -> lower-case signer addresses
	nonces    map[string]map[string]bool            // accountID -> nonces seen
	orders    []Order
	journal   storage.OrderStore // nil: memory only
}

// Order is an accepted submission
type Order = storage.OrderRecord

func NewStore() *Store {
	return &Store{
		markets:   make(map[int64][]types.Market),
		positions: make(map[string][]types.Position),
		margins:   make(map[string]types.MarginInfo),
		maxSizes:  make(map[string]types.MaxTradeSizeResponse),
		signers:   make(map[string]map[string]bool),
		nonces:    make(map[string]map[string]bool),
	}
}

// AddMarket registers m on chainID. Returns error if the market id is taken.
func (s *Store) AddMarket(chainID int64, m types.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.markets[chainID] {
		if existing.MarketID == m.MarketID {
			return fmt.Errorf("market %s already registered on chain %d", m.MarketID, chainID)
		}
	}
	s.markets[chainID] = append(s.markets[chainID], m)
	return nil
}

// SetMarketPrice updates the reference price of an existing market
func (s *Store) SetMarketPrice(chainID int64, marketID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.markets[chainID] {
		if m.MarketID == marketID {
			s.markets[chainID][i].Price = price
			return nil
		}
	}
	return fmt.Errorf("market %s not found on chain %d", marketID, chainID)
}

// Markets returns every chain's markets, sorted by chain id
func (s *Store) Markets() []types.MarketsByChain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chains := make([]int64, 0, len(s.markets))
	for id := range s.markets {
		chains = append(chains, id)
	}
	slices.Sort(chains)

	out := make([]types.MarketsByChain, 0, len(chains))
	for _, id := range chains {
		out = append(out, types.MarketsByChain{ChainID: id, Markets: slices.Clone(s.markets[id])})
	}
	return out
}

// Market looks up one market
func (s *Store) Market(chainID int64, marketID string) (types.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.markets[chainID] {
		if m.MarketID == marketID {
			return m, true
		}
	}
	return types.Market{}, false
}

func (s *Store) AddAccount(a types.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
}

// AccountsByOwner matches owner case-insensitively. superOnly restricts the
// match to the super owner.
func (s *Store) AccountsByOwner(owner string, superOnly bool) []types.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Account
	for _, a := range s.accounts {
		if strings.EqualFold(a.SuperOwner, owner) || (!superOnly && strings.EqualFold(a.Owner, owner)) {
			out = append(out, a)
		}
	}
	return out
}

// Account finds an account by id on chainID
func (s *Store) Account(chainID int64, accountID string) (types.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.ChainID == chainID && a.AccountID == accountID {
			return a, true
		}
	}
	return types.Account{}, false
}

func (s *Store) SetPositions(accountID string, ps []types.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[accountID] = slices.Clone(ps)
}

func (s *Store) Positions(accountID string) []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.positions[accountID])
}

func (s *Store) SetMargin(m types.MarginInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.margins[m.AccountID] = m
}

func (s *Store) Margin(accountID string) (types.MarginInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.margins[accountID]
	return m, ok
}

func maxSizeKey(accountID, marketID string) string { return accountID + "/" + marketID }

func (s *Store) SetMaxTradeSize(accountID string, r types.MaxTradeSizeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSizes[maxSizeKey(accountID, r.MarketID)] = r
}

func (s *Store) MaxTradeSize(accountID, marketID string) (types.MaxTradeSizeResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.maxSizes[maxSizeKey(accountID, marketID)]
	return r, ok
}

// AuthorizeSigner restricts accountID's orders to the given session-key
// addresses. Accounts with no authorized signers accept any signer.
func (s *Store) AuthorizeSigner(accountID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signers[accountID] == nil {
		s.signers[accountID] = make(map[string]bool)
	}
	s.signers[accountID][strings.ToLower(address)] = true
}

func (s *Store) signerAllowed(accountID, address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := s.signers[accountID]
	return len(allowed) == 0 || allowed[strings.ToLower(address)]
}

// Persist replays the orders already in j and journals every order
// accepted from now on. Call it before serving.
func (s *Store) Persist(j storage.OrderStore) error {
	orders, err := j.LoadOrders()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.markNonce(o.AccountID, o.Nonce)
		s.orders = append(s.orders, o)
	}
	s.journal = j
	return nil
}

// markNonce records a nonce and reports whether it was new. Caller holds mu.
func (s *Store) markNonce(accountID, nonce string) bool {
	seen := s.nonces[accountID]
	if seen == nil {
		seen = make(map[string]bool)
		s.nonces[accountID] = seen
	}
	if seen[nonce] {
		return false
	}
	seen[nonce] = true
	return true
}

// acceptOrder records o unless its nonce was already used by the account.
// With a journal the order is durable before acceptOrder returns true.
func (s *Store) acceptOrder(o Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.markNonce(o.AccountID, o.Nonce) {
		return false, nil
	}
	if s.journal != nil {
		if err := s.journal.SaveOrder(o); err != nil {
			delete(s.nonces[o.AccountID], o.Nonce)
			return false, err
		}
	}
	s.orders = append(s.orders, o)
	return true, nil
}

// Orders returns accepted orders in arrival order
func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders)
}
