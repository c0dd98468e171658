package venue

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/crypto"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/units"
	"github.com/uhyunpark/polyperp/pkg/util"
)

// OrderbookPrefix is where the orderbook routes are mounted, so the same
// server can stand in for both the REST and the orderbook endpoint.
const OrderbookPrefix = "/api"

// Server is an in-memory stand-in for the Polynomial REST API and orderbook.
// It verifies order signatures the way the real intake does and keeps no
// state beyond its Store.
type Server struct {
	store    *Store
	router   *mux.Router
	logger   *zap.SugaredLogger
	clock    util.Clock
	networks map[int64]params.NetworkConfig
	apiKeys  map[string]bool // empty: any non-empty key
	requests atomic.Int64
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

func WithClock(c util.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithNetwork accepts orders for n's chain, signed against n's domain
func WithNetwork(n params.NetworkConfig) Option {
	return func(s *Server) { s.networks[n.ChainID] = n }
}

// WithAPIKeys restricts access to the given keys
func WithAPIKeys(keys ...string) Option {
	return func(s *Server) {
		for _, k := range keys {
			s.apiKeys[k] = true
		}
	}
}

// NewServer creates a venue over store. Mainnet is always accepted.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		router:   mux.NewRouter(),
		logger:   zap.NewNop().Sugar(),
		clock:    util.RealClock{},
		networks: map[int64]params.NetworkConfig{params.MainnetChainID: params.Mainnet()},
		apiKeys:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.countRequests, s.requireAPIKey)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	s.router.HandleFunc("/accounts", s.handleGetAccounts).Methods("GET")
	s.router.HandleFunc("/positions/v2", s.handleGetPositions).Methods("GET")
	s.router.HandleFunc("/margins/all-margins", s.handleGetMargins).Methods("GET")
	s.router.HandleFunc("/margins/max-possible-trade-sizes", s.handleMaxTradeSizes).Methods("POST")
	s.router.HandleFunc("/post-trade-details", s.handlePostTradeDetails).Methods("POST")

	orderbook := s.router.PathPrefix(OrderbookPrefix).Subrouter()
	orderbook.HandleFunc("/market_order/{marketId}", s.handleSubmitOrder).Methods("POST")
}

func (s *Server) Store() *Store { return s.store }

// Requests is the number of requests received, including rejected ones
func (s *Server) Requests() int64 { return s.requests.Load() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler wraps the router with CORS for browser clients
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Api-Key", "X-Request-Id"},
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Infow("venue_listening", "addr", addr, "orderbook_prefix", OrderbookPrefix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("x-api-key")
		if key == "" || (len(s.apiKeys) > 0 && !s.apiKeys[key]) {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing or unknown x-api-key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	chains, ok := parseChainIDs(r.URL.Query().Get("chainId"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid chainId", "")
		return
	}

	out := make([]types.MarketsByChain, 0)
	for _, c := range s.store.Markets() {
		if len(chains) == 0 || chains[c.ChainID] {
			out = append(out, c)
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if !crypto.IsValidAddress(owner) {
		respondError(w, http.StatusBadRequest, "invalid owner", "")
		return
	}
	chains, ok := parseChainIDs(q.Get("chainIds"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid chainIds", "")
		return
	}

	superOnly := q.Get("ownershipType") == "SuperOwner"
	out := make([]any, 0)
	for _, a := range s.store.AccountsByOwner(owner, superOnly) {
		if len(chains) == 0 || chains[a.ChainID] {
			out = append(out, a)
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := q.Get("accountId")
	chainID, err := strconv.ParseInt(q.Get("chainId"), 10, 64)
	if accountID == "" || err != nil {
		respondError(w, http.StatusBadRequest, "accountId and chainId are required", "")
		return
	}

	positions := s.store.Positions(accountID)
	respondJSON(w, map[string]any{
		"chainId":    chainID,
		"positions":  positions,
		"totalCount": len(positions),
	})
}

func (s *Server) handleGetMargins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if !crypto.IsValidAddress(owner) {
		respondError(w, http.StatusBadRequest, "invalid owner", "")
		return
	}
	chains, ok := parseChainIDs(q.Get("chainIds"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid chainIds", "")
		return
	}

	out := make([]any, 0)
	for _, a := range s.store.AccountsByOwner(owner, q.Get("ownershipType") == "SuperOwner") {
		if len(chains) > 0 && !chains[a.ChainID] {
			continue
		}
		if m, ok := s.store.Margin(a.AccountID); ok {
			out = append(out, m)
		}
	}
	respondJSON(w, out)
}

type maxTradeSizeRequest struct {
	AccountID        string            `json:"accountId"`
	ChainID          int64             `json:"chainId"`
	MarketID         string            `json:"marketId"`
	AddedCollaterals []json.RawMessage `json:"addedCollaterals"`
}

func (s *Server) handleMaxTradeSizes(w http.ResponseWriter, r *http.Request) {
	var req maxTradeSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.AddedCollaterals == nil {
		respondError(w, http.StatusBadRequest, "addedCollaterals is required", "")
		return
	}
	if _, ok := s.store.Account(req.ChainID, req.AccountID); !ok {
		respondError(w, http.StatusNotFound, "account not found", "")
		return
	}
	if _, ok := s.store.Market(req.ChainID, req.MarketID); !ok {
		respondError(w, http.StatusNotFound, "market not found", "")
		return
	}

	limits, ok := s.store.MaxTradeSize(req.AccountID, req.MarketID)
	if !ok {
		limits.MarketID = req.MarketID
		limits.MaxPossibleTradeSizeForLong = "0"
		limits.MaxPossibleTradeSizeForShort = "0"
	}
	respondJSON(w, limits)
}

type postTradeRequest struct {
	AccountID  string `json:"accountId"`
	MarketID   string `json:"marketId"`
	SizeDelta  string `json:"sizeDelta"`
	LimitPrice string `json:"limitPrice"`
}

func (s *Server) handlePostTradeDetails(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(r.URL.Query().Get("chainId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "chainId is required", "")
		return
	}

	var req postTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	size, ok := new(big.Int).SetString(req.SizeDelta, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, "sizeDelta must be an integer", "")
		return
	}
	market, ok := s.store.Market(chainID, req.MarketID)
	if !ok {
		respondError(w, http.StatusNotFound, "market not found", "")
		return
	}
	if _, ok := s.store.Account(chainID, req.AccountID); !ok {
		respondError(w, http.StatusNotFound, "account not found", "")
		return
	}

	fill := units.DecimalToBaseUnits(market.Price, units.DefaultDecimals).String()
	if req.LimitPrice != "" {
		fill = req.LimitPrice
	}

	resp := map[string]any{
		"totalFees":               "0",
		"fillPrice":               fill,
		"newHealthFactor":         1.0,
		"settlementReward":        "0",
		"ammFees":                 "0",
		"nonVipAmmFees":           "0",
		"priceImpact":             "0",
		"newMarginUsage":          0.0,
		"feasible":                true,
		"isPriceImpactProfitable": false,
		"liquidationPrice":        "0",
		"errorMsg":                nil,
	}
	if limits, ok := s.store.MaxTradeSize(req.AccountID, req.MarketID); ok && exceeds(size, limits.MaxPossibleTradeSizeForLong, limits.MaxPossibleTradeSizeForShort) {
		resp["feasible"] = false
		resp["errorMsg"] = "Insufficient margin for trade size"
	}
	respondJSON(w, resp)
}

// exceeds reports whether |size| is above the limit for its direction
func exceeds(size *big.Int, maxLong, maxShort string) bool {
	limitStr := maxLong
	if size.Sign() < 0 {
		limitStr = maxShort
	}
	limit, ok := new(big.Int).SetString(limitStr, 10)
	if !ok {
		return false
	}
	return new(big.Int).Abs(size).Cmp(limit) > 0
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var order Order
	if err := json.NewDecoder(r.Body).Decode(&order.SignedOrder); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order body", err.Error())
		return
	}
	if mux.Vars(r)["marketId"] != order.MarketID {
		respondError(w, http.StatusBadRequest, "marketId mismatch", "path and body disagree")
		return
	}
	if order.ID == "" {
		respondError(w, http.StatusBadRequest, "missing signature", "")
		return
	}

	network, ok := s.networks[order.ChainID]
	if !ok {
		respondError(w, http.StatusBadRequest, "unsupported chain", strconv.FormatInt(order.ChainID, 10))
		return
	}
	market, ok := s.store.Market(order.ChainID, order.MarketID)
	if !ok {
		respondError(w, http.StatusNotFound, "market not found", order.MarketID)
		return
	}
	if _, ok := s.store.Account(order.ChainID, order.AccountID); !ok {
		respondError(w, http.StatusNotFound, "account not found", order.AccountID)
		return
	}

	unsigned := order.Unsigned()
	signer, err := crypto.NewEIP712Signer(crypto.DomainFor(network)).RecoverOrderSigner(&unsigned, order.ID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature", err.Error())
		return
	}
	order.Signer = signer.Hex()
	if !s.store.signerAllowed(order.AccountID, order.Signer) {
		respondError(w, http.StatusForbidden, "signer not authorized", order.Signer)
		return
	}

	expiration, ok := new(big.Int).SetString(order.Expiration, 10)
	if !ok || expiration.Cmp(big.NewInt(s.clock.Now().Unix())) <= 0 {
		respondError(w, http.StatusBadRequest, "order expired", order.Expiration)
		return
	}

	if msg := checkPriceProtection(&order, market.Price); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, "price protection", msg)
		return
	}

	order.OrderID = uuid.NewString()
	order.AcceptedAt = s.clock.Now().UnixMilli()
	accepted, err := s.store.acceptOrder(order)
	if err != nil {
		s.logger.Errorw("order_journal_failed", "order_id", order.OrderID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to record order", "")
		return
	}
	if !accepted {
		respondError(w, http.StatusConflict, "duplicate nonce", order.Nonce)
		return
	}

	s.logger.Infow("order_accepted",
		"order_id", order.OrderID,
		"market_id", order.MarketID,
		"account_id", order.AccountID,
		"size_delta", order.SizeDelta,
		"signer", order.Signer,
		"sig_prefix", truncate(order.ID, 10),
	)

	respondJSON(w, map[string]any{
		"status":    "accepted",
		"orderId":   order.OrderID,
		"marketId":  order.MarketID,
		"accountId": order.AccountID,
		"sizeDelta": order.SizeDelta,
		"signer":    order.Signer,
	})
}

// checkPriceProtection rejects orders whose acceptable price is already
// breached by the current market price
func checkPriceProtection(o *Order, price decimal.Decimal) string {
	size, ok := new(big.Int).SetString(o.SizeDelta, 10)
	if !ok || size.Sign() == 0 {
		return "sizeDelta must be a non-zero integer"
	}
	acceptable, ok := new(big.Int).SetString(o.AcceptablePrice, 10)
	if !ok {
		return "acceptablePrice must be an integer"
	}
	ref := units.DecimalToBaseUnits(price, units.DefaultDecimals)

	if size.Sign() > 0 && acceptable.Cmp(ref) < 0 {
		return "long acceptable price below market"
	}
	if size.Sign() < 0 && acceptable.Cmp(ref) > 0 {
		return "short acceptable price above market"
	}
	return ""
}

// parseChainIDs parses a comma-separated id list; empty means no filter
func parseChainIDs(raw string) (map[int64]bool, bool) {
	out := make(map[int64]bool)
	if raw == "" {
		return out, true
	}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false
		}
		out[id] = true
	}
	return out, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// respondError writes {"error": reason, "message": reason[: detail]}
func respondError(w http.ResponseWriter, status int, reason string, detail string) {
	msg := reason
	if detail != "" {
		msg += ": " + detail
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   reason,
		Message: msg,
	})
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
