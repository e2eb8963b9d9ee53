// Read-only HTTP REST API for ledger data access.
//
// This is the operator/wallet-facing polling surface: accounts,
// blocks, pending transactions, validators and node status. Writes
// never enter here; transactions and peer messages come in through the
// wire gateway only.

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tessera-labs/go-tessera/core/state"
	"github.com/tessera-labs/go-tessera/core/transaction"
	"github.com/tessera-labs/go-tessera/core/types"
)

// Server is the HTTP API server.
type Server struct {
	worldState *state.WorldState
	pool       *transaction.Pool
	router     *mux.Router
	server     *http.Server
	addr       string
	enableCORS bool
}

// NewServer creates an API server over the world state and the
// transaction pool.
func NewServer(worldState *state.WorldState, pool *transaction.Pool, addr string, enableCORS bool) *Server {
	server := &Server{
		worldState: worldState,
		pool:       pool,
		addr:       addr,
		enableCORS: enableCORS,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Account endpoints
	api.HandleFunc("/account/{address}/balance", s.getAccountBalance).Methods("GET")
	api.HandleFunc("/account/{address}", s.getAccount).Methods("GET")

	// Transaction endpoints
	api.HandleFunc("/transaction/{hash}", s.getTransaction).Methods("GET")
	api.HandleFunc("/transactions/pending", s.getPendingTransactions).Methods("GET")

	// Block endpoints
	api.HandleFunc("/block/height/{height}", s.getBlockByHeight).Methods("GET")
	api.HandleFunc("/block/latest", s.getLatestBlock).Methods("GET")
	api.HandleFunc("/block/{hash}", s.getBlockByHash).Methods("GET")

	// Validator endpoints
	api.HandleFunc("/validator/{address}", s.getValidator).Methods("GET")
	api.HandleFunc("/validators", s.getValidators).Methods("GET")

	// Status endpoints
	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	if s.enableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		s.router.Use(c.Handler)
	}

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.jsonMiddleware)
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on %s", s.addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Account endpoints

func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	balance, err := s.worldState.GetBalance(address)
	if err != nil {
		s.writeError(w, "Account not found", http.StatusNotFound)
		return
	}
	nonce, _ := s.worldState.GetNonce(address)

	s.writeJSON(w, map[string]interface{}{
		"address": address,
		"balance": balance,
		"nonce":   nonce,
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	account, err := s.worldState.GetAccount(address)
	if err != nil {
		s.writeError(w, "Account not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address":       account.Address,
		"balance":       account.Balance,
		"nonce":         account.Nonce,
		"staked_amount": account.StakedAmount,
		"rewards":       account.Rewards,
	})
}

// Transaction endpoints

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	tx, ok := s.pool.Get(hash)
	status := "pending"
	if !ok {
		status = "confirmed"
		tx = s.findConfirmedTransaction(hash)
	}
	if tx == nil {
		s.writeError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, s.formatTransaction(tx, status))
}

func (s *Server) getPendingTransactions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	var transactions []map[string]interface{}
	for i, tx := range s.pool.Pending() {
		if i >= limit {
			break
		}
		transactions = append(transactions, s.formatTransaction(tx, "pending"))
	}

	s.writeJSON(w, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
		"limit":        limit,
	})
}

// findConfirmedTransaction scans committed blocks for the hash.
func (s *Server) findConfirmedTransaction(hash string) *types.Transaction {
	for height := s.worldState.GetHeight(); height >= 0; height-- {
		block, err := s.worldState.GetBlock(height)
		if err != nil {
			return nil
		}
		for _, tx := range block.Transactions {
			if tx.Hash == hash {
				return tx
			}
		}
	}
	return nil
}

// Block endpoints

func (s *Server) getBlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	block, err := s.worldState.GetBlockByHash(hash)
	if err != nil {
		s.writeError(w, "Block not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.formatBlock(block))
}

func (s *Server) getBlockByHeight(w http.ResponseWriter, r *http.Request) {
	heightStr := mux.Vars(r)["height"]

	height, err := strconv.ParseInt(heightStr, 10, 64)
	if err != nil {
		s.writeError(w, "Invalid height", http.StatusBadRequest)
		return
	}

	block, err := s.worldState.GetBlock(height)
	if err != nil {
		s.writeError(w, "Block not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.formatBlock(block))
}

func (s *Server) getLatestBlock(w http.ResponseWriter, r *http.Request) {
	block := s.worldState.GetCurrentBlock()
	if block == nil {
		s.writeError(w, "No blocks found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.formatBlock(block))
}

// Validator endpoints

func (s *Server) getValidator(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	validator, err := s.worldState.GetValidator(address)
	if err != nil {
		s.writeError(w, "Validator not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.formatValidator(validator))
}

func (s *Server) getValidators(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	var validators []map[string]interface{}
	for i, validator := range s.worldState.GetActiveValidators() {
		if i >= limit {
			break
		}
		validators = append(validators, s.formatValidator(validator))
	}

	s.writeJSON(w, map[string]interface{}{
		"validators": validators,
		"count":      len(validators),
		"limit":      limit,
	})
}

// Status endpoints

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := s.worldState.GetStatus()
	status["pending_transactions"] = s.pool.Size()
	s.writeJSON(w, status)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"height":    s.worldState.GetHeight(),
		"version":   "1.0.0",
	})
}

// Helper methods

func parseLimit(r *http.Request, def int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > 1000 {
		return def
	}
	return parsed
}

func (s *Server) formatTransaction(tx *types.Transaction, status string) map[string]interface{} {
	return map[string]interface{}{
		"hash":      tx.Hash,
		"from":      tx.From,
		"to":        tx.To,
		"amount":    tx.Amount,
		"gas":       tx.Gas,
		"gas_price": tx.GasPrice,
		"nonce":     tx.Nonce,
		"timestamp": tx.Timestamp,
		"status":    status,
	}
}

func (s *Server) formatBlock(block *types.Block) map[string]interface{} {
	var transactions []map[string]interface{}
	for _, tx := range block.Transactions {
		transactions = append(transactions, s.formatTransaction(tx, "confirmed"))
	}

	return map[string]interface{}{
		"hash":         block.Hash,
		"height":       block.Header.Index,
		"prev_hash":    block.Header.PrevHash,
		"state_root":   block.Header.StateRoot,
		"timestamp":    block.Header.Timestamp,
		"gas_used":     block.Header.GasUsed,
		"gas_limit":    block.Header.GasLimit,
		"validator":    block.Header.Validator,
		"transactions": transactions,
		"tx_count":     len(block.Transactions),
	}
}

func (s *Server) formatValidator(validator *types.Validator) map[string]interface{} {
	return map[string]interface{}{
		"address":    validator.Address,
		"stake":      validator.Stake,
		"active":     validator.Active,
		"created_at": validator.CreatedAt,
		"updated_at": validator.UpdatedAt,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	})
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		log.Printf("%s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, time.Since(start))
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
