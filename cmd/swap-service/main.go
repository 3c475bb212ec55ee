package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"measwap/pkg/config"
	"measwap/pkg/swap"
	"measwap/pkg/tokenacct"
)

var (
	rpcEndpoints = flag.String("rpc", "", "Comma-separated Solana RPC endpoints (uses RPC_ENDPOINTS if empty)")
	port         = flag.Int("port", 8080, "HTTP server port")
	rateLimit    = flag.Int("ratelimit", 20, "RPC requests per second per endpoint")
	wsEndpoint   = flag.String("ws", "", "WebSocket endpoint for live account updates (uses WS_ENDPOINT if empty)")
	programFlag  = flag.String("program", "", "Swap program address override")
	devnet       = flag.Bool("devnet", false, "Use the devnet program deployment")
)

var (
	service   *Service
	startTime time.Time
)

func main() {
	// Load .env file
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	flag.Parse()

	startTime = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parse RPC endpoints
	var endpoints []string
	if *rpcEndpoints != "" {
		endpoints = strings.Split(*rpcEndpoints, ",")
		for i := range endpoints {
			endpoints[i] = strings.TrimSpace(endpoints[i])
		}
	} else {
		endpoints = config.GetRPCEndpoints()
		if len(endpoints) == 0 {
			log.Fatalf("No RPC endpoints configured. Set RPC_ENDPOINTS in .env or use -rpc flag")
		}
	}

	programID := swap.SwapProgramID
	if *devnet {
		programID = swap.SwapProgramIDDevnet
	}
	override := *programFlag
	if override == "" {
		override = config.GetProgramID()
	}
	if override != "" {
		parsed, err := solana.PublicKeyFromBase58(override)
		if err != nil {
			log.Fatalf("Invalid program address %q: %v", override, err)
		}
		programID = parsed
	}

	wsURL := *wsEndpoint
	if wsURL == "" {
		wsURL = config.GetWebSocketEndpoint()
	}

	log.Printf("Starting MeaSwap Service")
	log.Printf("Port: %d", *port)
	log.Printf("Program: %s", programID)
	log.Printf("RPC endpoints: %d", len(endpoints))
	if wsURL != "" {
		log.Printf("Live updates: %s", wsURL)
	} else {
		log.Printf("Live updates: disabled")
	}

	var err error
	service, err = NewService(ctx, endpoints, config.GetRequestLimit(*rateLimit), programID, wsURL)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/state", handleState)
	mux.HandleFunc("/balances", handleBalances)
	mux.HandleFunc("/quote", handleQuote)
	mux.HandleFunc("/mutate", handleMutate)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/", handleRoot)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: corsMiddleware(mux),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		cancel()
	}()

	log.Printf("Server listening on http://localhost:%d", *port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /state")
	log.Printf("  GET  /balances[?owner=<address>]")
	log.Printf("  GET  /quote?amount=<raw>&direction=<standard-to-extended|extended-to-standard>")
	log.Printf("  POST /mutate")
	log.Printf("  GET  /health")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := map[string]interface{}{
		"service": "MeaSwap Service",
		"status":  "running",
		"program": service.builder.Program.String(),
		"endpoints": map[string]string{
			"state":    "/state",
			"balances": "/balances?owner=<address>",
			"quote":    "/quote?amount=<raw>&direction=<direction>",
			"mutate":   "/mutate",
			"health":   "/health",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := service.queries.State(r.Context())
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to fetch state: %v", err), http.StatusBadGateway)
		return
	}

	response := StateResponse{}
	if state != nil {
		response.Initialized = state.Initialized
		response.Admin = state.Admin.String()
		response.FeeBps = state.FeeBps
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerParam := r.URL.Query().Get("owner")
	response := BalancesResponse{}

	if ownerParam == "" {
		// Service-owned balances: vaults and treasuries.
		balances, err := service.ServiceBalances(r.Context())
		if err != nil {
			writeError(w, fmt.Sprintf("Failed to fetch balances: %v", err), http.StatusBadGateway)
			return
		}
		response.Balances = balances
	} else {
		owner, err := solana.PublicKeyFromBase58(ownerParam)
		if err != nil {
			writeError(w, "Invalid owner address", http.StatusBadRequest)
			return
		}
		balances, err := service.UserBalances(r.Context(), owner)
		if err != nil {
			writeError(w, fmt.Sprintf("Failed to fetch balances: %v", err), http.StatusBadGateway)
			return
		}
		response.Owner = owner.String()
		response.Balances = balances
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	amountParam := r.URL.Query().Get("amount")
	directionParam := r.URL.Query().Get("direction")
	if amountParam == "" {
		writeError(w, "Missing required parameter: amount", http.StatusBadRequest)
		return
	}

	direction := swap.DirectionStandardToExtended
	switch directionParam {
	case "", "standard-to-extended":
	case "extended-to-standard":
		direction = swap.DirectionExtendedToStandard
	default:
		writeError(w, "Invalid direction parameter", http.StatusBadRequest)
		return
	}

	amount, ok := swap.ParseAmount(amountParam)
	if !ok {
		writeError(w, "Invalid amount parameter (must be a positive integer)", http.StatusBadRequest)
		return
	}

	state, err := service.queries.State(r.Context())
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to fetch state: %v", err), http.StatusBadGateway)
		return
	}
	if state == nil || !state.Initialized {
		writeError(w, "Service is not initialized", http.StatusConflict)
		return
	}

	quote, err := swap.ComputeFee(amount, state.FeeBps)
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to compute fee: %v", err), http.StatusInternalServerError)
		return
	}

	response := QuoteResponse{
		Amount:     amountParam,
		Direction:  direction.String(),
		FeeBps:     state.FeeBps,
		Fee:        fmt.Sprintf("%d", quote.Fee),
		Net:        fmt.Sprintf("%d", quote.Net),
		FeeDisplay: tokenacct.FormatAmount(quote.Fee),
		NetDisplay: tokenacct.FormatAmount(quote.Net),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleMutate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload MutationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	response, err := service.Submit(r.Context(), payload)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status: "healthy",
		Uptime: time.Since(startTime).Round(time.Second).String(),
		Cache:  service.cache.Stats(),
	}
	if signer, ok := service.session.Signer(); ok {
		health.Signer = signer.String()
	}
	if service.watcher != nil {
		health.Watcher = service.watcher.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ServiceError{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
