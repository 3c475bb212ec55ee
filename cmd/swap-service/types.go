package main

// StateResponse describes the swap service state account.
type StateResponse struct {
	Initialized bool   `json:"initialized"`
	Admin       string `json:"admin,omitempty"`
	FeeBps      uint16 `json:"feeBps,omitempty"`
}

// BalanceEntry is one token account balance. Exists is false when the
// account has not been created on the ledger yet.
type BalanceEntry struct {
	Account string `json:"account"`
	Exists  bool   `json:"exists"`
	Raw     uint64 `json:"raw"`
	Display string `json:"display"`
}

// BalancesResponse maps role labels to balances.
type BalancesResponse struct {
	Owner    string                  `json:"owner,omitempty"`
	Balances map[string]BalanceEntry `json:"balances"`
}

// QuoteResponse is the fee breakdown for a prospective swap.
type QuoteResponse struct {
	Amount     string `json:"amount"`
	Direction  string `json:"direction"`
	FeeBps     uint16 `json:"feeBps"`
	Fee        string `json:"fee"`
	Net        string `json:"net"`
	FeeDisplay string `json:"feeDisplay"`
	NetDisplay string `json:"netDisplay"`
}

// MutationPayload is the POST body for /mutate.
type MutationPayload struct {
	Kind       string `json:"kind"`
	Amount     string `json:"amount,omitempty"`
	FeePercent string `json:"feePercent,omitempty"`
	NewAdmin   string `json:"newAdmin,omitempty"`
	Reserve    string `json:"reserve,omitempty"`   // "standard" or "extended"
	Direction  string `json:"direction,omitempty"` // "standard-to-extended" or "extended-to-standard"
}

// MutationResponse reports how a mutation submission ended.
type MutationResponse struct {
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Uptime  string                 `json:"uptime"`
	Signer  string                 `json:"signer,omitempty"`
	Cache   map[string]interface{} `json:"cache"`
	Watcher map[string]interface{} `json:"watcher,omitempty"`
}

// ServiceError is the JSON error envelope.
type ServiceError struct {
	Error string `json:"error"`
}
