// Package http exposes the checkout preflight state over a small local JSON
// API, for an embedded checkout UI that renders state and forwards user
// actions. Framework adapters live in the gin and chi subpackages.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/balance"
	"github.com/csacanam/deramp-checkout-go/logger"
	"github.com/csacanam/deramp-checkout-go/network"
	"github.com/csacanam/deramp-checkout-go/payment"
	"github.com/csacanam/deramp-checkout-go/provider"
	"github.com/csacanam/deramp-checkout-go/wallet"
)

// Handler serves the checkout preflight API.
type Handler struct {
	store      *wallet.Store
	reconciler *network.Reconciler
	gate       *balance.Gate
	controller *payment.Controller
	log        logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger; default is no-op.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a Handler over the checkout components.
func NewHandler(store *wallet.Store, rec *network.Reconciler, gate *balance.Gate, ctrl *payment.Controller, opts ...Option) *Handler {
	h := &Handler{
		store:      store,
		reconciler: rec,
		gate:       gate,
		controller: ctrl,
		log:        logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mux returns a ServeMux with every route mounted.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", h.Wallet)
	mux.HandleFunc("GET /network", h.Network)
	mux.HandleFunc("GET /balance", h.Balance)
	mux.HandleFunc("GET /readiness", h.Readiness)
	mux.HandleFunc("GET /deeplink", h.DeepLink)
	mux.HandleFunc("POST /connect", h.Connect)
	mux.HandleFunc("POST /disconnect", h.Disconnect)
	mux.HandleFunc("POST /network/switch", h.SwitchNetwork)
	mux.HandleFunc("POST /pay/begin", h.PayBegin)
	mux.HandleFunc("POST /pay/confirm", h.PayConfirm)
	return mux
}

type walletResponse struct {
	Connected  bool   `json:"connected"`
	Address    string `json:"address,omitempty"`
	ChainID    int64  `json:"chainId,omitempty"`
	WalletType string `json:"walletType"`
	Detecting  bool   `json:"detecting"`
}

// Wallet reports the reconciled wallet state.
func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	state, detecting := h.store.State()
	resp := walletResponse{
		Connected:  state.Connected,
		ChainID:    state.ChainID,
		WalletType: string(state.WalletType),
		Detecting:  detecting,
	}
	if state.Address != nil {
		resp.Address = state.Address.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

type networkResponse struct {
	CurrentChainID  int64 `json:"currentChainId"`
	ExpectedChainID int64 `json:"expectedChainId"`
	Correct         bool  `json:"correct"`
	Supported       bool  `json:"supported"`
}

// Network reports the network match state.
func (h *Handler) Network(w http.ResponseWriter, r *http.Request) {
	m := h.reconciler.Match()
	writeJSON(w, http.StatusOK, networkResponse{
		CurrentChainID:  m.CurrentChainID,
		ExpectedChainID: m.ExpectedChainID,
		Correct:         m.Correct,
		Supported:       m.Supported,
	})
}

type balanceResponse struct {
	Available bool   `json:"available"`
	Formatted string `json:"formatted,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
}

// Balance reports the latest fetched balance, if any.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	bal, ok := h.gate.Latest()
	resp := balanceResponse{Available: ok}
	if ok {
		resp.Formatted = bal.Formatted
		resp.Symbol = bal.Symbol
		resp.Decimals = bal.Decimals
	}
	writeJSON(w, http.StatusOK, resp)
}

type readinessResponse struct {
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
	Error   string `json:"error,omitempty"`
}

// Readiness reports the pay-action state machine position.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{
		State:   h.controller.State().String(),
		Enabled: h.controller.Enabled(),
		Label:   h.controller.Label(),
	}
	if err := h.controller.LastError(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type deepLinkResponse struct {
	URL string `json:"url"`
}

// DeepLink builds the wallet-app launch URL for a page, for mobile browsers
// with no injected provider. The wallet type defaults to the detected one
// when the query leaves it unset.
func (h *Handler) DeepLink(w http.ResponseWriter, r *http.Request) {
	wt := checkout.WalletType(r.URL.Query().Get("wallet"))
	if wt == "" {
		state, _ := h.store.State()
		wt = state.WalletType
	}
	link, err := provider.DeepLink(wt, r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deepLinkResponse{URL: link})
}

type connectRequest struct {
	Ref string `json:"ref"`
}

// Connect starts a wallet connection attempt.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.Connect(r.Context(), req.Ref); err != nil {
		h.writeClassified(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect tears the wallet connection down. Always succeeds.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.store.Disconnect(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type switchRequest struct {
	Network string `json:"network,omitempty"`
}

// SwitchNetwork optionally re-targets the expected network, then asks the
// wallet to switch to it.
func (h *Handler) SwitchNetwork(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Network != "" {
		if err := h.reconciler.SetExpected(req.Network); err != nil {
			h.writeClassified(w, err)
			return
		}
	}
	if err := h.reconciler.SwitchToExpected(r.Context()); err != nil {
		h.writeClassified(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayBegin starts a pay attempt.
func (h *Handler) PayBegin(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Begin(r.Context()); err != nil {
		h.writeClassified(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayConfirm confirms the payment transaction.
func (h *Handler) PayConfirm(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Confirm(r.Context()); err != nil {
		h.writeClassified(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind"`
	Recoverable bool   `json:"recoverable"`
}

// writeClassified maps taxonomy errors to HTTP responses. Raw provider
// messages stay in the body as diagnostics but never become the primary text.
func (h *Handler) writeClassified(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error(), Recoverable: checkout.IsRecoverable(err)}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, checkout.ErrProviderUnavailable):
		resp.Kind = "provider-unavailable"
		resp.Error = "no wallet detected"
		status = http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrUserRejected):
		resp.Kind = "user-rejected"
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrPendingRequest):
		resp.Kind = "pending-request"
		resp.Error = "a wallet request is already in progress, please wait"
		status = http.StatusTooManyRequests
	case errors.Is(err, checkout.ErrConnectInFlight):
		resp.Kind = "connect-in-flight"
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrWrongNetwork):
		resp.Kind = "wrong-network"
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrNetworkCongestion):
		resp.Kind = "network-congestion"
		status = http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrInsufficientBalance):
		resp.Kind = "insufficient-balance"
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrInvalidTransition):
		resp.Kind = "invalid-transition"
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrUnknownNetwork), errors.Is(err, checkout.ErrConfiguration):
		resp.Kind = "configuration"
		h.log.Error("configuration defect surfaced by api", map[string]any{"error": err.Error()})
	default:
		resp.Kind = "failure"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: "bad-request"})
}
