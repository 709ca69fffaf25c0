package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/dispatch"
	"sunnydapp/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxInvokeBody bounds the size of an invocation request
const maxInvokeBody = 1 << 20

// handleIndex returns basic service information
// GET / - Returns service info, available endpoints and the operation table
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "SunnyDapp",
		"version":     "1.0.0",
		"description": "Weather insurance escrow ledger",
		"owner":       s.engine.Owner(),
		"operations":  dispatch.Operations(),
		"endpoints": map[string]string{
			"GET /":                    "This page - Service information",
			"GET /health":              "Health check endpoint",
			"GET /metrics":             "Prometheus metrics for monitoring",
			"POST /invoke":             "Invoke a contract operation (operation, base64 XDR args, signatures)",
			"GET /config":              "Deployed configuration",
			"GET /agreements":          "List all agreements",
			"GET /agreements/{key}":    "Get one agreement with derived event time",
			"GET /balances/{account}":  "Balance held by an account",
			"GET /sequences/{account}": "Sequence the account must sign its next invocation with",
			"GET /audit":               "Conservation report over all balances and agreements",
			"GET /events":              "Emitted events (supports ?agreement_key=, ?type=, ?limit=, ?offset=)",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			slog.Warn("Health check failed", "error", err)
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "sunnydapp",
	})
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleInvoke runs one operation through the dispatcher
// POST /invoke {"operation": "...", "args": ["<base64 xdr>"], "signatures": {"G...": "<base64>"}, "sequences": {"G...": 0}}
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.InvokeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInvokeBody)).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Operation == "" {
		s.sendError(w, "operation is required", http.StatusBadRequest)
		return
	}

	sigs, err := decodeSignatures(req)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	witness, err := auth.VerifySignatures(s.passphrase, req.Operation, req.Args, sigs)
	if err != nil {
		code := http.StatusUnauthorized
		if errors.Is(err, auth.ErrInvalidAccount) {
			code = http.StatusBadRequest
		}
		slog.Warn("Rejected invocation signatures", "operation", req.Operation, "error", err)
		s.sendError(w, err.Error(), code)
		return
	}

	args, err := dispatch.DecodeArgs(req.Args)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.dispatcher.Invoke(r.Context(), dispatch.Invocation{
		Operation: req.Operation,
		Args:      args,
		Witness:   witness,
	})

	resp := models.InvokeResponse{
		Operation: res.Operation,
		OK:        res.OK,
		ErrorKind: string(res.ErrorKind),
		Message:   res.Message,
	}
	if res.OK {
		resp.Value = res.Value
		if a, ok := res.Value.(*models.Agreement); ok {
			resp.Value = BuildAgreementResponse(a)
		}
	}

	writeJSON(w, statusForKind(res.ErrorKind), resp)
}

// handleConfig returns the deployed configuration
// GET /config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := s.engine.Config(r.Context())
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ConfigResponse{
		GlobalConfig:   *cfg,
		Owner:          s.engine.Owner(),
		OrderingHolds:  cfg.OrderingHolds(),
		ThresholdValue: models.Threshold,
	})
}

// handleListAgreements lists every stored agreement
// GET /agreements?status=pending
func (s *Server) handleListAgreements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agreements, err := s.engine.ListAgreements(r.Context())
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	status := models.AgreementStatus(r.URL.Query().Get("status"))
	out := make([]models.AgreementResponse, 0, len(agreements))
	for _, a := range agreements {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, BuildAgreementResponse(a))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agreements": out,
		"total":      len(out),
	})
}

// handleGetAgreement returns one agreement
// GET /agreements/{key}
func (s *Server) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/agreements/")
	if key == "" {
		s.sendError(w, "Agreement key required", http.StatusBadRequest)
		return
	}

	a, err := s.engine.GetAgreement(r.Context(), key)
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BuildAgreementResponse(a))
}

// handleGetBalance returns the balance of an account
// GET /balances/{account}
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account := strings.TrimPrefix(r.URL.Path, "/balances/")
	if account == "" {
		s.sendError(w, "Account required", http.StatusBadRequest)
		return
	}

	balance, err := s.engine.BalanceOf(r.Context(), account)
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Balance{Account: account, Amount: balance})
}

// handleGetSequence returns the sequence an account must sign its next invocation with
// GET /sequences/{account}
func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account := strings.TrimPrefix(r.URL.Path, "/sequences/")
	if !auth.ValidAccount(account) {
		s.sendError(w, "Stellar account id required", http.StatusBadRequest)
		return
	}

	seq, err := s.engine.Sequence(r.Context(), account)
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SequenceResponse{Account: account, Sequence: seq})
}

// handleAudit returns the conservation report
// GET /audit
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.engine.Audit(r.Context())
	if err != nil {
		s.sendEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":    report,
		"conserved": report.Conserved(),
	})
}

// handleEvents returns emitted events, newest first
// GET /events?agreement_key=A1&type=pay-out&limit=50&offset=0
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.events == nil {
		s.sendError(w, "Event log not configured", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	filter := models.EventFilter{
		AgreementKey: query.Get("agreement_key"),
		EventType:    models.EventType(query.Get("type")),
		Limit:        queryInt(r, "limit", 50, 1000),
		Offset:       queryInt(r, "offset", 0, 0),
	}

	events, err := s.events.ListContractEvents(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list events", "agreement_key", filter.AgreementKey, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.EventsResponse{
		AgreementKey: filter.AgreementKey,
		Events:       events,
		Total:        len(events),
	})
}
