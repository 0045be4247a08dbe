// Package httpapi exposes the feed node over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/executor"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/metrics"
	"github.com/R3E-Network/socialfeed/internal/middleware"
	"github.com/R3E-Network/socialfeed/internal/program"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Deps are the components the API serves.
type Deps struct {
	Ledger   *ledger.Ledger
	Program  *program.Program
	Executor *executor.Executor
	Logger   *logger.Logger
	// Limiter is optional.
	Limiter *middleware.RateLimiter
	// AllowedOrigins enables CORS.
	AllowedOrigins []string
	// EnableAirdrop registers the dev faucet.
	EnableAirdrop bool
}

type handler struct {
	ledger   *ledger.Ledger
	program  *program.Program
	executor *executor.Executor
	log      *logger.Logger
}

// NewHandler returns the router exposing the feed API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logger.NewDefault("httpapi")
	}
	h := &handler{
		ledger:   deps.Ledger,
		program:  deps.Program,
		executor: deps.Executor,
		log:      deps.Logger,
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	if cors := middleware.NewCORSMiddleware(deps.AllowedOrigins); cors.Enabled() {
		router.Use(cors.Handler)
	}
	if deps.Limiter != nil {
		router.Use(deps.Limiter.Handler)
	}

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/tx", h.submit).Methods(http.MethodPost)
	if deps.EnableAirdrop {
		router.HandleFunc("/airdrop", h.airdrop).Methods(http.MethodPost)
	}
	router.HandleFunc("/accounts/{address}", h.account).Methods(http.MethodGet)
	router.HandleFunc("/profiles/{owner}", h.profile).Methods(http.MethodGet)
	router.HandleFunc("/posts", h.posts).Methods(http.MethodGet)
	router.HandleFunc("/posts/{address}", h.post).Methods(http.MethodGet)

	return metrics.InstrumentHandler(router)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.ledger.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"program": h.program.ID().String(),
		"slot":    stats.Slot,
	})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var tx executor.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, badRequest(err))
		return
	}
	receipt, err := h.executor.Execute(r.Context(), &tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *handler) airdrop(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address ledger.Address `json:"address"`
		Amount  uint64         `json:"amount"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, badRequest(err))
		return
	}
	if payload.Address.IsZero() {
		writeError(w, core.RequiredError("address"))
		return
	}
	id, err := h.ledger.Airdrop(r.Context(), payload.Address, payload.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	h.log.WithContext(r.Context()).WithFields(map[string]interface{}{
		"address": payload.Address.String(),
		"amount":  payload.Amount,
	}).Info("airdrop")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tx_id":   id,
		"balance": h.ledger.Balance(payload.Address),
	})
}

func (h *handler) account(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	acct, ok := h.ledger.Get(addr)
	if !ok {
		writeError(w, core.NewNotFoundError("account", addr.String()))
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	owner, err := ledger.ParseAddress(mux.Vars(r)["owner"])
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.program.FetchProfile(h.ledger, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// posts lists live posts. With ?author= it may also report deleted ones:
// status=closed lists only those, status=all lists the whole history.
func (h *handler) posts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := strings.ToLower(strings.TrimSpace(query.Get("status")))
	want := program.StatusActive
	if status != "" && status != "all" {
		want = program.ParseStatus(status)
		if want == program.StatusAbsent {
			writeError(w, core.NewValidationError("status", "must be active, closed or all"))
			return
		}
	}

	author := query.Get("author")
	if author == "" {
		if status == "all" || want != program.StatusActive {
			writeError(w, core.NewValidationError("author", "is required to list deleted posts"))
			return
		}
		entries, err := h.program.ListAllPosts(h.ledger)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	addr, err := ledger.ParseAddress(author)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := h.program.PostHistory(h.ledger, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := make([]*program.PostEntry, 0, len(history))
	for _, entry := range history {
		if status == "all" || entry.Status == want {
			entries = append(entries, entry)
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.program.FetchPost(h.ledger, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// maxBodyBytes bounds request bodies. A transaction carries at most a title
// and an 8 KiB content string.
const maxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.NewValidationError("body", fmt.Sprintf("exceeds %d bytes", maxBodyBytes))
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(core.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  core.Code(err),
	})
}

// badRequest tags a body decoding failure as invalid input unless it already
// carries a code.
func badRequest(err error) error {
	if core.Code(err) != core.CodeInternal {
		return err
	}
	return core.NewValidationError("body", err.Error())
}
