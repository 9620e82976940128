package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/outputlog"
	"github.com/eugenenazirov/spacing-calculator/internal/report"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// maxRequestBodyBytes caps JSON request bodies.
const maxRequestBodyBytes = 64 << 10

// Handler wires the calculator and the session into HTTP handlers. The
// session is single-threaded, so every request holds mu while touching it.
type Handler struct {
	calculator calculator.Calculator
	seed       []spacer.Definition
	onChange   func()

	clock func() time.Time

	mu        sync.Mutex
	state     *session.State
	updatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSeed sets the spacers a reset restores. Built-ins are used by default.
func WithSeed(seed []spacer.Definition) HandlerOption {
	return func(h *Handler) {
		h.seed = seed
	}
}

// WithChangeHook registers fn to run, with the session lock held, after every
// successful mutation.
func WithChangeHook(fn func()) HandlerOption {
	return func(h *Handler) {
		h.onChange = fn
	}
}

// NewHandler constructs a Handler owning state.
func NewHandler(calc calculator.Calculator, state *session.State, opts ...HandlerOption) *Handler {
	h := &Handler{
		calculator: calc,
		state:      state,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.updatedAt = h.clock()
	return h
}

// WithState runs fn with exclusive access to the session.
func (h *Handler) WithState(fn func(*session.State) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.state)
}

// Index serves the session summary page.
func (h *Handler) Index() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		h.mu.Lock()
		page, err := report.Page(h.state, h.calculator)
		h.mu.Unlock()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListSpacers(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.spacersResponseLocked(""))
}

func (h *Handler) handleAddSpacer(w http.ResponseWriter, r *http.Request) {
	var req addSpacerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	added, err := h.state.Registry.Add(req.Name, req.Thickness)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.changedLocked()

	writeJSON(w, http.StatusCreated, spacerMutationResponse{
		Spacer:  added,
		Spacers: h.state.Registry.Spacers(),
		Message: "Spacer added",
	})
}

func (h *Handler) handleUpdateSpacer(w http.ResponseWriter, r *http.Request) {
	id, ok := spacerID(w, r)
	if !ok {
		return
	}

	var req updateSpacerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	// validate before touching anything so a bad thickness changes nothing
	if req.Thickness != nil {
		if _, err := spacer.ParseThickness(*req.Thickness); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.state.Registry.Get(id); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Name != nil {
		if err := h.state.Registry.Rename(id, *req.Name); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Thickness != nil {
		if err := h.state.Registry.UpdateThickness(id, *req.Thickness); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Enabled != nil {
		if err := h.state.Registry.SetEnabled(id, *req.Enabled); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	h.changedLocked()

	updated, _ := h.state.Registry.Get(id)
	writeJSON(w, http.StatusOK, spacerMutationResponse{
		Spacer:  updated,
		Spacers: h.state.Registry.Spacers(),
		Message: "Spacer updated",
	})
}

func (h *Handler) handleToggleSpacer(w http.ResponseWriter, r *http.Request) {
	id, ok := spacerID(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.state.Registry.ToggleEnabled(id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.changedLocked()

	toggled, _ := h.state.Registry.Get(id)
	writeJSON(w, http.StatusOK, spacerMutationResponse{
		Spacer:  toggled,
		Spacers: h.state.Registry.Spacers(),
	})
}

func (h *Handler) handleDeleteSpacer(w http.ResponseWriter, r *http.Request) {
	id, ok := spacerID(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	removed, err := h.state.Registry.Remove(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.changedLocked()

	writeJSON(w, http.StatusOK, spacerMutationResponse{
		Spacer:  removed,
		Spacers: h.state.Registry.Spacers(),
		Message: "Spacer deleted",
	})
}

func (h *Handler) handleFit(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Draft.Target != req.Target {
		h.state.Draft.Target = req.Target
		h.changedLocked()
	}

	start := time.Now()
	result, err := calculator.Compute(h.calculator, req.Target, h.state.Registry)
	elapsed := time.Since(start)

	if errors.Is(err, calculator.ErrNotComputable) {
		writeJSON(w, http.StatusOK, fitResponse{Target: req.Target})
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := newFitResponse(req.Target, result)
	resp.CalculationTimeMicros = elapsed.Microseconds()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.Lock()
	entries := h.state.Log.Entries()
	h.mu.Unlock()

	resp := outputsResponse{Outputs: make([]outputResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Outputs = append(resp.Outputs, newOutputResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSaveOutput(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.state.SaveOutput(h.calculator, req.Target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.changedLocked()

	writeJSON(w, http.StatusCreated, newOutputResponse(entry))
}

func (h *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, pagePayload{Page: h.state.Page})
}

func (h *Handler) handlePutPage(w http.ResponseWriter, r *http.Request) {
	var req pagePayload
	if !decodeRequest(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.state.SetPage(req.Page); err != nil {
		writeDomainError(w, err)
		return
	}
	h.changedLocked()

	writeJSON(w, http.StatusOK, pagePayload{Page: h.state.Page})
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.state.Draft)
}

func (h *Handler) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var req session.Draft
	if !decodeRequest(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.Draft = req
	h.changedLocked()

	writeJSON(w, http.StatusOK, h.state.Draft)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.state.Reset(h.seed); err != nil {
		writeInternalError(w, err)
		return
	}
	h.changedLocked()

	writeJSON(w, http.StatusOK, h.spacersResponseLocked("State reset to defaults"))
}

func (h *Handler) spacersResponseLocked(message string) spacersResponse {
	return spacersResponse{
		Spacers:   h.state.Registry.Spacers(),
		UpdatedAt: h.updatedAt,
		Message:   message,
	}
}

func (h *Handler) changedLocked() {
	h.updatedAt = h.clock()
	if h.onChange != nil {
		h.onChange()
	}
}

func spacerID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid spacer id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// decodeRequest reads a size-limited JSON body into dst and writes the error
// response itself when that fails.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spacer.ErrInvalidThickness):
		writeError(w, http.StatusBadRequest, "Invalid thickness", err.Error(), "Enter a positive number of inches, e.g. 0.125")
	case errors.Is(err, spacer.ErrEmptyName), errors.Is(err, spacer.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid name", err.Error())
	case errors.Is(err, spacer.ErrIDsExhausted):
		writeError(w, http.StatusConflict, "Spacer limit reached", err.Error())
	case errors.Is(err, spacer.ErrSpacerNotFound):
		writeError(w, http.StatusNotFound, "Spacer not found", err.Error())
	case errors.Is(err, calculator.ErrNotComputable):
		writeError(w, http.StatusUnprocessableEntity, "Not computable", err.Error(), "Enter the target thickness in inches, e.g. 0.8")
	case errors.Is(err, session.ErrUnknownPage):
		writeError(w, http.StatusBadRequest, "Invalid page", err.Error())
	case errors.Is(err, outputlog.ErrEmptyEntry):
		writeError(w, http.StatusBadRequest, "Invalid output", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
