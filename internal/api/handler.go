package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/boston-price/internal/config"
	"github.com/kartoza/boston-price/internal/features"
	"github.com/kartoza/boston-price/internal/form"
	"github.com/kartoza/boston-price/internal/httputil"
	"github.com/kartoza/boston-price/internal/predict"
)

// failureMessage is the only thing a user learns about a failed prediction
const failureMessage = "prediction failed"

// Predictor is the part of the prediction client the API needs
type Predictor interface {
	Predict(ctx context.Context, inputs features.InputVector) (predict.Result, error)
	Areas(ctx context.Context) ([]int, error)
	AreaStats(ctx context.Context, rad int) (predict.AreaStats, error)
	BaseURL() string
}

// Handler provides HTTP API endpoints
type Handler struct {
	sessions  *form.Store
	predictor Predictor
	cfg       config.Config
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(sessions *form.Store, predictor Predictor, cfg config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:  sessions,
		predictor: predictor,
		cfg:       cfg,
		logger:    logger,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Form description
	r.HandleFunc("/fields", h.handleFields).Methods("GET")
	r.HandleFunc("/fields/{key}", h.handleField).Methods("GET")

	// Form sessions
	r.HandleFunc("/sessions", h.handleCreateSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", h.handleGetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.handleDeleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/fields/{key}", h.handleSetField).Methods("PUT")
	r.HandleFunc("/sessions/{id}/predict", h.handlePredict).Methods("POST")

	// Area catalog
	r.HandleFunc("/areas", h.handleAreas).Methods("GET")
	r.HandleFunc("/areas/{rad:[0-9]+}", h.handleAreaStats).Methods("GET")
}

// stateView is the JSON shape of a form session. Inputs holding NaN are
// sent as null.
type stateView struct {
	ID       string              `json:"id"`
	Inputs   map[string]*float64 `json:"inputs"`
	Price    *float64            `json:"price"`
	Display  string              `json:"display"`
	InFlight bool                `json:"inFlight"`
}

func newStateView(id string, st form.State) stateView {
	inputs := make(map[string]*float64, features.NumKeys)
	for k, v := range st.Inputs.Map() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			inputs[string(k)] = nil
			continue
		}
		inputs[string(k)] = &v
	}
	view := stateView{
		ID:       id,
		Inputs:   inputs,
		Display:  st.Display(),
		InFlight: st.InFlight,
	}
	if st.HasPrice {
		price := st.Price
		view.Price = &price
	}
	return view
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":  h.cfg.Version,
		"endpoint": h.predictor.BaseURL(),
		"sessions": h.sessions.Len(),
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleFields returns the field descriptors in display order
func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, features.Fields())
}

// handleField returns the descriptor of one field
func (h *Handler) handleField(w http.ResponseWriter, r *http.Request) {
	key, err := features.ParseKey(mux.Vars(r)["key"])
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	field, ok := features.Lookup(key)
	if !ok {
		httputil.RespondError(w, http.StatusNotFound, "no descriptor for "+string(key))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, field)
}

// handleCreateSession starts a fresh all-zero form
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, st := h.sessions.Create()
	httputil.RespondJSON(w, http.StatusCreated, newStateView(id, st))
}

// handleGetSession returns the current form state
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := h.sessions.Get(id)
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, newStateView(id, st))
}

// handleDeleteSession drops a form, e.g. when the page is closed
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// handleSetField updates one input. The body is {"value": x, "rev": n} where
// x is a number, a string typed into a text field, or null for a cleared
// field. A browser numbers its edits with rev so one that arrives after a
// newer edit of the same field is refused with 409.
func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	key, err := features.ParseKey(vars["key"])
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Value json.RawMessage `json:"value"`
		Rev   uint64          `json:"rev"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value, err := decodeValue(req.Value)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.sessions.Update(id, func(s form.State) (form.State, error) {
		return form.SetValueAt(s, key, value, req.Rev)
	})
	switch {
	case errors.Is(err, form.ErrStaleEdit):
		httputil.RespondError(w, http.StatusConflict, form.ErrStaleEdit.Error())
		return
	case err != nil:
		httputil.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, newStateView(id, st))
}

// decodeValue turns a JSON value from a widget into a number. Strings are
// coerced like text input; null and an absent value read as a cleared field.
func decodeValue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN(), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return features.Coerce(text), nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, errors.New("value must be a number, a string or null")
	}
	return num, nil
}

// handlePredict runs one prediction for the session. The call is not tied
// to the browser request; a closed tab does not cancel it.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := context.WithoutCancel(r.Context())

	st, err := h.sessions.Predict(ctx, id, func(ctx context.Context, inputs features.InputVector) (float64, error) {
		res, err := h.predictor.Predict(ctx, inputs)
		return res.Price, err
	})
	switch {
	case err == nil:
		httputil.RespondJSON(w, http.StatusOK, newStateView(id, st))
	case errors.Is(err, form.ErrSessionNotFound):
		httputil.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, form.ErrInFlight):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Info("prediction failed",
			zap.String("session", id),
			zap.String("request_id", httputil.RequestID(r.Context())),
			zap.Error(err))
		httputil.RespondError(w, http.StatusBadGateway, failureMessage)
	}
}

// handleAreas lists radial highway indexes known to the prediction service
func (h *Handler) handleAreas(w http.ResponseWriter, r *http.Request) {
	rads, err := h.predictor.Areas(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusBadGateway, "area catalog unavailable")
		return
	}
	if rads == nil {
		rads = []int{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string][]int{"rads": rads})
}

// handleAreaStats returns price statistics for one radial highway index
func (h *Handler) handleAreaStats(w http.ResponseWriter, r *http.Request) {
	rad, err := strconv.Atoi(mux.Vars(r)["rad"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "rad must be an integer")
		return
	}
	stats, err := h.predictor.AreaStats(r.Context(), rad)
	if err != nil {
		httputil.RespondError(w, http.StatusBadGateway, "area catalog unavailable")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, stats)
}
