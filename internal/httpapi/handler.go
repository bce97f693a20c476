// Package httpapi is the reference server for the form engine's HTTP
// surface: form CRUD, public payment configuration, response submission,
// payment orders and the translator endpoints, all over an in-memory store.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
)

// Handler wires the engine's HTTP surface to the store.
type Handler struct {
	store *Store
	log   *zap.Logger
	clock runtime.Clock

	// approvalBase is where created payment orders send the user
	approvalBase string
}

// Config defines the dependencies of Handler.
type Config struct {
	Store        *Store
	Logger       *zap.Logger
	Clock        runtime.Clock
	ApprovalBase string
}

// NewHandler constructs the handler set. Missing config entries fall back
// to working defaults.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		store:        cfg.Store,
		log:          cfg.Logger,
		clock:        cfg.Clock,
		approvalBase: cfg.ApprovalBase,
	}
	if h.store == nil {
		h.store = NewStore()
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.clock == nil {
		h.clock = runtime.ClockFunc(time.Now)
	}
	if h.approvalBase == "" {
		h.approvalBase = "https://www.sandbox.paypal.com/checkoutnow"
	}
	return h
}

// Routes builds the chi router for the whole surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/forms", func(r chi.Router) {
		r.Post("/", h.createForm)
		r.Get("/{id}", h.getForm)
		r.Put("/{id}", h.updateForm)
		r.Route("/slug/{slug}", func(r chi.Router) {
			r.Get("/payment-config", h.paymentConfig)
			r.Post("/responses", h.submitResponse)
			r.Post("/payment/paypal/orders", h.createOrder)
			r.Post("/payment/paypal/capture", h.captureOrder)
		})
	})

	r.Route("/v1/translator", func(r chi.Router) {
		r.Post("/translate-multi", h.translateMulti)
		r.Get("/languages", h.languages)
	})

	return r
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	var form schema.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form document", nil)
		return
	}

	stored, err := h.store.CreateForm(form)
	if err != nil {
		var conflict *ErrTitleConflict
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":       "a form with this title already exists",
				"existing_id": conflict.ExistingID,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "create failed", err)
		return
	}

	h.log.Info("form created", zap.String("id", stored.ID), zap.String("slug", stored.Slug))
	writeJSON(w, http.StatusCreated, map[string]any{"id": stored.ID, "slug": stored.Slug})
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.Form(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "form not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) updateForm(w http.ResponseWriter, r *http.Request) {
	var form schema.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form document", nil)
		return
	}

	stored, err := h.store.UpdateForm(chi.URLParam(r, "id"), form)
	if err != nil {
		writeError(w, http.StatusNotFound, "form not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) paymentConfig(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.FormBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, http.StatusNotFound, "form not found", nil)
		return
	}

	cfg := runtime.PaymentConfig{}
	if price := stored.Form.PriceField(); price != nil {
		cfg.RequiresPayment = true
		cfg.Amount = price.Amount
		cfg.AllowPayPal = price.AllowPayPal
		cfg.AllowInPerson = price.AllowInPerson
		if !price.AllowPayPal && !price.AllowInPerson {
			cfg.AllowPayPal = true
			cfg.AllowInPerson = true
		}
	}
	writeJSON(w, http.StatusOK, cfg)
}

// formForSubmission resolves a slug and applies the availability checks
// shared by submissions and payment orders.
func (h *Handler) formForSubmission(w http.ResponseWriter, slug string) (*StoredForm, bool) {
	stored, err := h.store.FormBySlug(slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "form not found", nil)
		return nil, false
	}
	if stored.Hidden {
		writeError(w, http.StatusForbidden, "form is not available", nil)
		return nil, false
	}
	if stored.Form.Expired(h.clock.Now()) {
		writeError(w, http.StatusGone, "form has expired", nil)
		return nil, false
	}
	return stored, true
}

func (h *Handler) submitResponse(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	stored, ok := h.formForSubmission(w, slug)
	if !ok {
		return
	}

	var payload runtime.SubmissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission payload", nil)
		return
	}
	if payload.PaymentInfo != nil && payload.PaymentInfo.Status == runtime.StatusPendingDoorPayment {
		// the server owns the payment timestamp for door payments
		h.log.Info("door payment pending",
			zap.String("slug", slug),
			zap.Float64("amount", payload.PaymentInfo.Amount))
	}

	response := h.store.AddResponse(stored.Slug, payload, h.clock.Now())
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": response.ID})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, ok := h.formForSubmission(w, slug); !ok {
		return
	}

	var req runtime.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order request", nil)
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"error":   "order amount must be positive",
		})
		return
	}

	token := h.store.CreateOrder(slug, req)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"approval_url": fmt.Sprintf("%s?token=%s", h.approvalBase, token),
	})
}

func (h *Handler) captureOrder(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req struct {
		Token   string `json:"token"`
		PayerID string `json:"payer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.PayerID == "" {
		writeError(w, http.StatusBadRequest, "token and payer_id are required", nil)
		return
	}

	response, err := h.store.CaptureOrder(slug, req.Token, h.clock.Now())
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found", nil)
		return
	}

	h.log.Info("payment captured", zap.String("slug", slug), zap.String("response", response.ID))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": response.ID})
}

func (h *Handler) translateMulti(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts   []string `json:"texts"`
		Locales []string `json:"locales"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid translation request", nil)
		return
	}

	// deterministic pseudo-translations; a deployment swaps in a real
	// translation backend behind the same contract
	translations := make(map[string]map[string]string, len(req.Texts))
	for _, text := range req.Texts {
		perLocale := make(map[string]string, len(req.Locales))
		for _, locale := range req.Locales {
			perLocale[locale] = fmt.Sprintf("[%s] %s", locale, text)
		}
		translations[text] = perLocale
	}
	writeJSON(w, http.StatusOK, map[string]any{"translations": translations})
}

func (h *Handler) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []runtime.Language{
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
		{Code: "pt", Name: "Portuguese"},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
