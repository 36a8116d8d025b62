package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"promo-engine/internal/admission"
	"promo-engine/internal/eligibility"
	"promo-engine/internal/observability"
	"promo-engine/internal/storage"
)

// Store is what the CRUD handlers need beyond the admission controller:
// the gated mutation path goes through the controller, everything else
// talks to the store directly.
type Store interface {
	admission.Store
	Create(ctx context.Context, p eligibility.Promotion) (*eligibility.Promotion, error)
	Delete(ctx context.Context, id string) error
}

// Banner is the storefront-facing promotion payload.
type Banner struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageRef    string `json:"img"`
}

// PreviewEntry pairs a promotion with its evaluation at the preview
// instant, for operator diagnostics.
type PreviewEntry struct {
	Promotion eligibility.Promotion `json:"promotion"`
	Result    eligibility.Result    `json:"result"`
}

type PromotionHandler struct {
	Ctrl  *admission.Controller
	Store Store
	Cache *storage.Cache
}

func NewPromotionHandler(ctrl *admission.Controller, store Store, cache *storage.Cache) *PromotionHandler {
	return &PromotionHandler{Ctrl: ctrl, Store: store, Cache: cache}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string   `json:"error"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var adm *admission.Error
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &adm):
		observability.AdmissionRejections.WithLabelValues(string(adm.Code)).Inc()
		writeJSON(w, http.StatusConflict, errorBody{
			Error:     string(adm.Code),
			Conflicts: adm.Conflicts,
		})
	case errors.Is(err, admission.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "promotion not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// Storefront serves the public "what should we show right now" query from
// the cached snapshot, falling back to the store on a cold cache.
func (h *PromotionHandler) Storefront(w http.ResponseWriter, r *http.Request) {
	promos, ok := h.Cache.Promotions()
	var eligible []eligibility.Promotion
	if ok {
		eligible = eligibility.EligibleAt(promos, h.Ctrl.Now())
	} else {
		var err error
		eligible, err = h.Ctrl.ListEligibleNow(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	observability.EligibleGauge.Set(float64(len(eligible)))

	if len(eligible) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	banners := make([]Banner, 0, len(eligible))
	for _, p := range eligible {
		banners = append(banners, Banner{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ImageRef:    p.ImageRef,
		})
	}
	writeJSON(w, http.StatusOK, banners)
}

func (h *PromotionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	promos, err := h.Store.LoadAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

func (h *PromotionHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.LoadOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AdminEligible previews the currently-eligible set straight from the
// store, so pending admin writes show up before the snapshot refreshes.
func (h *PromotionHandler) AdminEligible(w http.ResponseWriter, r *http.Request) {
	eligible, err := h.Ctrl.ListEligibleNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eligible)
}

// AdminPreview returns every promotion with its evaluation at this
// instant, rejection reason included.
func (h *PromotionHandler) AdminPreview(w http.ResponseWriter, r *http.Request) {
	promos, err := h.Store.LoadAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.Ctrl.Now()
	entries := make([]PreviewEntry, 0, len(promos))
	for _, p := range promos {
		entries = append(entries, PreviewEntry{Promotion: p, Result: eligibility.Evaluate(p, now)})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *PromotionHandler) AdminPriorityCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Ctrl.CountPriorityEligible(r.Context(), h.Ctrl.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *PromotionHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var p eligibility.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body: " + err.Error()})
		return
	}
	p.ID = uuid.NewString()
	if err := eligibility.Validate(p); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.Store.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("id", created.ID).Str("title", created.Title).Msg("promotion created")
	writeJSON(w, http.StatusCreated, created)
}

// AdminPatch is the gated mutation path: every partial update, flag flip
// included, goes through the admission controller.
func (h *PromotionHandler) AdminPatch(w http.ResponseWriter, r *http.Request) {
	var patch admission.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body: " + err.Error()})
		return
	}
	if patch.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "empty patch"})
		return
	}
	updated, err := h.Ctrl.AttemptActivate(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PromotionHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
