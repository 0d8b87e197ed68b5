package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realizeit/storefront/internal/common"
	"github.com/realizeit/storefront/internal/obs"
	"github.com/realizeit/storefront/internal/pricing"
)

// Handler wires the cart store and pricing engine to HTTP.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type itemPayload struct {
	ID       string          `json:"id" validate:"required,max=64"`
	BaseCost decimal.Decimal `json:"baseCost"`
	Quantity int             `json:"quantity" validate:"min=1,max=999"`
	Currency string          `json:"currency" validate:"required,oneof=USD KRW"`
}

type quotePayload struct {
	Items   []itemPayload `json:"items" validate:"max=100,dive"`
	Country string        `json:"country" validate:"omitempty,len=2,alpha"`
	Locale  string        `json:"locale" validate:"omitempty,max=35"`
}

// normalize trims the id and upper-cases the currency before validation.
func (p *itemPayload) normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
}

func (p itemPayload) lineItem() pricing.LineItem {
	return pricing.LineItem{
		ID:       p.ID,
		BaseCost: p.BaseCost,
		Quantity: p.Quantity,
		Currency: pricing.Currency(p.Currency),
	}
}

func (h *Handler) validate() *validator.Validate {
	if h.Validate == nil {
		h.Validate = validator.New()
	}
	return h.Validate
}

// Create issues a new cart identifier.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusCreated, map[string]any{"cartId": uuid.NewString()})
}

// Get returns the cart contents with a price breakdown for ?country=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	c, err := h.Store.Get(r.Context(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// PutItem adds or replaces a line item.
func (h *Handler) PutItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	var payload itemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.normalize()
	if err := h.validate().Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid cart item", validationDetails(err))
		return
	}
	if payload.BaseCost.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid cart item", map[string]string{"baseCost": "min"})
		return
	}
	c, err := h.Store.PutItem(r.Context(), chi.URLParam(r, "id"), payload.lineItem())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	c, err := h.Store.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	if err := h.Store.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quote prices an ad-hoc list of items without touching stored carts.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload quotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	items := make([]pricing.LineItem, 0, len(payload.Items))
	for i := range payload.Items {
		payload.Items[i].normalize()
		items = append(items, payload.Items[i].lineItem())
	}
	if err := h.validate().Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid quote request", validationDetails(err))
		return
	}
	for i, it := range items {
		if it.BaseCost.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid quote request", map[string]string{fmt.Sprintf("Items[%d].BaseCost", i): "min"})
			return
		}
	}
	breakdown := pricing.ComputeBreakdown(items, payload.Country)
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(quoteDestination(payload.Country)).Inc()
	}
	common.Data(w, http.StatusOK, map[string]any{
		"totals":    breakdown,
		"formatted": breakdown.Formatted(pricing.ParseLocale(payload.Locale), payload.Country),
	})
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, c Cart) {
	country := r.URL.Query().Get("country")
	breakdown := pricing.ComputeBreakdown(c.Items, country)
	common.Data(w, status, map[string]any{
		"id":        c.ID,
		"items":     c.Items,
		"updatedAt": c.UpdatedAt,
		"totals":    breakdown,
		"formatted": breakdown.Formatted(pricing.ParseLocale(r.URL.Query().Get("locale")), country),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store error", nil)
	}
}

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fieldPath(fe)] = fe.Tag()
		}
	}
	return details
}

// fieldPath drops the root struct name so item errors read as "Items[1].Currency".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func quoteDestination(country string) string {
	if strings.EqualFold(strings.TrimSpace(country), pricing.DomesticCountry) {
		return "domestic"
	}
	return "international"
}
