package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/realizeit/storefront/internal/common"
)

type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func (h *Handler) validate() *validator.Validate {
	if h.Validate == nil {
		h.Validate = validator.New()
	}
	return h.Validate
}

// Readiness evaluates the cart and form without submitting.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Evaluate(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Checkout submits the cart to the hosted payment page and returns the redirect target.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return Request{}, false
	}
	var payload Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Request{}, false
	}
	payload.CartID = strings.TrimSpace(payload.CartID)
	payload.Shipping = payload.Shipping.Normalize()
	if err := h.validate().Struct(payload); err != nil {
		details := validationDetails(err)
		zerolog.Ctx(r.Context()).Debug().Interface("fields", details).Msg("checkout payload rejected")
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid checkout request", details)
		return Request{}, false
	}
	payload.UserID, _ = common.UserID(r.Context())
	payload.UserEmail = common.UserEmail(r.Context())
	return payload, true
}

// validationDetails maps "Shipping.Country" style paths to the failed tag.
func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			key := fe.Namespace()
			if i := strings.IndexByte(key, '.'); i >= 0 {
				key = key[i+1:]
			}
			details[key] = fe.Tag()
		}
	}
	return details
}
