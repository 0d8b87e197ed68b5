package analytics

import (
	"net/http"

	"github.com/realizeit/storefront/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Overview aggregates key analytics metrics for dashboards. ?refresh=1 bypasses the cache.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		_ = h.Svc.Invalidate(r.Context())
	}
	out, err := h.Svc.Overview(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "ANALYTICS_ERROR", "failed to load orders", nil)
		return
	}
	common.Data(w, http.StatusOK, out)
}
