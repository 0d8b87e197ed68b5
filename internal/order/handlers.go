package order

import (
	"context"
	"net/http"
	"strconv"

	"github.com/realizeit/storefront/internal/common"
)

// Source provides the newest orders from the backend.
type Source interface {
	Recent(ctx context.Context, limit int) ([]Order, error)
}

// AdminHandler exposes the merchant order list.
type AdminHandler struct {
	Source     Source
	FetchLimit int
}

// List fetches the newest orders, filters them by ?status= and ?q=, sorts by ?sort= and
// pages the result with ?limit= and ?page= or ?offset=.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order source not configured", nil)
		return
	}
	orders, err := h.Source.Recent(r.Context(), h.FetchLimit)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "ORDERS_UNAVAILABLE", "failed to load orders", nil)
		return
	}
	filtered := Filter(orders, ParseQuery(r.URL.Query()))

	page := common.ParsePage(r.URL.Query(), 25, 100)
	start, end := page.Bounds(len(filtered))
	w.Header().Set("X-Total-Count", strconv.Itoa(len(filtered)))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       filtered[start:end],
		"pagination": page.Meta(len(filtered)),
	})
}
