package audit

import (
	"net/http"
	"strings"

	"github.com/realizeit/storefront/internal/common"
)

// Handler exposes HTTP endpoints for working with checkout audit logs.
type Handler struct {
	Store Store
}

// List returns a paginated list of audit entries for administrators.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	page := common.ParsePage(r.URL.Query(), 50, 200)
	rows, err := h.Store.List(r.Context(), ListParams{
		Limit:  page.Limit,
		Offset: page.Offset,
		CartID: strings.TrimSpace(r.URL.Query().Get("cartId")),
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": page.Meta(-1),
	})
}
