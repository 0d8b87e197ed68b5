package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	orders []Order
	err    error
	limit  int
}

func (s *stubSource) Recent(ctx context.Context, limit int) ([]Order, error) {
	s.limit = limit
	return s.orders, s.err
}

func TestAdminListFiltersAndPages(t *testing.T) {
	src := &stubSource{orders: sampleOrders()}
	h := &AdminHandler{Source: src, FetchLimit: 250}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=paid&limit=1&page=2", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 250, src.limit)
	require.Equal(t, "2", rr.Header().Get("X-Total-Count"))

	var body struct {
		Data       []Order `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "o1", body.Data[0].ID)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 2, body.Pagination.TotalItems)
}

func TestAdminListPageBeyondEnd(t *testing.T) {
	h := &AdminHandler{Source: &stubSource{orders: sampleOrders()}}
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?page=9", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, string(extractData(t, rr.Body.Bytes())))
}

func TestAdminListSourceError(t *testing.T) {
	h := &AdminHandler{Source: &stubSource{err: errors.New("boom")}}
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)
}

func extractData(t *testing.T, raw []byte) json.RawMessage {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Data
}
