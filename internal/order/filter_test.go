package order

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleOrders() []Order {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Order{
		{ID: "o1", Status: StatusPaid, Email: "ann@example.com", Total: decimal.RequireFromString("30"), CreatedAt: base},
		{ID: "o2", Status: StatusShipped, Email: "bob@example.com", TrackingNumber: "TRK-99", Total: decimal.RequireFromString("10"), CreatedAt: base.Add(time.Hour)},
		{ID: "o3", Status: StatusPaid, Email: "cy@example.com", Total: decimal.RequireFromString("20"), CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(orders []Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFilterDefaultsToNewestFirst(t *testing.T) {
	got := Filter(sampleOrders(), ParseQuery(url.Values{}))
	require.Equal(t, []string{"o3", "o2", "o1"}, ids(got))
}

func TestFilterByStatusAndSort(t *testing.T) {
	q := ParseQuery(url.Values{"status": {"PAID"}, "sort": {"total_asc"}})
	require.Equal(t, []string{"o3", "o1"}, ids(Filter(sampleOrders(), q)))

	all := ParseQuery(url.Values{"status": {"all"}, "sort": {"total_desc"}})
	require.Equal(t, []string{"o1", "o3", "o2"}, ids(Filter(sampleOrders(), all)))

	asc := ParseQuery(url.Values{"sort": {"created_asc"}})
	require.Equal(t, []string{"o1", "o2", "o3"}, ids(Filter(sampleOrders(), asc)))
}

func TestFilterSearch(t *testing.T) {
	require.Equal(t, []string{"o2"}, ids(Filter(sampleOrders(), Query{Search: "trk-99"})))
	require.Equal(t, []string{"o1"}, ids(Filter(sampleOrders(), Query{Search: "ANN@"})))
	require.Empty(t, Filter(sampleOrders(), Query{Search: "nobody"}))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := sampleOrders()
	_ = Filter(in, Query{Sort: SortTotalAsc})
	require.Equal(t, []string{"o1", "o2", "o3"}, ids(in))
}

func TestParseQueryUnknownSort(t *testing.T) {
	q := ParseQuery(url.Values{"sort": {"random"}})
	require.Equal(t, SortCreatedDesc, q.Sort)
}
