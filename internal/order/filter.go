package order

import (
	"net/url"
	"sort"
	"strings"
)

// Sort orders supported by Filter.
const (
	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortTotalDesc   = "total_desc"
	SortTotalAsc    = "total_asc"
)

// Query narrows and orders a list of already fetched orders.
type Query struct {
	Status Status
	Search string
	Sort   string
}

// ParseQuery reads ?status=&q=&sort= from the request. Unknown sort keys fall back to
// newest first and "all" disables the status filter.
func ParseQuery(v url.Values) Query {
	q := Query{
		Search: strings.TrimSpace(v.Get("q")),
		Sort:   SortCreatedDesc,
	}
	if raw := strings.TrimSpace(v.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		q.Status = ParseStatus(raw)
	}
	switch s := strings.ToLower(strings.TrimSpace(v.Get("sort"))); s {
	case SortCreatedAsc, SortTotalAsc, SortTotalDesc:
		q.Sort = s
	}
	return q
}

// Filter returns the matching orders in the requested order without modifying the input.
func Filter(orders []Order, q Query) []Order {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if needle != "" && !matches(o, needle) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, less(out, q.Sort))
	return out
}

func matches(o Order, needle string) bool {
	for _, field := range []string{o.ID, o.Email, o.TrackingNumber, o.FulfillmentID, o.RawStatus} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func less(out []Order, key string) func(i, j int) bool {
	switch key {
	case SortCreatedAsc:
		return func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) }
	case SortTotalAsc:
		return func(i, j int) bool { return out[i].Total.LessThan(out[j].Total) }
	case SortTotalDesc:
		return func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) }
	default:
		return func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) }
	}
}
