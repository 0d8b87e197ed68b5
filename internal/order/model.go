package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state reported by the order backend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusSubmitted Status = "submitted"
	StatusFulfilled Status = "fulfilled"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

var statusAliases = map[string]Status{
	"pending":          StatusPending,
	"draft":            StatusPending,
	"awaiting_payment": StatusPending,
	"paid":             StatusPaid,
	"submitted":        StatusSubmitted,
	"inprocess":        StatusSubmitted,
	"in_process":       StatusSubmitted,
	"processing":       StatusSubmitted,
	"fulfilled":        StatusFulfilled,
	"shipped":          StatusShipped,
	"partial":          StatusShipped,
	"delivered":        StatusDelivered,
	"cancelled":        StatusCancelled,
	"canceled":         StatusCancelled,
	"refunded":         StatusRefunded,
	"failed":           StatusFailed,
	"onhold":           StatusFailed,
	"on_hold":          StatusFailed,
}

// ParseStatus maps a raw backend status onto a known Status.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if s, ok := statusAliases[key]; ok {
		return s
	}
	return StatusUnknown
}

// Earning reports whether orders in this state count toward revenue.
func (s Status) Earning() bool {
	switch s {
	case StatusPaid, StatusSubmitted, StatusFulfilled, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Row is an order record as the backend returns it. Field names vary between tables
// and API versions, so values are probed under several keys by Normalize.
type Row map[string]any

// Order is the typed internal view of a backend row.
type Order struct {
	ID             string          `json:"id"`
	Status         Status          `json:"status"`
	RawStatus      string          `json:"rawStatus,omitempty"`
	Email          string          `json:"email,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	FulfillmentID  string          `json:"fulfillmentId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Normalize converts a loosely shaped row into an Order. Missing or unparsable values
// fall back to zero values; it never fails.
func Normalize(r Row) Order {
	raw := r.str("status", "order_status", "orderStatus")
	currency := strings.ToUpper(r.str("currency", "currency_code"))
	if currency == "" {
		currency = "USD"
	}
	return Order{
		ID:             r.str("id", "order_id", "orderId"),
		Status:         ParseStatus(raw),
		RawStatus:      raw,
		Email:          strings.ToLower(r.str("customer_email", "email", "customerEmail")),
		Total:          r.amount("total_amount", "total", "amount"),
		Currency:       currency,
		TrackingNumber: r.str("tracking_number", "trackingNumber", "tracking"),
		FulfillmentID:  r.str("fulfillment_id", "fulfillmentId", "external_id"),
		CreatedAt:      r.time("created_at", "createdAt", "inserted_at"),
	}
}

func (r Row) first(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Row) str(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case fmt.Stringer:
			s = t.String()
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (r Row) amount(keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if d, ok := toDecimal(v); ok {
			if d.IsNegative() {
				return decimal.Zero
			}
			return d
		}
	}
	return decimal.Zero
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case int32:
		return decimal.NewFromInt32(t), true
	}
	return decimal.Decimal{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r Row) time(keys ...string) time.Time {
	v, ok := r.first(keys...)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	case json.Number:
		if secs, err := t.Int64(); err == nil {
			return unixAny(secs)
		}
	case float64:
		return unixAny(int64(t))
	}
	return time.Time{}
}

// unixAny accepts epoch seconds or milliseconds.
func unixAny(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
