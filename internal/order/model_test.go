package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProbesFallbackFields(t *testing.T) {
	cases := []struct {
		name  string
		row   Row
		total string
	}{
		{name: "total_amount", row: Row{"total_amount": "49.90", "total": "1", "amount": "2"}, total: "49.9"},
		{name: "total", row: Row{"total": json.Number("12.5"), "amount": "2"}, total: "12.5"},
		{name: "amount", row: Row{"amount": float64(7)}, total: "7"},
		{name: "null total_amount falls through", row: Row{"total_amount": nil, "amount": "3.10"}, total: "3.1"},
		{name: "unparsable", row: Row{"total": "abc"}, total: "0"},
		{name: "negative", row: Row{"total": "-5"}, total: "0"},
		{name: "missing", row: Row{}, total: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.row)
			require.True(t, got.Total.Equal(decimal.RequireFromString(tc.total)), "got %s", got.Total)
		})
	}
}

func TestNormalizeStatusAndTimestamps(t *testing.T) {
	o := Normalize(Row{
		"order_id":       "ord_1",
		"order_status":   "In Process",
		"createdAt":      "2026-03-01T10:00:00+09:00",
		"customer_email": "Buyer@Example.com",
		"currency":       "krw",
	})
	require.Equal(t, "ord_1", o.ID)
	require.Equal(t, StatusSubmitted, o.Status)
	require.Equal(t, "In Process", o.RawStatus)
	require.Equal(t, "buyer@example.com", o.Email)
	require.Equal(t, "KRW", o.Currency)
	require.Equal(t, time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), o.CreatedAt)

	primary := Normalize(Row{"status": "paid", "order_status": "cancelled", "created_at": "2026-03-02"})
	require.Equal(t, StatusPaid, primary.Status)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), primary.CreatedAt)
}

func TestNormalizeDefaults(t *testing.T) {
	o := Normalize(Row{"status": "weird", "created_at": json.Number("1767225600000")})
	require.Equal(t, StatusUnknown, o.Status)
	require.Equal(t, "USD", o.Currency)
	require.Equal(t, time.UnixMilli(1767225600000).UTC(), o.CreatedAt)
}

func TestStatusEarning(t *testing.T) {
	require.True(t, StatusPaid.Earning())
	require.True(t, StatusDelivered.Earning())
	require.False(t, StatusPending.Earning())
	require.False(t, StatusCancelled.Earning())
	require.False(t, StatusUnknown.Earning())
}

func TestDecodeRows(t *testing.T) {
	orders, err := decodeRows([][]byte{
		[]byte(`{"id":"a","total_amount":19.99,"status":"shipped"}`),
		[]byte(`{"id":"b","amount":"5","order_status":"canceled"}`),
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "19.99", orders[0].Total.String())
	require.Equal(t, StatusShipped, orders[0].Status)
	require.Equal(t, StatusCancelled, orders[1].Status)

	_, err = decodeRows([][]byte{[]byte(`not json`)})
	require.Error(t, err)
}
