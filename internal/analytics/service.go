package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/realizeit/storefront/internal/order"
)

// OrderSource provides the newest orders for aggregation.
type OrderSource interface {
	Recent(ctx context.Context, limit int) ([]order.Order, error)
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status order.Status `json:"status"`
	Count  int          `json:"count"`
}

// CurrencySummary aggregates earning orders settled in one currency.
type CurrencySummary struct {
	Currency          string          `json:"currency"`
	Orders            int             `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// Overview is the merchant dashboard headline.
type Overview struct {
	TotalOrders int               `json:"totalOrders"`
	ByStatus    []StatusCount     `json:"byStatus"`
	Revenue     []CurrencySummary `json:"revenue"`
	SampleSize  int               `json:"sampleSize"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Locker serializes recomputation so concurrent cache misses query the backend once.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service computes dashboard aggregates and caches them in Redis.
type Service struct {
	Orders     OrderSource
	R          *redis.Client
	TTL        time.Duration
	FetchLimit int
	Locker     Locker
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Overview returns the cached aggregate, recomputing it from the order source on a miss.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	if s == nil || s.Orders == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "overview", s.FetchLimit)
	if out, ok := s.fromCache(ctx, key); ok {
		return out, nil
	}
	if s.Locker == nil || s.R == nil || s.TTL <= 0 {
		return s.recompute(ctx, key)
	}
	var out Overview
	err := s.Locker.WithLock(ctx, key+":lock", 15*time.Second, func(ctx context.Context) error {
		if cached, ok := s.fromCache(ctx, key); ok {
			out = cached
			return nil
		}
		var err error
		out, err = s.recompute(ctx, key)
		return err
	})
	return out, err
}

func (s *Service) recompute(ctx context.Context, key string) (Overview, error) {
	orders, err := s.Orders.Recent(ctx, s.FetchLimit)
	if err != nil {
		return Overview{}, err
	}
	out := Summarize(orders, s.now())
	s.store(ctx, key, out)
	return out, nil
}

// Summarize aggregates orders by status and, for earning statuses, revenue per currency.
// Average order value is revenue divided by earning orders, rounded to two places.
func Summarize(orders []order.Order, now time.Time) Overview {
	counts := map[order.Status]int{}
	byCurrency := map[string]*CurrencySummary{}
	for _, o := range orders {
		counts[o.Status]++
		if !o.Status.Earning() {
			continue
		}
		cur := byCurrency[o.Currency]
		if cur == nil {
			cur = &CurrencySummary{Currency: o.Currency, Revenue: decimal.Zero}
			byCurrency[o.Currency] = cur
		}
		cur.Orders++
		cur.Revenue = cur.Revenue.Add(o.Total)
	}

	out := Overview{
		TotalOrders: len(orders),
		ByStatus:    make([]StatusCount, 0, len(counts)),
		Revenue:     make([]CurrencySummary, 0, len(byCurrency)),
		SampleSize:  len(orders),
		GeneratedAt: now.UTC(),
	}
	for status, n := range counts {
		out.ByStatus = append(out.ByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(out.ByStatus, func(i, j int) bool {
		if out.ByStatus[i].Count != out.ByStatus[j].Count {
			return out.ByStatus[i].Count > out.ByStatus[j].Count
		}
		return out.ByStatus[i].Status < out.ByStatus[j].Status
	})
	for _, cur := range byCurrency {
		if cur.Orders > 0 {
			cur.AverageOrderValue = cur.Revenue.Div(decimal.NewFromInt(int64(cur.Orders))).Round(2)
		}
		out.Revenue = append(out.Revenue, *cur)
	}
	sort.Slice(out.Revenue, func(i, j int) bool { return out.Revenue[i].Currency < out.Revenue[j].Currency })
	return out
}

// Invalidate drops the cached overview.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	return s.R.Del(ctx, cacheKey("an", "overview", s.FetchLimit)).Err()
}

func (s *Service) fromCache(ctx context.Context, key string) (Overview, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var out Overview
	if err := json.Unmarshal(data, &out); err != nil {
		return Overview{}, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
