package obs

import (
	"context"
	"sync"
)

// requestInfo is attached by RoutePatternMiddleware and filled in by inner layers, so
// outer middleware can label metrics and logs after the handler returns.
type requestInfo struct {
	mu     sync.Mutex
	route  string
	userID string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	if info := infoFrom(ctx); info != nil {
		return ctx, info
	}
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, info := withRequestInfo(ctx)
	info.mu.Lock()
	info.route = pattern
	info.mu.Unlock()
	return ctx
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.route
}

// SetUserID records the authenticated shopper for request logs written by outer middleware.
func SetUserID(ctx context.Context, userID string) {
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		info.userID = userID
		info.mu.Unlock()
	}
}

// UserIDFromContext returns the shopper recorded with SetUserID.
func UserIDFromContext(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.userID
}
