package common

import (
	"net/url"
	"strconv"
	"strings"
)

// Page is a limit/offset window over an admin list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// PageMeta is rendered under "pagination" in list responses. TotalItems is omitted when
// the backing store cannot count cheaply.
type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	TotalItems *int `json:"total_items,omitempty"`
}

// ParsePage reads ?limit= together with either ?offset= or the 1-based ?page=. A limit
// outside [1, max] falls back to def and a negative offset to zero.
func ParsePage(q url.Values, def, max int) Page {
	p := Page{Limit: def}
	if l, ok := atoi(q.Get("limit")); ok && l > 0 && l <= max {
		p.Limit = l
	}
	if o, ok := atoi(q.Get("offset")); ok && o > 0 {
		p.Offset = o
	} else if n, ok := atoi(q.Get("page")); ok && n > 1 {
		p.Offset = (n - 1) * p.Limit
	}
	return p
}

// Number returns the 1-based page the window starts on.
func (p Page) Number() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Bounds clips the window to a slice of n elements.
func (p Page) Bounds(n int) (start, end int) {
	start = min(p.Offset, n)
	end = min(start+p.Limit, n)
	return start, end
}

// Meta describes the window. A negative total leaves TotalItems unset.
func (p Page) Meta(total int) PageMeta {
	meta := PageMeta{Page: p.Number(), Limit: p.Limit, Offset: p.Offset}
	if total >= 0 {
		meta.TotalItems = &total
	}
	return meta
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}
