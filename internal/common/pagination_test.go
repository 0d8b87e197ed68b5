package common

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  Page
	}{
		{"defaults", "", Page{Limit: 25}},
		{"page number", "limit=10&page=3", Page{Limit: 10, Offset: 20}},
		{"offset wins over page", "limit=10&offset=5&page=3", Page{Limit: 10, Offset: 5}},
		{"limit above max", "limit=1000", Page{Limit: 25}},
		{"negative values", "limit=-1&offset=-9&page=-2", Page{Limit: 25}},
		{"garbage", "limit=ten&page=two", Page{Limit: 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			require.Equal(t, tc.want, ParsePage(q, 25, 100))
		})
	}
}

func TestPageBoundsAndMeta(t *testing.T) {
	p := Page{Limit: 2, Offset: 2}
	start, end := p.Bounds(3)
	require.Equal(t, 2, start)
	require.Equal(t, 3, end)

	start, end = Page{Limit: 2, Offset: 10}.Bounds(3)
	require.Equal(t, 3, start)
	require.Equal(t, 3, end)

	raw, err := json.Marshal(p.Meta(3))
	require.NoError(t, err)
	require.JSONEq(t, `{"page":2,"limit":2,"offset":2,"total_items":3}`, string(raw))

	raw, err = json.Marshal(p.Meta(-1))
	require.NoError(t, err)
	require.JSONEq(t, `{"page":2,"limit":2,"offset":2}`, string(raw))
}
