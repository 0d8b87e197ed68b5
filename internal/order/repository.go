package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

// Querier is the subset of pgxpool.Pool used by PGRepository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGRepository reads orders from the backend's table as JSON documents so column
// renames on the backend side only affect Normalize. CreatedColumn names the column
// that selects the newest rows; results are re-sorted on the normalized CreatedAt.
type PGRepository struct {
	DB            Querier
	Table         string
	CreatedColumn string
}

const (
	defaultTable         = "orders"
	defaultCreatedColumn = "created_at"
)

func (r PGRepository) table() string {
	if r.Table == "" {
		return defaultTable
	}
	return pgx.Identifier{r.Table}.Sanitize()
}

func (r PGRepository) createdColumn() string {
	col := r.CreatedColumn
	if col == "" {
		col = defaultCreatedColumn
	}
	return pgx.Identifier{col}.Sanitize()
}

func (r PGRepository) recentSQL() string {
	return fmt.Sprintf(`SELECT to_jsonb(o) FROM %s o ORDER BY o.%s DESC NULLS LAST LIMIT $1`, r.table(), r.createdColumn())
}

// Recent returns up to limit of the newest orders.
func (r PGRepository) Recent(ctx context.Context, limit int) ([]Order, error) {
	if r.DB == nil {
		return nil, errors.New("order repository not configured")
	}
	ctx, span := otel.Tracer("order.PGRepository").Start(ctx, "PGRepository.Recent")
	defer span.End()

	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.Query(ctx, r.recentSQL(), limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query orders: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return decodeRows(docs)
}

func decodeRows(docs [][]byte) ([]Order, error) {
	out := make([]Order, 0, len(docs))
	for i, doc := range docs {
		dec := json.NewDecoder(bytes.NewReader(doc))
		dec.UseNumber()
		var row Row
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode order row %d: %w", i, err)
		}
		out = append(out, Normalize(row))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	return out, nil
}
