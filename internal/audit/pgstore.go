package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DB is the subset of pgxpool.Pool used by PGStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore keeps audit entries in the checkout_audit_logs table.
type PGStore struct {
	DB DB
}

const insertEntrySQL = `INSERT INTO checkout_audit_logs
  (id, action, actor_kind, actor_user_id, cart_id, email, country, currency, total, item_count, reference, locale, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`

// Insert persists the entry. Re-delivered entries with the same id are ignored.
func (s PGStore) Insert(ctx context.Context, e Entry) error {
	if s.DB == nil {
		return fmt.Errorf("audit: database not configured")
	}
	_, err := s.DB.Exec(ctx, insertEntrySQL,
		e.ID, e.Action, string(e.ActorKind), toNullText(e.ActorUserID), e.CartID,
		toNullText(e.Email), toNullText(e.Country), e.Currency, e.Total.String(), e.ItemCount,
		toNullText(e.Reference), toNullText(e.Locale), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s PGStore) List(ctx context.Context, p ListParams) ([]Entry, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("audit: database not configured")
	}
	var sb strings.Builder
	sb.WriteString(`SELECT id, action, actor_kind, actor_user_id, cart_id, email, country, currency,
  total::text, item_count, reference, locale, created_at
FROM checkout_audit_logs`)
	args := []any{}
	if cart := strings.TrimSpace(p.CartID); cart != "" {
		args = append(args, cart)
		sb.WriteString(fmt.Sprintf(" WHERE cart_id = $%d", len(args)))
	}
	args = append(args, p.Limit, p.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := s.DB.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, p.Limit)
	for rows.Next() {
		var (
			e                                        Entry
			kind, total                              string
			actor, email, country, reference, locale pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.Action, &kind, &actor, &e.CartID, &email, &country, &e.Currency,
			&total, &e.ItemCount, &reference, &locale, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ActorKind = ActorKind(kind)
		e.Total, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse audit total: %w", err)
		}
		e.ActorUserID = fromNullText(actor)
		e.Email = fromNullText(email)
		e.Country = fromNullText(country)
		e.Reference = fromNullText(reference)
		e.Locale = fromNullText(locale)
		out = append(out, e)
	}
	return out, rows.Err()
}

func toNullText(value *string) pgtype.Text {
	if value == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *value, Valid: true}
}

func fromNullText(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
