package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/realizeit/storefront/internal/audit"
	"github.com/realizeit/storefront/internal/obs"
)

// AuditRecorder persists checkout audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Handler processes checkout tasks on the worker side.
type Handler struct {
	Audit  AuditRecorder
	Logger zerolog.Logger
}

// Register binds the handler to its task types.
func (h Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeCheckoutSubmitted, h)
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (h Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CheckoutSubmitted
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.observe("invalid")
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	total, err := decimal.NewFromString(strings.TrimSpace(p.Total))
	if err != nil {
		h.observe("invalid")
		return fmt.Errorf("parse total %q: %v: %w", p.Total, err, asynq.SkipRetry)
	}
	if h.Audit == nil {
		return fmt.Errorf("queue: audit recorder not configured")
	}
	entry := audit.Entry{
		ID:          entryID(p),
		Action:      audit.ActionCheckoutSubmitted,
		ActorUserID: audit.PointerOf(p.UserID),
		CartID:      p.CartID,
		Email:       audit.PointerOf(p.Email),
		Country:     audit.PointerOf(p.Country),
		Currency:    p.Currency,
		Total:       total,
		ItemCount:   p.ItemCount,
		Reference:   audit.PointerOf(p.Reference),
		Locale:      audit.PointerOf(p.Locale),
		CreatedAt:   p.SubmittedAt,
	}
	if err := h.Audit.Record(ctx, entry); err != nil {
		h.observe("error")
		h.Logger.Error().Err(err).Str("cart_id", p.CartID).Msg("record checkout audit")
		return err
	}
	h.observe("ok")
	h.Logger.Info().Str("cart_id", p.CartID).Str("reference", p.Reference).Msg("checkout audited")
	return nil
}

func (h Handler) observe(result string) {
	if obs.AuditWritesTotal != nil {
		obs.AuditWritesTotal.WithLabelValues(result).Inc()
	}
}

// entryID is stable across redeliveries so audit inserts stay idempotent.
func entryID(p CheckoutSubmitted) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(taskID(p)))
}
