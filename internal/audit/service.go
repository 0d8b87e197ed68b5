package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindUser represents an authenticated shopper.
	ActorKindUser ActorKind = "user"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents unauthenticated actors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// ActionCheckoutSubmitted is recorded once the checkout endpoint accepted a cart.
const ActionCheckoutSubmitted = "checkout.submitted"

// Entry is one row of the checkout audit trail.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	Action      string          `json:"action"`
	ActorKind   ActorKind       `json:"actorKind"`
	ActorUserID *string         `json:"actorUserId,omitempty"`
	CartID      string          `json:"cartId"`
	Email       *string         `json:"email,omitempty"`
	Country     *string         `json:"country,omitempty"`
	Currency    string          `json:"currency"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
	Reference   *string         `json:"reference,omitempty"`
	Locale      *string         `json:"locale,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ListParams filters and pages audit entries, newest first.
type ListParams struct {
	Limit  int
	Offset int
	CartID string
}

// Store defines the database operations required for auditing.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, p ListParams) ([]Entry, error)
}

// Service persists audit entries for checkout flows.
type Service struct {
	Store   Store
	Enabled bool
	Now     func() time.Time
}

// Record normalises and persists an entry when auditing is enabled.
func (s Service) Record(ctx context.Context, e Entry) error {
	if !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	e.CartID = strings.TrimSpace(e.CartID)
	if e.CartID == "" {
		return errors.New("audit: cart id is required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if strings.TrimSpace(e.Action) == "" {
		e.Action = ActionCheckoutSubmitted
	}
	e.ActorUserID = sanitizeString(e.ActorUserID)
	e.ActorKind = normalizeActorKind(e.ActorKind, e.ActorUserID)
	e.Email = sanitizeString(e.Email)
	e.Country = sanitizeString(e.Country)
	e.Reference = sanitizeString(e.Reference)
	e.Locale = sanitizeString(e.Locale)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return s.Store.Insert(ctx, e)
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func normalizeActorKind(kind ActorKind, userID *string) ActorKind {
	switch kind {
	case ActorKindUser, ActorKindSystem:
		return kind
	}
	if userID != nil {
		return ActorKindUser
	}
	return ActorKindAnonymous
}

func sanitizeString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// PointerOf returns nil for blank strings.
func PointerOf(value string) *string {
	return sanitizeString(&value)
}
