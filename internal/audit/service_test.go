package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubStore struct {
	lastInsert Entry
	called     bool
	listed     ListParams
	rows       []Entry
}

func (s *stubStore) Insert(_ context.Context, e Entry) error {
	s.called = true
	s.lastInsert = e
	return nil
}

func (s *stubStore) List(_ context.Context, p ListParams) ([]Entry, error) {
	s.listed = p
	return s.rows, nil
}

func TestServiceRecordNormalises(t *testing.T) {
	store := &stubStore{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	svc := Service{Store: store, Enabled: true, Now: func() time.Time { return fixed }}
	userID := "  user-42 "

	err := svc.Record(context.Background(), Entry{
		CartID:      " cart-1 ",
		ActorUserID: &userID,
		Email:       PointerOf(" buyer@example.com "),
		Country:     PointerOf("KR"),
		Currency:    "krw",
		Total:       decimal.NewFromInt(64900),
		ItemCount:   3,
		Reference:   PointerOf(""),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	got := store.lastInsert
	if got.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if got.Action != ActionCheckoutSubmitted {
		t.Fatalf("unexpected action: %s", got.Action)
	}
	if got.ActorKind != ActorKindUser {
		t.Fatalf("expected user actor, got %s", got.ActorKind)
	}
	if got.ActorUserID == nil || *got.ActorUserID != "user-42" {
		t.Fatalf("unexpected user id: %v", got.ActorUserID)
	}
	if got.CartID != "cart-1" || got.Currency != "KRW" {
		t.Fatalf("unexpected cart/currency: %s/%s", got.CartID, got.Currency)
	}
	if got.Email == nil || *got.Email != "buyer@example.com" {
		t.Fatalf("unexpected email: %v", got.Email)
	}
	if got.Reference != nil {
		t.Fatalf("blank reference should be dropped, got %q", *got.Reference)
	}
	if !got.CreatedAt.Equal(fixed) || got.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected created at: %v", got.CreatedAt)
	}
}

func TestServiceRecordAnonymousAndDisabled(t *testing.T) {
	store := &stubStore{}
	if err := (Service{Store: store}).Record(context.Background(), Entry{CartID: "c"}); err != nil {
		t.Fatalf("disabled record: %v", err)
	}
	if store.called {
		t.Fatal("disabled service must not write")
	}

	svc := Service{Store: store, Enabled: true}
	if err := svc.Record(context.Background(), Entry{CartID: "c"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.lastInsert.ActorKind != ActorKindAnonymous {
		t.Fatalf("expected anonymous actor, got %s", store.lastInsert.ActorKind)
	}
	if err := svc.Record(context.Background(), Entry{CartID: "  "}); err == nil {
		t.Fatal("expected error for missing cart id")
	}
}
