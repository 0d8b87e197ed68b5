package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/realizeit/storefront/internal/cart"
	"github.com/realizeit/storefront/internal/common"
	"github.com/realizeit/storefront/internal/lock"
	"github.com/realizeit/storefront/internal/obs"
	"github.com/realizeit/storefront/internal/pricing"
	"github.com/realizeit/storefront/internal/queue"
)

// CartReader loads the current cart snapshot.
type CartReader interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
}

// Submitter sends a checkout to the hosted payment endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Redirect, error)
}

// Locker guards a key against concurrent holders without waiting.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Enqueuer schedules background work after a successful submission.
type Enqueuer interface {
	EnqueueCheckoutSubmitted(ctx context.Context, payload queue.CheckoutSubmitted) error
}

// Request is a checkout attempt for a stored cart. UserID and UserEmail come from the
// authenticated principal, never from the body.
type Request struct {
	CartID    string       `json:"cartId" validate:"required,max=64"`
	Shipping  ShippingForm `json:"shipping"`
	Locale    string       `json:"locale" validate:"omitempty,max=35"`
	UserID    string       `json:"-"`
	UserEmail string       `json:"-"`
}

// Readiness is the evaluated state of a cart and form.
type Readiness struct {
	Items      []pricing.LineItem         `json:"items"`
	Totals     pricing.Breakdown          `json:"totals"`
	Formatted  pricing.FormattedBreakdown `json:"formatted"`
	Shipping   ShippingForm               `json:"shipping"`
	Violations []Violation                `json:"violations"`
	Ready      bool                       `json:"ready"`
}

// Result is returned after the endpoint accepted the submission.
type Result struct {
	Redirect
	Totals pricing.Breakdown `json:"totals"`
}

// Service evaluates and submits checkouts.
type Service struct {
	Carts     CartReader
	Submitter Submitter
	Locker    Locker
	LockTTL   time.Duration
	Queue     Enqueuer
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockTTL() time.Duration {
	if s == nil || s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

// Evaluate prices the cart for the form's destination and applies the readiness rules.
func (s *Service) Evaluate(ctx context.Context, req Request) (Readiness, error) {
	if s == nil || s.Carts == nil {
		return Readiness{}, errors.New("checkout service not configured")
	}
	if strings.TrimSpace(req.CartID) == "" {
		return Readiness{}, common.NewAppError("BAD_REQUEST", "cartId is required", http.StatusBadRequest, nil)
	}
	snapshot, err := s.Carts.Get(ctx, req.CartID)
	if err != nil && !errors.Is(err, cart.ErrNotFound) {
		return Readiness{}, fmt.Errorf("load cart: %w", err)
	}
	form := req.Shipping.WithDefaultEmail(req.UserEmail).Normalize()
	totals := pricing.ComputeBreakdown(snapshot.Items, form.Country)
	violations := ValidateReadiness(snapshot.Items, form, totals.Total)
	for _, v := range violations {
		if obs.ReadinessViolationsTotal != nil {
			obs.ReadinessViolationsTotal.WithLabelValues(v.Rule).Inc()
		}
	}
	return Readiness{
		Items:      snapshot.Items,
		Totals:     totals,
		Formatted:  totals.Formatted(pricing.ParseLocale(req.Locale), form.Country),
		Shipping:   form,
		Violations: violations,
		Ready:      len(violations) == 0,
	}, nil
}

// Submit validates the checkout and forwards it to the hosted payment endpoint. Only one
// submission per cart may be in flight; failures are never retried here.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	if s == nil || s.Submitter == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Submit")
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("cart.id", req.CartID),
			attribute.String("checkout.result", outcome),
		)
		if obs.CheckoutSubmitTotal != nil {
			obs.CheckoutSubmitTotal.WithLabelValues(outcome).Inc()
		}
		if obs.CheckoutSubmitLatency != nil {
			obs.CheckoutSubmitLatency.WithLabelValues(outcome).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	readiness, err := s.Evaluate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if !readiness.Ready {
		outcome = "not_ready"
		return Result{}, ErrNotReady.WithDetails(map[string]any{"violations": readiness.Violations})
	}

	var redirect Redirect
	run := func(ctx context.Context) error {
		var submitErr error
		redirect, submitErr = s.Submitter.Submit(ctx, Submission{
			Items:    readiness.Items,
			Totals:   readiness.Totals,
			Shipping: readiness.Shipping,
			Locale:   req.Locale,
		})
		return submitErr
	}
	if s.Locker != nil {
		err = s.Locker.TryWithLock(ctx, "checkout:"+req.CartID, s.lockTTL(), run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		outcome = classify(err)
		return Result{}, toAppError(err)
	}
	outcome = "ok"

	if s.Queue != nil {
		payload := queue.CheckoutSubmitted{
			CartID:      req.CartID,
			UserID:      req.UserID,
			Email:       readiness.Shipping.Email,
			Country:     readiness.Shipping.Country,
			Currency:    string(readiness.Totals.Currency),
			Total:       readiness.Totals.Total.String(),
			ItemCount:   pricing.TotalQuantity(readiness.Items),
			Reference:   redirect.Reference(),
			Locale:      req.Locale,
			SubmittedAt: s.now().UTC(),
		}
		if qErr := s.Queue.EnqueueCheckoutSubmitted(ctx, payload); qErr != nil {
			s.Logger.Error().Err(qErr).Str("cart_id", req.CartID).Msg("enqueue checkout audit")
		}
	}
	return Result{Redirect: redirect, Totals: readiness.Totals}, nil
}

// ErrNotReady is returned by Submit when readiness fails. Compare with errors.Is.
var ErrNotReady = common.NewAppError("CHECKOUT_NOT_READY", "checkout is not ready for submission", http.StatusUnprocessableEntity, nil)

func classify(err error) string {
	var rejected *RejectedError
	switch {
	case errors.Is(err, lock.ErrLocked):
		return "in_progress"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "bad_response"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	return "error"
}

func toAppError(err error) error {
	var rejected *RejectedError
	switch {
	case errors.Is(err, lock.ErrLocked):
		return common.NewAppError("CHECKOUT_IN_PROGRESS", "a checkout for this cart is already being submitted", http.StatusConflict, err)
	case errors.As(err, &rejected):
		msg := rejected.Body
		if msg == "" {
			msg = http.StatusText(rejected.Status)
		}
		return &common.AppError{
			Code:       "CHECKOUT_REJECTED",
			Message:    msg,
			HTTPStatus: http.StatusBadGateway,
			Err:        err,
			Details:    map[string]any{"upstreamStatus": rejected.Status},
		}
	case errors.Is(err, ErrMalformedResponse):
		return common.NewAppError("CHECKOUT_BAD_RESPONSE", "checkout endpoint returned an unexpected response", http.StatusBadGateway, err)
	case errors.Is(err, ErrUnavailable):
		return common.NewAppError("CHECKOUT_UNAVAILABLE", "checkout endpoint is unavailable, please try again", http.StatusServiceUnavailable, err)
	}
	return err
}
