package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeCheckoutSubmitted is emitted after the checkout endpoint accepts a cart.
	TypeCheckoutSubmitted = "checkout:submitted"
	// DefaultQueue is the asynq queue used for checkout follow-up work.
	DefaultQueue = "checkout"
)

// CheckoutSubmitted is the payload of TypeCheckoutSubmitted tasks.
type CheckoutSubmitted struct {
	CartID      string    `json:"cartId"`
	UserID      string    `json:"userId,omitempty"`
	Email       string    `json:"email,omitempty"`
	Country     string    `json:"country,omitempty"`
	Currency    string    `json:"currency"`
	Total       string    `json:"total"`
	ItemCount   int       `json:"itemCount"`
	Reference   string    `json:"reference,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewCheckoutSubmittedTask encodes the payload as an asynq task.
func NewCheckoutSubmittedTask(p CheckoutSubmitted) (*asynq.Task, error) {
	if strings.TrimSpace(p.CartID) == "" {
		return nil, errors.New("queue: cart id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode checkout task: %w", err)
	}
	return asynq.NewTask(TypeCheckoutSubmitted, data), nil
}

// TaskClient is the subset of *asynq.Client used by Enqueuer.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes checkout tasks to asynq.
type Enqueuer struct {
	Client    TaskClient
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// EnqueueCheckoutSubmitted schedules audit persistence for an accepted checkout. The task id
// is derived from the cart and redirect reference so a duplicate enqueue is a no-op.
func (e Enqueuer) EnqueueCheckoutSubmitted(ctx context.Context, p CheckoutSubmitted) error {
	if e.Client == nil {
		return errors.New("queue: client not configured")
	}
	task, err := NewCheckoutSubmittedTask(p)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task, e.options(p)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func (e Enqueuer) options(p CheckoutSubmitted) []asynq.Option {
	queue := strings.TrimSpace(e.Queue)
	if queue == "" {
		queue = DefaultQueue
	}
	retry := e.MaxRetry
	if retry <= 0 {
		retry = 10
	}
	retention := e.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(retry),
		asynq.Retention(retention),
		asynq.TaskID(taskID(p)),
	}
}

func taskID(p CheckoutSubmitted) string {
	ref := strings.TrimSpace(p.Reference)
	if ref == "" {
		ref = p.SubmittedAt.UTC().Format(time.RFC3339Nano)
	}
	return TypeCheckoutSubmitted + ":" + strings.TrimSpace(p.CartID) + ":" + ref
}
