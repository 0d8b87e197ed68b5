package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/realizeit/storefront/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Cart is the persisted snapshot of a customer's line items.
type Cart struct {
	ID        string             `json:"id"`
	Items     []pricing.LineItem `json:"items"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Store keeps carts as JSON documents in Redis with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewStore constructs a cart store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, prefix: "cart:", now: time.Now}
}

// ValidID reports whether id is usable as a cart identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Get returns the cart snapshot or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.client == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	if !ValidID(id) {
		return Cart{}, fmt.Errorf("cart id: %w", ErrInvalidInput)
	}
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, id string) (Cart, error) {
	data, err := c.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{ID: id, Items: []pricing.LineItem{}}, ErrNotFound
		}
		return Cart{}, err
	}
	var out Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	if out.Items == nil {
		out.Items = []pricing.LineItem{}
	}
	return out, nil
}

// PutItem inserts the item or replaces the line with the same id.
func (s *Store) PutItem(ctx context.Context, id string, item pricing.LineItem) (Cart, error) {
	if item.ID == "" || item.Quantity < 1 || item.BaseCost.IsNegative() {
		return Cart{}, ErrInvalidInput
	}
	return s.update(ctx, id, func(c *Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == item.ID {
				c.Items[i] = item
				return nil
			}
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

// RemoveItem deletes a line from the cart. Removing a missing line is not an error.
func (s *Store) RemoveItem(ctx context.Context, id, itemID string) (Cart, error) {
	return s.update(ctx, id, func(c *Cart) error {
		kept := c.Items[:0]
		for _, it := range c.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		c.Items = kept
		return nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("cart store not configured")
	}
	if !ValidID(id) {
		return fmt.Errorf("cart id: %w", ErrInvalidInput)
	}
	return s.client.Del(ctx, s.key(id)).Err()
}

const maxUpdateAttempts = 5

// update applies fn under optimistic locking so concurrent edits are not lost.
func (s *Store) update(ctx context.Context, id string, fn func(*Cart) error) (Cart, error) {
	if s == nil || s.client == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	if !ValidID(id) {
		return Cart{}, fmt.Errorf("cart id: %w", ErrInvalidInput)
	}
	key := s.key(id)
	var result Cart
	txf := func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		current.ID = id
		if err := fn(&current); err != nil {
			return err
		}
		current.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = current
		}
		return err
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return Cart{}, err
		}
	}
	return Cart{}, fmt.Errorf("cart %s: too much contention", strings.TrimSpace(id))
}
