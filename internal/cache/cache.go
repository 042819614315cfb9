package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Prefix namespaces every key written by this package.
const Prefix = "mlms-cache-"

// Cache stores advisory results by key. Entries never expire; callers evict
// them when the underlying data changes.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Entry is the stored envelope.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func PredictionKey(loanID string) string {
	return "prediction-" + loanID
}

func RecommendationKey(risk string, amount decimal.Decimal, durationMonths int) string {
	return fmt.Sprintf("recommendation-%s-%s-%d", risk, amount.String(), durationMonths)
}

func encode(v any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	b, err := json.Marshal(Entry{Data: data, Timestamp: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encoding entry: %w", err)
	}

	return b, nil
}

func decode(b []byte, dest any) error {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return fmt.Errorf("decoding entry: %w", err)
	}

	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	return nil
}
