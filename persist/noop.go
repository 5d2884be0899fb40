package persist

import "context"

// NoopStore discards writes and never finds anything. It stands in for
// environments without durable storage.
type NoopStore struct{}

// NewNoopStore creates a store that persists nothing.
func NewNoopStore() *NoopStore { return &NoopStore{} }

func (NoopStore) Load(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func (NoopStore) Save(_ context.Context, key string, _ []byte) error { return validateKey(key) }

func (NoopStore) Delete(_ context.Context, key string) error { return validateKey(key) }

func (NoopStore) Ping(context.Context) error { return nil }

func (NoopStore) Close() error { return nil }

var _ Store = NoopStore{}
