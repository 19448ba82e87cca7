package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Layered reads the in-process cache first and falls back to the shared one.
// Writes go to both; a failed shared write is returned after the local write.
type Layered struct {
	Local  *TTLCache
	Shared BytesCache
}

func (c Layered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.Local.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	if c.Shared == nil {
		return nil, false, nil
	}
	b, ok, err := c.Shared.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.Local.SetBytes(ctx, key, b, c.Local.defaultTTL)
	return b, true, nil
}

func (c Layered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = c.Local.SetBytes(ctx, key, value, ttl)
	if c.Shared == nil {
		return nil
	}
	return c.Shared.SetBytes(ctx, key, value, ttl)
}
