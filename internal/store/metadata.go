package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/stockroom/internal/model"
)

// SetMetadata stores value under key, stamped with the store clock.
func (s *Store) SetMetadata(ctx context.Context, key string, value any) error {
	rec, err := newMetadata(key, value, s.now())
	if err != nil {
		return err
	}
	return s.Put(ctx, KindMetadata, rec)
}

// GetMetadata decodes the value stored under key into dst.
// The boolean is false when the key has never been set.
func GetMetadata(ctx context.Context, r Reader, key string, dst any) (bool, error) {
	entry, ok, err := Get[model.Metadata](ctx, r, KindMetadata, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return false, fmt.Errorf("decode metadata %q: %w", key, err)
	}
	return true, nil
}

// GetMetadata decodes the value stored under key into dst.
func (s *Store) GetMetadata(ctx context.Context, key string, dst any) (bool, error) {
	return GetMetadata(ctx, s, key, dst)
}
