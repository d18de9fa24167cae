package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found")

// Storage is the durable key/value store a cart snapshot is written to.
// Get returns ErrNotFound when the key has never been written.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const (
	SchemaVersion     = 1
	DefaultKeyPrefix  = "tattoo-cart"
	defaultSessionKey = "default"
)

// StorageKey builds the versioned key a session's cart lives under.
func StorageKey(prefix, session string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if session == "" {
		session = defaultSessionKey
	}
	return fmt.Sprintf("%s:v%d:%s", prefix, SchemaVersion, session)
}

type storedCart struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

func encodeSnapshot(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(storedCart{Version: SchemaVersion, Items: items})
}

// decodeSnapshot never fails hard: anything that doesn't look like a
// current-version snapshot is reported as an error and the caller starts
// from an empty cart. Lines that violate the item invariants are dropped and
// duplicate identities are merged.
func decodeSnapshot(data []byte) ([]Item, error) {
	var s storedCart
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if s.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported cart snapshot version %d", s.Version)
	}

	items := make([]Item, 0, len(s.Items))
	index := make(map[Key]int, len(s.Items))
	for _, it := range s.Items {
		if it.Validate() != nil {
			continue
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		if i, ok := index[it.Key()]; ok {
			items[i].Qty += it.Qty
			continue
		}
		index[it.Key()] = len(items)
		items = append(items, it)
	}
	return items, nil
}

const loadTimeout = 5 * time.Second

// readItems loads the cart stored under key. The read is detached from
// ctx's cancellation so a dropped request cannot pass for an empty cart.
// Missing and corrupt blobs both yield no items and no error; only a
// failed read is reported.
func readItems(ctx context.Context, storage Storage, key string, logger *zap.Logger) ([]Item, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	data, err := storage.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return []Item{}, nil
	case err != nil:
		return nil, err
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		logger.Warn("discarding stored cart", zap.String("cart_key", key), zap.Error(err))
		return []Item{}, nil
	}
	return items, nil
}
