package cart

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Store holds one session's cart. Every mutation is followed by a
// best-effort background write of the whole cart to Storage.
type Store struct {
	key    string
	mu     sync.Mutex
	items  []Item
	totals *Totals
	pricer Pricer
	// loaded is false while the stored cart could not be read; nothing is
	// written until Reload succeeds, so a failed read never overwrites it.
	loaded bool

	storage Storage
	persist *persister
	logger  *zap.Logger
}

// Snapshot is one consistent read of a cart.
type Snapshot struct {
	Items    []Item `json:"items"`
	Quantity int    `json:"quantity"`
	Totals   Totals `json:"totals"`
}

type Option func(*storeOptions)

type storeOptions struct {
	pricer Pricer
	logger *zap.Logger
}

func WithPricer(p Pricer) Option {
	return func(o *storeOptions) { o.pricer = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{pricer: NewPricer(nil), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewStore reads the snapshot under key. A missing or corrupt snapshot
// yields an empty cart. An unreadable one also starts empty, but the store
// stays unloaded (see Loaded) and keeps the stored blob intact until a
// Reload succeeds. It is never an error.
func NewStore(ctx context.Context, storage Storage, key string, opts ...Option) *Store {
	o := buildOptions(opts)

	s := &Store{
		key:     key,
		items:   []Item{},
		pricer:  o.pricer,
		storage: storage,
		logger:  o.logger.With(zap.String("cart_key", key)),
		persist: newPersister(storage, key, o.logger),
	}

	items, err := readItems(ctx, storage, key, o.logger)
	if err != nil {
		s.logger.Warn("load cart failed, starting empty until reload", zap.Error(err))
		return s
	}
	s.items = items
	s.loaded = true
	return s
}

// Loaded reports whether the stored cart has been read.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Reload retries a failed initial read. Lines added in the meantime are
// merged into the stored cart and the result is persisted. It is a no-op
// once the store is loaded.
func (s *Store) Reload(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	stored, err := readItems(ctx, s.storage, s.key, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	local := s.items
	s.items = stored
	s.loaded = true
	for _, it := range local {
		if i := s.indexOf(it.Key()); i >= 0 {
			s.items[i].Qty += it.Qty
		} else {
			s.items = append(s.items, it)
		}
	}
	if len(local) > 0 {
		s.changed()
	} else {
		s.totals = nil
	}
	return nil
}

// Add merges qty into the line with the same identity or appends a new line.
// A non-positive qty counts as 1.
func (s *Store) Add(item Item, qty int) {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.Key()); i >= 0 {
		s.items[i].Qty += qty
	} else {
		it := cloneItem(item)
		it.Qty = qty
		s.items = append(s.items, it)
	}
	s.changed()
}

func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(key)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.changed()
}

// SetQty clamps qty to at least 1; removing a line is always an explicit Remove.
// It reports whether the line exists.
func (s *Store) SetQty(key Key, qty int) bool {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(key)
	if i < 0 {
		return false
	}
	s.items[i].Qty = qty
	s.changed()
	return true
}

// Clear empties the cart, or only the lines of the given kinds.
func (s *Store) Clear(kinds ...Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(kinds) == 0 {
		s.items = []Item{}
		s.changed()
		return
	}

	drop := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.Kind] {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.changed()
}

// Deduct subtracts the quantities of lines that were handed off elsewhere,
// such as an accepted order, and drops lines that reach zero. Units added
// after the lines were read stay in the cart.
func (s *Store) Deduct(lines []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, line := range lines {
		i := s.indexOf(line.Key())
		if i < 0 {
			continue
		}
		changed = true
		if s.items[i].Qty > line.Qty {
			s.items[i].Qty -= line.Qty
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	if changed {
		s.changed()
	}
}

// Key is the storage key the cart is persisted under.
func (s *Store) Key() string { return s.key }

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Store) Get(key Key) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(key); i >= 0 {
		return cloneItem(s.items[i]), true
	}
	return Item{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Quantity is the total number of units, optionally restricted to kinds.
func (s *Store) Quantity(kinds ...Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		if len(kinds) == 0 || slices.Contains(kinds, it.Kind) {
			n += it.Qty
		}
	}
	return n
}

// Totals is recomputed only after the item set changed.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

// Snapshot returns items, quantity and totals read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Qty
	}
	return Snapshot{Items: cloneItems(s.items), Quantity: n, Totals: s.totalsLocked()}
}

func (s *Store) totalsLocked() Totals {
	if s.totals == nil {
		t := s.pricer.Price(s.items)
		s.totals = &t
	}
	t := *s.totals
	t.Categories = append([]CategoryTotal(nil), s.totals.Categories...)
	return t
}

// Flush waits for the latest snapshot to be written (or to fail).
func (s *Store) Flush() {
	s.persist.flush()
}

// Close flushes and stops the background writer. Mutations after Close
// are written synchronously.
func (s *Store) Close() {
	s.persist.close()
}

func (s *Store) indexOf(key Key) int {
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

// changed must be called with mu held. An emptied cart deletes its blob.
func (s *Store) changed() {
	s.totals = nil
	if !s.loaded {
		return
	}
	if len(s.items) == 0 {
		s.persist.enqueue(nil)
		return
	}

	data, err := encodeSnapshot(s.items)
	if err != nil {
		s.logger.Warn("encode cart failed", zap.Error(err))
		return
	}
	s.persist.enqueue(data)
}
