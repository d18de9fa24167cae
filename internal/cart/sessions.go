package cart

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxStores   = 10000
	DefaultIdleTimeout = 30 * time.Minute
)

type SessionsConfig struct {
	KeyPrefix string
	// MaxStores caps the stores held in memory; the least recently used
	// one is closed when a new session would exceed it.
	MaxStores int
	// IdleTimeout closes stores not used for this long.
	IdleTimeout time.Duration
	Logger      *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type sessionEntry struct {
	store    *Store
	lastUsed time.Time
}

// Sessions owns one Store per browser session, all sharing one Storage.
// A store is loaded from storage the first time its session is written to
// and closed again once idle or crowded out. Closing flushes it, so an
// evicted cart is simply read back on the next request.
type Sessions struct {
	storage Storage
	cfg     SessionsConfig
	opts    []Option
	pricer  Pricer
	logger  *zap.Logger
	now     func() time.Time
	loads   singleflight.Group

	mu        sync.Mutex
	stores    *simplelru.LRU
	evicted   []*Store
	lastSweep time.Time
}

func NewSessions(storage Storage, cfg SessionsConfig, opts ...Option) *Sessions {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxStores <= 0 {
		cfg.MaxStores = DefaultMaxStores
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Sessions{
		storage: storage,
		cfg:     cfg,
		opts:    append(opts, WithLogger(cfg.Logger)),
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	s.pricer = buildOptions(s.opts).pricer

	// only fails for a non-positive size
	s.stores, _ = simplelru.NewLRU(cfg.MaxStores, func(_, value interface{}) {
		s.evicted = append(s.evicted, value.(*sessionEntry).store)
	})
	return s
}

// Get returns the session's store, loading it on first use. Loads of
// different sessions never wait on each other.
func (s *Sessions) Get(ctx context.Context, session string) *Store {
	if st := s.lookup(ctx, session); st != nil {
		return st
	}

	v, _, _ := s.loads.Do(session, func() (interface{}, error) {
		if st := s.lookup(ctx, session); st != nil {
			return st, nil
		}
		st := NewStore(ctx, s.storage, StorageKey(s.cfg.KeyPrefix, session), s.opts...)
		s.insert(session, st)
		s.logger.Debug("cart session opened", zap.String("session", session), zap.Int("items", st.Len()))
		return st, nil
	})
	return v.(*Store)
}

// Peek reads a session's cart without opening a store for it, so
// read-only requests from unknown sessions leave nothing behind.
func (s *Sessions) Peek(ctx context.Context, session string) Snapshot {
	if st := s.lookup(ctx, session); st != nil {
		return st.Snapshot()
	}

	key := StorageKey(s.cfg.KeyPrefix, session)
	items, err := readItems(ctx, s.storage, key, s.logger)
	if err != nil {
		s.logger.Warn("read cart failed", zap.String("cart_key", key), zap.Error(err))
		items = []Item{}
	}

	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return Snapshot{Items: items, Quantity: n, Totals: s.pricer.Price(items)}
}

func (s *Sessions) lookup(ctx context.Context, session string) *Store {
	s.mu.Lock()
	s.sweepLocked()
	var st *Store
	if v, ok := s.stores.Get(session); ok {
		e := v.(*sessionEntry)
		e.lastUsed = s.now()
		st = e.store
	}
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeAll(evicted)
	if st != nil && !st.Loaded() {
		if err := st.Reload(ctx); err != nil {
			s.logger.Warn("reload cart failed", zap.String("session", session), zap.Error(err))
		}
	}
	return st
}

func (s *Sessions) insert(session string, st *Store) {
	s.mu.Lock()
	s.stores.Add(session, &sessionEntry{store: st, lastUsed: s.now()})
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeAll(evicted)
}

// sweepLocked drops stores idle past the timeout. Entries are kept in
// recency order, so the scan stops at the first recent one.
func (s *Sessions) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < s.cfg.IdleTimeout/4 {
		return
	}
	s.lastSweep = now

	for {
		k, v, ok := s.stores.GetOldest()
		if !ok || now.Sub(v.(*sessionEntry).lastUsed) < s.cfg.IdleTimeout {
			return
		}
		s.stores.Remove(k)
	}
}

func (s *Sessions) takeEvictedLocked() []*Store {
	out := s.evicted
	s.evicted = nil
	return out
}

func closeAll(stores []*Store) {
	for _, st := range stores {
		st.Close()
	}
}

// Len is the number of stores held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores.Len()
}

// Close flushes and closes every store.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.stores.Purge()
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeAll(evicted)
}
