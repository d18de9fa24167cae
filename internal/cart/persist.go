package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// write is one pending storage update. A nil data deletes the blob.
type write struct {
	data []byte
}

// persister writes snapshots in the background. Only the most recent
// pending snapshot is kept, so a burst of mutations costs one write.
type persister struct {
	storage Storage
	key     string
	logger  *zap.Logger

	mu       sync.Mutex
	idle     *sync.Cond
	pending  *write
	inflight bool
	closed   bool

	kick chan struct{}
	done chan struct{}
}

func newPersister(storage Storage, key string, logger *zap.Logger) *persister {
	p := &persister{
		storage: storage,
		key:     key,
		logger:  logger,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	go p.loop()
	return p
}

// enqueue replaces any pending snapshot. It never blocks on storage while
// the writer runs; after close the write happens inline, so a store evicted
// from its session registry still persists late mutations.
func (p *persister) enqueue(data []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.write(&write{data: data})
		return
	}
	p.pending = &write{data: data}
	select {
	case p.kick <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

func (p *persister) loop() {
	defer close(p.done)
	for range p.kick {
		for {
			p.mu.Lock()
			w := p.pending
			if w == nil {
				p.idle.Broadcast()
				p.mu.Unlock()
				break
			}
			p.pending = nil
			p.inflight = true
			p.mu.Unlock()

			p.write(w)

			p.mu.Lock()
			p.inflight = false
			p.mu.Unlock()
		}
	}
}

func (p *persister) write(w *write) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if w.data == nil {
		err = p.storage.Delete(ctx, p.key)
	} else {
		err = p.storage.Set(ctx, p.key, w.data)
	}
	if err != nil {
		p.logger.Warn("persist cart failed", zap.String("key", p.key), zap.Bool("delete", w.data == nil), zap.Error(err))
	}
}

// flush blocks until every enqueued snapshot has been attempted.
func (p *persister) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending != nil || p.inflight {
		p.idle.Wait()
	}
}

func (p *persister) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for p.pending != nil || p.inflight {
			p.idle.Wait()
		}
		close(p.kick)
	}
	p.mu.Unlock()
	<-p.done
}
