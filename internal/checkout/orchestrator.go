package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

// Result describes a checkout in which every attempted group was accepted.
type Result struct {
	Submitted []cart.Kind
	Receipts  map[cart.Kind]Receipt
}

type group struct {
	kind  cart.Kind
	items []cart.Item
}

// Orchestrator submits a cart to the order API one group at a time and
// keeps the cart in step with what the API accepted. A failed group is
// never retried; groups accepted before it are removed from the cart so a
// second attempt cannot order them twice.
type Orchestrator struct {
	submitter Submitter
	notifier  Notifier
	pricer    cart.Pricer
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[*cart.Store]struct{}
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithPricer(p cart.Pricer) Option {
	return func(o *Orchestrator) { o.pricer = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(submitter Submitter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		submitter: submitter,
		pricer:    cart.NewPricer(nil),
		logger:    zap.NewNop(),
		now:       time.Now,
		inflight:  make(map[*cart.Store]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Checkout validates customer and submits the canvas group, then the merch
// group. It returns ErrInProgress while another checkout of the same store
// runs, ErrEmptyCart, a *ValidationError before any network call, or an
// *Error after a failed submission.
//
// Submissions are not cancelled when ctx is; an order the API may already
// hold must be seen through so the cart can be reconciled.
func (o *Orchestrator) Checkout(ctx context.Context, store *cart.Store, customer Customer) (Result, error) {
	if !o.acquire(store) {
		return Result{}, ErrInProgress
	}
	defer o.release(store)

	items := store.Items()
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}

	canvas, merch := Partition(items)
	if err := customer.Validate(len(merch) > 0); err != nil {
		return Result{}, err
	}
	customer = customer.Normalize()

	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With(zap.String("cart_key", store.Key()))

	res := Result{Receipts: make(map[cart.Kind]Receipt)}
	var accepted []cart.Item

	for _, g := range []group{{cart.KindCanvas, canvas}, {cart.KindProduct, merch}} {
		if len(g.items) == 0 {
			continue
		}

		req := OrderRequest{CustomerDetails: customer, Cart: orderLines(g.items)}
		receipt, err := o.submitter.Submit(ctx, g.kind, req)
		if err != nil {
			logger.Error("order submission failed", zap.String("kind", string(g.kind)), zap.Error(err))
			if len(accepted) > 0 {
				store.Deduct(accepted)
				logger.Warn("removed ordered items after partial checkout", zap.Strings("kinds", kindStrings(res.Submitted)))
			}
			return Result{}, &Error{Failed: g.kind, Removed: res.Submitted, Cause: err}
		}

		logger.Info("order submitted",
			zap.String("kind", string(g.kind)),
			zap.String("order_id", receipt.OrderID),
			zap.Int("lines", len(req.Cart)),
		)
		res.Submitted = append(res.Submitted, g.kind)
		res.Receipts[g.kind] = receipt
		accepted = append(accepted, g.items...)
		o.notify(ctx, logger, Submission{
			CartKey:     store.Key(),
			Kind:        g.kind,
			Receipt:     receipt,
			Customer:    customer,
			Lines:       req.Cart,
			Amount:      o.pricer.Price(g.items).Total,
			SubmittedAt: o.now().UTC(),
		})
	}

	store.Deduct(accepted)
	return res, nil
}

func (o *Orchestrator) notify(ctx context.Context, logger *zap.Logger, sub Submission) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.OrderSubmitted(ctx, sub); err != nil {
		logger.Warn("order notification failed", zap.String("kind", string(sub.Kind)), zap.Error(err))
	}
}

func (o *Orchestrator) acquire(store *cart.Store) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[store]; busy {
		return false
	}
	o.inflight[store] = struct{}{}
	return true
}

func (o *Orchestrator) release(store *cart.Store) {
	o.mu.Lock()
	delete(o.inflight, store)
	o.mu.Unlock()
}

func kindStrings(kinds []cart.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
