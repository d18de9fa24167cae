package checkout_test

import (
	"context"
	"sync"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
)

type submitCall struct {
	Kind cart.Kind
	Req  checkout.OrderRequest
}

type SubmitterMock struct {
	SubmitFunc func(ctx context.Context, kind cart.Kind, req checkout.OrderRequest) (checkout.Receipt, error)

	mu    sync.Mutex
	calls []submitCall
}

func (m *SubmitterMock) Submit(ctx context.Context, kind cart.Kind, req checkout.OrderRequest) (checkout.Receipt, error) {
	m.mu.Lock()
	m.calls = append(m.calls, submitCall{Kind: kind, Req: req})
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, kind, req)
	}
	return checkout.Receipt{OrderID: string(kind) + "-1"}, nil
}

func (m *SubmitterMock) Calls() []submitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]submitCall(nil), m.calls...)
}

type NotifierMock struct {
	OrderSubmittedFunc func(ctx context.Context, sub checkout.Submission) error

	mu   sync.Mutex
	subs []checkout.Submission
}

func (m *NotifierMock) OrderSubmitted(ctx context.Context, sub checkout.Submission) error {
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	if m.OrderSubmittedFunc != nil {
		return m.OrderSubmittedFunc(ctx, sub)
	}
	return nil
}

// userError mimics an order API rejection with a readable message.
type userError struct{ msg string }

func (e userError) Error() string       { return "order api: " + e.msg }
func (e userError) UserMessage() string { return e.msg }
