package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// In-memory fakes implementing the output ports. They mimic the conditional
// write semantics of the real repositories so the services' race handling is
// exercised for real.

type fakeOrderRepo struct {
	mu             sync.Mutex
	orders         map[uuid.UUID]*core.Order
	failNextUpdate error
}

func newFakeOrderRepo(orders ...*core.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: make(map[uuid.UUID]*core.Order)}
	for _, o := range orders {
		cp := *o
		r.orders[o.ID] = &cp
	}
	return r
}

func (r *fakeOrderRepo) GetByID(id uuid.UUID) (*core.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, &core.NotFoundError{Resource: "order", Key: id.String()}
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) UpdateStatusIf(id uuid.UUID, from, to core.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextUpdate != nil {
		err := r.failNextUpdate
		r.failNextUpdate = nil
		return err
	}
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return core.ErrStaleStatus
	}
	o.Status = to
	return nil
}

func (r *fakeOrderRepo) status(id uuid.UUID) core.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

type fakePaymentRepo struct {
	mu          sync.Mutex
	bySession   map[string]*core.Payment
	creates     int
	transitions int
	// staleOnce simulates a concurrent writer: the next transition finds the
	// payment already COMPLETED and loses.
	staleOnce bool
}

func newFakePaymentRepo(payments ...*core.Payment) *fakePaymentRepo {
	r := &fakePaymentRepo{bySession: make(map[string]*core.Payment)}
	for _, p := range payments {
		r.bySession[p.SessionID] = clonePayment(p)
	}
	return r
}

func clonePayment(p *core.Payment) *core.Payment {
	cp := *p
	cp.Metadata = core.Metadata{}.Merge(p.Metadata)
	return &cp
}

func (r *fakePaymentRepo) Create(payment *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySession[payment.SessionID]; exists {
		return &core.ConflictError{Msg: "duplicate session id"}
	}
	r.creates++
	r.bySession[payment.SessionID] = clonePayment(payment)
	return nil
}

func (r *fakePaymentRepo) GetByID(id uuid.UUID) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.bySession {
		if p.ID == id {
			return clonePayment(p), nil
		}
	}
	return nil, &core.NotFoundError{Resource: "payment", Key: id.String()}
}

func (r *fakePaymentRepo) GetBySessionID(sessionID string) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[sessionID]
	if !ok {
		return nil, &core.NotFoundError{Resource: "payment", Key: sessionID}
	}
	return clonePayment(p), nil
}

func (r *fakePaymentRepo) GetActiveByOrderID(orderID uuid.UUID) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.bySession {
		if p.OrderID == orderID && p.Active() {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) GetLatestByOrderID(orderID uuid.UUID) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *core.Payment
	for _, p := range r.bySession {
		if p.OrderID != orderID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	return clonePayment(latest), nil
}

func (r *fakePaymentRepo) TransitionStatus(sessionID string, from, to core.PaymentStatus, upd output.StatusUpdate) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[sessionID]
	if !ok {
		return nil, &core.NotFoundError{Resource: "payment", Key: sessionID}
	}
	if r.staleOnce {
		r.staleOnce = false
		p.Status = core.PaymentStatusCompleted
		return nil, core.ErrStaleStatus
	}
	if p.Status != from {
		return nil, core.ErrStaleStatus
	}
	r.transitions++
	p.Status = to
	if upd.ExternalTransactionID != "" {
		p.ExternalTransactionID = upd.ExternalTransactionID
	}
	if upd.PaymentMethod != 0 {
		p.PaymentMethod = upd.PaymentMethod
	}
	p.ErrorCode = upd.ErrorCode
	p.ErrorMessage = upd.ErrorMessage
	p.Metadata = p.Metadata.Merge(upd.Metadata)
	return clonePayment(p), nil
}

func (r *fakePaymentRepo) get(sessionID string) *core.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePayment(r.bySession[sessionID])
}

type fakeGateway struct {
	mu            sync.Mutex
	registerCalls int
	verifyCalls   int
	refundCalls   int
	registerErr   error
	verifyResult  *output.VerifyResult
	verifyErr     error
	refundResult  *output.RefundResult
	refundErr     error
}

func (g *fakeGateway) Register(ctx context.Context, req output.RegisterRequest) (*output.RegisterResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registerCalls++
	if g.registerErr != nil {
		return nil, g.registerErr
	}
	return &output.RegisterResult{
		Token:       "tok-123",
		RawRequest:  mustJSON(req),
		RawResponse: json.RawMessage(`{"data":{"token":"tok-123"}}`),
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, req output.VerifyRequest) (*output.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyResult != nil {
		return g.verifyResult, nil
	}
	return &output.VerifyResult{Verified: true, RawResponse: json.RawMessage(`{"data":{"status":"success"}}`)}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, req output.RefundRequest) (*output.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refundResult != nil {
		return g.refundResult, nil
	}
	return &output.RefundResult{Accepted: true, RawResponse: json.RawMessage(`{"data":{"status":"success"}}`)}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []core.PaymentEvent
}

func (p *fakePublisher) PublishPaymentEvent(evt core.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) statuses() []core.PaymentStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.PaymentStatus, len(p.events))
	for i, e := range p.events {
		out[i] = e.Status
	}
	return out
}
