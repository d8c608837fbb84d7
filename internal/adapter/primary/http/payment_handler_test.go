package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/identity"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

type stubInitiator struct {
	resp *input.InitiatePaymentResponse
	err  error
}

func (s *stubInitiator) InitiatePayment(ctx context.Context, req input.InitiatePaymentRequest) (*input.InitiatePaymentResponse, error) {
	return s.resp, s.err
}

func (s *stubInitiator) GetPayment(id uuid.UUID) (*input.PaymentResponse, error) {
	if s.resp == nil {
		return nil, &core.NotFoundError{Resource: "payment", Key: id.String()}
	}
	return &s.resp.Payment, nil
}

type stubProcessor struct {
	err   error
	calls int
}

func (s *stubProcessor) ProcessNotification(ctx context.Context, n output.Notification) error {
	s.calls++
	return s.err
}

type stubRefunds struct {
	resp *input.PaymentResponse
	err  error
}

func (s *stubRefunds) RefundPayment(ctx context.Context, req input.RefundPaymentRequest) (*input.PaymentResponse, error) {
	return s.resp, s.err
}

func newHandler(init *stubInitiator, proc *stubProcessor, ref *stubRefunds) *PaymentHandler {
	if init == nil {
		init = &stubInitiator{}
	}
	if proc == nil {
		proc = &stubProcessor{}
	}
	if ref == nil {
		ref = &stubRefunds{}
	}
	return NewPaymentHandler(init, proc, ref, identity.NewHeaderResolver())
}

func doJSON(t *testing.T, h echo.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestHandleNotificationAcknowledgesProcessed(t *testing.T) {
	proc := &stubProcessor{}
	h := newHandler(nil, proc, nil)

	rec := doJSON(t, h.HandleNotification, `{"sessionId":"sess-1","amount":5000}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, 1, proc.calls)
}

func TestHandleNotificationStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"signature mismatch", &core.SignatureMismatchError{SessionID: "sess-1"}, http.StatusBadRequest},
		{"validation", &core.ValidationError{Msg: "sessionId is required"}, http.StatusBadRequest},
		{"unknown session", &core.NotFoundError{Resource: "payment", Key: "sess-1"}, http.StatusNotFound},
		{"transient upstream", &core.UpstreamError{Operation: "verify", StatusCode: 503}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(nil, &stubProcessor{err: tt.err}, nil)
			rec := doJSON(t, h.HandleNotification, `{"sessionId":"sess-1"}`, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandleNotificationMalformedBody(t *testing.T) {
	proc := &stubProcessor{}
	h := newHandler(nil, proc, nil)

	rec := doJSON(t, h.HandleNotification, `{"amount":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, proc.calls)
}

func TestInitiatePaymentRequiresIdentity(t *testing.T) {
	h := newHandler(nil, nil, nil)

	rec := doJSON(t, h.InitiatePayment, `{"order_id":"`+uuid.NewString()+`"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInitiatePaymentReturnsRedirect(t *testing.T) {
	payment := input.PaymentResponse{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		SessionID: "sess-1",
		Amount:    5000,
		Currency:  "PLN",
		Status:    core.PaymentStatusInitiated,
		CreatedAt: time.Now(),
	}
	init := &stubInitiator{resp: &input.InitiatePaymentResponse{
		Payment:     payment,
		RedirectURL: "https://sandbox.gateway.example/transaction/request/tok-123",
	}}
	h := newHandler(init, nil, nil)

	rec := doJSON(t, h.InitiatePayment, `{"order_id":"`+payment.OrderID.String()+`"}`,
		map[string]string{headerUserID: uuid.NewString()})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INITIATED", body.Status)
	assert.Contains(t, body.RedirectURL, "tok-123")
}

func TestRefundPaymentErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"forbidden", &core.ForbiddenError{Msg: "refunds require the admin role"}, http.StatusForbidden},
		{"not eligible", &core.ValidationError{Msg: "payment is not eligible for refund"}, http.StatusBadRequest},
		{"already refunded", &core.ConflictError{Msg: "payment already refunded"}, http.StatusConflict},
		{"gateway down", &core.UpstreamError{Operation: "refund", StatusCode: 502}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(nil, nil, &stubRefunds{err: tt.err})
			rec := doJSON(t, h.RefundPayment, `{"payment_id":"`+uuid.NewString()+`"}`,
				map[string]string{headerUserID: uuid.NewString(), headerRole: output.RoleAdmin})
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
