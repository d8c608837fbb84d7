package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// Identity headers stamped by the storefront's auth proxy.
const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

// PaymentHandler is a primary adapter (HTTP handler)
type PaymentHandler struct {
	initiator input.PaymentInitiator
	processor input.NotificationProcessor
	refunds   input.RefundOrchestrator
	identity  output.IdentityResolver
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	initiator input.PaymentInitiator,
	processor input.NotificationProcessor,
	refunds input.RefundOrchestrator,
	identity output.IdentityResolver,
) *PaymentHandler {
	return &PaymentHandler{
		initiator: initiator,
		processor: processor,
		refunds:   refunds,
		identity:  identity,
	}
}

// InitiatePaymentRequest represents the HTTP request to initiate a payment
type InitiatePaymentRequest struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
}

// RefundRequest represents the HTTP request to refund a payment
type RefundRequest struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason"`
}

// PaymentResponse represents the HTTP response for a payment
type PaymentResponse struct {
	ID                    string `json:"id"`
	OrderID               string `json:"order_id"`
	SessionID             string `json:"session_id"`
	Amount                int64  `json:"amount"`
	Currency              string `json:"currency"`
	Status                string `json:"status"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	CreatedAt             string `json:"created_at"`
	RedirectURL           string `json:"redirect_url,omitempty"`
}

// InitiatePayment handles payment initiation
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	ident, err := h.resolveIdentity(c)
	if err != nil {
		return writeError(c, err)
	}

	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid order ID"})
	}

	resp, err := h.initiator.InitiatePayment(c.Request().Context(), input.InitiatePaymentRequest{
		OrderID:  orderID,
		Identity: *ident,
		Email:    req.Email,
	})
	if err != nil {
		return writeError(c, err)
	}

	out := toHTTPResponse(resp.Payment)
	out.RedirectURL = resp.RedirectURL
	return c.JSON(http.StatusCreated, out)
}

// HandleNotification is the gateway webhook endpoint. A processed
// notification is acknowledged with a plain "OK" whatever the verification
// verdict was, so the gateway does not storm us with redeliveries for a
// payment that failed on its side. Authentication and transient failures do
// not acknowledge.
func (h *PaymentHandler) HandleNotification(c echo.Context) error {
	var n output.Notification
	if err := c.Bind(&n); err != nil {
		return c.String(http.StatusBadRequest, "malformed notification")
	}

	err := h.processor.ProcessNotification(c.Request().Context(), n)
	if err == nil {
		return c.String(http.StatusOK, "OK")
	}

	var sigErr *core.SignatureMismatchError
	var valErr *core.ValidationError
	var nfErr *core.NotFoundError
	switch {
	case errors.As(err, &sigErr):
		// Already logged as a security event by the processor.
		return c.String(http.StatusBadRequest, "invalid signature")
	case errors.As(err, &valErr):
		return c.String(http.StatusBadRequest, valErr.Error())
	case errors.As(err, &nfErr):
		return c.String(http.StatusNotFound, nfErr.Error())
	default:
		// Transient (upstream/storage) failure: a non-2xx makes the gateway
		// redeliver, which is exactly what at-least-once processing wants.
		log.Printf("notification processing failed for session %s: %v", n.SessionID, err)
		return c.String(http.StatusInternalServerError, "processing failed")
	}
}

// RefundPayment handles full-amount refunds
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	ident, err := h.resolveIdentity(c)
	if err != nil {
		return writeError(c, err)
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	serviceReq := input.RefundPaymentRequest{Reason: req.Reason, Identity: *ident}
	if req.PaymentID != "" {
		id, err := uuid.Parse(req.PaymentID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payment ID"})
		}
		serviceReq.PaymentID = id
	}
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid order ID"})
		}
		serviceReq.OrderID = id
	}

	resp, err := h.refunds.RefundPayment(c.Request().Context(), serviceReq)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toHTTPResponse(*resp))
}

// GetPayment handles payment retrieval by ID
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payment ID"})
	}

	resp, err := h.initiator.GetPayment(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toHTTPResponse(*resp))
}

func (h *PaymentHandler) resolveIdentity(c echo.Context) (*output.Identity, error) {
	return h.identity.Resolve(
		c.Request().Header.Get(headerUserID),
		c.Request().Header.Get(headerRole),
	)
}

// writeError maps the domain error taxonomy onto HTTP statuses in one
// place instead of per-handler string matching.
func writeError(c echo.Context, err error) error {
	var (
		valErr  *core.ValidationError
		authErr *core.UnauthorizedError
		forbErr *core.ForbiddenError
		nfErr   *core.NotFoundError
		confErr *core.ConflictError
		upErr   *core.UpstreamError
		sigErr  *core.SignatureMismatchError
	)
	switch {
	case errors.As(err, &valErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": valErr.Error()})
	case errors.As(err, &sigErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signature"})
	case errors.As(err, &authErr):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": authErr.Error()})
	case errors.As(err, &forbErr):
		return c.JSON(http.StatusForbidden, map[string]string{"error": forbErr.Error()})
	case errors.As(err, &nfErr):
		return c.JSON(http.StatusNotFound, map[string]string{"error": nfErr.Error()})
	case errors.As(err, &confErr):
		return c.JSON(http.StatusConflict, map[string]string{"error": confErr.Error()})
	case errors.As(err, &upErr):
		// Raw gateway body stays in the log and the payment metadata, never
		// in the client response.
		log.Printf("upstream failure: %v", upErr)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
	default:
		log.Printf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func toHTTPResponse(p input.PaymentResponse) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID.String(),
		OrderID:               p.OrderID.String(),
		SessionID:             p.SessionID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                string(p.Status),
		ExternalTransactionID: p.ExternalTransactionID,
		CreatedAt:             p.CreatedAt.Format(time.RFC3339),
	}
}
