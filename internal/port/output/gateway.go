package output

import (
	"context"
	"encoding/json"
)

// RegisterRequest opens a new transaction session with the gateway.
type RegisterRequest struct {
	SessionID   string
	Amount      int64
	Currency    string
	Description string
	Email       string
}

// RegisterResult carries the redirect token plus the raw exchange for audit.
type RegisterResult struct {
	Token       string
	RawRequest  json.RawMessage
	RawResponse json.RawMessage
}

// VerifyRequest asks the gateway for the authoritative state of a session.
type VerifyRequest struct {
	SessionID      string
	GatewayOrderID int64
	Amount         int64
	Currency       string
}

// VerifyResult reports whether the gateway confirmed the transaction.
type VerifyResult struct {
	Verified    bool
	ErrorCode   string
	ErrorMsg    string
	RawResponse json.RawMessage
}

// RefundRequest drives a full-amount refund of a completed session.
type RefundRequest struct {
	RequestID      string
	SessionID      string
	GatewayOrderID int64
	Amount         int64
	Reason         string
}

// RefundResult reports whether the gateway accepted the refund.
type RefundResult struct {
	Accepted    bool
	RawResponse json.RawMessage
}

// Notification is the inbound webhook payload delivered by the gateway. The
// Sign field authenticates the other fields; at-least-once delivery means
// the same notification can arrive any number of times.
type Notification struct {
	MerchantID   int    `json:"merchantId"`
	PosID        int    `json:"posId"`
	SessionID    string `json:"sessionId"`
	Amount       int64  `json:"amount"`
	OriginAmount int64  `json:"originAmount"`
	Currency     string `json:"currency"`
	OrderID      int64  `json:"orderId"` // gateway-side transaction id
	MethodID     int    `json:"methodId"`
	Statement    string `json:"statement"`
	Sign         string `json:"sign"`
}

// GatewayClient is the output port for the three gateway operations. Each
// call is a single attempt: a retry needs a fresh, re-signed request, so
// retry policy belongs to the caller.
type GatewayClient interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// NotificationVerifier authenticates inbound notifications against the
// shared signing secret. Implemented by the gateway signature codec.
type NotificationVerifier interface {
	VerifyNotificationSign(n Notification) bool
}
