package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"

	"github.com/storefront/payment-gateway/internal/port/output"
)

// Signer computes the keyed digests the gateway protocol requires. Each
// operation signs its own fixed field subset; the canonical form is the JSON
// serialization of the subset struct (struct field order fixes the key
// order), hashed with SHA-384. The subsets are part of the wire contract:
// changing one breaks interoperability with the gateway.
type Signer struct {
	crc string
}

// NewSigner creates a signer bound to the shared CRC signing secret.
func NewSigner(crc string) *Signer {
	return &Signer{crc: crc}
}

type registerSignFields struct {
	SessionID  string `json:"sessionId"`
	MerchantID int    `json:"merchantId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CRC        string `json:"crc"`
}

type notificationSignFields struct {
	MerchantID   int    `json:"merchantId"`
	PosID        int    `json:"posId"`
	SessionID    string `json:"sessionId"`
	Amount       int64  `json:"amount"`
	OriginAmount int64  `json:"originAmount"`
	Currency     string `json:"currency"`
	OrderID      int64  `json:"orderId"`
	MethodID     int    `json:"methodId"`
	Statement    string `json:"statement"`
	CRC          string `json:"crc"`
}

type verifySignFields struct {
	SessionID string `json:"sessionId"`
	OrderID   int64  `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	CRC       string `json:"crc"`
}

type refundSignFields struct {
	RequestID string `json:"requestId"`
	SessionID string `json:"sessionId"`
	OrderID   int64  `json:"orderId"`
	Amount    int64  `json:"amount"`
	CRC       string `json:"crc"`
}

// RegisterSign signs a transaction registration.
func (s *Signer) RegisterSign(sessionID string, merchantID int, amount int64, currency string) string {
	return digest(registerSignFields{
		SessionID:  sessionID,
		MerchantID: merchantID,
		Amount:     amount,
		Currency:   currency,
		CRC:        s.crc,
	})
}

// NotificationSign computes the expected signature of an inbound
// notification.
func (s *Signer) NotificationSign(n output.Notification) string {
	return digest(notificationSignFields{
		MerchantID:   n.MerchantID,
		PosID:        n.PosID,
		SessionID:    n.SessionID,
		Amount:       n.Amount,
		OriginAmount: n.OriginAmount,
		Currency:     n.Currency,
		OrderID:      n.OrderID,
		MethodID:     n.MethodID,
		Statement:    n.Statement,
		CRC:          s.crc,
	})
}

// VerifyNotificationSign recomputes the notification digest and compares it
// against the delivered one in constant time. This is the webhook trust
// boundary.
func (s *Signer) VerifyNotificationSign(n output.Notification) bool {
	expected := s.NotificationSign(n)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Sign)) == 1
}

// VerifySign signs a transaction verification call.
func (s *Signer) VerifySign(sessionID string, orderID, amount int64, currency string) string {
	return digest(verifySignFields{
		SessionID: sessionID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		CRC:       s.crc,
	})
}

// RefundSign signs a refund request.
func (s *Signer) RefundSign(requestID, sessionID string, orderID, amount int64) string {
	return digest(refundSignFields{
		RequestID: requestID,
		SessionID: sessionID,
		OrderID:   orderID,
		Amount:    amount,
		CRC:       s.crc,
	})
}

func digest(fields interface{}) string {
	// Marshal cannot fail on these flat structs.
	payload, _ := json.Marshal(fields)
	sum := sha512.Sum384(payload)
	return hex.EncodeToString(sum[:])
}
