package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storefront/payment-gateway/internal/config"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

const statusSuccess = "success"

// Client is a secondary adapter implementing the GatewayClient output port.
// Every operation is a single blocking HTTP call with Basic auth; there are
// no internal retries because a replay needs a fresh, re-signed request.
type Client struct {
	cfg    config.Config
	signer *Signer
	http   *http.Client
}

// NewClient creates a gateway client bound to the injected configuration.
func NewClient(cfg config.Config, signer *Signer) *Client {
	return &Client{
		cfg:    cfg,
		signer: signer,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type registerBody struct {
	MerchantID  int    `json:"merchantId"`
	PosID       int    `json:"posId"`
	SessionID   string `json:"sessionId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Email       string `json:"email"`
	URLReturn   string `json:"urlReturn"`
	URLStatus   string `json:"urlStatus"`
	Sign        string `json:"sign"`
}

type registerResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Register opens a transaction session and returns the redirect token.
func (c *Client) Register(ctx context.Context, req output.RegisterRequest) (*output.RegisterResult, error) {
	body := registerBody{
		MerchantID:  c.cfg.MerchantID,
		PosID:       c.cfg.PosID,
		SessionID:   req.SessionID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Email:       req.Email,
		URLReturn:   c.cfg.ReturnURL,
		URLStatus:   c.cfg.StatusURL,
		Sign:        c.signer.RegisterSign(req.SessionID, c.cfg.MerchantID, req.Amount, req.Currency),
	}
	rawReq, raw, err := c.call(ctx, http.MethodPost, "/transaction/register", body)
	if err != nil {
		return nil, err
	}

	var parsed registerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Data.Token == "" {
		return nil, &core.UpstreamError{Operation: "register", StatusCode: http.StatusOK, RawBody: string(raw)}
	}
	return &output.RegisterResult{
		Token:       parsed.Data.Token,
		RawRequest:  rawReq,
		RawResponse: raw,
	}, nil
}

type verifyBody struct {
	MerchantID int    `json:"merchantId"`
	PosID      int    `json:"posId"`
	SessionID  string `json:"sessionId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	OrderID    int64  `json:"orderId"`
	Sign       string `json:"sign"`
}

type verifyResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Verify asks the gateway for the authoritative transaction state. A parsed
// 2xx response with a non-success status is a verification failure, not an
// upstream error.
func (c *Client) Verify(ctx context.Context, req output.VerifyRequest) (*output.VerifyResult, error) {
	body := verifyBody{
		MerchantID: c.cfg.MerchantID,
		PosID:      c.cfg.PosID,
		SessionID:  req.SessionID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		OrderID:    req.GatewayOrderID,
		Sign:       c.signer.VerifySign(req.SessionID, req.GatewayOrderID, req.Amount, req.Currency),
	}
	_, raw, err := c.call(ctx, http.MethodPut, "/transaction/verify", body)
	if err != nil {
		return nil, err
	}

	var parsed verifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &core.UpstreamError{Operation: "verify", StatusCode: http.StatusOK, RawBody: string(raw)}
	}
	return &output.VerifyResult{
		Verified:    parsed.Data.Status == statusSuccess,
		ErrorCode:   parsed.Error.Code,
		ErrorMsg:    parsed.Error.Message,
		RawResponse: raw,
	}, nil
}

type refundBody struct {
	RequestID string `json:"requestId"`
	SessionID string `json:"sessionId"`
	OrderID   int64  `json:"orderId"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	Sign      string `json:"sign"`
}

type refundResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Refund requests a full-amount refund of a completed session.
func (c *Client) Refund(ctx context.Context, req output.RefundRequest) (*output.RefundResult, error) {
	body := refundBody{
		RequestID: req.RequestID,
		SessionID: req.SessionID,
		OrderID:   req.GatewayOrderID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Sign:      c.signer.RefundSign(req.RequestID, req.SessionID, req.GatewayOrderID, req.Amount),
	}
	_, raw, err := c.call(ctx, http.MethodPost, "/transaction/refund", body)
	if err != nil {
		return nil, err
	}

	var parsed refundResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &core.UpstreamError{Operation: "refund", StatusCode: http.StatusOK, RawBody: string(raw)}
	}
	return &output.RefundResult{
		Accepted:    parsed.Data.Status == statusSuccess,
		RawResponse: raw,
	}, nil
}

// call performs one signed, authenticated exchange and returns the request
// and response bodies for the audit trail. Non-2xx statuses become
// UpstreamError with the raw body retained; the Basic auth credentials are
// never part of any error or log line.
func (c *Client) call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.GatewayBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(fmt.Sprintf("%d", c.cfg.PosID), c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &core.UpstreamError{Operation: path, StatusCode: 0, RawBody: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &core.UpstreamError{Operation: path, StatusCode: resp.StatusCode, RawBody: "unreadable body"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &core.UpstreamError{Operation: path, StatusCode: resp.StatusCode, RawBody: string(raw)}
	}
	return payload, raw, nil
}
