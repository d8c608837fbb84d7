package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/payment-gateway/internal/config"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

func testClient(baseURL string) *Client {
	cfg := config.Config{
		MerchantID:     65000,
		PosID:          65000,
		APIKey:         "api-key",
		CRCKey:         "crc-secret",
		Currency:       "PLN",
		GatewayBaseURL: baseURL,
		ReturnURL:      "http://shop.local/payment/return",
		StatusURL:      "http://shop.local/api/v1/payments/notify",
	}
	return NewClient(cfg, NewSigner(cfg.CRCKey))
}

func TestRegisterSendsSignedAuthenticatedRequest(t *testing.T) {
	var gotBody registerBody
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/register", r.URL.Path)
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"token":"tok-123"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Register(context.Background(), output.RegisterRequest{
		SessionID: "sess-1",
		Amount:    12999,
		Currency:  "PLN",
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", res.Token)
	assert.Equal(t, "65000", gotUser)
	assert.Equal(t, "api-key", gotPass)
	assert.Equal(t, "sess-1", gotBody.SessionID)
	assert.Equal(t, int64(12999), gotBody.Amount)
	assert.Equal(t, NewSigner("crc-secret").RegisterSign("sess-1", 65000, 12999, "PLN"), gotBody.Sign)
	assert.NotEmpty(t, res.RawRequest)
	assert.NotEmpty(t, res.RawResponse)
}

func TestRegisterUpstreamErrorIsSingleAttempt(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Register(context.Background(), output.RegisterRequest{SessionID: "sess-1", Amount: 100, Currency: "PLN"})

	var upErr *core.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Contains(t, upErr.RawBody, "invalid credentials")
	assert.Equal(t, 1, attempts, "the client must never retry on its own")
}

func TestRegisterMalformedBodyIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Register(context.Background(), output.RegisterRequest{SessionID: "sess-1", Amount: 100, Currency: "PLN"})

	var upErr *core.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, upErr.RawBody, "not json")
}

func TestVerifyParsesVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		verified bool
	}{
		{"confirmed", `{"data":{"status":"success"}}`, true},
		{"rejected", `{"data":{"status":"error"},"error":{"code":"err54","message":"amount mismatch"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/transaction/verify", r.URL.Path)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			res, err := c.Verify(context.Background(), output.VerifyRequest{
				SessionID:      "sess-1",
				GatewayOrderID: 300042,
				Amount:         12999,
				Currency:       "PLN",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.verified, res.Verified)
			if !tt.verified {
				assert.Equal(t, "err54", res.ErrorCode)
			}
		})
	}
}

func TestRefundReportsAcceptance(t *testing.T) {
	var gotBody refundBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/refund", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"status":"success"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Refund(context.Background(), output.RefundRequest{
		RequestID:      "req-1",
		SessionID:      "sess-1",
		GatewayOrderID: 300042,
		Amount:         12999,
		Reason:         "customer request",
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, NewSigner("crc-secret").RefundSign("req-1", "sess-1", 300042, 12999), gotBody.Sign)
	assert.Equal(t, int64(12999), gotBody.Amount)
}
