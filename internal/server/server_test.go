package server_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/payment-gateway/internal/config"
	"github.com/finbridge/payment-gateway/internal/handler"
	"github.com/finbridge/payment-gateway/internal/ledger"
	"github.com/finbridge/payment-gateway/internal/server"
	"github.com/finbridge/payment-gateway/internal/service"
	"github.com/finbridge/payment-gateway/internal/webhook"
)

const (
	testToken  = "api_token_test"
	testSecret = "test_webhook"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Port:          8080,
		APIToken:      testToken,
		WebhookSecret: testSecret,
	}

	logger := slog.Default()
	led := ledger.New(ledger.NewMemoryStore(), logger)

	srv := server.New(cfg,
		handler.NewPayinHandler(service.NewPayinService(led), service.NewRefundService(led)),
		handler.NewPayoutHandler(service.NewPayoutService(led)),
		handler.NewWebhookHandler(
			webhook.NewVerifier(testSecret),
			webhook.NewMemoryDeduper(time.Hour),
			webhook.NewApplier(led, logger),
		),
	)
	return srv.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr, decoded
}

func createPayin(t *testing.T, h http.Handler) map[string]any {
	t.Helper()
	rr, resp := doRequest(t, h, http.MethodPost, "/v1/payin",
		`{"amount":"1000","currency":"EUR"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	return resp["payment"].(map[string]any)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rr, resp := doRequest(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, resp["ok"])
	assert.NotEmpty(t, resp["ts"])
}

func TestAuth(t *testing.T) {
	h := newTestServer(t)

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("not a bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Authorization", "Basic "+testToken)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestCreateAndGetPayin(t *testing.T) {
	h := newTestServer(t)

	payment := createPayin(t, h)
	assert.Equal(t, "1000", payment["amount"])
	assert.Equal(t, "EUR", payment["currency"])
	assert.Contains(t, []string{"pending", "succeeded"}, payment["status"])

	id := payment["id"].(string)
	rr, resp := doRequest(t, h, http.MethodGet, "/v1/payin/"+id, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	got := resp["payment"].(map[string]any)
	assert.Equal(t, id, got["id"])
	assert.Equal(t, "1000", got["amount"])
	assert.Equal(t, "EUR", got["currency"])
}

func TestCreatePayin_FractionalAmountEchoes(t *testing.T) {
	h := newTestServer(t)

	for _, amount := range []string{"10.50", "2500.00", "1.0"} {
		rr, resp := doRequest(t, h, http.MethodPost, "/v1/payin",
			fmt.Sprintf(`{"amount":%q,"currency":"EUR"}`, amount), nil)
		require.Equal(t, http.StatusCreated, rr.Code)

		payment := resp["payment"].(map[string]any)
		assert.Equal(t, amount, payment["amount"])

		// trailing zeros survive the read path too
		_, resp = doRequest(t, h, http.MethodGet, "/v1/payin/"+payment["id"].(string), "", nil)
		assert.Equal(t, amount, resp["payment"].(map[string]any)["amount"])
	}
}

func TestCreatePayin_Validation(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":"-10","currency":"EUR"}`},
		{"zero amount", `{"amount":"0","currency":"EUR"}`},
		{"numeric amount", `{"amount":1000,"currency":"EUR"}`},
		{"unknown currency", `{"amount":"1000","currency":"ABC"}`},
		{"not json", `{{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, _ := doRequest(t, h, http.MethodPost, "/v1/payin", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestGetPayin_NotFound(t *testing.T) {
	h := newTestServer(t)

	rr, _ := doRequest(t, h, http.MethodGet, "/v1/payin/pay_missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelPayinTwice(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	rr, resp := doRequest(t, h, http.MethodPost, "/v1/payin/"+id+"/cancel", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "canceled", resp["payment"].(map[string]any)["status"])

	// second cancel conflicts
	rr, _ = doRequest(t, h, http.MethodPost, "/v1/payin/"+id+"/cancel", "", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRefundFlow(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	rr, resp := doRequest(t, h, http.MethodPost, "/v1/payin/"+id+"/refunds",
		`{"amount":"500"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	refund := resp["refund"].(map[string]any)
	assert.Equal(t, "500", refund["amount"])
	assert.Equal(t, id, refund["payin_id"])

	// 600 exceeds the remaining 500
	rr, _ = doRequest(t, h, http.MethodPost, "/v1/payin/"+id+"/refunds",
		`{"amount":"600"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doRequest(t, h, http.MethodPost, "/v1/payin/pay_missing/refunds",
		`{"amount":"500"}`, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreatePayout(t *testing.T) {
	h := newTestServer(t)

	body := `{"amount":"2500","currency":"EUR","callback_url":"https://merchant/callback",
		"destination":{"type":"bank","bank":{"iban":"NL91ABNA0417164300","beneficiary_name":"Test User"}}}`

	rr, resp := doRequest(t, h, http.MethodPost, "/v1/payout", body, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	payout := resp["payout"].(map[string]any)
	assert.Equal(t, "2500", payout["amount"])
	assert.Equal(t, "EUR", payout["currency"])

	t.Run("get returns the payout", func(t *testing.T) {
		rr, resp := doRequest(t, h, http.MethodGet, "/v1/payout/"+payout["id"].(string), "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		got := resp["payout"].(map[string]any)
		assert.Equal(t, "2500", got["amount"])
		assert.Equal(t, "pending", got["status"])
	})

	t.Run("payin id is not a payout", func(t *testing.T) {
		rr, _ := doRequest(t, h, http.MethodGet, "/v1/payout/pay_missing", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid iban", func(t *testing.T) {
		bad := strings.Replace(body, "NL91", "NL99", 1)
		rr, _ := doRequest(t, h, http.MethodPost, "/v1/payout", bad, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing destination", func(t *testing.T) {
		rr, _ := doRequest(t, h, http.MethodPost, "/v1/payout",
			`{"amount":"2500","currency":"EUR"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func webhookBody(eventID, paymentID, status string) string {
	return fmt.Sprintf(`{"id":%q,"type":"payment.updated","created_at":"2026-01-01T00:00:00Z","data":{"object":{"id":%q,"type":"payin","status":%q}}}`,
		eventID, paymentID, status)
}

func postWebhook(t *testing.T, h http.Handler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/events", strings.NewReader(body))
	req.Header.Set("X-Signature", signature)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhookDrivesPaymentLifecycle(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	body := webhookBody("evt_1", id, "succeeded")
	rr := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))
	require.Equal(t, http.StatusOK, rr.Code)

	_, resp := doRequest(t, h, http.MethodGet, "/v1/payin/"+id, "", nil)
	assert.Equal(t, "succeeded", resp["payment"].(map[string]any)["status"])
}

func TestWebhookBadSignature(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	// forged delivery is rejected with zero ledger side effects
	rr := postWebhook(t, h, webhookBody("evt_1", id, "succeeded"), "bad")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	_, resp := doRequest(t, h, http.MethodGet, "/v1/payin/"+id, "", nil)
	assert.Equal(t, "pending", resp["payment"].(map[string]any)["status"])
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	body := webhookBody("evt_replay", id, "canceled")
	sig := webhook.Sign([]byte(body), testSecret)

	rr := postWebhook(t, h, body, sig)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = postWebhook(t, h, body, sig)
	assert.Equal(t, http.StatusOK, rr.Code)

	// ledger state identical to after the first delivery
	_, resp := doRequest(t, h, http.MethodGet, "/v1/payin/"+id, "", nil)
	assert.Equal(t, "canceled", resp["payment"].(map[string]any)["status"])
}

func TestWebhookUnknownEventType(t *testing.T) {
	h := newTestServer(t)

	body := `{"id":"evt_unknown","type":"dispute.created","data":{"object":{"id":"dp_1"}}}`
	rr := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ignored")
}

func TestWebhookUnknownPayment(t *testing.T) {
	h := newTestServer(t)

	body := webhookBody("evt_missing", "pay_missing", "succeeded")
	rr := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))
	// surfaced in logs, not fatal; delivery acknowledged
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookRefundSettlement(t *testing.T) {
	h := newTestServer(t)
	id := createPayin(t, h)["id"].(string)

	rr, resp := doRequest(t, h, http.MethodPost, "/v1/payin/"+id+"/refunds",
		`{"amount":"1000"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	refundID := resp["refund"].(map[string]any)["id"].(string)

	body := fmt.Sprintf(`{"id":"evt_re","type":"refund.updated","data":{"object":{"id":%q,"type":"refund","status":"succeeded"}}}`, refundID)
	wr := postWebhook(t, h, body, webhook.Sign([]byte(body), testSecret))
	require.Equal(t, http.StatusOK, wr.Code)

	_, resp = doRequest(t, h, http.MethodGet, "/v1/payin/"+id, "", nil)
	assert.Equal(t, "refunded", resp["payment"].(map[string]any)["status"])
}
