package go_atoapay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, routes func(r chi.Router)) AtoaPay {
	t.Helper()

	router := chi.NewRouter()
	routes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return NewClient(WithBaseURL(srv.URL), WithTimeout(5*time.Second))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestListBankInstitutions(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/institutions/consumer", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[{"id":"monzo","name":"Monzo","features":["PIS"],"enabled":true},{"id":"hsbc","name":"HSBC","enabled":false}]`)
		})
	})

	banks, err := client.ListBankInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "monzo", banks[0].ID)
	assert.True(t, banks[0].HasFeature("pis"))
	assert.False(t, banks[1].Enabled)
}

func TestGetPaymentDetailsSendsDataAndSource(t *testing.T) {
	var got map[string]string
	client := newBackend(t, func(r chi.Router) {
		r.Post("/api/payments/v1/payment-request/details", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(w, http.StatusOK, `{"paymentRequestId":"pr_123","merchantId":"m-1","merchantName":"Coffee","amount":{"amount":4.5,"currency":"GBP"}}`)
		})
	})

	details, err := client.GetPaymentDetails(context.Background(), " pr_123 ")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"data": "pr_123", "source": "EXTERNAL_MERCHANT"}, got)
	assert.Equal(t, "m-1", details.MerchantID)
	assert.Equal(t, 4.5, details.Amount.Amount)
	assert.Equal(t, "GBP", details.Amount.Currency)
}

func TestGetPaymentDetailsRequiresID(t *testing.T) {
	_, err := NewClient().GetPaymentDetails(context.Background(), "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestBankAuthorisationComposesPayload(t *testing.T) {
	var payload map[string]any
	client := newBackend(t, func(r chi.Router) {
		r.Post("/api/payments/v1/process-payment", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			writeJSON(w, http.StatusOK, `{"authorisationUrl":"https://bank.example/auth?x=1","paymentIdempotencyId":"pi_456","tracingId":"tr-1"}`)
		})
	})

	consumer := "c-1"
	details := &PaymentDetails{
		PaymentRequestID: "pr_123",
		MerchantID:       "m-1",
		MerchantName:     "Coffee",
		ConsumerID:       &consumer,
		Amount:           Amount{Amount: 4.5, Currency: "GBP"},
	}
	req := NewAuthorisationRequest(details, &BankInstitution{ID: "monzo", Name: "Monzo"}).
		WithDevice(StaticDevice{OS: "Android", BrowserName: "Chrome"})

	resp, err := client.RequestBankAuthorisation(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pi_456", resp.PaymentIdempotencyID)

	u, err := resp.ParsedAuthorisationURL()
	require.NoError(t, err)
	assert.Equal(t, "bank.example", u.Host)

	assert.Equal(t, "pr_123", payload["paymentRequestId"])
	assert.Equal(t, "m-1", payload["merchantId"])
	assert.Equal(t, "c-1", payload["consumerId"])
	assert.Equal(t, "monzo", payload["institutionId"])
	assert.Equal(t, "Monzo", payload["bankName"])
	assert.Equal(t, "GBP", payload["currency"])
	assert.Equal(t, "MOBILE", payload["deviceOrigin"])
	assert.Equal(t, "android", payload["platform"])
	assert.Equal(t, "Chrome", payload["browser"])
	assert.Equal(t, "EXTERNAL_MERCHANT", payload["source"])

	// absent optional fields are transmitted as null
	for _, key := range []string{"consumerName", "orderId", "tipAmount", "redirectUrl", "storeId"} {
		v, ok := payload[key]
		assert.True(t, ok, "key %s must be present", key)
		assert.Nil(t, v, "key %s must be null", key)
	}
}

func TestRequestBankAuthorisationUsesClientDevice(t *testing.T) {
	var payload map[string]any
	router := chi.NewRouter()
	router.Post("/api/payments/v1/process-payment", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeJSON(w, http.StatusOK, `{"authorisationUrl":"https://bank.example/auth","paymentIdempotencyId":"pi_1"}`)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithDevice(StaticDevice{OS: "Windows", BrowserName: "Edge"}))
	req := NewAuthorisationRequest(&PaymentDetails{MerchantID: "m"}, &BankInstitution{ID: "b"}).WithPaymentRequestID("pr_9")

	_, err := client.RequestBankAuthorisation(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "DESKTOP", payload["deviceOrigin"])
	assert.Equal(t, "windows", payload["platform"])
	assert.Equal(t, "Edge", payload["browser"])
	assert.Equal(t, "pr_9", payload["paymentRequestId"])
}

func TestRequestBankAuthorisationBackendRejection(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Post("/api/payments/v1/process-payment", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"errorCode":"AMOUNT_INVALID","message":"amount must be positive","tracingId":"tr-9"}`)
		})
	})

	req := NewAuthorisationRequest(&PaymentDetails{MerchantID: "m"}, &BankInstitution{ID: "b"})
	resp, err := client.RequestBankAuthorisation(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrUnprocessable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "AMOUNT_INVALID", apiErr.ErrCode)
	assert.Equal(t, "amount must be positive", apiErr.Description)
	assert.Equal(t, "tr-9", apiErr.TracingID)
}

func TestRequestBankAuthorisationEmptyURLIsError(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Post("/api/payments/v1/process-payment", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"authorisationUrl":"","paymentIdempotencyId":"pi_1"}`)
		})
	})

	req := NewAuthorisationRequest(&PaymentDetails{}, &BankInstitution{ID: "b"})
	_, err := client.RequestBankAuthorisation(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestRequestBankAuthorisationValidation(t *testing.T) {
	client := NewClient()
	tests := []struct {
		name string
		req  *AuthorisationRequest
	}{
		{name: "nil request", req: nil},
		{name: "nil details", req: NewAuthorisationRequest(nil, &BankInstitution{ID: "b"})},
		{name: "nil bank", req: NewAuthorisationRequest(&PaymentDetails{}, nil)},
		{name: "blank bank id", req: NewAuthorisationRequest(&PaymentDetails{}, &BankInstitution{ID: " "})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.RequestBankAuthorisation(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetPaymentStatusNormalizesEnvironment(t *testing.T) {
	var gotEnv, gotType, gotID string
	var hasType bool
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/payment-status/{id}", func(w http.ResponseWriter, r *http.Request) {
			gotID = chi.URLParam(r, "id")
			gotEnv = r.URL.Query().Get("env")
			gotType = r.URL.Query().Get("type")
			_, hasType = r.URL.Query()["type"]
			writeJSON(w, http.StatusOK, `{"paidAmount":"4.50","currency":"GBP","status":{"status":"PENDING"}}`)
		})
	})

	snapshot, err := client.GetPaymentStatus(context.Background(), "pi_456", StatusParams{Environment: EnvironmentProduction})
	require.NoError(t, err)
	assert.Equal(t, "pi_456", gotID)
	assert.Equal(t, "production", gotEnv)
	assert.False(t, hasType, "type must be omitted when not supplied")
	assert.True(t, snapshot.IsPending())

	_, err = client.GetPaymentStatus(context.Background(), "pi_456", StatusParams{Environment: EnvironmentSandbox, Type: "REQUEST"})
	require.NoError(t, err)
	assert.Equal(t, "sandbox", gotEnv)
	assert.Equal(t, "REQUEST", gotType)
}

func TestGetPaymentStatusErrors(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/payment-status/{id}", func(w http.ResponseWriter, r *http.Request) {
			switch chi.URLParam(r, "id") {
			case "missing":
				writeJSON(w, http.StatusNotFound, `{"message":"not found"}`)
			case "limited":
				w.Header().Set("Retry-After", "3")
				writeJSON(w, http.StatusTooManyRequests, `slow down`)
			case "broken":
				writeJSON(w, http.StatusOK, `{not json`)
			default:
				writeJSON(w, http.StatusBadGateway, ``)
			}
		})
	})
	params := StatusParams{Environment: EnvironmentSandbox}

	_, err := client.GetPaymentStatus(context.Background(), "missing", params)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetPaymentStatus(context.Background(), "limited", params)
	assert.ErrorIs(t, err, ErrRateLimited)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.NotNil(t, apiErr.RetryAfter)
	assert.Equal(t, 3*time.Second, *apiErr.RetryAfter)
	assert.Equal(t, "slow down", apiErr.Description)

	_, err = client.GetPaymentStatus(context.Background(), "broken", params)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = client.GetPaymentStatus(context.Background(), "other", params)
	assert.ErrorIs(t, err, ErrServerError)

	_, err = client.GetPaymentStatus(context.Background(), "", params)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = client.GetPaymentStatus(context.Background(), "x", StatusParams{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPaymentStatusHonoursContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/payment-status/{id}", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetPaymentStatus(ctx, "slow", StatusParams{Environment: EnvironmentSandbox})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForFinalStatusPollsUntilFinal(t *testing.T) {
	var calls atomic.Int32
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/payment-status/{id}", func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				writeJSON(w, http.StatusOK, `{"status":{"status":"PENDING"}}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"paidAmount":"4.50","status":{"status":"COMPLETED"}}`)
		})
	})

	snapshot, err := client.WaitForFinalStatus(context.Background(), "pi_1", StatusParams{Environment: EnvironmentSandbox}, 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, snapshot.IsSuccess())
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForFinalStatusStopsOnContext(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Get("/api/payments/v1/payment-status/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"status":{"status":"PENDING"}}`)
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	snapshot, err := client.WaitForFinalStatus(ctx, "pi_1", StatusParams{Environment: EnvironmentSandbox}, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	if snapshot != nil {
		assert.True(t, snapshot.IsPending())
	}

	_, err = client.WaitForFinalStatus(context.Background(), "pi_1", StatusParams{Environment: EnvironmentSandbox}, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNotifyCancellation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient()
	require.NoError(t, client.NotifyCancellation(context.Background(), srv.URL+"/cancelled?order=1"))
	assert.Equal(t, int32(1), hits.Load())

	assert.ErrorIs(t, client.NotifyCancellation(context.Background(), "/relative"), ErrValidation)
}

func TestDryRunSkipsRequest(t *testing.T) {
	var endpoint string
	var payload any
	client := NewClient(WithBaseURL("https://api.atoa.example/"))

	resp, err := client.GetPaymentDetails(context.Background(), "pr_1", DryRun(func(e string, p any) {
		endpoint = e
		payload = p
	}))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "https://api.atoa.example/api/payments/v1/payment-request/details", endpoint)
	assert.NotNil(t, payload)

	_, err = client.GetPaymentStatus(context.Background(), "pi 1", StatusParams{Environment: EnvironmentProduction}, DryRun(func(e string, _ any) {
		endpoint = e
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://api.atoa.example/api/payments/v1/payment-status/pi%201?env=production", endpoint)
}
