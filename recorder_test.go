package go_atoapay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stremovskyy/recorder"
)

type captureStorage struct {
	mu      sync.Mutex
	records []recorder.Record
}

func (s *captureStorage) Save(_ context.Context, record recorder.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *captureStorage) Load(_ context.Context, _ recorder.RecordType, _ string) ([]byte, error) {
	return nil, nil
}

func (s *captureStorage) FindByTag(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *captureStorage) snapshot() []recorder.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recorder.Record, len(s.records))
	copy(out, s.records)
	return out
}

type errorRoundTripper struct {
	err error
}

func (e errorRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return nil, e.err
}

func TestStatusRecordsRequestAndResponse(t *testing.T) {
	storage := &captureStorage{}
	rec := recorder.New(storage)

	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/payments/v1/payment-status/pi-1" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"paidAmount":"10.00","currency":"GBP","paymentIdempotencyId":"pi-1","status":{"status":"COMPLETED"}}`))
			},
		),
	)
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRecorder(rec),
	)

	_, err := client.GetPaymentStatus(context.Background(), "pi-1", StatusParams{Environment: EnvironmentSandbox})
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}

	records := storage.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected request+response records, got %d", len(records))
	}

	if records[0].Type != recorder.RecordTypeRequest {
		t.Fatalf("first record must be request, got %s", records[0].Type)
	}
	if records[1].Type != recorder.RecordTypeResponse {
		t.Fatalf("second record must be response, got %s", records[1].Type)
	}

	if records[0].RequestID == "" || records[0].RequestID != records[1].RequestID {
		t.Fatalf("request and response must have same non-empty request id")
	}

	if records[0].Tags["payment_request_id"] != "pi-1" {
		t.Fatalf("expected payment_request_id tag, got %q", records[0].Tags["payment_request_id"])
	}
	if records[0].Tags["operation"] != "status" {
		t.Fatalf("expected operation=status, got %q", records[0].Tags["operation"])
	}
	if records[1].Tags["status_code"] != "200" {
		t.Fatalf("expected status_code=200, got %q", records[1].Tags["status_code"])
	}

	if len(records[0].Payload) == 0 {
		t.Fatalf("request payload should not be empty")
	}
}

func TestPaymentDetailsRecordsErrorOnTransportFailure(t *testing.T) {
	storage := &captureStorage{}
	rec := recorder.New(storage)

	httpClient := &http.Client{
		Transport: errorRoundTripper{err: errors.New("network down")},
	}

	client := NewClient(
		WithBaseURL("https://api.atoa.example"),
		WithRecorder(rec),
		WithClient(httpClient),
	)

	_, err := client.GetPaymentDetails(context.Background(), "pr-1", WithRecordTags(map[string]string{"merchant": "m-1"}))
	if err == nil {
		t.Fatalf("expected payment details error")
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	records := storage.snapshot()
	if len(records) < 2 {
		t.Fatalf("expected at least request and error records, got %d", len(records))
	}

	hasRequest := false
	hasError := false
	for _, record := range records {
		if record.Type == recorder.RecordTypeRequest {
			hasRequest = true
			if record.Tags["payment_request_id"] != "pr-1" {
				t.Fatalf("expected payment_request_id=pr-1 in request tags, got %q", record.Tags["payment_request_id"])
			}
			if record.Tags["operation"] != "payment-details" {
				t.Fatalf("expected operation=payment-details in request tags, got %q", record.Tags["operation"])
			}
			if record.Tags["merchant"] != "m-1" {
				t.Fatalf("expected run option tag merchant=m-1, got %q", record.Tags["merchant"])
			}
		}
		if record.Type == recorder.RecordTypeError {
			hasError = true
			if !strings.Contains(string(record.Payload), "network down") {
				t.Fatalf("unexpected error payload: %s", string(record.Payload))
			}
			if record.Tags["operation"] != "payment-details" {
				t.Fatalf("expected operation=payment-details in error tags, got %q", record.Tags["operation"])
			}
		}
	}

	if !hasRequest {
		t.Fatalf("request record is missing")
	}
	if !hasError {
		t.Fatalf("error record is missing")
	}
}
