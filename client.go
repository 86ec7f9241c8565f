package go_atoapay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stremovskyy/go-atoapay/consts"
	internalhttp "github.com/stremovskyy/go-atoapay/internal/http"
	"github.com/stremovskyy/go-atoapay/log"
)

type client struct {
	http *internalhttp.Client
	cfg  *clientConfig
}

var _ AtoaPay = (*client)(nil)

var logger = log.NewLogger("AtoaPay:")

const (
	tagOperation        = "operation"
	tagPaymentRequestID = "payment_request_id"
	tagStatusCode       = "status_code"
)

func (c *client) SetLogLevel(level log.Level) {
	log.SetLevel(level)
}

// ListBankInstitutions returns consumer bank institutions.
// Under the hood: GET /api/payments/v1/institutions/consumer.
func (c *client) ListBankInstitutions(ctx context.Context, runOpts ...RunOption) ([]BankInstitution, error) {
	opts := collectRunOptions(runOpts)
	if opts.isDryRun() {
		opts.handleDryRun(c.endpoint(consts.PathBankInstitutions), nil)
		return nil, nil
	}

	var resp []BankInstitution
	err := c.doJSON(ctx, apiCall{
		op:     "institutions",
		method: http.MethodGet,
		path:   consts.PathBankInstitutions,
		out:    &resp,
		tags:   opts.tags,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPaymentDetails fetches payment request details.
// Under the hood: POST /api/payments/v1/payment-request/details with {data, source}.
func (c *client) GetPaymentDetails(ctx context.Context, paymentRequestID string, runOpts ...RunOption) (*PaymentDetails, error) {
	paymentRequestID = strings.TrimSpace(paymentRequestID)
	if paymentRequestID == "" {
		return nil, &ValidationError{Op: "payment-details", Msg: "paymentRequestId is required"}
	}

	payload := struct {
		Data   string `json:"data"`
		Source string `json:"source"`
	}{
		Data:   paymentRequestID,
		Source: c.cfg.source,
	}

	opts := collectRunOptions(runOpts)
	if opts.isDryRun() {
		opts.handleDryRun(c.endpoint(consts.PathPaymentDetails), payload)
		return nil, nil
	}

	var resp PaymentDetails
	err := c.doJSON(ctx, apiCall{
		op:               "payment-details",
		method:           http.MethodPost,
		path:             consts.PathPaymentDetails,
		payload:          payload,
		out:              &resp,
		paymentRequestID: paymentRequestID,
		tags:             opts.tags,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestBankAuthorisation exchanges payment details and the selected bank for an authorisation URL.
// Under the hood: POST /api/payments/v1/process-payment.
func (c *client) RequestBankAuthorisation(ctx context.Context, request *AuthorisationRequest, runOpts ...RunOption) (*PaymentAuthResponse, error) {
	if request == nil {
		return nil, &ValidationError{Op: "authorisation", Msg: "request is nil"}
	}
	if request.Details == nil {
		return nil, &ValidationError{Op: "authorisation", Msg: "payment details are required (set request.WithDetails(...))"}
	}
	if request.Bank == nil || strings.TrimSpace(request.Bank.ID) == "" {
		return nil, &ValidationError{Op: "authorisation", Msg: "selected bank is required (set request.WithBank(...))"}
	}

	payload := mapToAuthorisationPayload(request, c.cfg.device, c.cfg.source)

	opts := collectRunOptions(runOpts)
	if opts.isDryRun() {
		opts.handleDryRun(c.endpoint(consts.PathBankAuthorisation), payload)
		return nil, nil
	}

	var resp PaymentAuthResponse
	err := c.doJSON(ctx, apiCall{
		op:               "authorisation",
		method:           http.MethodPost,
		path:             consts.PathBankAuthorisation,
		payload:          payload,
		out:              &resp,
		paymentRequestID: request.GetPaymentRequestID(),
		tags:             opts.tags,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.AuthorisationURL) == "" {
		logger.Error("Authorisation: empty authorisationUrl in successful response")
		return nil, &UnexpectedResponseError{
			Op:       "authorisation",
			Method:   http.MethodPost,
			Endpoint: consts.PathBankAuthorisation,
			Msg:      "authorisationUrl is empty",
		}
	}
	return &resp, nil
}

// GetPaymentStatus returns a status snapshot.
// Under the hood: GET /api/payments/v1/payment-status/{id}?env=...&type=...
func (c *client) GetPaymentStatus(ctx context.Context, id string, params StatusParams, runOpts ...RunOption) (*TransactionDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Op: "status", Msg: "payment id is required"}
	}
	env := params.Environment.QueryValue()
	if env == "" {
		return nil, &ValidationError{Op: "status", Msg: "environment is required"}
	}

	query := url.Values{}
	query.Set("env", env)
	if t := strings.TrimSpace(params.Type); t != "" {
		query.Set("type", t)
	}
	path := strings.Replace(consts.PathPaymentStatus, consts.StatusIDPlaceholder, url.PathEscape(id), 1)

	opts := collectRunOptions(runOpts)
	if opts.isDryRun() {
		opts.handleDryRun(c.endpoint(path)+"?"+query.Encode(), nil)
		return nil, nil
	}

	var resp TransactionDetails
	err := c.doJSON(ctx, apiCall{
		op:               "status",
		method:           http.MethodGet,
		path:             path,
		query:            query,
		out:              &resp,
		paymentRequestID: id,
		tags:             opts.tags,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForFinalStatus polls until the snapshot status is final.
// On ctx expiry it returns the last snapshot together with a TransportError wrapping ctx.Err().
func (c *client) WaitForFinalStatus(ctx context.Context, id string, params StatusParams, interval time.Duration) (*TransactionDetails, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		return nil, &ValidationError{Op: "wait-status", Msg: "interval must be > 0"}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snapshot, err := c.GetPaymentStatus(ctx, id, params)
		if err != nil {
			return snapshot, err
		}
		if snapshot.IsFinal() {
			logger.Info("Wait status: id=%s final status=%s", id, snapshot.PaymentStatus())
			return snapshot, nil
		}
		logger.Debug("Wait status: id=%s status=%s, next poll in %s", id, snapshot.PaymentStatus(), interval)

		select {
		case <-ctx.Done():
			return snapshot, &TransportError{Op: "wait-status", Cause: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// NotifyCancellation issues GET callbackURL and ignores the response body.
func (c *client) NotifyCancellation(ctx context.Context, callbackURL string) error {
	callbackURL = strings.TrimSpace(callbackURL)
	parsed, err := url.Parse(callbackURL)
	if err != nil || !parsed.IsAbs() {
		return &ValidationError{Op: "notify-cancel", Msg: fmt.Sprintf("callback url must be absolute: %q", callbackURL), Cause: err}
	}
	return c.doJSON(ctx, apiCall{
		op:       "notify-cancel",
		method:   http.MethodGet,
		endpoint: callbackURL,
	})
}

// --- internal helpers ---

// apiCall describes one round trip through doJSON.
type apiCall struct {
	op     string
	method string
	// path is appended to the base URL; endpoint, when set, is used verbatim instead.
	path     string
	endpoint string
	query    url.Values
	payload  any
	out      any

	paymentRequestID string
	tags             map[string]string
}

func (c *client) endpoint(path string) string {
	// Base URL comes from client config (WithBaseURL). If it's empty, fall back to default.
	baseURL := ""
	if c != nil && c.cfg != nil {
		baseURL = strings.TrimRight(strings.TrimSpace(c.cfg.baseURL), "/")
	}
	if baseURL == "" {
		baseURL = strings.TrimRight(consts.DefaultBaseURL, "/")
	}
	return baseURL + path
}

func (call apiCall) recordTags() map[string]string {
	tags := make(map[string]string, len(call.tags)+2)
	for k, v := range call.tags {
		tags[k] = v
	}
	tags[tagOperation] = call.op
	if call.paymentRequestID != "" {
		tags[tagPaymentRequestID] = call.paymentRequestID
	}
	return tags
}

func (c *client) doJSON(ctx context.Context, call apiCall) error {
	endpoint := call.endpoint
	if endpoint == "" {
		endpoint = c.endpoint(call.path)
	}
	path := call.path
	if path == "" {
		path = endpoint
	}
	method := call.method

	logger.Info("HTTP request: op=%s method=%s path=%s", call.op, method, path)
	logger.Debug("HTTP request: endpoint=%s query=%s", endpoint, call.query.Encode())

	var payloadBytes []byte
	if call.payload != nil {
		b, err := json.Marshal(call.payload)
		if err != nil {
			logger.Error("HTTP request: payload marshal error for %T: %v", call.payload, err)
			return &EncodeError{Op: call.op, Msg: "marshal payload", Cause: err}
		}
		payloadBytes = b
		logger.Debug("HTTP request: payload=%s", trimBody(b, 4096))
	}

	// Apply timeout from client config. If timeout is 0, internalhttp.WithTimeout returns original ctx.
	timeout := time.Duration(0)
	if c != nil && c.cfg != nil && c.cfg.httpOptions != nil {
		timeout = c.cfg.httpOptions.Timeout
	}
	ctx, cancel := internalhttp.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := internalhttp.NewRequestID()
	req, err := internalhttp.NewJSONRequest(ctx, method, endpoint, call.query, call.payload, requestID)
	if err != nil {
		logger.Error("HTTP request: cannot build request method=%s path=%s err=%v", method, path, err)
		return &EncodeError{Op: call.op, Msg: "build json request", Cause: err}
	}

	if c == nil || c.http == nil {
		logger.Error("HTTP request: http client is nil method=%s path=%s", method, path)
		return &UnexpectedResponseError{Op: call.op, Method: method, Endpoint: path, Msg: "http client is nil"}
	}

	tags := call.recordTags()
	c.recordRequest(ctx, requestID, req.URL.String(), payloadBytes, tags)

	resp, body, err := c.http.Do(req)
	if err != nil {
		logger.Error("HTTP request: transport error method=%s path=%s err=%v", method, path, err)
		c.recordError(ctx, requestID, err, tags)
		return &TransportError{Op: call.op, Method: method, URL: endpoint, Cause: err}
	}
	if resp == nil {
		logger.Error("HTTP request: nil response method=%s path=%s", method, path)
		return &UnexpectedResponseError{Op: call.op, Method: method, Endpoint: path, Msg: "response is nil"}
	}
	logger.Info("HTTP response: method=%s path=%s status=%d", method, path, resp.StatusCode)
	logger.Debug("HTTP response: method=%s path=%s body=%s", method, path, trimBody(body, 4096))

	tags[tagStatusCode] = strconv.Itoa(resp.StatusCode)
	c.recordResponse(ctx, requestID, body, tags)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errCode, desc, tracingID := parseAPIErrorBody(body)

		apiErr := &APIError{
			Kind:        kindFromStatus(resp.StatusCode),
			Method:      method,
			Endpoint:    path,
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			ErrCode:     errCode,
			Description: desc,
			TracingID:   tracingID,
			Body:        trimBody(body, 4096),
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
				apiErr.RetryAfter = &d
			}
		}

		if resp.StatusCode >= 500 {
			logger.Error(
				"HTTP response: non-2xx method=%s path=%s status=%d err_code=%s description=%s",
				method,
				path,
				resp.StatusCode,
				errCode,
				desc,
			)
		} else {
			logger.Warn(
				"HTTP response: non-2xx method=%s path=%s status=%d err_code=%s description=%s",
				method,
				path,
				resp.StatusCode,
				errCode,
				desc,
			)
		}
		if apiErr.RetryAfter != nil {
			logger.Warn("HTTP response: retry_after=%s for method=%s path=%s", apiErr.RetryAfter.String(), method, path)
		}

		return apiErr
	}

	if call.out == nil {
		logger.Debug("HTTP response: out target is nil, skipping decode")
		return nil
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		logger.Error("HTTP response: empty body method=%s path=%s status=%d", method, path, resp.StatusCode)
		return &UnexpectedResponseError{Op: call.op, Method: method, Endpoint: path, StatusCode: resp.StatusCode, Msg: "empty response body"}
	}
	if err := json.Unmarshal(body, call.out); err != nil {
		logger.Error("HTTP response: decode error method=%s path=%s err=%v", method, path, err)
		return &DecodeError{Op: call.op, Msg: "json unmarshal response", Body: trimBody(body, 4096), Cause: err}
	}
	logger.Debug("HTTP response: decoded into %T", call.out)

	return nil
}

func (c *client) recordRequest(ctx context.Context, requestID, endpoint string, payload []byte, tags map[string]string) {
	if c.cfg == nil || c.cfg.recorder == nil {
		return
	}
	if len(payload) == 0 {
		payload = []byte(endpoint)
	}
	if err := c.cfg.recorder.RecordRequest(ctx, nil, requestID, payload, tags); err != nil {
		logger.Warn("Recorder: cannot record request id=%s err=%v", requestID, err)
	}
}

func (c *client) recordResponse(ctx context.Context, requestID string, body []byte, tags map[string]string) {
	if c.cfg == nil || c.cfg.recorder == nil {
		return
	}
	if err := c.cfg.recorder.RecordResponse(ctx, nil, requestID, body, tags); err != nil {
		logger.Warn("Recorder: cannot record response id=%s err=%v", requestID, err)
	}
}

func (c *client) recordError(ctx context.Context, requestID string, cause error, tags map[string]string) {
	if c.cfg == nil || c.cfg.recorder == nil {
		return
	}
	if err := c.cfg.recorder.RecordError(ctx, nil, requestID, cause, tags); err != nil {
		logger.Warn("Recorder: cannot record error id=%s err=%v", requestID, err)
	}
}

type apiErrorBody struct {
	ErrorCode   any    `json:"errorCode"`
	Code        any    `json:"code"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	TracingID   string `json:"tracingId"`
}

func parseAPIErrorBody(body []byte) (errCode string, desc string, tracingID string) {
	if len(body) == 0 {
		return "", "", ""
	}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		errCode = firstNonEmptyString(anyToString(parsed.ErrorCode), anyToString(parsed.Code))
		desc = firstNonEmptyString(
			parsed.Message,
			parsed.Error,
			parsed.Description,
			parsed.Detail,
		)
		if desc == "" {
			desc = strings.TrimSpace(string(body))
		}
		return errCode, desc, strings.TrimSpace(parsed.TracingID)
	}

	// Last resort: raw body as string (could be text/html or plain text)
	return "", strings.TrimSpace(string(body)), ""
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	// Retry-After can be either "delta-seconds" or an HTTP date.
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func anyToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		// JSON numbers are float64 by default.
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return fmt.Sprintf("%v", x)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
