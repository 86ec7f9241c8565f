package go_atoapay

import (
	"fmt"
	"net/url"
	"strings"
)

// Environment selects the deployment target the backend should use.
type Environment string

const (
	EnvironmentSandbox    Environment = "SANDBOX"
	EnvironmentProduction Environment = "PRODUCTION"
)

// Environments lists every recognized environment in a stable order.
func Environments() []Environment {
	return []Environment{EnvironmentSandbox, EnvironmentProduction}
}

// IsValid reports whether e is a recognized environment (exact match).
func (e Environment) IsValid() bool {
	for _, v := range Environments() {
		if e == v {
			return true
		}
	}
	return false
}

// QueryValue is the lower-cased form transmitted to the status endpoint.
func (e Environment) QueryValue() string {
	return strings.ToLower(strings.TrimSpace(string(e)))
}

// PaymentStatus is the backend payment state.
// We keep it as string to avoid over-restricting API evolution.
type PaymentStatus string

const (
	StatusPaymentNotInitiated PaymentStatus = "PAYMENT_NOT_INITIATED"
	StatusPending             PaymentStatus = "PENDING"
	StatusCompleted           PaymentStatus = "COMPLETED"
	StatusFailed              PaymentStatus = "FAILED"
	StatusCancelled           PaymentStatus = "CANCELLED"
	StatusExpired             PaymentStatus = "EXPIRED"
)

func (s PaymentStatus) normalized() PaymentStatus {
	return PaymentStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

func (s PaymentStatus) IsSuccess() bool { return s.normalized() == StatusCompleted }

func (s PaymentStatus) IsFailure() bool {
	switch s.normalized() {
	case StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

func (s PaymentStatus) IsFinal() bool { return s.IsSuccess() || s.IsFailure() }

func (s PaymentStatus) IsPending() bool {
	switch s.normalized() {
	case StatusPaymentNotInitiated, StatusPending:
		return true
	}
	return false
}

// IsCancelled matches both the backend constant and the dialog's lower-case close status.
func (s PaymentStatus) IsCancelled() bool {
	switch s.normalized() {
	case StatusCancelled, "CANCELED":
		return true
	}
	return false
}

// BankInstitution is a bank the consumer can pay from.
type BankInstitution struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	FullName      string   `json:"fullName,omitempty"`
	IconURL       string   `json:"iconUrl,omitempty"`
	Features      []string `json:"features,omitempty"`
	Countries     []string `json:"countries,omitempty"`
	Enabled       bool     `json:"enabled"`
	BusinessBank  bool     `json:"businessBank,omitempty"`
	OrderBy       int      `json:"orderBy,omitempty"`
	Environment   string   `json:"environment,omitempty"`
	DowntimeUntil *string  `json:"downtimeUntil,omitempty"`
}

// HasFeature reports whether the institution advertises feature (case-insensitive).
func (b BankInstitution) HasFeature(feature string) bool {
	for _, f := range b.Features {
		if strings.EqualFold(strings.TrimSpace(f), strings.TrimSpace(feature)) {
			return true
		}
	}
	return false
}

// Amount is a decimal amount in major units with its ISO 4217 currency.
type Amount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentDetails is what the backend knows about a payment request.
// It is treated as immutable input to RequestBankAuthorisation.
type PaymentDetails struct {
	PaymentRequestID string   `json:"paymentRequestId"`
	MerchantID       string   `json:"merchantId"`
	MerchantName     string   `json:"merchantName"`
	BusinessName     *string  `json:"businessName,omitempty"`
	StoreID          *string  `json:"storeId,omitempty"`
	StoreName        *string  `json:"storeName,omitempty"`
	ConsumerID       *string  `json:"consumerId,omitempty"`
	ConsumerName     *string  `json:"consumerName,omitempty"`
	ConsumerEmail    *string  `json:"consumerEmail,omitempty"`
	ConsumerPhone    *string  `json:"consumerPhone,omitempty"`
	OrderID          *string  `json:"orderId,omitempty"`
	Amount           Amount   `json:"amount"`
	TaxAmount        *float64 `json:"taxAmount,omitempty"`
	ServiceAmount    *float64 `json:"serviceAmount,omitempty"`
	TipAmount        *float64 `json:"tipAmount,omitempty"`
	RedirectURL      *string  `json:"redirectUrl,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	PaymentType      *string  `json:"paymentType,omitempty"`
	ExpiresIn        *int64   `json:"expiresIn,omitempty"`
	Status           *string  `json:"status,omitempty"`
}

// PaymentAuthResponse is the terminal artifact of the authorisation exchange.
type PaymentAuthResponse struct {
	AuthorisationURL                string   `json:"authorisationUrl"`
	PaymentIdempotencyID            string   `json:"paymentIdempotencyId"`
	UserUUID                        *string  `json:"userUuid,omitempty"`
	Status                          *string  `json:"status,omitempty"`
	FeatureScope                    []string `json:"featureScope,omitempty"`
	TracingID                       *string  `json:"tracingId,omitempty"`
	DeepLinkAuthorisationURL        *string  `json:"deepLinkAuthorisationUrl,omitempty"`
	DeepLinkAndroidAuthorisationURL *string  `json:"deepLinkAndroidAuthorisationUrl,omitempty"`
	DeepLinkAuthorisationURLIOS     *string  `json:"deepLinkAuthorisationUrlIOS,omitempty"`
	AppStoreLink                    *string  `json:"appStoreLink,omitempty"`
	AndroidPackageName              *string  `json:"androidPackageName,omitempty"`
	IOSPackageName                  *string  `json:"iOSPackageName,omitempty"`
}

// ParsedAuthorisationURL parses AuthorisationURL and requires it to be absolute.
func (r *PaymentAuthResponse) ParsedAuthorisationURL() (*url.URL, error) {
	if r == nil {
		return nil, fmt.Errorf("authorisation: response is nil")
	}
	raw := strings.TrimSpace(r.AuthorisationURL)
	if raw == "" {
		return nil, fmt.Errorf("authorisation: authorisationUrl is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("authorisation: cannot parse authorisationUrl %q: %w", raw, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("authorisation: authorisationUrl is not absolute: %q", raw)
	}
	return parsed, nil
}

// RedirectURLFor picks the deep link matching the device, falling back to AuthorisationURL.
func (r *PaymentAuthResponse) RedirectURLFor(device DeviceInfo) string {
	if r == nil {
		return ""
	}
	if device != nil {
		var link *string
		switch strings.ToLower(device.Platform()) {
		case PlatformAndroid:
			link = r.DeepLinkAndroidAuthorisationURL
		case PlatformIOS:
			link = r.DeepLinkAuthorisationURLIOS
		}
		if device.IsMobile() && (link == nil || strings.TrimSpace(*link) == "") {
			link = r.DeepLinkAuthorisationURL
		}
		if link != nil && strings.TrimSpace(*link) != "" {
			return strings.TrimSpace(*link)
		}
	}
	return strings.TrimSpace(r.AuthorisationURL)
}

// StatusDetails is the nested status block of a transaction.
type StatusDetails struct {
	Status        PaymentStatus `json:"status"`
	StatusCode    *string       `json:"statusCode,omitempty"`
	IsoStatus     *string       `json:"isoStatus,omitempty"`
	Description   *string       `json:"description,omitempty"`
	FailureReason *string       `json:"failureReason,omitempty"`
}

// TransactionDetails is a polled status snapshot.
type TransactionDetails struct {
	PaidAmount           string         `json:"paidAmount"`
	Currency             string         `json:"currency"`
	PaymentIdempotencyID *string        `json:"paymentIdempotencyId,omitempty"`
	ConsumerID           *string        `json:"consumerId,omitempty"`
	ConsumerName         *string        `json:"consumerName,omitempty"`
	InstitutionID        *string        `json:"institutionId,omitempty"`
	BankName             *string        `json:"bankName,omitempty"`
	BankAccountNo        *string        `json:"bankAccountNo,omitempty"`
	TaxAmount            *float64       `json:"taxAmount,omitempty"`
	ServiceAmount        *float64       `json:"serviceAmount,omitempty"`
	TipAmount            *float64       `json:"tipAmount,omitempty"`
	Status               *StatusDetails `json:"status,omitempty"`
}

// PaymentStatus returns the nested status or "" when absent.
func (t *TransactionDetails) PaymentStatus() PaymentStatus {
	if t == nil || t.Status == nil {
		return ""
	}
	return t.Status.Status
}

func (t *TransactionDetails) IsFinal() bool   { return t.PaymentStatus().IsFinal() }
func (t *TransactionDetails) IsSuccess() bool { return t.PaymentStatus().IsSuccess() }
func (t *TransactionDetails) IsFailure() bool { return t.PaymentStatus().IsFailure() }
func (t *TransactionDetails) IsPending() bool { return t.PaymentStatus().IsPending() }

// StatusParams qualifies a status lookup.
type StatusParams struct {
	Environment Environment
	// Type is forwarded only when non-empty.
	Type string
}
