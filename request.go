package go_atoapay

import "strings"

// AuthorisationRequest carries everything needed to exchange a payment request
// for a bank authorisation URL.
//
// This request is used by:
//   - RequestBankAuthorisation (process-payment)
type AuthorisationRequest struct {
	// PaymentRequestID overrides Details.PaymentRequestID when set.
	PaymentRequestID *string
	Details          *PaymentDetails
	Bank             *BankInstitution
	// Device overrides the client-level DeviceInfo for this request.
	Device DeviceInfo
}

func NewAuthorisationRequest(details *PaymentDetails, bank *BankInstitution) *AuthorisationRequest {
	return &AuthorisationRequest{Details: details, Bank: bank}
}

func (r *AuthorisationRequest) WithPaymentRequestID(id string) *AuthorisationRequest {
	id = strings.TrimSpace(id)
	if id == "" {
		return r
	}
	r.PaymentRequestID = &id
	return r
}

func (r *AuthorisationRequest) WithDetails(details *PaymentDetails) *AuthorisationRequest {
	r.Details = details
	return r
}

func (r *AuthorisationRequest) WithBank(bank *BankInstitution) *AuthorisationRequest {
	r.Bank = bank
	return r
}

func (r *AuthorisationRequest) WithDevice(device DeviceInfo) *AuthorisationRequest {
	r.Device = device
	return r
}

// GetPaymentRequestID resolves the id: explicit value first, then the details.
func (r *AuthorisationRequest) GetPaymentRequestID() string {
	if r == nil {
		return ""
	}
	if r.PaymentRequestID != nil && strings.TrimSpace(*r.PaymentRequestID) != "" {
		return strings.TrimSpace(*r.PaymentRequestID)
	}
	if r.Details != nil {
		return strings.TrimSpace(r.Details.PaymentRequestID)
	}
	return ""
}

// authorisationPayload is the body of POST process-payment.
// Optional fields are pointers without omitempty so that absent values go out as null.
type authorisationPayload struct {
	PaymentRequestID *string `json:"paymentRequestId"`
	MerchantID       string  `json:"merchantId"`
	MerchantName     string  `json:"merchantName"`
	BusinessName     *string `json:"businessName"`
	StoreID          *string `json:"storeId"`
	StoreName        *string `json:"storeName"`

	ConsumerID    *string `json:"consumerId"`
	ConsumerName  *string `json:"consumerName"`
	ConsumerEmail *string `json:"consumerEmail"`
	ConsumerPhone *string `json:"consumerPhone"`

	Amount        Amount   `json:"amount"`
	Currency      string   `json:"currency"`
	TaxAmount     *float64 `json:"taxAmount"`
	ServiceAmount *float64 `json:"serviceAmount"`
	TipAmount     *float64 `json:"tipAmount"`
	OrderID       *string  `json:"orderId"`
	Notes         *string  `json:"notes"`
	RedirectURL   *string  `json:"redirectUrl"`
	PaymentType   *string  `json:"paymentType"`

	InstitutionID string `json:"institutionId"`
	BankName      string `json:"bankName"`

	DeviceOrigin string `json:"deviceOrigin"`
	Platform     string `json:"platform"`
	Browser      string `json:"browser"`
	Source       string `json:"source"`
}

func mapToAuthorisationPayload(r *AuthorisationRequest, device DeviceInfo, source string) authorisationPayload {
	if r.Device != nil {
		device = r.Device
	}
	if device == nil {
		device = DefaultDevice
	}

	d := r.Details
	payload := authorisationPayload{
		MerchantID:    strings.TrimSpace(d.MerchantID),
		MerchantName:  strings.TrimSpace(d.MerchantName),
		BusinessName:  d.BusinessName,
		StoreID:       d.StoreID,
		StoreName:     d.StoreName,
		ConsumerID:    d.ConsumerID,
		ConsumerName:  d.ConsumerName,
		ConsumerEmail: d.ConsumerEmail,
		ConsumerPhone: d.ConsumerPhone,
		Amount:        d.Amount,
		Currency:      d.Amount.Currency,
		TaxAmount:     d.TaxAmount,
		ServiceAmount: d.ServiceAmount,
		TipAmount:     d.TipAmount,
		OrderID:       d.OrderID,
		Notes:         d.Notes,
		RedirectURL:   d.RedirectURL,
		PaymentType:   d.PaymentType,
		InstitutionID: strings.TrimSpace(r.Bank.ID),
		BankName:      strings.TrimSpace(r.Bank.Name),
		DeviceOrigin:  deviceOrigin(device),
		Platform:      device.Platform(),
		Browser:       device.Browser(),
		Source:        source,
	}
	if id := r.GetPaymentRequestID(); id != "" {
		payload.PaymentRequestID = &id
	}
	return payload
}
