package consts

const (
	DefaultBaseURL = "https://api.atoa.me"

	PathBankInstitutions  = "/api/payments/v1/institutions/consumer"
	PathPaymentDetails    = "/api/payments/v1/payment-request/details"
	PathBankAuthorisation = "/api/payments/v1/process-payment"
	// PathPaymentStatus carries an {id} placeholder for the idempotency or request id.
	PathPaymentStatus = "/api/payments/v1/payment-status/{id}"

	StatusIDPlaceholder = "{id}"

	// SourceExternalMerchant marks requests issued from a merchant page.
	SourceExternalMerchant = "EXTERNAL_MERCHANT"
)
