package websdk

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	go_atoapay "github.com/stremovskyy/go-atoapay"
)

const environmentTag = "atoa_environment"

// Configuration holds per-SDK session parameters. New copies it, so later
// mutations by the caller have no effect on a constructed SDK.
type Configuration struct {
	Environment      go_atoapay.Environment `json:"environment" validate:"required,atoa_environment"`
	PaymentRequestID string                 `json:"paymentRequestId" validate:"required"`

	// PaymentURL and QRCodeURL are handed to the dialog as-is.
	PaymentURL string `json:"paymentUrl" validate:"omitempty,url"`
	QRCodeURL  string `json:"qrCodeUrl" validate:"omitempty,url"`

	// CancellationCallbackURL is pinged with GET when the user cancels.
	CancellationCallbackURL string `json:"cancellationCallbackUrl" validate:"omitempty,url"`

	OnError               Handler `json:"-"`
	OnSuccess             Handler `json:"-"`
	OnClose               Handler `json:"-"`
	OnUserCancel          Handler `json:"-"`
	OnPaymentStatusChange Handler `json:"-"`
	OnInit                Handler `json:"-"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation(environmentTag, func(fl validator.FieldLevel) bool {
			return go_atoapay.Environment(fl.Field().String()).IsValid()
		})
		validate = v
	})
	return validate
}

func allowedEnvironments() string {
	envs := go_atoapay.Environments()
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, string(e))
	}
	return strings.Join(names, ", ")
}

// normalized returns a trimmed copy of c.
func (c *Configuration) normalized() *Configuration {
	out := *c
	out.Environment = go_atoapay.Environment(strings.TrimSpace(string(c.Environment)))
	out.PaymentRequestID = strings.TrimSpace(c.PaymentRequestID)
	out.PaymentURL = strings.TrimSpace(c.PaymentURL)
	out.QRCodeURL = strings.TrimSpace(c.QRCodeURL)
	out.CancellationCallbackURL = strings.TrimSpace(c.CancellationCallbackURL)
	return &out
}

// Validate reports the first invalid field as a *ConfigurationError.
func (c *Configuration) Validate() error {
	if c == nil {
		return &ConfigurationError{Msg: "configuration must not be nil"}
	}

	err := configValidator().Struct(c.normalized())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return configurationErrorFor(fieldErrs[0], err)
	}

	return &ConfigurationError{Msg: err.Error(), Cause: err}
}

func configurationErrorFor(fe validator.FieldError, cause error) *ConfigurationError {
	ce := &ConfigurationError{Field: fe.Field(), Cause: cause}

	switch fe.Tag() {
	case "required":
		if fe.Field() == "environment" {
			ce.Msg = "is required, must be one of: " + allowedEnvironments()
		} else {
			ce.Msg = "is required"
		}
	case environmentTag:
		ce.Msg = fmt.Sprintf("invalid value %q, must be one of: %s", fe.Value(), allowedEnvironments())
	case "url":
		ce.Msg = fmt.Sprintf("invalid URL %q", fe.Value())
	default:
		ce.Msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}

	return ce
}
