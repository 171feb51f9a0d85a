package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
)

func Init() {
	validate = validator.New()

	sanitizer = bluemonday.StrictPolicy()

	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("currency_code", validateCurrencyCode)
	v.RegisterValidation("invoice_id", validateInvoiceID)
}

func Validate(s interface{}) error {
	return validate.Struct(s)
}

// SanitizeString strips all markup from externally supplied text before it is
// logged or stored as an order note.
func SanitizeString(s string) string {
	if sanitizer == nil {
		return bluemonday.StrictPolicy().Sanitize(s)
	}
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

func ValidateEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// validateCurrencyCode accepts ISO 4217 style upper-case three letter codes.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != 3 {
		return false
	}
	for _, r := range value {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// validateInvoiceID accepts the numeric invoice identifiers this backend mints
// (invoice id equals order id).
func validateInvoiceID(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
