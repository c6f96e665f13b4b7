package services

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var allowedURLSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "ftps": true}

// blockRequestCandidate is the fully merged record checked before any write.
type blockRequestCandidate struct {
	Description string `field:"description" validate:"required"`
	Email       string `field:"email" validate:"required,max=254,email"`
	IP          string `field:"ip" validate:"required,ip"`
	Domain      string `field:"website.domain" validate:"required,max=200,weburl"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("weburl", isWebURL); err != nil {
		panic(fmt.Sprintf("register weburl validation: %v", err))
	}
	return v
}

// isWebURL accepts absolute http(s)/ftp(s) URLs with a host, matching what
// browsers and blocklists can act on.
func isWebURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	return host == "localhost" || strings.Contains(host, ".") || strings.Contains(host, ":")
}

// validateCandidate runs the field rules and converts failures into a
// ValidationError keyed by wire field names.
func validateCandidate(c blockRequestCandidate) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate block request: %w", err)
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.add(fe.Field(), messageFor(fe))
	}
	return verr
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "ip":
		return "Enter a valid IPv4 or IPv6 address."
	case "weburl":
		return "Enter a valid URL."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}
