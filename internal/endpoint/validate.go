package endpoint

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"proxy-checker/internal/domain"
)

var validate = validator.New()

var tagMessages = map[string]string{
	"proxyType": "must be socks5 or http",
	"ipChecker": "must be ip2location or geoip",
	"required":  "is required",
}

func init() {
	// Report fields by their JSON names, matching what callers submit.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("proxyType", validateProxyType); err != nil {
		panic(fmt.Sprintf("failed to register proxy type validator: %v", err))
	}
	if err := validate.RegisterValidation("ipChecker", validateIPChecker); err != nil {
		panic(fmt.Sprintf("failed to register ip checker validator: %v", err))
	}
}

func validateProxyType(fl validator.FieldLevel) bool {
	return domain.ProxyType(fl.Field().String()).Valid()
}

func validateIPChecker(fl validator.FieldLevel) bool {
	return domain.IPChecker(fl.Field().String()).Valid()
}

// ValidateRequest checks everything a probe needs before any network I/O.
func ValidateRequest(req domain.ProbeRequest) (*Endpoint, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	ep, err := Parse(req.Endpoint)
	if err != nil {
		return nil, domain.NewValidationError("proxy", "cannot parse endpoint", err)
	}
	return ep, nil
}

func ValidateRecord(rec domain.ProxyRecord) error {
	if err := validateStruct(rec); err != nil {
		return err
	}
	if _, err := Parse(rec.Endpoint); err != nil {
		return domain.NewValidationError("proxy", "cannot parse endpoint", err)
	}
	return nil
}

// ValidateFields rejects partial updates that would clear or corrupt a
// required field.
func ValidateFields(fields domain.RecordFields) error {
	if err := validateStruct(fields); err != nil {
		return err
	}
	if fields.Endpoint != nil {
		if strings.TrimSpace(*fields.Endpoint) == "" {
			return domain.NewValidationError("proxy", "is required", nil)
		}
		if _, err := Parse(*fields.Endpoint); err != nil {
			return domain.NewValidationError("proxy", "cannot parse endpoint", err)
		}
	}
	return nil
}

// validateStruct runs the struct tags and reports the first failing field as
// a *domain.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return domain.NewValidationError("record", "validation failed", err)
	}

	fe := validationErrors[0]
	message, ok := tagMessages[fe.Tag()]
	if !ok {
		message = fmt.Sprintf("failed validation: %s", fe.Tag())
	}
	return domain.NewValidationError(fe.Field(), message, nil)
}
