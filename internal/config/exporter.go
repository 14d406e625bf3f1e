package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ExporterTypeCSV     = "csv"
	ExporterTypeJSON    = "json"
	ExporterTypeWebhook = "webhook"
)

// ExporterConfig describes one export sink. File sinks need a path, the
// webhook sink needs a url.
type ExporterConfig struct {
	Type string `json:"type" validate:"required,exporterType"`
	Path string `json:"path,omitempty" validate:"required_unless=Type webhook"`
	URL  string `json:"url,omitempty" validate:"required_if=Type webhook"`
}

func init() {
	if err := validate.RegisterValidation("exporterType", validateExporterType); err != nil {
		panic(fmt.Sprintf("failed to register exporter type validator: %v", err))
	}
}

func validateExporterType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ExporterTypeCSV, ExporterTypeJSON, ExporterTypeWebhook:
		return true
	default:
		return false
	}
}
