package common

import (
	"fmt"
	"slices"

	"candidly/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats and the
// formats a renderer exists for. An empty configured list allows every
// renderable format.
func ValidateOutputFormat(format string, configured []string) error {
	supported := GetSupportedFormats(configured)
	if slices.Contains(supported, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, supported)
}

// GetSupportedFormats returns the configured formats that can be rendered,
// in configured order.
func GetSupportedFormats(configured []string) []string {
	renderable := formatters.NewFormatterRegistry().GetSupportedFormats()
	if len(configured) == 0 {
		return renderable
	}
	supported := make([]string, 0, len(configured))
	for _, f := range configured {
		if slices.Contains(renderable, f) {
			supported = append(supported, f)
		}
	}
	return supported
}
