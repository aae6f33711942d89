package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError carries every problem found in a descriptor set.
// Validation is collect-all rather than fail-fast so an operator can
// fix a whole config file in one pass.
type ConfigurationError struct {
	Issues []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid agent configuration (%d issues): %s",
		len(e.Issues), strings.Join(e.Issues, "; "))
}

// As wraps errors.As so callers of this package don't need both imports.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Bounds for execution settings.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

func validateAll(descs []Descriptor) []string {
	var issues []string
	seen := make(map[string]bool, len(descs))
	for i := range descs {
		d := &descs[i]
		if d.ID != "" && seen[d.ID] {
			issues = append(issues, fmt.Sprintf("agent[%d] %s: duplicate id", i, d.ID))
		}
		seen[d.ID] = true
		issues = append(issues, validateDescriptor(d, i)...)
	}
	return issues
}

func validateDescriptor(d *Descriptor, idx int) []string {
	name := d.ID
	if name == "" {
		name = fmt.Sprintf("agent[%d]", idx)
	}

	var issues []string
	if d.ID == "" {
		issues = append(issues, fmt.Sprintf("%s: id must not be empty", name))
	}
	if len(d.Keywords) == 0 {
		issues = append(issues, fmt.Sprintf("%s: keyword set must not be empty", name))
	}
	if d.Settings.TimeoutSeconds <= 0 {
		issues = append(issues, fmt.Sprintf("%s: timeout_seconds must be > 0 (got %d)", name, d.Settings.TimeoutSeconds))
	}
	if d.Settings.Temperature < minTemperature || d.Settings.Temperature > maxTemperature {
		issues = append(issues, fmt.Sprintf("%s: temperature must be within [%.0f, %.0f] (got %g)",
			name, minTemperature, maxTemperature, d.Settings.Temperature))
	}
	if d.Settings.MaxTokens <= 0 {
		issues = append(issues, fmt.Sprintf("%s: max_tokens must be > 0 (got %d)", name, d.Settings.MaxTokens))
	}
	return issues
}
