package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrGenerationTimeout marks a generation call abandoned at its deadline.
var ErrGenerationTimeout = fmt.Errorf("generation timed out")

// GenerationError wraps any non-timeout failure from an LLM backend.
type GenerationError struct {
	ProviderID string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("provider %s: generation failed: %v", e.ProviderID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// classify maps a transport-level error onto the package taxonomy.
func classify(providerID string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("provider %s: %w", providerID, ErrGenerationTimeout)
	}
	return &GenerationError{ProviderID: providerID, Err: err}
}

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrGenerationTimeout)
}
