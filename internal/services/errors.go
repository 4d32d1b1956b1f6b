package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnection    = errors.New("connection error")
	ErrAuth          = errors.New("authentication error")
	ErrProtocol      = errors.New("protocol error")
	ErrTimeout       = errors.New("timeout")
	ErrRemote        = errors.New("remote error")
	ErrScanTimeout   = errors.New("scan timeout")
	ErrNFOTimeout    = errors.New("nfo timeout")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProtocol
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsWorkflowFatal reports whether err must abort the remaining phases of the
// current event. Every per-host failure only makes that host unavailable for
// the attempt; a missing NFO file is the lone exception.
func IsWorkflowFatal(err error) bool {
	return errors.Is(err, ErrNFOTimeout)
}

// IsHostUnavailable reports whether err describes a host that could not serve
// the request (as opposed to a local validation problem).
func IsHostUnavailable(err error) bool {
	switch {
	case errors.Is(err, ErrConnection),
		errors.Is(err, ErrAuth),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRemote),
		errors.Is(err, ErrScanTimeout):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
