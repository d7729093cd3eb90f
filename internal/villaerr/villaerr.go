// Package villaerr defines the error taxonomy shared across villabot's
// planners, the pipeline and the orchestrator.
package villaerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable/special conditions the orchestrator
// and pipeline must distinguish between.
var (
	// ErrSessionExpired means auth credentials are no longer valid;
	// recoverable via re-login.
	ErrSessionExpired = errors.New("session expired")

	// ErrCaptchaRequired means a challenge was presented; recoverable
	// only with human intervention.
	ErrCaptchaRequired = errors.New("captcha required")

	// ErrProtectionDetected means an anti-automation signal fired;
	// recoverable only via a manual-resolve action.
	ErrProtectionDetected = errors.New("bot protection detected")

	// ErrQueueFull means a submission target a filled in-flight queue;
	// recovered locally by the caller.
	ErrQueueFull = errors.New("queue full")

	// ErrExtraction means a page did not contain the expected fields;
	// recovered by retrying next cycle.
	ErrExtraction = errors.New("extraction failed")

	// ErrTransportTransient means a driver/DOM/network glitch occurred;
	// recovered by waiting and retrying.
	ErrTransportTransient = errors.New("transient transport error")
)

// ProtectionDetectedError carries the detection pattern name alongside
// ErrProtectionDetected so callers can both errors.Is against the
// sentinel and recover the pattern via errors.As.
type ProtectionDetectedError struct {
	Pattern string
}

func (e *ProtectionDetectedError) Error() string {
	return fmt.Sprintf("bot protection detected: pattern=%s", e.Pattern)
}

func (e *ProtectionDetectedError) Is(target error) bool {
	return target == ErrProtectionDetected
}

// InsufficientResourcesError is never raised -- planners return it as a
// value (ResourceWait seconds), never propagate it as an error. It is
// defined here only so structured logging can reference a stable name.
type InsufficientResourcesError struct {
	WaitSeconds float64
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("insufficient resources, wait %.0fs", e.WaitSeconds)
}
