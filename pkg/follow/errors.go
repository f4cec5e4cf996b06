package follow

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrUnknownField is returned when a setpoint name is outside the
	// control type's schema.
	ErrUnknownField = errors.New("follow: unknown setpoint field")

	// ErrInvalidValue is returned when a setpoint value is NaN or infinite.
	ErrInvalidValue = errors.New("follow: setpoint value must be finite")

	// ErrUnknownMode is returned when a follower mode name or alias is not
	// registered with the factory.
	ErrUnknownMode = errors.New("follow: unknown follower mode")

	// ErrControlTypeMismatch is returned when a profile's control type is
	// not supported by the connected vehicle interface.
	ErrControlTypeMismatch = errors.New("follow: control type not supported by vehicle")

	// ErrMissingParameter is returned when a profile's required parameter
	// is absent from the supplied configuration.
	ErrMissingParameter = errors.New("follow: required parameter missing")

	// ErrInvalidLimit is returned when a safety limit is missing or
	// non-positive at setup time.
	ErrInvalidLimit = errors.New("follow: safety limit must be positive")

	// ErrDuplicateMode is returned when a profile name or alias is
	// registered twice.
	ErrDuplicateMode = errors.New("follow: follower mode already registered")

	// ErrNotActive is returned when a trigger needs an active session.
	ErrNotActive = errors.New("follow: no active follow session")
)

// FollowError wraps an internal guidance-law computation failure. The
// manager catches it per cycle and substitutes a neutral command; a single
// bad cycle never stops the loop.
type FollowError struct {
	Mode string
	Err  error
}

// Error implements the error interface.
func (e *FollowError) Error() string {
	return fmt.Sprintf("follow [%s]: %v", e.Mode, e.Err)
}

// Unwrap returns the underlying error.
func (e *FollowError) Unwrap() error {
	return e.Err
}

// AltitudeViolation reports an altitude outside the configured envelope.
type AltitudeViolation struct {
	Altitude float64
	Limit    float64
	TooLow   bool
}

// Error implements the error interface.
func (e *AltitudeViolation) Error() string {
	if e.TooLow {
		return fmt.Sprintf("follow: altitude %.1fm below minimum %.1fm", e.Altitude, e.Limit)
	}
	return fmt.Sprintf("follow: altitude %.1fm above maximum %.1fm", e.Altitude, e.Limit)
}
