package follow

import (
	"fmt"
	"sync"

	"github.com/skylarkuav/go-follow/internal/log"
)

// SafetyLimits are the per-profile command bounds. Velocity limits are in
// m/s, rate limits in rad/s, thrust as a fraction of full scale, altitude
// in meters. Immutable for the lifetime of an active guidance law.
type SafetyLimits struct {
	MaxVelocityForward  float64
	MaxVelocityLateral  float64
	MaxVelocityVertical float64
	MaxYawRate          float64
	MaxRollRate         float64
	MaxPitchRate        float64
	MaxThrust           float64
	MinAltitude         float64
	MaxAltitude         float64
}

// Validate rejects missing or non-positive limits. This is fatal at setup
// time: a zero limit would silently freeze an axis.
func (l SafetyLimits) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"max_velocity_forward", l.MaxVelocityForward},
		{"max_velocity_lateral", l.MaxVelocityLateral},
		{"max_velocity_vertical", l.MaxVelocityVertical},
		{"max_yaw_rate", l.MaxYawRate},
		{"max_roll_rate", l.MaxRollRate},
		{"max_pitch_rate", l.MaxPitchRate},
		{"max_thrust", l.MaxThrust},
		{"max_altitude", l.MaxAltitude},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidLimit, c.name, c.value)
		}
	}
	if l.MinAltitude < 0 || l.MinAltitude >= l.MaxAltitude {
		return fmt.Errorf("%w: min_altitude=%v max_altitude=%v", ErrInvalidLimit, l.MinAltitude, l.MaxAltitude)
	}
	return nil
}

// ViolationCategory labels a safety counter.
type ViolationCategory string

// Violation categories tracked by the safety manager.
const (
	ViolationForward   ViolationCategory = "velocity_forward"
	ViolationLateral   ViolationCategory = "velocity_lateral"
	ViolationVertical  ViolationCategory = "velocity_vertical"
	ViolationYawRate   ViolationCategory = "yaw_rate"
	ViolationRollRate  ViolationCategory = "roll_rate"
	ViolationPitchRate ViolationCategory = "pitch_rate"
	ViolationThrust    ViolationCategory = "thrust"
	ViolationAltitude  ViolationCategory = "altitude"
)

// SafetyManager clamps raw guidance commands against configured limits.
// Clamping is a pure function of the input and the limits; the only state
// is the violation counters and the log gate. Clamping never fails: it
// always returns a safe value.
type SafetyManager struct {
	limits SafetyLimits
	gate   *log.Gate

	mu       sync.Mutex
	counters map[ViolationCategory]uint64
}

// NewSafetyManager validates the limits and builds a manager. The gate
// bounds warning output at control-loop frequency; nil disables warnings.
func NewSafetyManager(limits SafetyLimits, gate *log.Gate) (*SafetyManager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &SafetyManager{
		limits:   limits,
		gate:     gate,
		counters: make(map[ViolationCategory]uint64),
	}, nil
}

// Limits returns the configured bounds.
func (s *SafetyManager) Limits() SafetyLimits {
	return s.limits
}

// ClampVelocity clips body-frame velocity components to their axis limits.
func (s *SafetyManager) ClampVelocity(fwd, right, down float64) (f, r, d float64, clamped bool) {
	var c1, c2, c3 bool
	f, c1 = s.clampAxis(fwd, s.limits.MaxVelocityForward, ViolationForward)
	r, c2 = s.clampAxis(right, s.limits.MaxVelocityLateral, ViolationLateral)
	d, c3 = s.clampAxis(down, s.limits.MaxVelocityVertical, ViolationVertical)
	return f, r, d, c1 || c2 || c3
}

// ClampYawRate clips a yaw rate to the configured bound.
func (s *SafetyManager) ClampYawRate(rate float64) (float64, bool) {
	return s.clampAxis(rate, s.limits.MaxYawRate, ViolationYawRate)
}

// ClampAttitudeRate clips angular rates to their bounds and thrust to
// [0, max_thrust].
func (s *SafetyManager) ClampAttitudeRate(roll, pitch, yaw, thrust float64) (rr, pr, yr, th float64, clamped bool) {
	var c1, c2, c3, c4 bool
	rr, c1 = s.clampAxis(roll, s.limits.MaxRollRate, ViolationRollRate)
	pr, c2 = s.clampAxis(pitch, s.limits.MaxPitchRate, ViolationPitchRate)
	yr, c3 = s.clampAxis(yaw, s.limits.MaxYawRate, ViolationYawRate)

	th = thrust
	if th < 0 || th > s.limits.MaxThrust {
		th = clamp(th, 0, s.limits.MaxThrust)
		c4 = true
		s.recordViolation(ViolationThrust, thrust, s.limits.MaxThrust)
	}
	return rr, pr, yr, th, c1 || c2 || c3 || c4
}

// CheckAltitude reports nil when the altitude is inside the envelope, or
// an AltitudeViolation describing which bound was crossed.
func (s *SafetyManager) CheckAltitude(altitude float64) *AltitudeViolation {
	var v *AltitudeViolation
	switch {
	case altitude < s.limits.MinAltitude:
		v = &AltitudeViolation{Altitude: altitude, Limit: s.limits.MinAltitude, TooLow: true}
	case altitude > s.limits.MaxAltitude:
		v = &AltitudeViolation{Altitude: altitude, Limit: s.limits.MaxAltitude}
	default:
		return nil
	}
	s.recordViolation(ViolationAltitude, altitude, s.limits.MaxAltitude)
	return v
}

// ClampCommand applies the appropriate clamps for the command's control
// type and returns the finalized command with the Clamped flag set when
// any field was limited.
func (s *SafetyManager) ClampCommand(cmd ControlCommand) ControlCommand {
	switch {
	case cmd.Offboard != nil:
		p := *cmd.Offboard
		var cv, cy bool
		p.Forward, p.Right, p.Down, cv = s.ClampVelocity(p.Forward, p.Right, p.Down)
		p.YawRate, cy = s.ClampYawRate(p.YawRate)
		cmd.Offboard = &p
		cmd.Clamped = cv || cy
	case cmd.VelocityBody != nil:
		p := *cmd.VelocityBody
		var cv, cy bool
		p.VelX, p.VelY, p.VelZ, cv = s.ClampVelocity(p.VelX, p.VelY, p.VelZ)
		p.YawRate, cy = s.ClampYawRate(p.YawRate)
		cmd.VelocityBody = &p
		cmd.Clamped = cv || cy
	case cmd.AttitudeRate != nil:
		p := *cmd.AttitudeRate
		var c bool
		p.RollSpeed, p.PitchSpeed, p.YawSpeed, p.Thrust, c = s.ClampAttitudeRate(
			p.RollSpeed, p.PitchSpeed, p.YawSpeed, p.Thrust)
		cmd.AttitudeRate = &p
		cmd.Clamped = c
	}
	return cmd
}

// Counters returns a copy of the per-category violation counters.
func (s *SafetyManager) Counters() map[ViolationCategory]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[ViolationCategory]uint64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

func (s *SafetyManager) clampAxis(value, limit float64, category ViolationCategory) (float64, bool) {
	if value >= -limit && value <= limit {
		return value, false
	}
	s.recordViolation(category, value, limit)
	return clamp(value, -limit, limit), true
}

// recordViolation increments the category counter every violating cycle;
// only the log output is rate-limited.
func (s *SafetyManager) recordViolation(category ViolationCategory, value, limit float64) {
	s.mu.Lock()
	s.counters[category]++
	count := s.counters[category]
	s.mu.Unlock()

	if s.gate != nil {
		s.gate.Warn("safety limit exceeded",
			"category", string(category),
			"value", value,
			"limit", limit,
			"count", count,
		)
	}
}
