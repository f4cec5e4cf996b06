package follow

import (
	"fmt"
	"math"
	"time"
)

// Parameters are the per-mode guidance parameters supplied from the
// session configuration, keyed by parameter name.
type Parameters map[string]float64

// value returns a parameter or its default when unset.
func (p Parameters) value(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// require fails with ErrMissingParameter for the first absent name.
func (p Parameters) require(names ...string) error {
	for _, name := range names {
		if _, ok := p[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
	}
	return nil
}

// Common base parameters shared by every guidance law.
const (
	// defaultMinConfidence is the tracker confidence below which an update
	// is treated the same as tracking_active=false.
	defaultMinConfidence = 0.25
	// defaultLossDecay is the per-cycle multiplier applied to the last
	// command while the target is lost.
	defaultLossDecay = 0.85
	// decayEpsilon snaps a decayed component to zero.
	decayEpsilon = 0.01
)

// Follower is the guidance-law contract. Implementations differ only in
// CalculateControlCommands; target-loss gating, safety clamping, and
// setpoint bookkeeping are shared through the embedded base and the
// FollowTarget cycle entry point.
type Follower interface {
	// Profile returns the static descriptor this law was created from.
	Profile() Profile

	// CalculateControlCommands computes the raw, unclamped command for one
	// usable tracker update.
	CalculateControlCommands(out TrackerOutput) (ControlCommand, error)

	// OnTargetLost decays the last command toward neutral and returns it.
	// It never extrapolates from stale position data.
	OnTargetLost() ControlCommand

	// LastCommand returns the most recent finalized command.
	LastCommand() (ControlCommand, bool)

	// Setpoints returns the law's owned schema container.
	Setpoints() *SetpointHandler

	usable(out TrackerOutput) bool
	safetyManager() *SafetyManager
	record(cmd ControlCommand)
}

// FollowTarget runs one guidance cycle: gates on target validity, computes
// the raw command, clamps it through the safety manager, mirrors it into
// the law's setpoints, and records it as the last command.
func FollowTarget(f Follower, out TrackerOutput) (ControlCommand, error) {
	if !f.usable(out) {
		return f.OnTargetLost(), nil
	}

	raw, err := f.CalculateControlCommands(out)
	if err != nil {
		return ControlCommand{}, &FollowError{Mode: f.Profile().Name, Err: err}
	}

	cmd := f.safetyManager().ClampCommand(raw)
	cmd.Timestamp = time.Now()
	f.record(cmd)
	return cmd, nil
}

// baseFollower carries the state and plumbing shared by every law.
type baseFollower struct {
	profile       Profile
	safety        *SafetyManager
	setpoints     *SetpointHandler
	minConfidence float64
	lossDecay     float64

	last    ControlCommand
	hasLast bool
}

func newBaseFollower(profile Profile, safety *SafetyManager, params Parameters) (baseFollower, error) {
	sp, err := NewSetpointHandler(profile.ControlType)
	if err != nil {
		return baseFollower{}, err
	}
	return baseFollower{
		profile:       profile,
		safety:        safety,
		setpoints:     sp,
		minConfidence: params.value("min_confidence", defaultMinConfidence),
		lossDecay:     clamp(params.value("loss_decay", defaultLossDecay), 0, 0.99),
	}, nil
}

// Profile returns the static descriptor this law was created from.
func (b *baseFollower) Profile() Profile { return b.profile }

// Setpoints returns the law's owned schema container.
func (b *baseFollower) Setpoints() *SetpointHandler { return b.setpoints }

// LastCommand returns the most recent finalized command.
func (b *baseFollower) LastCommand() (ControlCommand, bool) {
	return b.last, b.hasLast
}

// OnTargetLost decays the last command toward neutral. With no prior
// command it returns the control type's neutral command outright.
func (b *baseFollower) OnTargetLost() ControlCommand {
	if !b.hasLast {
		cmd := NeutralCommand(b.profile.ControlType)
		b.record(cmd)
		return cmd
	}

	cmd := b.last
	cmd.Timestamp = time.Now()
	cmd.Clamped = false
	switch {
	case cmd.Offboard != nil:
		p := *cmd.Offboard
		p.Forward = decayToward(p.Forward, 0, b.lossDecay)
		p.Right = decayToward(p.Right, 0, b.lossDecay)
		p.Down = decayToward(p.Down, 0, b.lossDecay)
		p.YawRate = decayToward(p.YawRate, 0, b.lossDecay)
		cmd.Offboard = &p
	case cmd.VelocityBody != nil:
		p := *cmd.VelocityBody
		p.VelX = decayToward(p.VelX, 0, b.lossDecay)
		p.VelY = decayToward(p.VelY, 0, b.lossDecay)
		p.VelZ = decayToward(p.VelZ, 0, b.lossDecay)
		p.YawRate = decayToward(p.YawRate, 0, b.lossDecay)
		cmd.VelocityBody = &p
	case cmd.AttitudeRate != nil:
		p := *cmd.AttitudeRate
		p.RollSpeed = decayToward(p.RollSpeed, 0, b.lossDecay)
		p.PitchSpeed = decayToward(p.PitchSpeed, 0, b.lossDecay)
		p.YawSpeed = decayToward(p.YawSpeed, 0, b.lossDecay)
		p.Thrust = decayToward(p.Thrust, neutralThrust, b.lossDecay)
		cmd.AttitudeRate = &p
	}
	b.record(cmd)
	return cmd
}

// usable reports whether a tracker update may drive control. Low
// confidence is treated identically to an inactive track.
func (b *baseFollower) usable(out TrackerOutput) bool {
	return out.TrackingActive() && out.Confidence() >= b.minConfidence
}

func (b *baseFollower) safetyManager() *SafetyManager { return b.safety }

func (b *baseFollower) record(cmd ControlCommand) {
	b.last = cmd
	b.hasLast = true
	b.setpoints.storeCommand(cmd)
}

// offboardCommand builds a raw velocity_body_offboard command.
func offboardCommand(fwd, right, down, yawRate float64) ControlCommand {
	return ControlCommand{
		Type:     ControlTypeVelocityBodyOffboard,
		Offboard: &OffboardVelocityCommand{Forward: fwd, Right: right, Down: down, YawRate: yawRate},
	}
}

// velocityBodyCommand builds a raw velocity_body command.
func velocityBodyCommand(vx, vy, vz, yawRate float64) ControlCommand {
	return ControlCommand{
		Type:         ControlTypeVelocityBody,
		VelocityBody: &VelocityBodyCommand{VelX: vx, VelY: vy, VelZ: vz, YawRate: yawRate},
	}
}

// attitudeRateCommand builds a raw attitude_rate command.
func attitudeRateCommand(roll, pitch, yaw, thrust float64) ControlCommand {
	return ControlCommand{
		Type:         ControlTypeAttitudeRate,
		AttitudeRate: &AttitudeRateCommand{RollSpeed: roll, PitchSpeed: pitch, YawSpeed: yaw, Thrust: thrust},
	}
}

// decayToward moves a value toward its neutral point by the decay factor,
// snapping once within epsilon.
func decayToward(value, neutral, decay float64) float64 {
	next := neutral + (value-neutral)*decay
	if math.Abs(next-neutral) < decayEpsilon {
		return neutral
	}
	return next
}
