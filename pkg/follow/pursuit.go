package follow

import "math"

// VelocityPID drives the normalized offset error to zero with independent
// PID gains per axis. Integral contributions are clamped to the configured
// velocity limits so windup can never exceed them.
type VelocityPID struct {
	baseFollower

	lateral  *axisPID
	vertical *axisPID
	approach float64
	yawGain  float64

	prevTime float64
	hasPrev  bool
}

func newVelocityPID(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	limits := safety.Limits()
	kp := params.value("kp", 4.0)
	ki := params.value("ki", 0.3)
	kd := params.value("kd", 0.8)

	return &VelocityPID{
		baseFollower: base,
		lateral:      newAxisPID(kp, ki, kd, limits.MaxVelocityLateral),
		vertical:     newAxisPID(kp, ki, kd, limits.MaxVelocityVertical),
		approach:     params.value("approach_speed", 3.0),
		yawGain:      params.value("yaw_gain", 0.5),
	}, nil
}

// CalculateControlCommands maps offset error through per-axis PIDs into an
// offboard velocity command.
func (v *VelocityPID) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	x, y := out.Offset()
	dt := v.cycleDT(out.Timestamp())

	right := v.lateral.update(x, dt)
	down := v.vertical.update(y, dt)
	fwd := v.approach * clamp(1-math.Abs(x), 0, 1)
	yawRate := v.yawGain * x

	return offboardCommand(fwd, right, down, yawRate), nil
}

func (v *VelocityPID) cycleDT(timestamp float64) float64 {
	dt := 0.0
	if v.hasPrev {
		dt = timestamp - v.prevTime
		if dt < 0 {
			dt = 0
		}
	}
	v.prevTime = timestamp
	v.hasPrev = true
	return dt
}
