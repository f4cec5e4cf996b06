package follow

import (
	"errors"
	"math"
)

// VelocityChase is the multicopter chase law. It implements a closing-rate
// law in the spirit of proportional navigation: the commanded lateral rate
// is proportional to the line-of-sight rotation rate rather than the raw
// offset, producing pursuit curves that intercept instead of oscillating.
// A small bearing bias term keeps the nose from drifting off a
// slow-moving target between LOS-rate samples.
type VelocityChase struct {
	baseFollower

	navGain     float64
	approach    float64
	yawGain     float64
	forwardGain float64
	bearingBias float64

	prevX    float64
	prevTime float64
	hasPrev  bool
}

func newVelocityChase(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}
	return &VelocityChase{
		baseFollower: base,
		navGain:     params.value("nav_gain", 3.0),
		approach:    params.value("approach_speed", 5.0),
		yawGain:     params.value("yaw_gain", 0.5),
		forwardGain: params.value("forward_gain", 1.0),
		bearingBias: params.value("bearing_bias", 0.2),
	}, nil
}

// CalculateControlCommands computes a raw offboard velocity command from
// the LOS rate of the target bearing.
func (v *VelocityChase) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	x, y := out.Offset()
	if math.IsNaN(x) || math.IsNaN(y) {
		return ControlCommand{}, errors.New("tracker offset is not finite")
	}

	losRate := 0.0
	if v.hasPrev {
		dt := out.Timestamp() - v.prevTime
		if dt > 0 {
			losRate = (x - v.prevX) / dt
		}
	}
	v.prevX = x
	v.prevTime = out.Timestamp()
	v.hasPrev = true

	// On-target (zero offset, zero LOS rate) every component is zero: no
	// pursuit correction is needed. A target high in the frame is ahead of
	// the vehicle, so -y drives the closing speed.
	right := v.approach * (v.navGain*losRate + v.bearingBias*x)
	fwd := v.approach * v.forwardGain * -y
	down := 0.0
	yawRate := v.yawGain * x

	return offboardCommand(fwd, right, down, yawRate), nil
}
