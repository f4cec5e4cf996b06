package follow

import "math"

// GimbalPID is the gimbal-pointed PID pursuit law: the gimbal keeps the
// target centered and reports its angular error, which is driven to zero
// with per-axis PIDs producing body-frame velocity.
type GimbalPID struct {
	baseFollower

	lateral  *axisPID
	vertical *axisPID
	approach float64
	yawGain  float64
	prevTime float64
	hasPrev  bool
}

func newGimbalPID(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	limits := safety.Limits()
	kp := params.value("kp", 3.5)
	ki := params.value("ki", 0.2)
	kd := params.value("kd", 0.7)
	return &GimbalPID{
		baseFollower: base,
		lateral:      newAxisPID(kp, ki, kd, limits.MaxVelocityLateral),
		vertical:     newAxisPID(kp, ki, kd, limits.MaxVelocityVertical),
		approach:     params.value("approach_speed", 4.0),
		yawGain:      params.value("yaw_gain", 0.6),
	}, nil
}

// CalculateControlCommands nulls the gimbal angular error through PIDs.
func (g *GimbalPID) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	x, y := out.Offset()
	dt := 0.0
	if g.hasPrev {
		if d := out.Timestamp() - g.prevTime; d > 0 {
			dt = d
		}
	}
	g.prevTime = out.Timestamp()
	g.hasPrev = true

	vx := g.approach * clamp(1-math.Abs(x), 0, 1)
	vy := g.lateral.update(x, dt)
	vz := g.vertical.update(y, dt)
	yawRate := g.yawGain * x

	return velocityBodyCommand(vx, vy, vz, yawRate), nil
}

// GimbalVector is the velocity-vector pursuit law: the commanded velocity
// points along the gimbal line of sight at a configured pursuit speed, so
// the vehicle flies straight down the bearing the camera reports.
type GimbalVector struct {
	baseFollower

	pursuitSpeed float64
	yawTau       float64
}

func newGimbalVector(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}
	return &GimbalVector{
		baseFollower: base,
		pursuitSpeed: params.value("pursuit_speed", 5.0),
		yawTau:       params.value("yaw_tau", 2.0),
	}, nil
}

// CalculateControlCommands projects the pursuit speed onto the LOS unit
// vector. Non-angular variants are mapped onto LOS angles through the
// normalized offset scale.
func (g *GimbalVector) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	var yaw, pitch float64
	if a, ok := out.Angular(); ok {
		yaw, pitch = a.Yaw, a.Pitch
	} else {
		x, y := out.Offset()
		yaw = x * halfFOV
		pitch = -y * halfFOV
	}

	v := g.pursuitSpeed
	vx := v * math.Cos(pitch) * math.Cos(yaw)
	vy := v * math.Cos(pitch) * math.Sin(yaw)
	vz := -v * math.Sin(pitch)
	yawRate := yaw / g.yawTau

	return velocityBodyCommand(vx, vy, vz, yawRate), nil
}

// GimbalAngular serves gimbal-only rigs: the vehicle holds position and
// only yaw-rate commands are produced to keep the airframe pointed at the
// target while the gimbal does the fine tracking.
type GimbalAngular struct {
	baseFollower

	yawGain  float64
	deadband float64
}

func newGimbalAngular(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}
	return &GimbalAngular{
		baseFollower: base,
		yawGain:      params.value("yaw_gain", 1.2),
		deadband:     params.value("yaw_deadband", 0.02),
	}, nil
}

// CalculateControlCommands yields zero translation and a deadbanded yaw
// rate toward the target bearing.
func (g *GimbalAngular) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	var yawErr float64
	if a, ok := out.Angular(); ok {
		yawErr = a.Yaw
	} else {
		x, _ := out.Offset()
		yawErr = x * halfFOV
	}

	yawRate := 0.0
	if math.Abs(yawErr) > g.deadband {
		yawRate = g.yawGain * yawErr
	}

	return velocityBodyCommand(0, 0, 0, yawRate), nil
}
