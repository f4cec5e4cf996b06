package follow

import (
	"errors"
	"math"
)

// PositionHold nulls the deviation between the target's frame position and
// a configured set-point instead of the frame center. Structurally a
// single-axis PID per axis with a nonzero reference.
type PositionHold struct {
	baseFollower

	lateral    *axisPID
	vertical   *axisPID
	setpointX  float64
	setpointY  float64
	yawGain    float64
	prevTime   float64
	hasPrev    bool
}

func newPositionHold(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	limits := safety.Limits()
	kp := params.value("kp", 3.0)
	ki := params.value("ki", 0.2)
	kd := params.value("kd", 0.6)

	return &PositionHold{
		baseFollower: base,
		lateral:      newAxisPID(kp, ki, kd, limits.MaxVelocityLateral),
		vertical:     newAxisPID(kp, ki, kd, limits.MaxVelocityVertical),
		setpointX:    clamp(params.value("setpoint_x", 0), -1, 1),
		setpointY:    clamp(params.value("setpoint_y", 0), -1, 1),
		yawGain:      params.value("yaw_gain", 0.3),
	}, nil
}

// CalculateControlCommands drives the target toward the configured frame
// set-point with no forward closure.
func (h *PositionHold) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	x, y := out.Offset()
	dt := 0.0
	if h.hasPrev {
		if d := out.Timestamp() - h.prevTime; d > 0 {
			dt = d
		}
	}
	h.prevTime = out.Timestamp()
	h.hasPrev = true

	errX := x - h.setpointX
	errY := y - h.setpointY
	right := h.lateral.update(errX, dt)
	down := h.vertical.update(errY, dt)
	yawRate := h.yawGain * errX

	return offboardCommand(0, right, down, yawRate), nil
}

// Standoff holds a configured slant-range distance to the target using the
// POSITION_3D range estimate, with lateral centering from the 2D offset.
type Standoff struct {
	baseFollower

	distance *axisPID
	lateral  *axisPID
	standoff float64
	yawGain  float64
	prevTime float64
	hasPrev  bool
}

func newStandoff(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	if err := params.require("standoff_distance"); err != nil {
		return nil, err
	}
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	limits := safety.Limits()
	return &Standoff{
		baseFollower: base,
		distance:     newAxisPID(params.value("distance_kp", 0.8), params.value("distance_ki", 0.1), params.value("distance_kd", 0.3), limits.MaxVelocityForward),
		lateral:      newAxisPID(params.value("kp", 3.0), 0, params.value("kd", 0.5), limits.MaxVelocityLateral),
		standoff:     params["standoff_distance"],
		yawGain:      params.value("yaw_gain", 0.4),
	}, nil
}

// CalculateControlCommands closes or opens range toward the stand-off
// distance. It requires the POSITION_3D variant.
func (s *Standoff) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	pos, ok := out.Position3D()
	if !ok {
		return ControlCommand{}, errors.New("standoff requires POSITION_3D tracker data")
	}
	if pos.Range <= 0 || math.IsNaN(pos.Range) {
		return ControlCommand{}, errors.New("degenerate range estimate")
	}

	dt := 0.0
	if s.hasPrev {
		if d := out.Timestamp() - s.prevTime; d > 0 {
			dt = d
		}
	}
	s.prevTime = out.Timestamp()
	s.hasPrev = true

	fwd := s.distance.update(pos.Range-s.standoff, dt)
	right := s.lateral.update(pos.X, dt)
	down := s.lateral.kp * pos.Y * 0.5
	yawRate := s.yawGain * pos.X

	return offboardCommand(fwd, right, down, yawRate), nil
}

// BBoxScale estimates closure from the apparent size of the target box:
// a box smaller than the reference area means the target is pulling away.
type BBoxScale struct {
	baseFollower

	targetArea float64
	areaGain   float64
	lateral    *axisPID
	vertical   *axisPID
	yawGain    float64
	prevTime   float64
	hasPrev    bool
}

func newBBoxScale(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	limits := safety.Limits()
	kp := params.value("kp", 3.0)
	kd := params.value("kd", 0.5)
	return &BBoxScale{
		baseFollower: base,
		targetArea:   clamp(params.value("target_bbox_area", 0.10), 0.005, 0.8),
		areaGain:     params.value("area_gain", 40.0),
		lateral:      newAxisPID(kp, 0, kd, limits.MaxVelocityLateral),
		vertical:     newAxisPID(kp, 0, kd, limits.MaxVelocityVertical),
		yawGain:      params.value("yaw_gain", 0.4),
	}, nil
}

// CalculateControlCommands centers the box and commands forward velocity
// proportional to the area deficit. It requires the BBOX variant.
func (b *BBoxScale) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	box, ok := out.BBox()
	if !ok {
		return ControlCommand{}, errors.New("bbox follow requires BBOX tracker data")
	}
	if box.Area() <= 0 {
		return ControlCommand{}, errors.New("degenerate bounding box")
	}

	dt := 0.0
	if b.hasPrev {
		if d := out.Timestamp() - b.prevTime; d > 0 {
			dt = d
		}
	}
	b.prevTime = out.Timestamp()
	b.hasPrev = true

	fwd := b.areaGain * (b.targetArea - box.Area())
	right := b.lateral.update(box.X, dt)
	down := b.vertical.update(box.Y, dt)
	yawRate := b.yawGain * box.X

	return offboardCommand(fwd, right, down, yawRate), nil
}
