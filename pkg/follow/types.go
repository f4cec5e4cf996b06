// Package follow implements the target-following control core: tracker
// data contracts, schema-aware setpoints, safety clamping, pluggable
// guidance laws, and the manager state machine that drives them at a
// fixed control cadence.
package follow

import (
	"fmt"
	"time"
)

// DataType identifies which positional variant a TrackerOutput carries.
type DataType int

const (
	// DataTypePosition2D is a normalized 2D image-plane offset.
	DataTypePosition2D DataType = iota
	// DataTypePosition3D is a normalized 2D offset plus slant range in meters.
	DataTypePosition3D
	// DataTypeBBox is a normalized bounding box (center + size).
	DataTypeBBox
	// DataTypeAngular is a gimbal-frame angular offset in radians.
	DataTypeAngular
)

// String returns the wire name of the data type.
func (d DataType) String() string {
	switch d {
	case DataTypePosition2D:
		return "POSITION_2D"
	case DataTypePosition3D:
		return "POSITION_3D"
	case DataTypeBBox:
		return "BBOX"
	case DataTypeAngular:
		return "ANGULAR"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// Position2D is a target offset in the image plane, normalized to [-1, 1]
// on both axes. X grows to the right, Y grows downward.
type Position2D struct {
	X float64
	Y float64
}

// Position3D extends the 2D offset with slant range to the target in meters.
type Position3D struct {
	X     float64
	Y     float64
	Range float64
}

// BBox is a target bounding box with center normalized to [-1, 1] and
// width/height as fractions of the frame.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Area returns the box area as a fraction of the frame.
func (b BBox) Area() float64 {
	return b.Width * b.Height
}

// Angular is a gimbal-reported angular offset to the target in radians.
// Yaw grows clockwise seen from above, Pitch grows nose-up.
type Angular struct {
	Yaw   float64
	Pitch float64
}

// TrackerOutput is the per-cycle estimate produced by the external vision
// tracker. It is immutable after construction: exactly one positional
// variant is populated, consistent with DataType. When TrackingActive is
// false the positional fields must not be used for control.
type TrackerOutput struct {
	dataType       DataType
	timestamp      float64
	trackingActive bool
	confidence     float64

	pos2D   Position2D
	pos3D   Position3D
	bbox    BBox
	angular Angular
}

// NewPosition2DOutput builds a POSITION_2D tracker output.
func NewPosition2DOutput(timestamp float64, active bool, confidence float64, p Position2D) TrackerOutput {
	return TrackerOutput{
		dataType:       DataTypePosition2D,
		timestamp:      timestamp,
		trackingActive: active,
		confidence:     clampUnit(confidence),
		pos2D:          p,
	}
}

// NewPosition3DOutput builds a POSITION_3D tracker output.
func NewPosition3DOutput(timestamp float64, active bool, confidence float64, p Position3D) TrackerOutput {
	return TrackerOutput{
		dataType:       DataTypePosition3D,
		timestamp:      timestamp,
		trackingActive: active,
		confidence:     clampUnit(confidence),
		pos3D:          p,
	}
}

// NewBBoxOutput builds a BBOX tracker output.
func NewBBoxOutput(timestamp float64, active bool, confidence float64, b BBox) TrackerOutput {
	return TrackerOutput{
		dataType:       DataTypeBBox,
		timestamp:      timestamp,
		trackingActive: active,
		confidence:     clampUnit(confidence),
		bbox:           b,
	}
}

// NewAngularOutput builds an ANGULAR tracker output.
func NewAngularOutput(timestamp float64, active bool, confidence float64, a Angular) TrackerOutput {
	return TrackerOutput{
		dataType:       DataTypeAngular,
		timestamp:      timestamp,
		trackingActive: active,
		confidence:     clampUnit(confidence),
		angular:        a,
	}
}

// InactiveOutput builds a tracker output representing "no target", used
// when the feed goes silent past the staleness deadline.
func InactiveOutput(timestamp float64) TrackerOutput {
	return TrackerOutput{
		dataType:  DataTypePosition2D,
		timestamp: timestamp,
	}
}

// DataType returns the populated positional variant tag.
func (t TrackerOutput) DataType() DataType { return t.dataType }

// Timestamp returns the tracker-side capture time in seconds.
func (t TrackerOutput) Timestamp() float64 { return t.timestamp }

// TrackingActive reports whether the tracker holds a lock on the target.
func (t TrackerOutput) TrackingActive() bool { return t.trackingActive }

// Confidence returns the tracker confidence in [0, 1].
func (t TrackerOutput) Confidence() float64 { return t.confidence }

// Position2D returns the 2D offset variant, false if not populated.
func (t TrackerOutput) Position2D() (Position2D, bool) {
	return t.pos2D, t.dataType == DataTypePosition2D
}

// Position3D returns the 3D offset variant, false if not populated.
func (t TrackerOutput) Position3D() (Position3D, bool) {
	return t.pos3D, t.dataType == DataTypePosition3D
}

// BBox returns the bounding-box variant, false if not populated.
func (t TrackerOutput) BBox() (BBox, bool) {
	return t.bbox, t.dataType == DataTypeBBox
}

// Angular returns the angular variant, false if not populated.
func (t TrackerOutput) Angular() (Angular, bool) {
	return t.angular, t.dataType == DataTypeAngular
}

// Offset returns the target's normalized image-plane offset regardless of
// variant. BBox uses the box center; angular offsets are scaled by the
// assumed half field of view so all laws can share the same pursuit input.
func (t TrackerOutput) Offset() (x, y float64) {
	switch t.dataType {
	case DataTypePosition2D:
		return t.pos2D.X, t.pos2D.Y
	case DataTypePosition3D:
		return t.pos3D.X, t.pos3D.Y
	case DataTypeBBox:
		return t.bbox.X, t.bbox.Y
	case DataTypeAngular:
		return t.angular.Yaw / halfFOV, -t.angular.Pitch / halfFOV
	default:
		return 0, 0
	}
}

// halfFOV maps angular offsets onto the same normalized scale as
// image-plane offsets (45 degrees of gimbal error saturates to 1.0).
const halfFOV = 0.7853981633974483

// ControlType selects which command schema a guidance law produces.
type ControlType string

const (
	// ControlTypeVelocityBody commands body-frame velocity through the
	// flight controller's own guided mode.
	ControlTypeVelocityBody ControlType = "velocity_body"
	// ControlTypeVelocityBodyOffboard commands offboard body-frame velocity,
	// overriding the flight controller's navigation.
	ControlTypeVelocityBodyOffboard ControlType = "velocity_body_offboard"
	// ControlTypeAttitudeRate commands angular rates and thrust directly.
	ControlTypeAttitudeRate ControlType = "attitude_rate"
)

// Valid reports whether the control type is one of the known schemas.
func (c ControlType) Valid() bool {
	switch c {
	case ControlTypeVelocityBody, ControlTypeVelocityBodyOffboard, ControlTypeAttitudeRate:
		return true
	}
	return false
}

// VelocityBodyCommand is the velocity_body payload.
type VelocityBodyCommand struct {
	VelX    float64 `json:"vel_x"`
	VelY    float64 `json:"vel_y"`
	VelZ    float64 `json:"vel_z"`
	YawRate float64 `json:"yaw_rate"`
}

// OffboardVelocityCommand is the velocity_body_offboard payload.
type OffboardVelocityCommand struct {
	Forward float64 `json:"vel_body_fwd"`
	Right   float64 `json:"vel_body_right"`
	Down    float64 `json:"vel_body_down"`
	YawRate float64 `json:"yaw_rate"`
}

// AttitudeRateCommand is the attitude_rate payload.
type AttitudeRateCommand struct {
	RollSpeed  float64 `json:"rollspeed"`
	PitchSpeed float64 `json:"pitchspeed"`
	YawSpeed   float64 `json:"yawspeed"`
	Thrust     float64 `json:"thrust"`
}

// ControlCommand is the finalized per-cycle output: exactly one payload is
// populated, selected by Type. Clamped is set when the safety manager
// limited any field.
type ControlCommand struct {
	Type      ControlType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Clamped   bool        `json:"clamped"`

	VelocityBody *VelocityBodyCommand     `json:"velocity_body,omitempty"`
	Offboard     *OffboardVelocityCommand `json:"offboard,omitempty"`
	AttitudeRate *AttitudeRateCommand     `json:"attitude_rate,omitempty"`
}

// NeutralCommand returns the safe zero command for a control type. For
// attitude_rate the thrust is held at the hover fraction rather than zero
// so a neutral command never cuts the motors.
func NeutralCommand(controlType ControlType) ControlCommand {
	cmd := ControlCommand{Type: controlType, Timestamp: time.Now()}
	switch controlType {
	case ControlTypeVelocityBody:
		cmd.VelocityBody = &VelocityBodyCommand{}
	case ControlTypeVelocityBodyOffboard:
		cmd.Offboard = &OffboardVelocityCommand{}
	case ControlTypeAttitudeRate:
		cmd.AttitudeRate = &AttitudeRateCommand{Thrust: neutralThrust}
	}
	return cmd
}

// neutralThrust is the hover thrust fraction used for neutral attitude
// commands.
const neutralThrust = 0.5

func clampUnit(v float64) float64 {
	return clamp(v, 0, 1)
}

// clamp limits a value to a range.
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
