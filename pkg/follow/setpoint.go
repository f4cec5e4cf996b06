package follow

import (
	"fmt"
	"math"
)

// Setpoint field schemas per control type, in dispatch order.
var setpointSchemas = map[ControlType][]string{
	ControlTypeVelocityBody:         {"vel_x", "vel_y", "vel_z", "yaw_rate"},
	ControlTypeVelocityBodyOffboard: {"vel_body_fwd", "vel_body_right", "vel_body_down", "yaw_rate"},
	ControlTypeAttitudeRate:         {"rollspeed", "pitchspeed", "yawspeed", "thrust"},
}

// Setpoint is one named command field and its current value.
type Setpoint struct {
	Name  string
	Value float64
}

// SetpointHandler holds the named command fields for one control type.
// The field set is fixed at construction from the control type's schema;
// every field defaults to zero until explicitly set each cycle.
type SetpointHandler struct {
	controlType ControlType
	order       []string
	fields      map[string]float64
}

// NewSetpointHandler creates a handler scoped to the given control type.
func NewSetpointHandler(controlType ControlType) (*SetpointHandler, error) {
	schema, ok := setpointSchemas[controlType]
	if !ok {
		return nil, fmt.Errorf("follow: no setpoint schema for control type %q", controlType)
	}

	fields := make(map[string]float64, len(schema))
	for _, name := range schema {
		fields[name] = 0
	}

	return &SetpointHandler{
		controlType: controlType,
		order:       schema,
		fields:      fields,
	}, nil
}

// ControlType returns the schema this handler is scoped to.
func (s *SetpointHandler) ControlType() ControlType {
	return s.controlType
}

// SetField sets a schema field to a finite value.
func (s *SetpointHandler) SetField(name string, value float64) error {
	if _, ok := s.fields[name]; !ok {
		return fmt.Errorf("%w: %q not in %s schema", ErrUnknownField, name, s.controlType)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
	}
	s.fields[name] = value
	return nil
}

// GetField returns the current value of a schema field.
func (s *SetpointHandler) GetField(name string) (float64, error) {
	value, ok := s.fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q not in %s schema", ErrUnknownField, name, s.controlType)
	}
	return value, nil
}

// AllFields returns every schema field with its current value, in schema
// order, zero-filled for fields not set this cycle.
func (s *SetpointHandler) AllFields() []Setpoint {
	out := make([]Setpoint, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Setpoint{Name: name, Value: s.fields[name]})
	}
	return out
}

// Reset zeroes every field. Safe to call every cycle.
func (s *SetpointHandler) Reset() {
	for _, name := range s.order {
		s.fields[name] = 0
	}
}

// storeCommand writes a finalized command's payload into the handler so
// the setpoints always mirror the last dispatched values.
func (s *SetpointHandler) storeCommand(cmd ControlCommand) {
	switch {
	case cmd.Offboard != nil:
		s.fields["vel_body_fwd"] = cmd.Offboard.Forward
		s.fields["vel_body_right"] = cmd.Offboard.Right
		s.fields["vel_body_down"] = cmd.Offboard.Down
		s.fields["yaw_rate"] = cmd.Offboard.YawRate
	case cmd.VelocityBody != nil:
		s.fields["vel_x"] = cmd.VelocityBody.VelX
		s.fields["vel_y"] = cmd.VelocityBody.VelY
		s.fields["vel_z"] = cmd.VelocityBody.VelZ
		s.fields["yaw_rate"] = cmd.VelocityBody.YawRate
	case cmd.AttitudeRate != nil:
		s.fields["rollspeed"] = cmd.AttitudeRate.RollSpeed
		s.fields["pitchspeed"] = cmd.AttitudeRate.PitchSpeed
		s.fields["yawspeed"] = cmd.AttitudeRate.YawSpeed
		s.fields["thrust"] = cmd.AttitudeRate.Thrust
	}
}
