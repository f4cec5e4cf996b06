package follow

// MCAttitudeRate maps the normalized offset directly into body angular
// rates and a thrust trim. Used when GPS-aided offboard velocity is
// unavailable and the flight controller accepts raw rate setpoints.
type MCAttitudeRate struct {
	baseFollower

	rollGain    float64
	pitchGain   float64
	yawGain     float64
	hoverThrust float64
	thrustGain  float64
}

func newMCAttitudeRate(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}
	return &MCAttitudeRate{
		baseFollower: base,
		rollGain:     params.value("roll_gain", 0.8),
		pitchGain:    params.value("pitch_gain", 0.6),
		yawGain:      params.value("yaw_gain", 0.7),
		hoverThrust:  clamp(params.value("hover_thrust", neutralThrust), 0.1, 0.9),
		thrustGain:   params.value("thrust_gain", 0.15),
	}, nil
}

// CalculateControlCommands banks toward the target and trims thrust for
// the vertical offset. Positive y means the target sits below frame
// center, so thrust is reduced to descend onto it.
func (m *MCAttitudeRate) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	x, y := out.Offset()

	roll := m.rollGain * x
	pitch := m.pitchGain * -y
	yaw := m.yawGain * x
	thrust := m.hoverThrust - m.thrustGain*y

	return attitudeRateCommand(roll, pitch, yaw, thrust), nil
}
