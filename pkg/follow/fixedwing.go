package follow

import (
	"errors"
	"math"
)

const gravity = 9.80665

// FixedWingAttitude composes two decoupled loops for fixed-wing pursuit:
// a lateral L1 navigation law that banks toward a look-ahead point on the
// pursuit line, and a longitudinal total-energy law that trades pitch rate
// and thrust against the combined kinetic+potential energy error. Turn
// rate rather than translational velocity is commanded, matching
// fixed-wing kinematics.
//
// The L1 period/damping and energy time constant come from configuration;
// there is no single published tuning for pursuit of a vision target.
type FixedWingAttitude struct {
	baseFollower

	airspeed     float64
	l1Period     float64
	l1Damping    float64
	rollTau      float64
	maxBank      float64
	tecsTau      float64
	cruiseThrust float64
	energyGain   float64
	pitchGain    float64
}

func newFixedWingAttitude(profile Profile, safety *SafetyManager, params Parameters) (Follower, error) {
	if err := params.require("airspeed_target"); err != nil {
		return nil, err
	}
	base, err := newBaseFollower(profile, safety, params)
	if err != nil {
		return nil, err
	}

	return &FixedWingAttitude{
		baseFollower: base,
		airspeed:     params["airspeed_target"],
		l1Period:     params.value("l1_period", 17.0),
		l1Damping:    params.value("l1_damping", 0.75),
		rollTau:      params.value("roll_tau", 0.5),
		maxBank:      params.value("max_bank", 0.8),
		tecsTau:      params.value("tecs_time_const", 5.0),
		cruiseThrust: clamp(params.value("cruise_thrust", 0.6), 0.1, 1.0),
		energyGain:   params.value("energy_gain", 0.2),
		pitchGain:    params.value("pitch_gain", 0.5),
	}, nil
}

// CalculateControlCommands computes roll/pitch/yaw rates and thrust from
// the target bearing and elevation errors.
func (f *FixedWingAttitude) CalculateControlCommands(out TrackerOutput) (ControlCommand, error) {
	if f.airspeed <= 0.1 {
		return ControlCommand{}, errors.New("degenerate airspeed target")
	}

	x, y := out.Offset()

	// Lateral: L1 acceleration demand from the bearing error toward the
	// look-ahead point, converted to a bank angle and then a roll rate.
	eta := x * halfFOV
	l1Dist := math.Max(f.l1Damping*f.l1Period*f.airspeed/math.Pi, 1.0)
	latAccel := 2 * f.airspeed * f.airspeed / l1Dist * math.Sin(eta)
	bank := clamp(math.Atan2(latAccel, gravity), -f.maxBank, f.maxBank)
	rollRate := bank / f.rollTau

	// Coordinated turn yaw rate for the commanded bank.
	yawRate := gravity * math.Tan(bank) / f.airspeed

	// Longitudinal: the elevation offset stands in for the potential
	// energy error; kinetic error is zero by construction since airspeed
	// tracks the configured target. Pitch rate redistributes energy
	// between the two, thrust changes the total.
	climbDemand := -y
	pitchRate := f.pitchGain * climbDemand / f.tecsTau
	thrust := f.cruiseThrust + f.energyGain*climbDemand

	return attitudeRateCommand(rollRate, pitchRate, yawRate, thrust), nil
}
