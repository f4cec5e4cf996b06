package follow

import (
	"math"
	"testing"
)

func TestOnTargetLost_NeutralWithoutHistory(t *testing.T) {
	f := newTestFollower(t, "mc_attitude_rate", nil)

	cmd := f.OnTargetLost()
	if cmd.AttitudeRate == nil {
		t.Fatal("expected attitude payload")
	}
	if cmd.AttitudeRate.RollSpeed != 0 || cmd.AttitudeRate.PitchSpeed != 0 || cmd.AttitudeRate.YawSpeed != 0 {
		t.Errorf("neutral rates not zero: %+v", cmd.AttitudeRate)
	}
	// Neutral attitude thrust holds hover, never cuts motors.
	if cmd.AttitudeRate.Thrust != neutralThrust {
		t.Errorf("neutral thrust = %v, want %v", cmd.AttitudeRate.Thrust, neutralThrust)
	}
}

func TestOnTargetLost_AttitudeDecaysTowardHover(t *testing.T) {
	f := newTestFollower(t, "mc_attitude_rate", nil)

	out := NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0.8, Y: 0.6})
	if _, err := FollowTarget(f, out); err != nil {
		t.Fatal(err)
	}

	prev, _ := f.LastCommand()
	for i := 0; i < 30; i++ {
		cmd := f.OnTargetLost()
		if math.Abs(cmd.AttitudeRate.RollSpeed) > math.Abs(prev.AttitudeRate.RollSpeed)+1e-9 {
			t.Fatalf("roll rate grew during decay: %v -> %v",
				prev.AttitudeRate.RollSpeed, cmd.AttitudeRate.RollSpeed)
		}
		prev = cmd
	}

	final, _ := f.LastCommand()
	if final.AttitudeRate.RollSpeed != 0 {
		t.Errorf("roll rate after decay = %v, want 0", final.AttitudeRate.RollSpeed)
	}
	if final.AttitudeRate.Thrust != neutralThrust {
		t.Errorf("thrust after decay = %v, want hover %v", final.AttitudeRate.Thrust, neutralThrust)
	}
}

func TestMCAttitudeRate_Signs(t *testing.T) {
	f := newTestFollower(t, "mc_attitude_rate", nil)

	// Target right of and above center: bank right, pitch up, yaw right,
	// thrust above hover.
	cmd, err := FollowTarget(f, NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0.5, Y: -0.4}))
	if err != nil {
		t.Fatal(err)
	}
	p := cmd.AttitudeRate
	if p.RollSpeed <= 0 || p.YawSpeed <= 0 {
		t.Errorf("roll/yaw = (%v, %v), want both > 0", p.RollSpeed, p.YawSpeed)
	}
	if p.PitchSpeed <= 0 {
		t.Errorf("pitch = %v, want > 0 for target above center", p.PitchSpeed)
	}
	if p.Thrust <= neutralThrust {
		t.Errorf("thrust = %v, want above hover for climb", p.Thrust)
	}
}

func TestFixedWing_LateralAndEnergySigns(t *testing.T) {
	f := newTestFollower(t, "fw_attitude_rate", Parameters{"airspeed_target": 18.0})
	limits := testLimits()

	// Target right of and above center.
	cmd, err := FollowTarget(f, NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0.6, Y: -0.5}))
	if err != nil {
		t.Fatal(err)
	}
	p := cmd.AttitudeRate

	if p.RollSpeed <= 0 {
		t.Errorf("roll rate = %v, want > 0 (bank toward target)", p.RollSpeed)
	}
	if p.YawSpeed <= 0 {
		t.Errorf("yaw rate = %v, want > 0 (coordinated turn)", p.YawSpeed)
	}
	if p.PitchSpeed <= 0 {
		t.Errorf("pitch rate = %v, want > 0 (climb demand)", p.PitchSpeed)
	}
	if p.Thrust <= 0.6 {
		t.Errorf("thrust = %v, want above cruise for added energy", p.Thrust)
	}

	if math.Abs(p.RollSpeed) > limits.MaxRollRate || math.Abs(p.YawSpeed) > limits.MaxYawRate {
		t.Errorf("rates exceed limits: %+v", p)
	}

	// Centered target: wings level, cruise energy.
	cmd, err = FollowTarget(f, NewPosition2DOutput(1.1, true, 0.9, Position2D{}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cmd.AttitudeRate.RollSpeed) > 1e-9 {
		t.Errorf("centered roll rate = %v, want 0", cmd.AttitudeRate.RollSpeed)
	}
}

func TestStandoff_RangeError(t *testing.T) {
	f := newTestFollower(t, "mc_standoff", Parameters{"standoff_distance": 20.0})

	// Target beyond the stand-off distance: close in.
	cmd, err := FollowTarget(f, NewPosition3DOutput(1.0, true, 0.9, Position3D{Range: 35}))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard.Forward <= 0 {
		t.Errorf("forward = %v, want > 0 when beyond stand-off", cmd.Offboard.Forward)
	}

	// Too close: back off.
	f2 := newTestFollower(t, "mc_standoff", Parameters{"standoff_distance": 20.0})
	cmd, err = FollowTarget(f2, NewPosition3DOutput(1.0, true, 0.9, Position3D{Range: 8}))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard.Forward >= 0 {
		t.Errorf("forward = %v, want < 0 when inside stand-off", cmd.Offboard.Forward)
	}
}

func TestBBoxScale_ClosureFromArea(t *testing.T) {
	f := newTestFollower(t, "mc_bbox_scale", Parameters{"target_bbox_area": 0.1})

	// Small box: target far, close in.
	small := NewBBoxOutput(1.0, true, 0.9, BBox{X: 0, Y: 0, Width: 0.1, Height: 0.1})
	cmd, err := FollowTarget(f, small)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard.Forward <= 0 {
		t.Errorf("forward = %v, want > 0 for distant target", cmd.Offboard.Forward)
	}

	// Large box: too close, back off.
	large := NewBBoxOutput(1.1, true, 0.9, BBox{X: 0, Y: 0, Width: 0.6, Height: 0.6})
	cmd, err = FollowTarget(f, large)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard.Forward >= 0 {
		t.Errorf("forward = %v, want < 0 for near target", cmd.Offboard.Forward)
	}
}

func TestGimbalVector_VelocityAlongLOS(t *testing.T) {
	f := newTestFollower(t, "gimbal_vector", Parameters{"pursuit_speed": 4.0})

	// Target dead ahead: full speed forward, nothing else.
	cmd, err := FollowTarget(f, NewAngularOutput(1.0, true, 0.9, Angular{}))
	if err != nil {
		t.Fatal(err)
	}
	p := cmd.VelocityBody
	if math.Abs(p.VelX-4.0) > 1e-9 || p.VelY != 0 || p.VelZ != 0 {
		t.Errorf("dead-ahead velocity = %+v, want (4, 0, 0)", p)
	}

	// Target up and to the right: right and up components appear, total
	// speed preserved.
	cmd, err = FollowTarget(f, NewAngularOutput(1.1, true, 0.9, Angular{Yaw: 0.4, Pitch: 0.3}))
	if err != nil {
		t.Fatal(err)
	}
	p = cmd.VelocityBody
	if p.VelY <= 0 {
		t.Errorf("vel_y = %v, want > 0 toward right bearing", p.VelY)
	}
	if p.VelZ >= 0 {
		t.Errorf("vel_z = %v, want < 0 (climb) for target above", p.VelZ)
	}
	speed := math.Sqrt(p.VelX*p.VelX + p.VelY*p.VelY + p.VelZ*p.VelZ)
	if math.Abs(speed-4.0) > 1e-6 {
		t.Errorf("speed = %v, want 4.0", speed)
	}
}

func TestGimbalAngular_YawOnlyWithDeadband(t *testing.T) {
	f := newTestFollower(t, "gimbal_angular", nil)

	// Inside the deadband: fully neutral.
	cmd, err := FollowTarget(f, NewAngularOutput(1.0, true, 0.9, Angular{Yaw: 0.01}))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.VelocityBody.YawRate != 0 {
		t.Errorf("yaw rate inside deadband = %v, want 0", cmd.VelocityBody.YawRate)
	}

	// Outside: yaw toward the target, no translation.
	cmd, err = FollowTarget(f, NewAngularOutput(1.1, true, 0.9, Angular{Yaw: -0.5}))
	if err != nil {
		t.Fatal(err)
	}
	p := cmd.VelocityBody
	if p.YawRate >= 0 {
		t.Errorf("yaw rate = %v, want < 0 toward left bearing", p.YawRate)
	}
	if p.VelX != 0 || p.VelY != 0 || p.VelZ != 0 {
		t.Errorf("gimbal-only law commanded translation: %+v", p)
	}
}

func TestVelocityPID_IntegralBoundedByLimits(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_pid", Parameters{"ki": 5.0})
	limits := testLimits()

	// Hold a large error for many cycles; windup must never push the
	// clamped output past the lateral limit, and recovery must not stick.
	for i := 0; i < 200; i++ {
		ts := 1.0 + float64(i)*0.05
		cmd, err := FollowTarget(f, NewPosition2DOutput(ts, true, 0.9, Position2D{X: 1.0, Y: 0}))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(cmd.Offboard.Right) > limits.MaxVelocityLateral {
			t.Fatalf("cycle %d: lateral %v exceeds limit", i, cmd.Offboard.Right)
		}
	}
}
