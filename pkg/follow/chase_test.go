package follow

import (
	"math"
	"testing"
)

func newTestFollower(t *testing.T, mode string, params Parameters) Follower {
	t.Helper()
	r := NewDefaultRegistry()
	f, err := r.Create(mode, CreateOptions{Limits: testLimits(), Parameters: params})
	if err != nil {
		t.Fatalf("Create(%s): %v", mode, err)
	}
	return f
}

func TestVelocityChase_OnTargetIsNearZero(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_chase", nil)

	out := NewPosition2DOutput(1.0, true, 0.95, Position2D{X: 0, Y: 0})
	cmd, err := FollowTarget(f, out)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard == nil {
		t.Fatal("expected offboard payload")
	}

	for name, v := range map[string]float64{
		"forward": cmd.Offboard.Forward,
		"right":   cmd.Offboard.Right,
		"down":    cmd.Offboard.Down,
		"yaw":     cmd.Offboard.YawRate,
	} {
		if math.Abs(v) > 1e-9 {
			t.Errorf("on-target %s = %v, want ~0", name, v)
		}
	}
}

func TestVelocityChase_LateralSignCorrectsTowardTarget(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_chase", nil)
	limits := testLimits()

	out := NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0.5, Y: 0})
	cmd, err := FollowTarget(f, out)
	if err != nil {
		t.Fatal(err)
	}

	if cmd.Offboard.Right <= 0 {
		t.Errorf("target right of center: lateral = %v, want > 0", cmd.Offboard.Right)
	}
	if math.Abs(cmd.Offboard.Right) > limits.MaxVelocityLateral {
		t.Errorf("lateral %v exceeds limit %v", cmd.Offboard.Right, limits.MaxVelocityLateral)
	}
	if cmd.Offboard.YawRate <= 0 {
		t.Errorf("yaw rate = %v, want > 0", cmd.Offboard.YawRate)
	}
}

func TestVelocityChase_LOSRateDrivesLateral(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_chase", Parameters{"bearing_bias": 0})

	// Constant bearing: zero LOS rate, so the lateral command stays zero
	// even though the offset is nonzero.
	for i := 0; i < 3; i++ {
		ts := 1.0 + float64(i)*0.05
		cmd, err := FollowTarget(f, NewPosition2DOutput(ts, true, 0.9, Position2D{X: 0.3, Y: 0}))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(cmd.Offboard.Right) > 1e-9 {
			t.Errorf("cycle %d: constant bearing lateral = %v, want 0", i, cmd.Offboard.Right)
		}
	}

	// Drifting bearing: positive LOS rate commands a positive lateral rate.
	cmd, err := FollowTarget(f, NewPosition2DOutput(1.2, true, 0.9, Position2D{X: 0.5, Y: 0}))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Offboard.Right <= 0 {
		t.Errorf("drifting bearing lateral = %v, want > 0", cmd.Offboard.Right)
	}
}

func TestFollowTarget_NoExtrapolationWhenInactive(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_chase", nil)

	// Build up a command from a live target left and below center.
	live := NewPosition2DOutput(1.0, true, 0.9, Position2D{X: -0.6, Y: 0.4})
	prev, err := FollowTarget(f, live)
	if err != nil {
		t.Fatal(err)
	}

	// Stale position data arrives flagged inactive: the command must decay
	// toward neutral, never grow.
	for i := 0; i < 20; i++ {
		stale := NewPosition2DOutput(1.0+float64(i)*0.05, false, 0.9, Position2D{X: -0.9, Y: 0.9})
		cmd, err := FollowTarget(f, stale)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(cmd.Offboard.Right) > math.Abs(prev.Offboard.Right)+1e-9 {
			t.Errorf("cycle %d: lateral grew while inactive: %v -> %v", i, prev.Offboard.Right, cmd.Offboard.Right)
		}
		if math.Abs(cmd.Offboard.Forward) > math.Abs(prev.Offboard.Forward)+1e-9 {
			t.Errorf("cycle %d: forward grew while inactive: %v -> %v", i, prev.Offboard.Forward, cmd.Offboard.Forward)
		}
		prev = cmd
	}

	// Sustained loss decays all the way to neutral.
	if prev.Offboard.Forward != 0 && math.Abs(prev.Offboard.Forward) > 0.2 {
		t.Errorf("forward after sustained loss = %v, want near 0", prev.Offboard.Forward)
	}
}

func TestFollowTarget_LowConfidenceTreatedAsLost(t *testing.T) {
	f := newTestFollower(t, "mc_velocity_chase", nil)

	live := NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0.5, Y: 0})
	cmd, err := FollowTarget(f, live)
	if err != nil {
		t.Fatal(err)
	}
	before := math.Abs(cmd.Offboard.Right)

	// Active flag set but confidence under threshold: same as lost.
	doubtful := NewPosition2DOutput(1.05, true, 0.05, Position2D{X: 0.9, Y: 0})
	cmd, err = FollowTarget(f, doubtful)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cmd.Offboard.Right) > before+1e-9 {
		t.Errorf("low-confidence update grew lateral: %v -> %v", before, cmd.Offboard.Right)
	}
}

func TestFollowTarget_ClampsAndFlagsCommand(t *testing.T) {
	// High gain forces raw commands past the limits.
	f := newTestFollower(t, "mc_velocity_chase", Parameters{"forward_gain": 100.0})
	limits := testLimits()

	out := NewPosition2DOutput(1.0, true, 0.9, Position2D{X: 0, Y: -1.0})
	cmd, err := FollowTarget(f, out)
	if err != nil {
		t.Fatal(err)
	}
	if !cmd.Clamped {
		t.Error("expected Clamped flag on limited command")
	}
	if cmd.Offboard.Forward != limits.MaxVelocityForward {
		t.Errorf("forward = %v, want clamped to %v", cmd.Offboard.Forward, limits.MaxVelocityForward)
	}

	// The clamped value, not the raw one, lands in the setpoints.
	got, err := f.Setpoints().GetField("vel_body_fwd")
	if err != nil {
		t.Fatal(err)
	}
	if got != limits.MaxVelocityForward {
		t.Errorf("setpoint vel_body_fwd = %v, want %v", got, limits.MaxVelocityForward)
	}
}
