package follow

import (
	"errors"
	"math"
	"testing"
)

func TestSetpointHandler_RoundTrip(t *testing.T) {
	for controlType, schema := range setpointSchemas {
		sp, err := NewSetpointHandler(controlType)
		if err != nil {
			t.Fatalf("NewSetpointHandler(%s): %v", controlType, err)
		}

		for i, name := range schema {
			want := float64(i) + 0.5
			if err := sp.SetField(name, want); err != nil {
				t.Errorf("%s: SetField(%s): %v", controlType, name, err)
			}
			got, err := sp.GetField(name)
			if err != nil {
				t.Errorf("%s: GetField(%s): %v", controlType, name, err)
			}
			if got != want {
				t.Errorf("%s: %s = %v, want %v", controlType, name, got, want)
			}
		}
	}
}

func TestSetpointHandler_UnknownField(t *testing.T) {
	sp, err := NewSetpointHandler(ControlTypeAttitudeRate)
	if err != nil {
		t.Fatal(err)
	}

	if err := sp.SetField("vel_body_fwd", 1.0); !errors.Is(err, ErrUnknownField) {
		t.Errorf("SetField outside schema: got %v, want ErrUnknownField", err)
	}
	if _, err := sp.GetField("nonsense"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("GetField outside schema: got %v, want ErrUnknownField", err)
	}
}

func TestSetpointHandler_RejectsNonFinite(t *testing.T) {
	sp, err := NewSetpointHandler(ControlTypeVelocityBody)
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := sp.SetField("vel_x", v); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("SetField(vel_x, %v): got %v, want ErrInvalidValue", v, err)
		}
	}

	// The rejected value must not have replaced the stored one.
	if got, _ := sp.GetField("vel_x"); got != 0 {
		t.Errorf("vel_x = %v after rejected writes, want 0", got)
	}
}

func TestSetpointHandler_AllFieldsOrderedAndZeroFilled(t *testing.T) {
	sp, err := NewSetpointHandler(ControlTypeVelocityBodyOffboard)
	if err != nil {
		t.Fatal(err)
	}
	if err := sp.SetField("yaw_rate", 0.4); err != nil {
		t.Fatal(err)
	}

	fields := sp.AllFields()
	wantOrder := []string{"vel_body_fwd", "vel_body_right", "vel_body_down", "yaw_rate"}
	if len(fields) != len(wantOrder) {
		t.Fatalf("AllFields returned %d fields, want %d", len(fields), len(wantOrder))
	}
	for i, name := range wantOrder {
		if fields[i].Name != name {
			t.Errorf("fields[%d].Name = %q, want %q", i, fields[i].Name, name)
		}
	}
	if fields[3].Value != 0.4 {
		t.Errorf("yaw_rate = %v, want 0.4", fields[3].Value)
	}
	if fields[0].Value != 0 {
		t.Errorf("unset vel_body_fwd = %v, want 0", fields[0].Value)
	}
}

func TestSetpointHandler_ResetIdempotent(t *testing.T) {
	sp, err := NewSetpointHandler(ControlTypeAttitudeRate)
	if err != nil {
		t.Fatal(err)
	}

	for cycle := 0; cycle < 3; cycle++ {
		if err := sp.SetField("thrust", 0.7); err != nil {
			t.Fatal(err)
		}
		sp.Reset()
		for _, f := range sp.AllFields() {
			if f.Value != 0 {
				t.Errorf("cycle %d: %s = %v after Reset, want 0", cycle, f.Name, f.Value)
			}
		}
	}
}
