package trackerfeed

import (
	"testing"

	"github.com/skylarkuav/go-follow/pkg/follow"
)

func TestDecodeFrame_Position2D(t *testing.T) {
	data := []byte(`{
		"data_type": "POSITION_2D",
		"timestamp": 12.5,
		"tracking_active": true,
		"confidence": 0.87,
		"position_2d": [0.25, -0.5]
	}`)

	out, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}

	if out.DataType() != follow.DataTypePosition2D {
		t.Errorf("data type = %s, want POSITION_2D", out.DataType())
	}
	if !out.TrackingActive() {
		t.Error("tracking_active not preserved")
	}
	if out.Confidence() != 0.87 {
		t.Errorf("confidence = %v, want 0.87", out.Confidence())
	}
	p, ok := out.Position2D()
	if !ok {
		t.Fatal("position_2d variant not populated")
	}
	if p.X != 0.25 || p.Y != -0.5 {
		t.Errorf("position = %+v, want (0.25, -0.5)", p)
	}
}

func TestDecodeFrame_Variants(t *testing.T) {
	cases := []struct {
		name string
		data string
		want follow.DataType
	}{
		{
			name: "3d",
			data: `{"data_type": "POSITION_3D", "tracking_active": true, "confidence": 0.8, "position_3d": [0.1, 0.2, 42.0]}`,
			want: follow.DataTypePosition3D,
		},
		{
			name: "bbox",
			data: `{"data_type": "BBOX", "tracking_active": true, "confidence": 0.8, "bbox": [0.0, 0.1, 0.2, 0.3]}`,
			want: follow.DataTypeBBox,
		},
		{
			name: "angular",
			data: `{"data_type": "ANGULAR", "tracking_active": true, "confidence": 0.8, "angular": [0.3, -0.1]}`,
			want: follow.DataTypeAngular,
		},
	}

	for _, tc := range cases {
		out, err := DecodeFrame([]byte(tc.data))
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if out.DataType() != tc.want {
			t.Errorf("%s: data type = %s, want %s", tc.name, out.DataType(), tc.want)
		}
	}
}

func TestDecodeFrame_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown type", `{"data_type": "VELOCITY", "tracking_active": true}`},
		{"missing variant", `{"data_type": "POSITION_2D", "tracking_active": true}`},
		{"wrong variant", `{"data_type": "BBOX", "position_2d": [0.1, 0.1]}`},
		{"not json", `not json`},
	}

	for _, tc := range cases {
		if _, err := DecodeFrame([]byte(tc.data)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestDecodeFrame_ClampsConfidence(t *testing.T) {
	data := []byte(`{"data_type": "POSITION_2D", "tracking_active": true, "confidence": 1.7, "position_2d": [0, 0]}`)
	out, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if out.Confidence() != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", out.Confidence())
	}
}
