package waltz

import (
	"errors"
	"math"
	"testing"
)

func TestParsePitch(t *testing.T) {
	tests := []struct {
		name string
		key  int
		str  string
	}{
		{"C4", 60, "C4"},
		{"A4", 69, "A4"},
		{"C#3", 49, "C#3"},
		{"F#5", 78, "F#5"},
		{"Bb2", 46, "A#2"},
		{"Cb4", 59, "B3"},
		{"B#3", 60, "C4"},
		{"C2", 36, "C2"},
	}
	for _, test := range tests {
		p, err := ParsePitch(test.name)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if want, got := test.key, p.Key(); want != got {
			t.Errorf("%s: want key %v, got %v", test.name, want, got)
		}
		if want, got := test.str, p.String(); want != got {
			t.Errorf("%s: want %q, got %q", test.name, want, got)
		}
	}
}

func TestParsePitchInvalid(t *testing.T) {
	for _, name := range []string{"", "C", "H3", "C#", "Cx3", "3C"} {
		if _, err := ParsePitch(name); !errors.Is(err, ErrUnknownPitch) {
			t.Errorf("%q: want ErrUnknownPitch, got %v", name, err)
		}
	}
}

func TestPitchFreq(t *testing.T) {
	p, err := ParsePitch("A3")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Freq(); math.Abs(got-220) > 1e-9 {
		t.Errorf("A3: want 220Hz, got %v", got)
	}
}
