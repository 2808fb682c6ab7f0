package audio

import (
	"reflect"
	"testing"
)

func TestProps(t *testing.T) {
	props := NewProps()
	level := props.MustRegister("level", setLevel, 0.)
	props.MustRegister("env.release", setEnvParam, 0.06)

	if err := props.Set("level", 3); err != nil {
		t.Fatal(err)
	}
	if want, got := 3.0, loadFloat(level); want != got {
		t.Errorf("want level %v, got %v", want, got)
	}
	if err := props.Set("level", 11.0); err == nil {
		t.Error("expected range error")
	}
	if err := props.Set("level", "loud"); err == nil {
		t.Error("expected type error")
	}
	if err := props.Set("cutoff", 100.0); err == nil {
		t.Error("expected unknown property error")
	}
	if v, err := props.Get("env.release"); err != nil || v.(float64) != 0.06 {
		t.Errorf("Get(env.release) = %v, %v", v, err)
	}
	if want, got := []string{"env.release", "level"}, props.Keys(); !reflect.DeepEqual(want, got) {
		t.Errorf("want keys %v, got %v", want, got)
	}
	if _, err := props.Register("bad", setLevel, 100.0); err == nil {
		t.Error("expected error registering out of range initial value")
	}
	if _, err := props.Get("bad"); err == nil {
		t.Error("failed registration should not leave a property behind")
	}
}
