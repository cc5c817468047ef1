package components

import (
	"testing"
	"unsafe"
)

func TestRecordLayout(t *testing.T) {
	if got := unsafe.Sizeof(Particle{}); got != 24 {
		t.Errorf("Particle size = %d, want 24", got)
	}
	if got := unsafe.Sizeof(Params{}); got != 48 {
		t.Errorf("Params size = %d, want 48", got)
	}
}

func TestParticleComponents(t *testing.T) {
	pos := Position{X: 1, Y: 2}
	vel := Velocity{X: -3, Y: 4}
	sp := Species{ID: 5}

	p := NewParticle(pos, vel, sp)
	gotPos, gotVel, gotSp := p.Components()
	if gotPos != pos || gotVel != vel || gotSp != sp {
		t.Errorf("Components() = %+v %+v %+v, want %+v %+v %+v", gotPos, gotVel, gotSp, pos, vel, sp)
	}
}
