// Package components defines the particle data layout shared by the host
// mirror and the compute buffer.
package components

// Position represents a particle's world position in [0, worldSize).
type Position struct {
	X, Y float32
}

// Velocity represents a particle's velocity. It is not bounded.
type Velocity struct {
	X, Y float32
}

// Species holds a particle's species index in [0, M).
type Species struct {
	ID uint32
}

// Particle is the device-side record for one particle. Field order and the
// 24-byte size match the storage buffer the kernel reads and writes.
type Particle struct {
	X, Y    float32
	VX, VY  float32
	Species uint32
	_       uint32
}

// NewParticle builds a particle record from host components.
func NewParticle(pos Position, vel Velocity, sp Species) Particle {
	return Particle{X: pos.X, Y: pos.Y, VX: vel.X, VY: vel.Y, Species: sp.ID}
}

// Components splits the record back into host components.
func (p Particle) Components() (Position, Velocity, Species) {
	return Position{X: p.X, Y: p.Y}, Velocity{X: p.VX, Y: p.VY}, Species{ID: p.Species}
}

// Params is the uniform record uploaded once per step. It is rebuilt from
// live settings before every dispatch so N always matches the bound buffer.
type Params struct {
	DT        float32
	Friction  float32
	N         uint32
	M         uint32
	WorldSize float32
	RProb     float32
	RMin      float32
	RMax      float32
	Beta      float32
	_         [3]float32
}
