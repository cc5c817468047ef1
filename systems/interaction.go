// Package systems implements the per-step particle interaction kernel.
package systems

import (
	"math"

	"github.com/pthm-cable/tgenesis/components"
)

// reactionScale converts the user-facing reaction probability into a
// per-contact threshold.
const reactionScale = 0.005

// hashMax normalizes Hash output to [0, 1].
const hashMax = 4294967295.0

// Frame is everything one dispatch reads besides the particle buffer.
type Frame struct {
	Params    components.Params
	Affinity  []float32 // M*M row-major
	Reactions []uint32  // M*M*2 row-major (outA, outB)
}

// Hash is a 32-bit avalanche mix used to decide reactions without a
// random number generator.
func Hash(x uint32) uint32 {
	x = ((x >> 16) ^ x) * 0x45d9f3b
	x = ((x >> 16) ^ x) * 0x45d9f3b
	x = (x >> 16) ^ x
	return x
}

// Force evaluates the piecewise force law at distance r.
// Inside rMin it is a linear repulsion reaching 0 at rMin; between rMin and
// rMax it is a triangle peaking at the midpoint, scaled by aff.
func Force(r, aff, rMin, rMax float32) float32 {
	if r < rMin {
		return r/rMin - 1
	}
	return aff * (1 - abs32(2*r-rMax-rMin)/(rMax-rMin))
}

// Interact runs one kernel invocation for particle i.
// Neighbours are read from src and the result is written to dst[i]; passing
// the same slice for both gives in-place semantics, where a neighbour may
// already hold its post-step state. It returns the number of reactions applied.
func Interact(i int, src, dst []components.Particle, f *Frame) int {
	p := &f.Params
	n := int(p.N)
	if i >= n {
		return 0
	}

	m := p.M
	ws := p.WorldSize
	rMin, rMax := p.RMin, p.RMax
	rMax2 := rMax * rMax
	threshold := p.RProb * reactionScale

	pi := src[i]
	var fx, fy float32
	reactions := 0

	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		pj := &src[j]

		dx := ToroidalDelta(pi.X, pj.X, ws)
		dy := ToroidalDelta(pi.Y, pj.Y, ws)
		r2 := dx*dx + dy*dy
		if r2 == 0 || r2 >= rMax2 {
			continue
		}

		r := float32(math.Sqrt(float64(r2)))
		aff := f.Affinity[pi.Species*m+pj.Species]
		force := Force(r, aff, rMin, rMax)
		fx += dx / r * force * rMax
		fy += dy / r * force * rMax

		if r < rMin && p.RProb > 0 {
			h := Hash(uint32(i) + uint32(j) + uint32(pi.X))
			if float32(h)/hashMax < threshold {
				pi.Species = f.Reactions[(pi.Species*m+pj.Species)*2]
				reactions++
			}
		}
	}

	pi.VX = pi.VX*(1-p.Friction) + fx*p.Beta
	pi.VY = pi.VY*(1-p.Friction) + fy*p.Beta
	pi.X = Wrap(pi.X+pi.VX*p.DT, ws)
	pi.Y = Wrap(pi.Y+pi.VY*p.DT, ws)
	dst[i] = pi
	return reactions
}

// InteractRange runs invocations [lo, hi) and returns their reaction count.
func InteractRange(lo, hi int, src, dst []components.Particle, f *Frame) int {
	total := 0
	for i := lo; i < hi; i++ {
		total += Interact(i, src, dst, f)
	}
	return total
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
