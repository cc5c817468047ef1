package systems

import "math"

// ToroidalDelta returns the shortest signed displacement from 'from' to 'to'
// on a ring of the given size. Its magnitude never exceeds size/2.
func ToroidalDelta(from, to, size float32) float32 {
	d := to - from
	if d > size*0.5 {
		d -= size
	} else if d < -size*0.5 {
		d += size
	}
	return d
}

// ToroidalDistance returns the wrapped Euclidean distance between two points.
func ToroidalDistance(x1, y1, x2, y2, size float32) float32 {
	dx := ToroidalDelta(x1, x2, size)
	dy := ToroidalDelta(y1, y2, size)
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// Wrap maps x into [0, size).
func Wrap(x, size float32) float32 {
	r := float32(math.Mod(float64(x), float64(size)))
	if r < 0 {
		r += size
	}
	// -epsilon + size can round up to size
	if r >= size {
		r = 0
	}
	return r
}
