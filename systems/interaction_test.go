package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/tgenesis/components"
)

func TestHashReferenceValues(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 0},
		{1, 824515495},
		{2, 1722258072},
		{42, 4147366645},
		{1000, 4040455147},
		{0xffffffff, 539527247},
	}
	for _, tt := range tests {
		if got := Hash(tt.in); got != tt.want {
			t.Errorf("Hash(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToroidalDeltaSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const size = 1000
	bound := float32(size) * float32(math.Sqrt2) / 2

	for i := 0; i < 1000; i++ {
		ax, ay := rng.Float32()*size, rng.Float32()*size
		bx, by := rng.Float32()*size, rng.Float32()*size

		dx := ToroidalDelta(ax, bx, size)
		dy := ToroidalDelta(ay, by, size)
		rdx := ToroidalDelta(bx, ax, size)
		rdy := ToroidalDelta(by, ay, size)

		// Exactly opposite points sit on the seam and may pick the same side.
		if abs32(abs32(dx)-size/2) > 1e-3 && dx != -rdx {
			t.Fatalf("dx(%v->%v)=%v but reverse=%v", ax, bx, dx, rdx)
		}
		if abs32(abs32(dy)-size/2) > 1e-3 && dy != -rdy {
			t.Fatalf("dy(%v->%v)=%v but reverse=%v", ay, by, dy, rdy)
		}
		if mag := float32(math.Sqrt(float64(dx*dx + dy*dy))); mag > bound+1e-3 {
			t.Fatalf("|delta| = %v exceeds %v", mag, bound)
		}
	}
}

func TestToroidalDeltaWraps(t *testing.T) {
	tests := []struct {
		from, to, want float32
	}{
		{10, 990, -20},
		{990, 10, 20},
		{100, 300, 200},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := ToroidalDelta(tt.from, tt.to, 1000); got != tt.want {
			t.Errorf("ToroidalDelta(%v,%v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{-1, 999},
		{1000, 0},
		{1500, 500},
		{0, 0},
		{-2500, 500},
	}
	for _, tt := range tests {
		if got := Wrap(tt.in, 1000); got != tt.want {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := Wrap(-1e-9, 1000); got < 0 || got >= 1000 {
		t.Errorf("Wrap(-1e-9) = %v escaped [0, 1000)", got)
	}
}

func TestForceContinuousAtRMin(t *testing.T) {
	const rMin, rMax = 10, 50
	for _, aff := range []float32{-2, -0.5, 0, 1, 2} {
		inner := Force(rMin-1e-4, aff, rMin, rMax)
		outer := Force(rMin, aff, rMin, rMax)
		if abs32(inner) > 1e-4 || abs32(outer) > 1e-6 {
			t.Errorf("aff=%v: force near rMin inner=%v outer=%v, want ~0", aff, inner, outer)
		}
	}
	if got := Force(30, 1, rMin, rMax); got != 1 {
		t.Errorf("peak force = %v, want 1", got)
	}
	if got := Force(0, 1, rMin, rMax); got != -1 {
		t.Errorf("force at r=0 = %v, want -1", got)
	}
	if got := Force(rMax, 1, rMin, rMax); abs32(got) > 1e-6 {
		t.Errorf("force at rMax = %v, want 0", got)
	}
}

func scenarioFrame(n uint32) *Frame {
	return &Frame{
		Params: components.Params{
			DT: 1, Friction: 0, N: n, M: 2,
			WorldSize: 1000, RProb: 0, RMin: 10, RMax: 50, Beta: 1,
		},
		Affinity:  []float32{0, 1, 1, 0},
		Reactions: []uint32{0, 0, 0, 1, 1, 0, 1, 1},
	}
}

func TestTwoParticleAttractionInPlace(t *testing.T) {
	f := scenarioFrame(2)
	buf := []components.Particle{
		{X: 500, Y: 500, Species: 0},
		{X: 530, Y: 500, Species: 1},
	}

	InteractRange(0, 2, buf, buf, f)

	if buf[0].X <= 500 {
		t.Errorf("particle 0 x = %v, want > 500", buf[0].X)
	}
	sep := abs32(ToroidalDelta(buf[0].X, buf[1].X, 1000))
	if sep >= 30 {
		t.Errorf("separation = %v, want < 30", sep)
	}
	// Sequential in-place: B sees A already at 550.
	if buf[0].X != 550 || buf[1].X != 555 {
		t.Errorf("positions = (%v, %v), want (550, 555)", buf[0].X, buf[1].X)
	}
}

func TestTwoParticleAttractionDoubleBuffered(t *testing.T) {
	f := scenarioFrame(2)
	f.Params.Beta = 0.1
	src := []components.Particle{
		{X: 500, Y: 500, Species: 0},
		{X: 530, Y: 500, Species: 1},
	}
	dst := make([]components.Particle, 2)

	InteractRange(0, 2, src, dst, f)

	if dst[0].X != 505 || dst[1].X != 525 {
		t.Errorf("positions = (%v, %v), want (505, 525)", dst[0].X, dst[1].X)
	}
	if src[0].X != 500 || src[1].X != 530 {
		t.Error("double-buffered step modified its source")
	}
}

func TestSingleParticleUnchanged(t *testing.T) {
	f := scenarioFrame(1)
	buf := []components.Particle{{X: 123, Y: 456, Species: 1}}
	want := buf[0]

	Interact(0, buf, buf, f)

	if buf[0] != want {
		t.Errorf("single particle changed: %+v -> %+v", want, buf[0])
	}
}

func TestCoincidentParticlesSkipped(t *testing.T) {
	f := scenarioFrame(2)
	f.Params.RProb = 1e6 // any evaluated contact would react
	buf := []components.Particle{
		{X: 200, Y: 200, Species: 0},
		{X: 200, Y: 200, Species: 1},
	}

	reactions := InteractRange(0, 2, buf, buf, f)

	if reactions != 0 {
		t.Errorf("reactions = %d, want 0", reactions)
	}
	for i, p := range buf {
		if p.X != 200 || p.Y != 200 || p.VX != 0 || p.VY != 0 {
			t.Errorf("particle %d moved: %+v", i, p)
		}
		if math.IsNaN(float64(p.X)) {
			t.Errorf("particle %d has NaN position", i)
		}
	}
}

func TestReactionAppliesOutcome(t *testing.T) {
	f := scenarioFrame(2)
	f.Params.RProb = 1e6
	// (0,1) -> (1,1), (1,0) -> (1,1)
	f.Reactions = []uint32{0, 0, 1, 1, 1, 1, 1, 1}
	src := []components.Particle{
		{X: 100, Y: 100, Species: 0},
		{X: 105, Y: 100, Species: 1},
	}
	dst := make([]components.Particle, 2)

	reactions := InteractRange(0, 2, src, dst, f)

	if dst[0].Species != 1 {
		t.Errorf("species after reaction = %d, want 1", dst[0].Species)
	}
	if reactions == 0 {
		t.Error("expected at least one reaction")
	}
}

func TestInvocationBeyondNIsNoop(t *testing.T) {
	f := scenarioFrame(1)
	buf := []components.Particle{{X: 1}, {X: 2}}
	if got := Interact(1, buf, buf, f); got != 0 {
		t.Errorf("reactions = %d, want 0", got)
	}
	if buf[1].X != 2 {
		t.Error("guarded invocation wrote its slot")
	}
}

func TestSpeciesStayInRange(t *testing.T) {
	const n, m = 200, 4
	rng := rand.New(rand.NewSource(11))

	f := &Frame{
		Params: components.Params{
			DT: 0.5, Friction: 0.1, N: n, M: m,
			WorldSize: 300, RProb: 50, RMin: 15, RMax: 40, Beta: 0.05,
		},
		Affinity:  make([]float32, m*m),
		Reactions: make([]uint32, m*m*2),
	}
	for i := range f.Affinity {
		f.Affinity[i] = rng.Float32()*2 - 1
	}
	for i := range f.Reactions {
		f.Reactions[i] = uint32(rng.Intn(m))
	}

	buf := make([]components.Particle, n)
	for i := range buf {
		buf[i] = components.Particle{X: rng.Float32() * 300, Y: rng.Float32() * 300, Species: uint32(rng.Intn(m))}
	}

	total := 0
	for step := 0; step < 20; step++ {
		total += InteractRange(0, n, buf, buf, f)
		for i, p := range buf {
			if p.Species >= m {
				t.Fatalf("step %d: particle %d species %d >= %d", step, i, p.Species, m)
			}
			if p.X < 0 || p.X >= 300 || p.Y < 0 || p.Y >= 300 {
				t.Fatalf("step %d: particle %d at (%v,%v) outside world", step, i, p.X, p.Y)
			}
		}
	}
	if total == 0 {
		t.Error("expected reactions in a dense population")
	}
}
