package camera

import (
	"math"
	"testing"
)

func newTestCamera() *Camera {
	return New(1280, 800, 2000, 1, 0.05, 50)
}

func TestNew(t *testing.T) {
	cam := newTestCamera()

	if cam.X != 1000 || cam.Y != 1000 {
		t.Errorf("expected camera at (1000, 1000), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
	// The world fits the shorter side at zoom 1
	if got := cam.Scale(); math.Abs(float64(got-0.4)) > 1e-6 {
		t.Errorf("scale = %f, want 0.4", got)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := newTestCamera()

	sx, sy := cam.WorldToScreen(1000, 1000)
	if math.Abs(float64(sx-640)) > 0.01 || math.Abs(float64(sy-400)) > 0.01 {
		t.Errorf("expected screen center (640, 400), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	tests := []struct {
		name   string
		zoom   float32
		sx, sy float32
	}{
		{"center", 1, 640, 400},
		{"upper left", 1, 300, 100},
		{"lower right", 1, 1000, 700},
		{"zoomed in", 8, 300, 650},
		{"zoomed out", 0.5, 700, 350},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := newTestCamera()
			cam.SetZoom(tt.zoom)
			wx, wy := cam.ScreenToWorld(tt.sx, tt.sy)
			if wx < 0 || wx >= 2000 || wy < 0 || wy >= 2000 {
				t.Fatalf("ScreenToWorld returned (%f, %f) outside the world", wx, wy)
			}
			sx, sy := cam.WorldToScreen(wx, wy)
			if math.Abs(float64(sx-tt.sx)) > 0.05 || math.Abs(float64(sy-tt.sy)) > 0.05 {
				t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)", tt.sx, tt.sy, wx, wy, sx, sy)
			}
		})
	}
}

func TestToroidalWrap(t *testing.T) {
	cam := newTestCamera()
	cam.SetZoom(4)
	cam.X = 50 // near the left edge

	// A particle at the far right edge is closer across the seam
	sx, _ := cam.WorldToScreen(1990, 1000)
	if sx >= 640 {
		t.Errorf("expected particle left of center, got x=%f", sx)
	}
	if !cam.IsVisible(1990, 1000, 1) {
		t.Error("particle across the seam should be visible")
	}
	if cam.IsVisible(1000, 1000, 1) {
		t.Error("particle on the opposite side of the world should be culled")
	}
}

func TestPanWraps(t *testing.T) {
	cam := newTestCamera()
	scale := cam.Scale()

	// Pan left by more than the distance to the edge
	cam.Pan(-1500*scale, 0)
	if math.Abs(float64(cam.X-1500)) > 0.01 {
		t.Errorf("expected wrapped X=1500, got %f", cam.X)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := newTestCamera()

	for i := 0; i < 100; i++ {
		cam.ZoomBy(1.15)
	}
	if cam.Zoom != 50 {
		t.Errorf("zoom = %f, want clamped to 50", cam.Zoom)
	}
	for i := 0; i < 200; i++ {
		cam.ZoomBy(0.85)
	}
	if cam.Zoom != 0.05 {
		t.Errorf("zoom = %f, want clamped to 0.05", cam.Zoom)
	}

	cam.Reset()
	if cam.Zoom != 1 || cam.X != 1000 {
		t.Errorf("Reset left zoom %f at x %f", cam.Zoom, cam.X)
	}
}

func TestSetWorldSize(t *testing.T) {
	cam := newTestCamera()
	cam.SetWorldSize(500)
	if cam.X != 250 || cam.Y != 250 {
		t.Errorf("camera at (%f, %f), want recentred on (250, 250)", cam.X, cam.Y)
	}
}
