package viewer

import (
	"errors"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tgenesis/sim"
)

// Wheel zoom factors per notch.
const (
	zoomOutFactor = 0.85
	zoomInFactor  = 1.15
)

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && v.stepsPerUpdate > 1 {
		v.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.stepsPerUpdate < 10 {
		v.stepsPerUpdate++
	}

	if rl.IsKeyPressed(rl.KeyE) {
		v.removeMode = !v.removeMode
	}

	// Number keys pick the brush species
	m := v.sim.SpeciesCount()
	for k := int32(0); k < 9; k++ {
		if rl.IsKeyPressed(rl.KeyOne+k) && int(k) < m {
			v.brushSpecies = int(k)
		}
	}
	if v.brushSpecies >= m {
		v.brushSpecies = 0
	}

	v.handleCameraInput()
	v.handleBrush()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h
	v.cam.Resize(w-float32(v.cfg.Screen.PanelWidth), h)
}

// inWorldView reports whether the mouse is over the world rather than the panel.
func (v *Viewer) inWorldView(pos rl.Vector2) bool {
	return pos.X < v.cam.ViewportW
}

// handleCameraInput processes camera pan/zoom controls.
func (v *Viewer) handleCameraInput() {
	mouse := rl.GetMousePosition()

	// Right drag pans
	if rl.IsMouseButtonDown(rl.MouseButtonRight) && v.inWorldView(mouse) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}

	panSpeed := float32(8.0)
	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && v.inWorldView(mouse) {
		if wheel > 0 {
			v.cam.ZoomBy(zoomInFactor)
		} else {
			v.cam.ZoomBy(zoomOutFactor)
		}
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
}

// handleBrush adds or removes particles under a left click.
func (v *Viewer) handleBrush() {
	if !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return
	}
	mouse := rl.GetMousePosition()
	if !v.inWorldView(mouse) {
		return
	}
	wx, wy := v.cam.ScreenToWorld(mouse.X, mouse.Y)

	remove := v.removeMode || rl.IsKeyDown(rl.KeyLeftShift)
	if remove {
		n, err := v.sim.RemoveParticles(float64(wx), float64(wy), float64(v.brushSize))
		if err != nil {
			slog.Error("remove particles", "error", err)
			return
		}
		if n > 0 {
			v.setStatus(fmt.Sprintf("Removed %d particles", n))
		}
		return
	}

	err := v.sim.AddParticles(float64(wx), float64(wy), int(v.brushCount), v.brushSpecies)
	switch {
	case errors.Is(err, sim.ErrCapacity):
		v.setStatus("Particle capacity reached")
	case err != nil:
		slog.Error("add particles", "error", err)
	}
}
