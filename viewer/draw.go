package viewer

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// drawParticles renders the published snapshot as constant-pixel squares.
func (v *Viewer) drawParticles() {
	snap := v.sim.Snapshot()
	m := v.sim.SpeciesCount()
	settings := v.sim.Settings()

	// Pixel size follows the world-to-window fit, not the zoom.
	base := v.cam.Scale() / v.cam.Zoom
	size := float32(settings.ParticleSize) * base
	if size < 1 {
		size = 1
	}
	half := size / 2
	margin := half / v.cam.Scale()
	dims := rl.Vector2{X: size, Y: size}

	palette := make([]rl.Color, m)
	for i := range palette {
		palette[i] = speciesColor(uint32(i), m)
	}

	for i := range snap {
		p := &snap[i]
		if !v.cam.IsVisible(p.X, p.Y, margin) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(p.X, p.Y)
		col := rl.White
		if int(p.Species) < m {
			col = palette[p.Species]
		}
		rl.DrawRectangleV(rl.Vector2{X: sx - half, Y: sy - half}, dims, col)
	}
}

// drawBrush outlines the area a click would edit.
func (v *Viewer) drawBrush() {
	mouse := rl.GetMousePosition()
	if !v.inWorldView(mouse) {
		return
	}
	radius := v.brushSize * v.cam.Scale()
	col := speciesColor(uint32(v.brushSpecies), v.sim.SpeciesCount())
	if v.removeMode || rl.IsKeyDown(rl.KeyLeftShift) {
		radius *= float32(v.cfg.Editor.RemoveScale)
		col = theme.Repel
	}
	rl.DrawCircleLines(int32(mouse.X), int32(mouse.Y), radius, col)
}

// drawHUD draws the status line in the world view.
func (v *Viewer) drawHUD() {
	x := theme.Padding
	y := theme.Padding

	state := "running"
	if v.paused {
		state = "paused"
	}
	line := fmt.Sprintf("FPS %d | tick %d | %d particles | %d species | x%d | %s",
		rl.GetFPS(), v.sim.Tick(), v.sim.Len(), v.sim.SpeciesCount(), v.stepsPerUpdate, state)
	rl.DrawText(line, x, y, theme.HeaderSize, theme.ValueColor)
	y += theme.LineHeight

	perf := v.sim.PerfStats()
	if perf.AvgTickDuration > 0 {
		rl.DrawText(fmt.Sprintf("tick %.2fms  %.0f ticks/s", float64(perf.AvgTickDuration)/float64(time.Millisecond), perf.TicksPerSecond),
			x, y, theme.FontSize, theme.LabelColor)
		y += theme.LineHeight
	}

	if v.status != "" && time.Now().Before(v.statusUntil) {
		rl.DrawText(v.status, x, y, theme.FontSize, rl.Yellow)
	}

	help := "Space pause  ,/. speed  LMB add  Shift+LMB remove  RMB pan  Wheel zoom  Home reset view"
	rl.DrawText(help, x, int32(v.screenHeight)-theme.LineHeight, theme.FontSize, rl.Gray)
}
