package viewer

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	buttonHeight = 22
	sliderHeight = 16
	maxCellSize  = 24
)

// slider describes one physics control: the current value, its bounds and
// the setter applying a change.
type slider struct {
	label    string
	value    float64
	min, max float64
	set      func(float64) error
}

// drawPanel draws the control panel on the right edge of the window.
func (v *Viewer) drawPanel() {
	panelW := int32(v.cfg.Screen.PanelWidth)
	panelX := int32(v.screenWidth) - panelW
	rl.DrawRectangle(panelX, 0, panelW, int32(v.screenHeight), theme.PanelBg)
	rl.DrawLine(panelX, 0, panelX, int32(v.screenHeight), theme.PanelBorder)

	x := float32(panelX + theme.Padding)
	w := float32(panelW - 2*theme.Padding)
	y := float32(theme.Padding)

	y = v.drawSimulationControls(x, y, w)
	y = v.drawSpeciesControls(x, y, w)
	y = v.drawPhysicsSliders(x, y, w)
	y = v.drawAffinityGrid(x, y, w)
	v.drawRuleList(x, y, w)
}

func (v *Viewer) drawSimulationControls(x, y, w float32) float32 {
	y = float32(drawSectionHeader(int32(x), int32(y), "Simulation"))
	y = float32(drawLabelValue(int32(x), int32(y), "Seed", fmt.Sprintf("%d", v.sim.Seed())))
	y = float32(drawLabelValue(int32(x), int32(y), "World size", fmt.Sprintf("%.0f", v.sim.Settings().WorldSize)))

	third := (w - 8) / 3
	label := "Pause"
	if v.paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: third, Height: buttonHeight}, label) {
		v.paused = !v.paused
	}
	if gui.Button(rl.Rectangle{X: x + third + 4, Y: y, Width: third, Height: buttonHeight}, "Step") && v.paused {
		if _, err := v.sim.Step(); err != nil {
			v.setStatus(err.Error())
		}
	}
	if gui.Button(rl.Rectangle{X: x + 2*(third+4), Y: y, Width: third, Height: buttonHeight}, "Reset") {
		settings := v.sim.Settings()
		if err := v.sim.Reset(v.cfg.Population.Particles, v.sim.SpeciesCount(), settings.WorldSize); err != nil {
			v.setStatus(err.Error())
		} else {
			v.setStatus("Population reseeded")
		}
	}
	y += buttonHeight + 4

	half := (w - 4) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: buttonHeight}, "Save rules") {
		path, err := v.sim.SaveRules(v.rulesDir)
		if err != nil {
			slog.Error("save rules", "error", err)
			v.setStatus(err.Error())
		} else {
			v.lastRules = path
			v.setStatus("Saved " + path)
		}
	}
	if gui.Button(rl.Rectangle{X: x + half + 4, Y: y, Width: half, Height: buttonHeight}, "Load last") && v.lastRules != "" {
		if err := v.sim.LoadRules(v.lastRules); err != nil {
			slog.Error("load rules", "error", err)
			v.setStatus(err.Error())
		} else {
			v.setStatus("Loaded " + v.lastRules)
		}
	}
	return y + buttonHeight + float32(theme.Padding)
}

func (v *Viewer) drawSpeciesControls(x, y, w float32) float32 {
	y = float32(drawSectionHeader(int32(x), int32(y), "Species"))
	m := v.sim.SpeciesCount()

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonHeight, Height: buttonHeight}, "-") && m > 1 {
		v.setSpeciesCount(m - 1)
	}
	rl.DrawText(fmt.Sprintf("%d", m), int32(x+buttonHeight+8), int32(y+4), theme.HeaderSize, theme.ValueColor)
	if gui.Button(rl.Rectangle{X: x + buttonHeight + 30, Y: y, Width: buttonHeight, Height: buttonHeight}, "+") {
		v.setSpeciesCount(m + 1)
	}

	mode := "Mode: add"
	if v.removeMode {
		mode = "Mode: remove"
	}
	if gui.Button(rl.Rectangle{X: x + w - 100, Y: y, Width: 100, Height: buttonHeight}, mode) {
		v.removeMode = !v.removeMode
	}
	y += buttonHeight + 4

	// Brush species swatches
	m = v.sim.SpeciesCount()
	cell := min(float32(maxCellSize), w/float32(m))
	mouse := rl.GetMousePosition()
	for i := 0; i < m; i++ {
		rect := rl.Rectangle{X: x + float32(i)*cell, Y: y, Width: cell - 2, Height: cell - 2}
		rl.DrawRectangleRec(rect, speciesColor(uint32(i), m))
		if i == v.brushSpecies {
			rl.DrawRectangleLinesEx(rect, 2, rl.White)
		}
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && rl.CheckCollisionPointRec(mouse, rect) {
			v.brushSpecies = i
		}
	}
	y += cell + 4

	y = v.drawSlider(x, y, w, "Brush size", float64(v.brushSize), 1, 50, func(f float64) error {
		v.brushSize = float32(f)
		return nil
	})
	y = v.drawSlider(x, y, w, "Brush count", float64(v.brushCount), 1, 500, func(f float64) error {
		v.brushCount = float32(f)
		return nil
	})
	return y + float32(theme.Padding)
}

func (v *Viewer) setSpeciesCount(m int) {
	if err := v.sim.SetSpeciesCount(m); err != nil {
		v.setStatus(err.Error())
	}
}

func (v *Viewer) drawPhysicsSliders(x, y, w float32) float32 {
	y = float32(drawSectionHeader(int32(x), int32(y), "Physics"))
	st := v.sim.Settings()

	sliders := []slider{
		{"dt", st.DT, 0.01, 2, v.sim.SetDT},
		{"Friction", st.Friction, 0, 1, v.sim.SetFriction},
		{"Beta", st.Beta, 0, 0.5, v.sim.SetBeta},
		{"r min", st.RMin, 1, st.RMax - 1, v.sim.SetRMin},
		{"r max", st.RMax, st.RMin + 1, 300, v.sim.SetRMax},
		{"Reaction prob", st.ReactionProbability, 0, 10, v.sim.SetReactionProbability},
		{"Particle size", st.ParticleSize, 0.5, 10, v.sim.SetParticleSize},
	}
	for _, s := range sliders {
		y = v.drawSlider(x, y, w, s.label, s.value, s.min, s.max, s.set)
	}
	return y + float32(theme.Padding)
}

// drawSlider draws a labelled slider and applies the setter when the value moves.
func (v *Viewer) drawSlider(x, y, w float32, label string, value, lo, hi float64, set func(float64) error) float32 {
	rl.DrawText(label, int32(x), int32(y), theme.FontSize, theme.LabelColor)
	rl.DrawText(formatFloat(value), int32(x+w-50), int32(y), theme.FontSize, theme.ValueColor)
	y += 14

	got := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: w, Height: sliderHeight},
		"", "",
		float32(value), float32(lo), float32(hi),
	)
	if got != float32(value) {
		if err := set(float64(got)); err != nil {
			v.setStatus(err.Error())
		}
	}
	return y + sliderHeight + 6
}

// drawAffinityGrid shows the affinity matrix. Clicking a cell negates it.
func (v *Viewer) drawAffinityGrid(x, y, w float32) float32 {
	y = float32(drawSectionHeader(int32(x), int32(y), "Affinity"))

	third := (w - 8) / 3
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: third, Height: buttonHeight}, "Randomize") {
		v.sim.RandomizeAffinity()
	}
	if gui.Button(rl.Rectangle{X: x + third + 4, Y: y, Width: third, Height: buttonHeight}, "New rules") {
		v.sim.RandomizeRules()
	}
	if gui.Button(rl.Rectangle{X: x + 2*(third+4), Y: y, Width: third, Height: buttonHeight}, "Clear rules") {
		v.sim.ClearRules()
	}
	y += buttonHeight + 6

	aff := v.sim.Affinity()
	m := len(aff)
	cell := min(float32(maxCellSize), (w-float32(maxCellSize))/float32(m))
	mouse := rl.GetMousePosition()
	clampRange := v.cfg.Affinity.ClampRange

	// Row and column headers use the species colour.
	for i := 0; i < m; i++ {
		col := speciesColor(uint32(i), m)
		rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y + cell*float32(i+1), Width: cell - 4, Height: cell - 2}, col)
		rl.DrawRectangleRec(rl.Rectangle{X: x + cell*float32(i+1), Y: y, Width: cell - 2, Height: cell - 4}, col)
	}

	var hovered string
	for i, row := range aff {
		for j, val := range row {
			rect := rl.Rectangle{
				X:      x + cell*float32(j+1),
				Y:      y + cell*float32(i+1),
				Width:  cell - 2,
				Height: cell - 2,
			}
			rl.DrawRectangleRec(rect, affinityColor(val, clampRange))
			if !rl.CheckCollisionPointRec(mouse, rect) {
				continue
			}
			rl.DrawRectangleLinesEx(rect, 1, rl.White)
			hovered = fmt.Sprintf("%d -> %d: %+.3f", i, j, val)
			if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
				if err := v.sim.FlipAffinityCell(i, j); err != nil {
					v.setStatus(err.Error())
				}
			}
		}
	}
	y += cell * float32(m+1)

	if hovered != "" {
		rl.DrawText(hovered, int32(x), int32(y+2), theme.FontSize, theme.ValueColor)
	}
	return y + float32(theme.LineHeight) + float32(theme.Padding)
}

// drawRuleList lists the active reaction rules, newest last, with a remove
// button per rule. Rules that do not fit are summarised.
func (v *Viewer) drawRuleList(x, y, w float32) {
	rules := v.sim.ActiveRules()
	y = float32(drawSectionHeader(int32(x), int32(y), fmt.Sprintf("Rules (%d)", len(rules))))
	m := v.sim.SpeciesCount()

	bottom := v.screenHeight - float32(theme.Padding)
	for i, r := range rules {
		if y+float32(theme.LineHeight) > bottom {
			rl.DrawText(fmt.Sprintf("... %d more", len(rules)-i), int32(x), int32(y), theme.FontSize, theme.LabelColor)
			return
		}
		drawRuleSwatch(x, y, r.A, m)
		drawRuleSwatch(x+14, y, r.B, m)
		rl.DrawText("->", int32(x+32), int32(y), theme.FontSize, theme.LabelColor)
		drawRuleSwatch(x+52, y, r.OutA, m)
		drawRuleSwatch(x+66, y, r.OutB, m)
		rl.DrawText(fmt.Sprintf("%d+%d -> %d+%d", r.A, r.B, r.OutA, r.OutB), int32(x+90), int32(y), theme.FontSize, theme.ValueColor)

		if gui.Button(rl.Rectangle{X: x + w - 20, Y: y - 2, Width: 20, Height: 16}, "x") {
			if err := v.sim.RemoveRule(i); err != nil {
				v.setStatus(err.Error())
			}
			return
		}
		y += float32(theme.LineHeight)
	}
}

func drawRuleSwatch(x, y float32, sp, m int) {
	rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y, Width: 12, Height: 12}, speciesColor(uint32(sp), m))
}
