// Package viewer is the raylib front end: it draws the published particle
// snapshot and turns mouse and keyboard input into simulation edits.
package viewer

import (
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tgenesis/camera"
	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/sim"
)

// statusDuration is how long a status message stays on screen.
const statusDuration = 3 * time.Second

// Viewer holds the interactive state around a Simulation.
type Viewer struct {
	sim *sim.Simulation
	cfg *config.Config
	cam *camera.Camera

	screenWidth, screenHeight float32

	paused         bool
	stepsPerUpdate int
	removeMode     bool // left click removes instead of adds
	brushSpecies   int
	brushSize      float32
	brushCount     float32
	rulesDir       string
	lastRules      string // path of the last saved rules file

	status      string
	statusUntil time.Time
}

// Options configures a Viewer.
type Options struct {
	StepsPerUpdate int
	RulesDir       string // where "Save rules" writes
}

// New creates a viewer for s. The raylib window must already be open.
func New(s *sim.Simulation, opts Options) *Viewer {
	cfg := s.Config()
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())

	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	return &Viewer{
		sim: s,
		cfg: cfg,
		cam: camera.New(
			w-float32(cfg.Screen.PanelWidth), h,
			float32(s.Settings().WorldSize),
			float32(cfg.Render.InitialZoom),
			float32(cfg.Render.MinZoom),
			float32(cfg.Render.MaxZoom),
		),
		screenWidth:    w,
		screenHeight:   h,
		stepsPerUpdate: steps,
		brushSize:      float32(cfg.Editor.BrushSize),
		brushCount:     float32(cfg.Editor.BrushCount),
		rulesDir:       opts.RulesDir,
	}
}

// Update processes input and advances the simulation unless paused.
func (v *Viewer) Update() {
	v.handleInput()
	v.cam.SetWorldSize(float32(v.sim.Settings().WorldSize))

	if v.paused {
		return
	}
	for i := 0; i < v.stepsPerUpdate; i++ {
		if _, err := v.sim.Step(); err != nil {
			slog.Error("step failed", "error", err)
			v.paused = true
			v.setStatus("Paused: " + err.Error())
			return
		}
	}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	v.sim.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	v.drawParticles()
	v.drawBrush()
	v.drawHUD()
	v.drawPanel()

	rl.EndDrawing()
}

// Tick returns the simulation tick.
func (v *Viewer) Tick() int32 {
	return v.sim.Tick()
}

func (v *Viewer) setStatus(msg string) {
	v.status = msg
	v.statusUntil = time.Now().Add(statusDuration)
}
