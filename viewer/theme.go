package viewer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Theme holds UI styling constants.
type Theme struct {
	PanelBg       rl.Color
	PanelBorder   rl.Color
	SectionHeader rl.Color
	LabelColor    rl.Color
	ValueColor    rl.Color
	Attract       rl.Color
	Repel         rl.Color
	Padding       int32
	LineHeight    int32
	LabelWidth    int32
	FontSize      int32
	HeaderSize    int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:       rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:   rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader: rl.Yellow,
		LabelColor:    rl.LightGray,
		ValueColor:    rl.RayWhite,
		Attract:       rl.Color{R: 100, G: 200, B: 100, A: 255},
		Repel:         rl.Color{R: 200, G: 100, B: 100, A: 255},
		Padding:       10,
		LineHeight:    18,
		LabelWidth:    90,
		FontSize:      12,
		HeaderSize:    14,
	}
}

var theme = DefaultTheme()

// drawSectionHeader draws a section header and returns the new Y position.
func drawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, theme.HeaderSize, theme.SectionHeader)
	return y + theme.LineHeight
}

// drawLabelValue draws a label and value on the same line.
func drawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, theme.FontSize, theme.LabelColor)
	rl.DrawText(value, x+theme.LabelWidth, y, theme.FontSize, theme.ValueColor)
	return y + theme.LineHeight
}

// speciesColor maps a species index onto an evenly spaced hue wheel.
func speciesColor(sp uint32, m int) rl.Color {
	if m < 1 {
		m = 1
	}
	hue := 360 * float32(sp) / float32(m)
	return rl.ColorFromHSV(hue, 0.6957, 0.92)
}

// affinityColor shades a matrix cell: green attracts, red repels.
func affinityColor(v, clampRange float64) rl.Color {
	t := float32(v / clampRange)
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	base := theme.Attract
	if t < 0 {
		base = theme.Repel
		t = -t
	}
	return rl.Color{
		R: uint8(float32(base.R) * t),
		G: uint8(float32(base.G) * t),
		B: uint8(float32(base.B) * t),
		A: 255,
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
