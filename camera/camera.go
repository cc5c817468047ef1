// Package camera maps between screen pixels and the square toroidal world.
package camera

import (
	"github.com/pthm-cable/tgenesis/systems"
)

// Camera controls the viewport into the simulation world.
// At zoom 1 the whole world fits the shorter viewport side.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level relative to fitting the world (1.0 = whole world visible)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World edge length (for toroidal wrapping)
	WorldSize float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the world.
func New(viewportW, viewportH, worldSize, zoom, minZoom, maxZoom float32) *Camera {
	c := &Camera{
		X:         worldSize / 2,
		Y:         worldSize / 2,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldSize: worldSize,
		MinZoom:   minZoom,
		MaxZoom:   maxZoom,
	}
	c.SetZoom(zoom)
	return c
}

// Scale returns screen pixels per world unit.
func (c *Camera) Scale() float32 {
	return min(c.ViewportW, c.ViewportH) / c.WorldSize * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates, taking
// the shortest path around the torus from the camera center.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	scale := c.Scale()
	dx := systems.ToroidalDelta(c.X, wx, c.WorldSize)
	dy := systems.ToroidalDelta(c.Y, wy, c.WorldSize)
	return c.ViewportW/2 + dx*scale, c.ViewportH/2 + dy*scale
}

// ScreenToWorld converts screen coordinates to wrapped world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	scale := c.Scale()
	dx := (sx - c.ViewportW/2) / scale
	dy := (sy - c.ViewportH/2) / scale
	return systems.Wrap(c.X+dx, c.WorldSize), systems.Wrap(c.Y+dy, c.WorldSize)
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	scale := c.Scale()
	dx := systems.ToroidalDelta(c.X, wx, c.WorldSize)
	dy := systems.ToroidalDelta(c.Y, wy, c.WorldSize)

	halfW := c.ViewportW/(2*scale) + radius
	halfH := c.ViewportH/(2*scale) + radius
	return absf(dx) <= halfW && absf(dy) <= halfH
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// SetWorldSize changes the world edge length and re-centers the camera.
func (c *Camera) SetWorldSize(size float32) {
	if size == c.WorldSize {
		return
	}
	c.WorldSize = size
	c.X = size / 2
	c.Y = size / 2
}

// Pan moves the camera by the given delta in screen pixels.
// Automatically wraps around world boundaries.
func (c *Camera) Pan(dx, dy float32) {
	scale := c.Scale()
	c.X = systems.Wrap(c.X+dx/scale, c.WorldSize)
	c.Y = systems.Wrap(c.Y+dy/scale, c.WorldSize)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = max(c.MinZoom, min(c.MaxZoom, zoom))
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the world center at zoom 1.
func (c *Camera) Reset() {
	c.X = c.WorldSize / 2
	c.Y = c.WorldSize / 2
	c.SetZoom(1)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
