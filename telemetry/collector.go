package telemetry

import "github.com/pthm-cable/tgenesis/components"

// Collector accumulates events within step windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	reactions int
	added     int
	removed   int
	resets    int
	loads     int
}

// NewCollector creates a new stats collector that flushes every
// windowTicks steps.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowDurationTicks: int32(windowTicks)}
}

// Record adds an event to the current window.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventReaction:
		c.reactions += e.Count
	case EventAdd:
		c.added += e.Count
	case EventRemove:
		c.removed += e.Count
	case EventReset:
		c.resets++
	case EventRulesLoaded:
		c.loads++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the published particles and resets
// counters for the next window. m is the species count; particles with a
// species >= m are ignored.
func (c *Collector) Flush(currentTick int32, particles []components.Particle, m int) WindowStats {
	counts := make(SpeciesCounts, m)
	speeds := make([]float64, 0, len(particles))
	for i := range particles {
		p := &particles[i]
		if int(p.Species) < m {
			counts[p.Species]++
		}
		speeds = append(speeds, speed(p.VX, p.VY))
	}

	dominant, share := counts.Dominant()
	mean, p10, p50, p90 := ComputeSpeedStats(speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Population:     len(particles),
		Species:        m,
		Counts:         counts,
		Alive:          counts.Alive(),
		Entropy:        counts.Entropy(),
		Dominant:       dominant,
		DominantShare:  share,
		SpeedMean:      mean,
		SpeedP10:       p10,
		SpeedP50:       p50,
		SpeedP90:       p90,
		Reactions:      c.reactions,
		Added:          c.added,
		Removed:        c.removed,
		Resets:         c.resets,
		RulesLoaded:    c.loads,
	}
	if ticks := currentTick - c.windowStartTick; ticks > 0 {
		stats.ReactionsPerTick = float64(c.reactions) / float64(ticks)
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.reactions = 0
	c.added = 0
	c.removed = 0
	c.resets = 0
	c.loads = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
