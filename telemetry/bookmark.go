package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tgenesis/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSpeciesExtinction BookmarkType = "species_extinction"
	BookmarkSpeciesDominance  BookmarkType = "species_dominance"
	BookmarkReactionBurst     BookmarkType = "reaction_burst"
	BookmarkStableMixture     BookmarkType = "stable_mixture"
)

// stableWindows is how many consecutive low-variance windows make a stable mixture.
const stableWindows = 5

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	last             *WindowStats
	dominantSpecies  int // species currently flagged as dominant, -1 when none
	stableWindowsRun int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < stableWindows {
		historySize = stableWindows
	}
	return &BookmarkDetector{
		cfg:             cfg,
		history:         make([]WindowStats, historySize),
		historySize:     historySize,
		dominantSpecies: -1,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.last != nil {
		bookmarks = append(bookmarks, bd.checkExtinction(stats)...)
	}
	if b := bd.checkDominance(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkReactionBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkStableMixture(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	last := stats
	bd.last = &last

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	n = min(n, len(bd.getHistory()))
	out := make([]WindowStats, 0, n)
	for k := n; k > 0; k-- {
		out = append(out, bd.history[(bd.historyIdx-k+bd.historySize)%bd.historySize])
	}
	return out
}

// checkExtinction flags every species that had particles last window and
// has none now. Resizing the species set is not an extinction.
func (bd *BookmarkDetector) checkExtinction(stats WindowStats) []Bookmark {
	prev := bd.last
	if prev.Species != stats.Species {
		return nil
	}

	var out []Bookmark
	for sp, n := range stats.Counts {
		if n == 0 && prev.Counts[sp] > 0 {
			out = append(out, Bookmark{
				Type:        BookmarkSpeciesExtinction,
				Tick:        stats.WindowEndTick,
				Description: fmt.Sprintf("Species %d went extinct (was %d)", sp, prev.Counts[sp]),
			})
		}
	}
	return out
}

// checkDominance triggers once when a species crosses the configured share,
// and re-arms when no species holds it.
func (bd *BookmarkDetector) checkDominance(stats WindowStats) *Bookmark {
	cfg := bd.cfg.Dominance
	if stats.Population < cfg.MinPopulation || stats.Species < 2 {
		bd.dominantSpecies = -1
		return nil
	}
	if stats.DominantShare < cfg.Share {
		bd.dominantSpecies = -1
		return nil
	}
	if stats.Dominant == bd.dominantSpecies {
		return nil
	}

	bd.dominantSpecies = stats.Dominant
	return &Bookmark{
		Type:        BookmarkSpeciesDominance,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Species %d holds %.0f%% of %d particles", stats.Dominant, stats.DominantShare*100, stats.Population),
	}
}

func (bd *BookmarkDetector) checkReactionBurst(stats WindowStats) *Bookmark {
	cfg := bd.cfg.ReactionBurst
	history := bd.getHistory()
	if len(history) < 3 || stats.Reactions < cfg.MinReactions {
		return nil
	}

	rates := make([]float64, len(history))
	for i, h := range history {
		rates[i] = h.ReactionsPerTick
	}
	avg := stat.Mean(rates, nil)
	if avg == 0 {
		return nil
	}

	if stats.ReactionsPerTick > avg*cfg.Multiplier {
		return &Bookmark{
			Type:        BookmarkReactionBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Reaction rate %.2f/tick is %.1fx average (%.2f)", stats.ReactionsPerTick, stats.ReactionsPerTick/avg, avg),
		}
	}
	return nil
}

// checkStableMixture triggers once after the species entropy has had a
// coefficient of variation below 5% for stableWindows consecutive windows
// with at least two species alive.
func (bd *BookmarkDetector) checkStableMixture(stats WindowStats) *Bookmark {
	if stats.Alive < 2 {
		bd.stableWindowsRun = 0
		return nil
	}

	history := bd.recent(stableWindows - 1)
	if len(history) < stableWindows-1 {
		return nil
	}

	recent := make([]float64, 0, stableWindows)
	for _, h := range history {
		recent = append(recent, h.Entropy)
	}
	recent = append(recent, stats.Entropy)

	mean, std := stat.MeanStdDev(recent, nil)
	if mean > 0 && std/mean < 0.05 {
		bd.stableWindowsRun++
	} else {
		bd.stableWindowsRun = 0
	}

	if bd.stableWindowsRun == stableWindows {
		return &Bookmark{
			Type:        BookmarkStableMixture,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable mixture of %d species (entropy %.3f) over %d+ windows", stats.Alive, stats.Entropy, stableWindows),
		}
	}
	return nil
}
