package telemetry

import (
	"testing"

	"github.com/pthm-cable/tgenesis/config"
)

func testBookmarksConfig() config.BookmarksConfig {
	return config.BookmarksConfig{
		Dominance:     config.DominanceConfig{Share: 0.6, MinPopulation: 50},
		ReactionBurst: config.ReactionBurstConfig{Multiplier: 3, MinReactions: 50},
	}
}

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func windowFrom(end int32, counts SpeciesCounts) WindowStats {
	dominant, share := counts.Dominant()
	return WindowStats{
		WindowEndTick: end,
		Population:    counts.Total(),
		Species:       len(counts),
		Counts:        counts,
		Alive:         counts.Alive(),
		Entropy:       counts.Entropy(),
		Dominant:      dominant,
		DominantShare: share,
	}
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	bd.Check(windowFrom(300, SpeciesCounts{10, 5, 20}))
	bookmarks := bd.Check(windowFrom(600, SpeciesCounts{15, 0, 20}))

	if !hasBookmark(bookmarks, BookmarkSpeciesExtinction) {
		t.Fatal("expected species_extinction bookmark")
	}

	// Already extinct species do not trigger again
	bookmarks = bd.Check(windowFrom(900, SpeciesCounts{15, 0, 20}))
	if hasBookmark(bookmarks, BookmarkSpeciesExtinction) {
		t.Error("extinction re-triggered for a species that was already gone")
	}
}

func TestBookmarkDetector_ExtinctionIgnoresResize(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	bd.Check(windowFrom(300, SpeciesCounts{10, 5, 20}))
	bookmarks := bd.Check(windowFrom(600, SpeciesCounts{10, 0}))

	if hasBookmark(bookmarks, BookmarkSpeciesExtinction) {
		t.Error("changing the species count should not count as extinction")
	}
}

func TestBookmarkDetector_Dominance(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	tests := []struct {
		name   string
		counts SpeciesCounts
		want   bool
	}{
		{"balanced", SpeciesCounts{40, 30, 30}, false},
		{"one species takes over", SpeciesCounts{80, 10, 10}, true},
		{"still dominant", SpeciesCounts{85, 10, 5}, false},
		{"balance restored", SpeciesCounts{30, 40, 30}, false},
		{"dominant again", SpeciesCounts{10, 80, 10}, true},
		{"below min population", SpeciesCounts{30, 1, 1}, false},
	}

	for i, tt := range tests {
		got := hasBookmark(bd.Check(windowFrom(int32(i*300), tt.counts)), BookmarkSpeciesDominance)
		if got != tt.want {
			t.Errorf("%s: dominance bookmark = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBookmarkDetector_ReactionBurst(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	for i := 0; i < 4; i++ {
		stats := windowFrom(int32(i*300), SpeciesCounts{40, 40, 40})
		stats.Reactions = 300
		stats.ReactionsPerTick = 1
		if hasBookmark(bd.Check(stats), BookmarkReactionBurst) {
			t.Fatalf("window %d: unexpected reaction_burst at steady rate", i)
		}
	}

	burst := windowFrom(1200, SpeciesCounts{40, 40, 40})
	burst.Reactions = 3000
	burst.ReactionsPerTick = 10
	if !hasBookmark(bd.Check(burst), BookmarkReactionBurst) {
		t.Error("expected reaction_burst bookmark at 10x average")
	}
}

func TestBookmarkDetector_ReactionBurstNeedsMinimum(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	for i := 0; i < 4; i++ {
		stats := windowFrom(int32(i*300), SpeciesCounts{40, 40, 40})
		stats.Reactions = 3
		stats.ReactionsPerTick = 0.01
		bd.Check(stats)
	}

	burst := windowFrom(1200, SpeciesCounts{40, 40, 40})
	burst.Reactions = 30 // 10x the rate but under MinReactions
	burst.ReactionsPerTick = 0.1
	if hasBookmark(bd.Check(burst), BookmarkReactionBurst) {
		t.Error("burst below min_reactions should not trigger")
	}
}

func TestBookmarkDetector_StableMixture(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	triggered := -1
	for i := 0; i < 12; i++ {
		bms := bd.Check(windowFrom(int32(i*300), SpeciesCounts{50, 50}))
		if hasBookmark(bms, BookmarkStableMixture) {
			if triggered >= 0 {
				t.Fatalf("stable_mixture triggered twice (windows %d and %d)", triggered, i)
			}
			triggered = i
		}
	}

	// Four windows fill the comparison history, then five stable windows.
	if triggered != 8 {
		t.Errorf("stable_mixture triggered at window %d, want 8", triggered)
	}
}

func TestBookmarkDetector_StableMixtureNeedsTwoSpecies(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarksConfig())

	for i := 0; i < 12; i++ {
		if hasBookmark(bd.Check(windowFrom(int32(i*300), SpeciesCounts{100, 0})), BookmarkStableMixture) {
			t.Fatal("a single surviving species is not a mixture")
		}
	}
}

func TestBookmarkDetector_RecentOrder(t *testing.T) {
	bd := NewBookmarkDetector(5, testBookmarksConfig())
	for i := 0; i < 7; i++ {
		bd.addToHistory(WindowStats{WindowEndTick: int32(i)})
	}

	got := bd.recent(3)
	want := []int32{4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("len(recent) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].WindowEndTick != want[i] {
			t.Errorf("recent[%d] = %d, want %d", i, got[i].WindowEndTick, want[i])
		}
	}
}
