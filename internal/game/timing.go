package game

import (
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/transition"
)

// Timing holds the curtain presets and pacing delays of a session.
type Timing struct {
	SceneSwap  transition.Spec
	OOXXEntry  transition.Spec
	OOXXResult transition.Spec
	BedEntry   transition.Spec

	AIResponseDelay   time.Duration
	ResultRevealDelay time.Duration
	DeathDelay        time.Duration
	NoticeDelay       time.Duration
}

// DefaultTiming returns the pacing used in play.
func DefaultTiming() Timing {
	return Timing{
		SceneSwap:  transition.Spec{ID: "scene_swap", FadeIn: 450 * time.Millisecond, Hold: 100 * time.Millisecond, FadeOut: 400 * time.Millisecond},
		OOXXEntry:  transition.Spec{ID: "ooxx_entry", FadeIn: 1200 * time.Millisecond, Hold: 1800 * time.Millisecond, FadeOut: 1200 * time.Millisecond},
		OOXXResult: transition.Spec{ID: "ooxx_result", FadeIn: 350 * time.Millisecond, Hold: 120 * time.Millisecond, FadeOut: 350 * time.Millisecond},
		BedEntry:   transition.Spec{ID: "bed_entry", FadeIn: 700 * time.Millisecond, Hold: 200 * time.Millisecond, FadeOut: 700 * time.Millisecond},

		AIResponseDelay:   500 * time.Millisecond,
		ResultRevealDelay: 120 * time.Millisecond,
		DeathDelay:        time.Second,
		NoticeDelay:       700 * time.Millisecond,
	}
}

// InstantTiming keeps the preset ids but removes every wait.
func InstantTiming() Timing {
	d := DefaultTiming()
	return Timing{
		SceneSwap:  transition.Spec{ID: d.SceneSwap.ID},
		OOXXEntry:  transition.Spec{ID: d.OOXXEntry.ID},
		OOXXResult: transition.Spec{ID: d.OOXXResult.ID},
		BedEntry:   transition.Spec{ID: d.BedEntry.ID},
	}
}
