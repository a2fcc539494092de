// Package game orchestrates one play session: it drives the story engine,
// the state machine, the curtain transitions and the OOXX minigame the way
// the presentation layer needs them.
package game

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/chapter-engine/internal/logger"
	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/jwebster45206/chapter-engine/pkg/transition"
)

// Action ids dispatched by the session. Any other id is reported as
// unknown.
const (
	ActionStartOOXX     = "start_ooxx"
	ActionTriggerDeath  = "trigger_death"
	ActionToBeContinued = "show_to_be_continued"
	ActionPetFox        = "show_pet_fox"
	ActionReturnTitle   = "return_title"
	ActionFollowup      = "show_followup_choices"
	ActionBedScene      = "start_bed_scene"
)

// DefaultFollowupOptions are the option indices offered again after a
// follow-up line such as the pet-fox reply.
var DefaultFollowupOptions = []int{0, 2, 3}

var (
	ErrBusy          = errors.New("transition in progress")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnavailable   = errors.New("not available in current state")
)

// UI keys read from the active language's strings.ui table.
const (
	uiOOXXTitle     = "ooxxTitle"
	uiOOXXYourTurn  = "ooxxYourTurn"
	uiOOXXAITurn    = "ooxxAiTurn"
	uiOOXXDraw      = "ooxxDraw"
	uiOOXXLose      = "ooxxLose"
	uiOOXXWin       = "ooxxWin"
	uiToBeContinued = "toBeContinued"

	petFoxTextKey = "resp_2_after_pet"
	bedLineKey    = "bed_line_1"
)

var uiFallback = map[string]string{
	uiOOXXTitle:     "OOXX",
	uiOOXXYourTurn:  "Your turn",
	uiOOXXAITurn:    "Thinking...",
	uiOOXXDraw:      "Draw",
	uiOOXXLose:      "You lose",
	uiOOXXWin:       "You win",
	uiToBeContinued: "To Be Continued...",
}

// lineRef points at one dialogue line. Text is resolved at render time so
// a language switch re-renders the current line.
type lineRef struct {
	nodeID   string
	option   int
	key      string
	fallback string
}

// Session is one play-through of a loaded chapter.
type Session struct {
	id       uuid.UUID
	story    *story.Engine
	machine  *state.Machine
	fx       *transition.Engine
	curtain  transition.Curtain
	timing   Timing
	logger   *slog.Logger
	onChange func(View)
	followup []int

	mu         sync.Mutex
	lines      []lineRef
	lineIdx    int
	pending    string
	notice     string
	board      ooxx.Board
	aiTurn     bool
	outcome    *ooxx.Outcome
	resultKey  string
	ooxxOption int
	used       map[int]bool
	offered    []int // nil offers every unused option
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTiming overrides the pacing presets.
func WithTiming(t Timing) Option {
	return func(s *Session) { s.timing = t }
}

// WithCurtain sets the curtain driven by transitions. The default is an
// in-memory overlay.
func WithCurtain(c transition.Curtain) Option {
	return func(s *Session) {
		if c != nil {
			s.curtain = c
		}
	}
}

// WithFollowupOptions sets the option indices shown by
// show_followup_choices.
func WithFollowupOptions(indices ...int) Option {
	return func(s *Session) { s.followup = slices.Clone(indices) }
}

// WithOnChange registers a callback invoked with a fresh view after every
// visible change. It runs on whichever goroutine made the change.
func WithOnChange(fn func(View)) Option {
	return func(s *Session) { s.onChange = fn }
}

// New creates a session on the title screen.
func New(engine *story.Engine, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		story:      engine,
		machine:    state.NewMachine(state.Title),
		timing:     DefaultTiming(),
		logger:     slog.Default(),
		ooxxOption: -1,
		used:       make(map[int]bool),
		followup:   slices.Clone(DefaultFollowupOptions),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.WithSession(s.logger, s.id)
	if s.curtain == nil {
		s.curtain = transition.NewOverlay(nil)
	}
	s.fx = transition.New(s.curtain, transition.WithLogger(s.logger), transition.WithLabel("OOXX"))

	s.machine.Subscribe(func(c state.Change) {
		s.logger.Debug("Game state changed", "prev", c.Prev, "next", c.Next, "meta", c.Meta)
	})
	s.logger.Info("Session created", "lang", engine.Language())
	return s
}

func (s *Session) ID() uuid.UUID                   { return s.id }
func (s *Session) Story() *story.Engine            { return s.story }
func (s *Session) Machine() *state.Machine         { return s.machine }
func (s *Session) Transitions() *transition.Engine { return s.fx }

// SetLanguage switches the active language. The current line re-renders
// in the new language.
func (s *Session) SetLanguage(lang string) bool {
	if !s.story.SetLanguage(lang) {
		return false
	}
	s.logger.Info("Language changed", "lang", lang)
	s.notify()
	return true
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.View())
	}
}

func (s *Session) ui(key string) string {
	if v := s.story.UIBundle().UI[key]; v != "" {
		return v
	}
	return uiFallback[key]
}

// moveTo commits target, routing through one intermediate state when the
// allow-list has no direct edge.
func (s *Session) moveTo(target state.GameState, meta map[string]any) error {
	if s.machine.CanTransition(target) {
		return s.machine.Transition(target, meta)
	}
	from := s.machine.Current()
	for _, mid := range []state.GameState{state.Transition, state.Dialogue} {
		if !s.machine.CanTransition(mid) {
			continue
		}
		for _, next := range state.Allowed(mid) {
			if next == target {
				if err := s.machine.Transition(mid, meta); err != nil {
					return err
				}
				return s.machine.Transition(target, meta)
			}
		}
	}
	return &state.StateError{From: from, To: target}
}

// runCurtain runs spec around onBlack. A cancelled curtain reports
// ok=false with no error.
func (s *Session) runCurtain(ctx context.Context, spec transition.Spec, queued bool, onBlack func(token uint64)) (bool, error) {
	spec.OnBlack = func(ctx context.Context, token uint64) error {
		onBlack(token)
		return ctx.Err()
	}
	var res transition.Result
	if queued {
		res = s.fx.RunQueued(ctx, spec)
	} else {
		res = s.fx.Run(ctx, spec)
	}
	switch {
	case res.Err != nil:
		return false, res.Err
	case res.Cancelled && res.Reason == transition.ReasonLocked:
		return false, ErrBusy
	case res.Cancelled:
		s.logger.Debug("Curtain cancelled", "transition", spec.ID, "reason", res.Reason)
		return false, nil
	}
	return true, nil
}

// live reports whether token still owns the curtain. Callers hold mu so a
// concurrent reset cannot interleave with their mutation.
func (s *Session) live(token uint64) bool {
	return s.fx.State().Token == token
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
