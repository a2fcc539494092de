package game

import (
	"context"
	"fmt"

	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// Start leaves the title screen and begins the opening run.
func (s *Session) Start(ctx context.Context) error {
	if cur := s.machine.Current(); cur != state.Title {
		return fmt.Errorf("%w: start from %s", ErrUnavailable, cur)
	}

	ids := s.story.OpeningRun()
	s.mu.Lock()
	s.resetLocked()
	for _, id := range ids {
		s.lines = append(s.lines, lineRef{nodeID: id, option: -1})
	}
	s.mu.Unlock()

	if err := s.machine.Transition(state.Dialogue, map[string]any{"source": "start_game"}); err != nil {
		return err
	}
	s.logger.Info("Game started", "lines", len(ids))
	if len(ids) == 0 {
		return s.showChoices(nil)
	}
	s.notify()
	return nil
}

// Next advances the current screen: the next dialogue line, the pending
// action once lines run out, or the way out of a death or result screen.
func (s *Session) Next(ctx context.Context) error {
	switch cur := s.machine.Current(); cur {
	case state.Title:
		return s.Start(ctx)
	case state.Death:
		return s.ReturnToTitle(ctx)
	case state.Result:
		return s.returnToChoices(ctx)
	case state.Dialogue:
	default:
		return fmt.Errorf("%w: next in %s", ErrUnavailable, cur)
	}

	s.mu.Lock()
	if s.lineIdx < len(s.lines)-1 {
		s.lineIdx++
		s.mu.Unlock()
		s.notify()
		return nil
	}
	action := s.pending
	s.pending = ""
	s.mu.Unlock()

	if action != "" {
		return s.Dispatch(ctx, action)
	}
	return s.showChoices(nil)
}

// Choose picks the opening choice's option at index.
func (s *Session) Choose(ctx context.Context, index int) (story.Outcome, error) {
	if cur := s.machine.Current(); cur != state.Choice {
		return story.Outcome{}, fmt.Errorf("%w: choose in %s", ErrUnavailable, cur)
	}
	choice, ok := s.story.ChoiceNode()
	if !ok || index < 0 || index >= len(choice.Options) {
		return story.Outcome{}, fmt.Errorf("choice index out of range: %d", index)
	}

	s.mu.Lock()
	if !s.offeredLocked(index) {
		s.mu.Unlock()
		return story.Outcome{}, fmt.Errorf("%w: option %s is not offered", ErrUnavailable, choice.Options[index].ID)
	}
	outcome := s.story.ChoiceOutcomeByIndex(index)
	if outcome.ActionID == ActionStartOOXX {
		s.ooxxOption = index
	}
	s.mu.Unlock()

	log := s.logger.With("option", choice.Options[index].ID, "action_id", outcome.ActionID)
	log.Info("Choice picked")

	if outcome.ResponseText == "" {
		if outcome.ActionID == "" {
			return outcome, s.showChoices(nil)
		}
		return outcome, s.Dispatch(ctx, outcome.ActionID)
	}

	s.mu.Lock()
	s.lines = []lineRef{{option: index}}
	s.lineIdx = 0
	s.pending = outcome.ActionID
	s.mu.Unlock()

	if err := s.moveTo(state.Dialogue, map[string]any{"source": "choice_response", "option": choice.Options[index].ID}); err != nil {
		return outcome, err
	}
	s.notify()
	return outcome, nil
}

// Dispatch runs the flow bound to an action id.
func (s *Session) Dispatch(ctx context.Context, actionID string) error {
	log := s.logger.With("action_id", actionID)
	log.Debug("Dispatching action")

	switch actionID {
	case ActionStartOOXX:
		return s.startOOXX(ctx)
	case ActionTriggerDeath:
		if err := sleep(ctx, s.timing.DeathDelay); err != nil {
			return err
		}
		if err := s.moveTo(state.Death, map[string]any{"source": "trigger_death"}); err != nil {
			return err
		}
		s.notify()
		return nil
	case ActionToBeContinued:
		if err := sleep(ctx, s.timing.NoticeDelay); err != nil {
			return err
		}
		s.mu.Lock()
		s.notice = s.ui(uiToBeContinued)
		s.pending = ActionReturnTitle
		s.lineIdx = max(len(s.lines)-1, 0)
		s.mu.Unlock()
		if err := s.moveTo(state.Dialogue, map[string]any{"source": "to_be_continued"}); err != nil {
			return err
		}
		s.notify()
		return nil
	case ActionPetFox:
		if err := sleep(ctx, s.timing.NoticeDelay); err != nil {
			return err
		}
		s.mu.Lock()
		s.lines = []lineRef{{option: -1, key: petFoxTextKey, fallback: "..."}}
		s.lineIdx = 0
		s.pending = ActionFollowup
		s.mu.Unlock()
		if err := s.moveTo(state.Dialogue, map[string]any{"source": "pet_fox"}); err != nil {
			return err
		}
		s.notify()
		return nil
	case ActionFollowup:
		return s.showChoices(s.followup)
	case ActionBedScene:
		return s.startBedScene(ctx)
	case ActionReturnTitle:
		return s.ReturnToTitle(ctx)
	}

	log.Warn("Unknown action")
	return fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
}

// showChoices opens the choice panel on the offered indices, or on every
// unused option when offered is nil.
func (s *Session) showChoices(offered []int) error {
	if _, ok := s.story.ChoiceNode(); !ok {
		s.logger.Info("Story has no choice, returning to title")
		return s.ReturnToTitle(context.Background())
	}
	s.mu.Lock()
	s.offered = offered
	s.mu.Unlock()
	if err := s.moveTo(state.Choice, map[string]any{"source": "show_choice_panel"}); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ReturnToTitle cancels any running curtain, clears the session and goes
// back to the title screen.
func (s *Session) ReturnToTitle(ctx context.Context) error {
	s.mu.Lock()
	s.fx.Cancel("return_to_title")
	s.resetLocked()
	clear(s.used)
	s.mu.Unlock()

	s.story.Reset("")
	if s.machine.Current() != state.Title {
		if err := s.moveTo(state.Title, map[string]any{"source": "return_to_title"}); err != nil {
			return err
		}
	}
	s.notify()
	return nil
}

// returnToChoices leaves the OOXX result behind a curtain and reopens the
// choice panel without the option that started the minigame.
func (s *Session) returnToChoices(ctx context.Context) error {
	if err := s.moveTo(state.Transition, map[string]any{"label": "return_choices"}); err != nil {
		return err
	}
	ok, err := s.runCurtain(ctx, s.timing.SceneSwap, false, func(token uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.live(token) {
			return
		}
		if s.ooxxOption >= 0 {
			s.used[s.ooxxOption] = true
		}
		s.resetLocked()
	})
	if err != nil || !ok {
		return err
	}
	if len(s.View().Choices) == 0 {
		return s.ReturnToTitle(ctx)
	}
	return s.showChoices(nil)
}

// startBedScene swaps to the bed scene behind its curtain and plays the
// opening bed line before the follow-up panel.
func (s *Session) startBedScene(ctx context.Context) error {
	if s.fx.State().Locked {
		return ErrBusy
	}
	if err := s.moveTo(state.Transition, map[string]any{"label": s.timing.BedEntry.ID}); err != nil {
		return err
	}
	s.notify()

	ok, err := s.runCurtain(ctx, s.timing.BedEntry, false, func(token uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.live(token) {
			return
		}
		s.resetLocked()
		s.lines = []lineRef{{option: -1, key: bedLineKey, fallback: "..."}}
		s.pending = ActionFollowup
	})
	if err != nil || !ok {
		return err
	}
	if err := s.moveTo(state.Dialogue, map[string]any{"source": "bed_scene"}); err != nil {
		return err
	}
	s.logger.Info("Bed scene started")
	s.notify()
	return nil
}

// resetLocked clears per-scene state. Callers hold mu.
func (s *Session) resetLocked() {
	s.lines = nil
	s.lineIdx = 0
	s.pending = ""
	s.notice = ""
	s.board = ooxx.Board{}
	s.aiTurn = false
	s.outcome = nil
	s.resultKey = ""
	s.ooxxOption = -1
	s.offered = nil
}
