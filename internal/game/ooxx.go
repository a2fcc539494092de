package game

import (
	"context"
	"fmt"

	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
)

// startOOXX runs the entry curtain. The board is cleared and the AI opens
// while the screen is black, so the first visible frame already shows its
// piece.
func (s *Session) startOOXX(ctx context.Context) error {
	if s.fx.State().Locked {
		return ErrBusy
	}
	if err := s.moveTo(state.Transition, map[string]any{"label": s.timing.OOXXEntry.ID}); err != nil {
		return err
	}
	s.notify()

	ok, err := s.runCurtain(ctx, s.timing.OOXXEntry, false, func(token uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.live(token) {
			return
		}
		s.lines = nil
		s.lineIdx = 0
		s.notice = ""
		s.outcome = nil
		s.resultKey = ""
		s.aiTurn = false
		s.board = ooxx.Board{}
		s.board[ooxx.BestMove(s.board)] = ooxx.AI
	})
	if err != nil || !ok {
		return err
	}

	if err := s.moveTo(state.OOXX, map[string]any{"source": "ooxx_entry"}); err != nil {
		return err
	}
	s.logger.Info("OOXX started", "board", s.boardString())
	s.notify()
	return nil
}

// Place puts the human mark at cell idx and, unless that ends the game,
// answers with the AI's move after the response delay.
func (s *Session) Place(ctx context.Context, idx int) error {
	if cur := s.machine.Current(); cur != state.OOXX {
		return fmt.Errorf("%w: place in %s", ErrUnavailable, cur)
	}

	s.mu.Lock()
	if s.aiTurn || s.resultKey != "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: not your turn", ErrUnavailable)
	}
	next, err := s.board.Place(idx, ooxx.Human)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("place %d: %w", idx, err)
	}
	s.board = next
	over := ooxx.Over(next)
	s.aiTurn = !over
	s.mu.Unlock()

	s.logger.Debug("Human placed", "cell", idx)
	s.notify()
	if over {
		return s.finishOOXX(ctx)
	}

	if err := sleep(ctx, s.timing.AIResponseDelay); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.aiTurn || s.machine.Current() != state.OOXX {
		// Reset while the AI was thinking.
		s.mu.Unlock()
		return nil
	}
	move := ooxx.BestMove(s.board)
	if move >= 0 {
		s.board[move] = ooxx.AI
	}
	s.aiTurn = false
	over = ooxx.Over(s.board)
	s.mu.Unlock()

	s.logger.Debug("AI placed", "cell", move)
	s.notify()
	if over {
		return s.finishOOXX(ctx)
	}
	return nil
}

// finishOOXX reveals the outcome, then hands over to the result screen
// behind a queued curtain.
func (s *Session) finishOOXX(ctx context.Context) error {
	s.mu.Lock()
	s.outcome = ooxx.CheckTerminal(s.board)
	switch {
	case s.outcome == nil:
		s.resultKey = uiOOXXDraw
	case s.outcome.Winner == ooxx.AI:
		s.resultKey = uiOOXXLose
	default:
		s.resultKey = uiOOXXWin
	}
	result := s.resultKey
	s.mu.Unlock()

	s.logger.Info("OOXX finished", "result", result, "board", s.boardString())
	s.notify()

	if err := sleep(ctx, s.timing.ResultRevealDelay); err != nil {
		return err
	}
	if s.machine.Current() != state.OOXX {
		return nil
	}
	if err := s.moveTo(state.Transition, map[string]any{"label": s.timing.OOXXResult.ID}); err != nil {
		return err
	}
	ok, err := s.runCurtain(ctx, s.timing.OOXXResult, true, func(uint64) {})
	if err != nil || !ok {
		return err
	}
	if err := s.moveTo(state.Result, map[string]any{"result": result}); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Session) boardString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.String()
}
