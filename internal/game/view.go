package game

import (
	"slices"

	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
)

// Choice is one option shown on the choice panel.
type Choice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// View is a render-ready snapshot of a session in its active language.
type View struct {
	SessionID string          `json:"sessionId"`
	State     state.GameState `json:"state"`
	Lang      string          `json:"lang"`
	Languages []string        `json:"languages"`
	Busy      bool            `json:"busy"` // A curtain transition is running

	StartLabel string `json:"startLabel,omitempty"`
	Speaker    string `json:"speaker,omitempty"`
	Line       string `json:"line,omitempty"`
	LineIndex  int    `json:"lineIndex"`
	LineCount  int    `json:"lineCount"`
	Notice     string `json:"notice,omitempty"`

	ChoiceTitle string   `json:"choiceTitle,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`

	OOXXTitle string     `json:"ooxxTitle,omitempty"`
	Board     ooxx.Board `json:"board"`
	WinLine   []int      `json:"winLine,omitempty"`
	Status    string     `json:"status,omitempty"`
	Result    string     `json:"result,omitempty"`

	DeathText string `json:"deathText,omitempty"`
}

// View renders the current session state.
func (s *Session) View() View {
	strs := s.story.UIBundle()
	v := View{
		SessionID:  s.id.String(),
		State:      s.machine.Current(),
		Lang:       s.story.Language(),
		Languages:  s.story.Languages(),
		Busy:       s.fx.State().Locked,
		StartLabel: strs.StartBtn,
		Speaker:    strs.Speaker,
		DeathText:  strs.DeathText,
		OOXXTitle:  s.ui(uiOOXXTitle),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v.LineCount = len(s.lines)
	v.LineIndex = s.lineIdx
	if s.lineIdx < len(s.lines) {
		v.Line = s.lineText(s.lines[s.lineIdx])
	}
	v.Notice = s.notice

	if choice, ok := s.story.ChoiceNode(); ok {
		v.ChoiceTitle = s.story.TextByKey(choice.TitleKey)
		for i, opt := range choice.Options {
			if !s.offeredLocked(i) {
				continue
			}
			v.Choices = append(v.Choices, Choice{Index: i, Text: s.story.TextByKey(opt.TextKey)})
		}
	}

	v.Board = s.board
	if s.outcome != nil {
		v.WinLine = s.outcome.Line[:]
	}
	switch {
	case s.resultKey != "":
		v.Result = s.ui(s.resultKey)
		v.Status = v.Result
	case s.aiTurn:
		v.Status = s.ui(uiOOXXAITurn)
	case v.State == state.OOXX:
		v.Status = s.ui(uiOOXXYourTurn)
	}
	return v
}

// offeredLocked reports whether option i is on the panel. Callers hold mu.
func (s *Session) offeredLocked(i int) bool {
	if s.used[i] {
		return false
	}
	return s.offered == nil || slices.Contains(s.offered, i)
}

// lineText resolves ref in the active language. Callers hold mu.
func (s *Session) lineText(ref lineRef) string {
	switch {
	case ref.key != "":
		if t := s.story.TextByKey(ref.key); t != "" {
			return t
		}
		return ref.fallback
	case ref.nodeID != "":
		n, ok := s.story.Node(ref.nodeID)
		if !ok {
			return ""
		}
		return s.story.TextByKey(n.TextKey)
	case ref.option >= 0:
		return s.story.ChoiceOutcomeByIndex(ref.option).ResponseText
	}
	return ""
}
