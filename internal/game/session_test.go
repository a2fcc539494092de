package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContent(lang, suffix string) *story.Content {
	return &story.Content{
		Meta:      story.Meta{ChapterID: "chapter1", Lang: lang},
		EntryNode: "l1",
		Strings: story.Strings{
			StartBtn:  "Start",
			DeathText: "You died",
			Speaker:   "Fox",
			UI:        map[string]string{"ooxxLose": "Lost" + suffix, "toBeContinued": "TBC" + suffix},
			Text: map[string]string{
				"t1":               "Hello." + suffix,
				"t2":               "Welcome." + suffix,
				"title":            "What now?",
				"o_pet":            "Pet the fox",
				"o_play":           "Play",
				"o_run":            "Run",
				"o_wait":           "Wait",
				"r_pet":            "The fox purrs." + suffix,
				"r_wait":           "Time passes." + suffix,
				"resp_2_after_pet": "It follows you." + suffix,
				"bed_line_1":       "Only the tail." + suffix,
			},
		},
		Nodes: []story.Node{
			{ID: "l1", Type: story.NodeLine, TextKey: "t1", NextNodeID: "l2"},
			{ID: "l2", Type: story.NodeLine, TextKey: "t2", NextNodeID: "c1"},
			{ID: "c1", Type: story.NodeChoice, TitleKey: "title", Options: []story.ChoiceOption{
				{ID: "pet", TextKey: "o_pet", NextNodeID: "rp1"},
				{ID: "play", TextKey: "o_play", ActionID: ActionStartOOXX},
				{ID: "run", TextKey: "o_run", NextNodeID: "j1"},
				{ID: "wait", TextKey: "o_wait", NextNodeID: "rw1"},
			}},
			{ID: "rp1", Type: story.NodeLine, TextKey: "r_pet", NextNodeID: "a_fox"},
			{ID: "a_fox", Type: story.NodeAction, ActionID: ActionPetFox},
			{ID: "j1", Type: story.NodeJump, NextNodeID: "a_death"},
			{ID: "a_death", Type: story.NodeAction, ActionID: ActionTriggerDeath},
			{ID: "rw1", Type: story.NodeLine, TextKey: "r_wait", NextNodeID: "a_tbc"},
			{ID: "a_tbc", Type: story.NodeAction, ActionID: ActionToBeContinued},
		},
	}
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	set := &story.Set{
		Base: "tw",
		Languages: map[string]*story.Content{
			"tw": testContent("tw", ""),
			"en": testContent("en", " (en)"),
		},
	}
	opts = append([]Option{WithLogger(quietLogger()), WithTiming(InstantTiming())}, opts...)
	return New(story.NewEngine(set, "tw"), opts...)
}

// toChoices plays the opening run through to the choice panel.
func toChoices(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Next(ctx))
	require.NoError(t, s.Next(ctx))
	require.Equal(t, state.Choice, s.Machine().Current())
}

func TestSession_OpeningRun(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	v := s.View()
	assert.Equal(t, state.Title, v.State)
	assert.Equal(t, "Start", v.StartLabel)
	assert.Equal(t, s.ID().String(), v.SessionID)

	require.NoError(t, s.Start(ctx))
	v = s.View()
	assert.Equal(t, state.Dialogue, v.State)
	assert.Equal(t, "Hello.", v.Line)
	assert.Equal(t, "Fox", v.Speaker)
	assert.Equal(t, 0, v.LineIndex)
	assert.Equal(t, 2, v.LineCount)

	require.NoError(t, s.Next(ctx))
	assert.Equal(t, "Welcome.", s.View().Line)

	require.NoError(t, s.Next(ctx))
	v = s.View()
	assert.Equal(t, state.Choice, v.State)
	assert.Equal(t, "What now?", v.ChoiceTitle)
	require.Len(t, v.Choices, 4)
	assert.Equal(t, Choice{Index: 1, Text: "Play"}, v.Choices[1])
}

func TestSession_StartOnlyFromTitle(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrUnavailable)
}

func TestSession_LanguageSwitchRerendersLine(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Start(context.Background()))

	assert.True(t, s.SetLanguage("en"))
	assert.Equal(t, "Hello. (en)", s.View().Line)
	assert.False(t, s.SetLanguage("fr"))
	assert.Equal(t, "en", s.View().Lang)
}

func TestSession_PetFox(t *testing.T) {
	s := newTestSession(t)
	toChoices(t, s)
	ctx := context.Background()

	out, err := s.Choose(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ActionPetFox, out.ActionID)
	assert.Equal(t, "The fox purrs.", s.View().Line)

	require.NoError(t, s.Next(ctx))
	v := s.View()
	assert.Equal(t, state.Dialogue, v.State)
	assert.Equal(t, "It follows you.", v.Line)

	require.NoError(t, s.Next(ctx))
	v = s.View()
	assert.Equal(t, state.Choice, v.State)
	require.Len(t, v.Choices, 3)
	for i, want := range []int{0, 2, 3} {
		assert.Equal(t, want, v.Choices[i].Index)
	}

	_, err = s.Choose(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSession_FollowupOptions(t *testing.T) {
	s := newTestSession(t, WithFollowupOptions(1, 3))
	toChoices(t, s)

	require.NoError(t, s.Dispatch(context.Background(), ActionFollowup))
	v := s.View()
	assert.Equal(t, state.Choice, v.State)
	assert.Equal(t, []Choice{{Index: 1, Text: "Play"}, {Index: 3, Text: "Wait"}}, v.Choices)
}

func TestSession_BedScene(t *testing.T) {
	s := newTestSession(t)
	toChoices(t, s)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, ActionBedScene))
	v := s.View()
	assert.Equal(t, state.Dialogue, v.State)
	assert.Equal(t, "Only the tail.", v.Line)
	assert.False(t, v.Busy)

	require.NoError(t, s.Next(ctx))
	v = s.View()
	assert.Equal(t, state.Choice, v.State)
	assert.Len(t, v.Choices, 3)

	_, err := s.Choose(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, s.Next(ctx))
	assert.Equal(t, "TBC", s.View().Notice)
	require.NoError(t, s.Next(ctx))
	assert.Equal(t, state.Title, s.Machine().Current())
}

func TestSession_Death(t *testing.T) {
	s := newTestSession(t)
	toChoices(t, s)
	ctx := context.Background()

	out, err := s.Choose(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ActionTriggerDeath, out.ActionID)
	v := s.View()
	assert.Equal(t, state.Death, v.State)
	assert.Equal(t, "You died", v.DeathText)

	require.NoError(t, s.Next(ctx))
	assert.Equal(t, state.Title, s.Machine().Current())
}

func TestSession_ToBeContinued(t *testing.T) {
	s := newTestSession(t)
	toChoices(t, s)
	ctx := context.Background()

	_, err := s.Choose(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Time passes.", s.View().Line)

	require.NoError(t, s.Next(ctx))
	v := s.View()
	assert.Equal(t, state.Dialogue, v.State)
	assert.Equal(t, "TBC", v.Notice)

	require.NoError(t, s.Next(ctx))
	v = s.View()
	assert.Equal(t, state.Title, v.State)
	assert.Empty(t, v.Notice)
	assert.Zero(t, v.LineCount)
}

func TestSession_OOXXRound(t *testing.T) {
	s := newTestSession(t)
	toChoices(t, s)
	ctx := context.Background()

	_, err := s.Choose(ctx, 1)
	require.NoError(t, err)
	v := s.View()
	require.Equal(t, state.OOXX, v.State)
	assert.Equal(t, ooxx.AI, v.Board[4], "AI opens in the centre")
	assert.Equal(t, 1, v.Board.Count(ooxx.AI))
	assert.Equal(t, "Your turn", v.Status)
	assert.Zero(t, v.LineCount)

	for s.Machine().Current() == state.OOXX {
		cells := s.View().Board.EmptyCells()
		require.NotEmpty(t, cells)
		require.NoError(t, s.Place(ctx, cells[0]))
	}

	v = s.View()
	require.Equal(t, state.Result, v.State)
	assert.Equal(t, "Lost", v.Result)
	assert.Len(t, v.WinLine, 3)
	for _, i := range v.WinLine {
		assert.Equal(t, ooxx.AI, v.Board[i])
	}

	require.NoError(t, s.Next(ctx))
	v = s.View()
	assert.Equal(t, state.Choice, v.State)
	require.Len(t, v.Choices, 3)
	for _, c := range v.Choices {
		assert.NotEqual(t, 1, c.Index, "played option is hidden")
	}
	_, err = s.Choose(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSession_PlaceErrors(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	assert.ErrorIs(t, s.Place(ctx, 0), ErrUnavailable)

	toChoices(t, s)
	_, err := s.Choose(ctx, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Place(ctx, 4), ooxx.ErrOccupied)
	assert.ErrorIs(t, s.Place(ctx, 9), ooxx.ErrOutOfRange)
	assert.Equal(t, 1, s.View().Board.Count(ooxx.AI))
}

func TestSession_ChooseErrors(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	_, err := s.Choose(ctx, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	toChoices(t, s)
	_, err = s.Choose(ctx, 7)
	assert.ErrorContains(t, err, "out of range")
}

func TestSession_UnknownAction(t *testing.T) {
	s := newTestSession(t)
	err := s.Dispatch(context.Background(), "summon_dragon")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.ErrorContains(t, err, "summon_dragon")
}

func TestSession_ReturnToTitleClearsUsedOptions(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	toChoices(t, s)

	_, err := s.Choose(ctx, 1)
	require.NoError(t, err)
	for s.Machine().Current() == state.OOXX {
		require.NoError(t, s.Place(ctx, s.View().Board.EmptyCells()[0]))
	}
	require.NoError(t, s.Next(ctx))
	require.Len(t, s.View().Choices, 3)

	require.NoError(t, s.ReturnToTitle(ctx))
	toChoices(t, s)
	assert.Len(t, s.View().Choices, 4)
}

func TestSession_OnChange(t *testing.T) {
	var mu sync.Mutex
	var states []state.GameState
	s := newTestSession(t, WithOnChange(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, v.State)
	}))

	toChoices(t, s)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []state.GameState{state.Dialogue, state.Dialogue, state.Choice}, states)
}

// gateCurtain blocks every visible fade until its context is cancelled.
type gateCurtain struct {
	entered chan struct{}
	once    sync.Once
}

func (c *gateCurtain) SetVisible(bool) {}

func (c *gateCurtain) Fade(ctx context.Context, visible bool, _ time.Duration) error {
	if !visible {
		return nil
	}
	c.once.Do(func() { close(c.entered) })
	<-ctx.Done()
	return ctx.Err()
}

func TestSession_ReturnToTitleCancelsEntryCurtain(t *testing.T) {
	timing := InstantTiming()
	timing.OOXXEntry.FadeIn = time.Second
	curtain := &gateCurtain{entered: make(chan struct{})}
	s := newTestSession(t, WithTiming(timing), WithCurtain(curtain))
	toChoices(t, s)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Choose(ctx, 1)
		done <- err
	}()

	select {
	case <-curtain.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("entry curtain never started")
	}
	assert.True(t, s.View().Busy)
	assert.Equal(t, state.Transition, s.Machine().Current())

	_, err := s.Choose(ctx, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, s.ReturnToTitle(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled curtain did not return")
	}

	v := s.View()
	assert.Equal(t, state.Title, v.State)
	assert.False(t, v.Busy)
	assert.Zero(t, v.Board.Count(ooxx.AI), "board untouched by the cancelled attempt")
}
