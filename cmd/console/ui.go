package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/chapter-engine/internal/game"
	"github.com/jwebster45206/chapter-engine/pkg/ooxx"
	"github.com/jwebster45206/chapter-engine/pkg/state"
	"github.com/jwebster45206/chapter-engine/pkg/transition"
	"github.com/muesli/reflow/wordwrap"
)

const frameInterval = 50 * time.Millisecond

// ConsoleUI is the BubbleTea model that plays a chapter.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	session      *game.Session
	overlay      *transition.Overlay
	view         game.View
	mainViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error

	// Selection on the choice panel and the OOXX board
	cursor int

	// Number of session calls still running
	running int

	showQuitModal bool
}

type viewMsg game.View

type actionDoneMsg struct {
	err error
}

type frameMsg struct{}

var (
	mainPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	curtainStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("0")).
			Foreground(lipgloss.Color("236"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(session *game.Session, overlay *transition.Overlay) ConsoleUI {
	mainVp := viewport.New(50, 20)
	mainVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		session:      session,
		overlay:      overlay,
		view:         session.View(),
		mainViewport: mainVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return frameTick()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var vpCmd, mvCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		mainWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - mainWidth - 6
		m.mainViewport.Width = mainWidth - 2
		m.mainViewport.Height = m.height - 5
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.ready = true
		m.refresh()

	case viewMsg:
		prev := m.view.State
		m.view = game.View(msg)
		if m.view.State != prev {
			m.cursor = defaultCursor(m.view)
		}
		m.clampCursor()
		m.refresh()

	case actionDoneMsg:
		m.running--
		m.err = msg.err
		m.view = m.session.View()
		m.clampCursor()
		m.refresh()

	case frameMsg:
		// Repaint while the curtain animates
		return m, frameTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	m.mainViewport, vpCmd = m.mainViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	}

	switch msg.String() {
	case "t":
		// Always available; cancels a running curtain.
		return m.run(func(ctx context.Context, s *game.Session) error { return s.ReturnToTitle(ctx) })
	case "l":
		next := nextLanguage(m.view.Languages, m.view.Lang)
		return m.run(func(_ context.Context, s *game.Session) error {
			s.SetLanguage(next)
			return nil
		})
	}

	if m.running > 0 || m.view.Busy {
		return m, nil
	}

	switch m.view.State {
	case state.Title, state.Dialogue, state.Result, state.Death:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			return m.run(func(ctx context.Context, s *game.Session) error { return s.Next(ctx) })
		}

	case state.Choice:
		switch msg.Type {
		case tea.KeyUp:
			m.moveCursor(-1)
		case tea.KeyDown:
			m.moveCursor(1)
		case tea.KeyEnter:
			if m.cursor < len(m.view.Choices) {
				return m.choose(m.view.Choices[m.cursor].Index)
			}
		case tea.KeyRunes:
			if n, ok := digit(msg); ok && n <= len(m.view.Choices) {
				return m.choose(m.view.Choices[n-1].Index)
			}
		}

	case state.OOXX:
		switch msg.Type {
		case tea.KeyUp:
			m.moveCursor(-3)
		case tea.KeyDown:
			m.moveCursor(3)
		case tea.KeyLeft:
			m.moveCursor(-1)
		case tea.KeyRight:
			m.moveCursor(1)
		case tea.KeyEnter:
			return m.place(m.cursor)
		case tea.KeyRunes:
			if n, ok := digit(msg); ok {
				return m.place(n - 1)
			}
		}
	}

	m.refresh()
	return m, nil
}

func (m ConsoleUI) choose(index int) (tea.Model, tea.Cmd) {
	return m.run(func(ctx context.Context, s *game.Session) error {
		_, err := s.Choose(ctx, index)
		return err
	})
}

func (m ConsoleUI) place(cell int) (tea.Model, tea.Cmd) {
	return m.run(func(ctx context.Context, s *game.Session) error { return s.Place(ctx, cell) })
}

// run calls into the session off the event loop. Sessions sleep through
// pacing delays and curtains, and report progress through viewMsg.
func (m ConsoleUI) run(fn func(context.Context, *game.Session) error) (tea.Model, tea.Cmd) {
	m.running++
	m.err = nil
	session := m.session
	return m, func() tea.Msg {
		return actionDoneMsg{err: fn(context.Background(), session)}
	}
}

func (m *ConsoleUI) moveCursor(delta int) {
	limit := len(m.view.Choices)
	if m.view.State == state.OOXX {
		limit = len(m.view.Board)
	}
	if limit == 0 {
		return
	}
	m.cursor = (m.cursor + delta + limit) % limit
}

func (m *ConsoleUI) clampCursor() {
	if m.view.State == state.Choice && m.cursor >= len(m.view.Choices) {
		m.cursor = max(len(m.view.Choices)-1, 0)
	}
}

// defaultCursor puts the board cursor on the first free cell.
func defaultCursor(v game.View) int {
	if v.State == state.OOXX {
		if cells := v.Board.EmptyCells(); len(cells) > 0 {
			return cells[0]
		}
	}
	return 0
}

func digit(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}

func nextLanguage(langs []string, current string) string {
	if len(langs) == 0 {
		return current
	}
	i := slices.Index(langs, current)
	return langs[(i+1)%len(langs)]
}

func (m *ConsoleUI) refresh() {
	width := m.mainViewport.Width - 6
	if width <= 0 {
		width = 40
	}
	m.mainViewport.SetContent(renderScene(m.view, m.cursor, width, m.err))
	m.metaViewport.SetContent(renderMetadata(m.view))
}

// renderScene draws the main panel for the current state.
func renderScene(v game.View, cursor, width int, err error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CHAPTER ENGINE") + "\n\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	switch v.State {
	case state.Title:
		b.WriteString(selectedStyle.Render(" ▶ "+v.StartLabel+" ") + "\n\n")
		b.WriteString(promptStyle.Render("Press Enter to start"))

	case state.Dialogue:
		if v.Line != "" {
			b.WriteString(speakerStyle.Render(v.Speaker+":") + " ")
			b.WriteString(lineStyle.Render(wordwrap.String(v.Line, max(width-len(v.Speaker)-2, 10))) + "\n\n")
			b.WriteString(promptStyle.Render(fmt.Sprintf("(%d/%d) Enter to continue", v.LineIndex+1, v.LineCount)))
		}
		if v.Notice != "" {
			b.WriteString("\n\n" + noticeStyle.Render(v.Notice))
		}

	case state.Choice:
		b.WriteString(titleStyle.Render(wordwrap.String(v.ChoiceTitle, width)) + "\n\n")
		for i, c := range v.Choices {
			label := fmt.Sprintf("%d. %s", i+1, c.Text)
			if i == cursor {
				b.WriteString(selectedStyle.Render("▶ "+label))
			} else {
				b.WriteString("  " + label)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n" + promptStyle.Render("Use ↑/↓ and Enter, or press a number"))

	case state.Transition:
		b.WriteString(promptStyle.Render("..."))

	case state.OOXX, state.Result:
		b.WriteString(titleStyle.Render(v.OOXXTitle) + "\n\n")
		sel := -1
		if v.State == state.OOXX && v.Result == "" {
			sel = cursor
		}
		b.WriteString(renderBoard(v.Board, v.WinLine, sel) + "\n\n")
		b.WriteString(noticeStyle.Render(v.Status))
		if v.State == state.Result {
			b.WriteString("\n\n" + promptStyle.Render("Press Enter to continue"))
		}

	case state.Death:
		b.WriteString(errorStyle.Render(wordwrap.String(v.DeathText, width)) + "\n\n")
		b.WriteString(promptStyle.Render("Press Enter to return to the title"))
	}

	if err != nil {
		b.WriteString("\n\n" + errorStyle.Render("Error: "+err.Error()))
	}
	return b.String()
}

// renderBoard draws the 3x3 grid. Cells on the winning line are
// highlighted and sel marks the cursor cell; pass -1 for no cursor.
func renderBoard(board ooxx.Board, winLine []int, sel int) string {
	rows := make([]string, 0, 5)
	for r := 0; r < 3; r++ {
		cells := make([]string, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			mark := board[i].String()
			if board[i] == ooxx.Empty {
				mark = fmt.Sprint(i + 1)
			}
			cell := " " + mark + " "
			switch {
			case i == sel:
				cell = selectedStyle.Render(cell)
			case slices.Contains(winLine, i):
				cell = winStyle.Render(cell)
			case board[i] == ooxx.Empty:
				cell = promptStyle.Render(cell)
			}
			cells[c] = cell
		}
		rows = append(rows, strings.Join(cells, "│"))
		if r < 2 {
			rows = append(rows, "───┼───┼───")
		}
	}
	return strings.Join(rows, "\n")
}

func renderMetadata(v game.View) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SESSION") + "\n\n")

	id := v.SessionID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	b.WriteString("Session:\n" + id + "\n\n")
	b.WriteString("State:\n" + string(v.State) + "\n\n")
	b.WriteString("Language:\n" + v.Lang + " (" + strings.Join(v.Languages, ", ") + ")\n\n")
	if v.Busy {
		b.WriteString(noticeStyle.Render("Transition running") + "\n\n")
	}

	b.WriteString("Commands:\n")
	b.WriteString("• Enter: Continue\n")
	b.WriteString("• 1-9: Pick\n")
	b.WriteString("• l: Language\n")
	b.WriteString("• t: Title\n")
	b.WriteString("• Ctrl+C: Quit\n")
	return b.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case viewMsg:
		m.view = game.View(msg)

	case actionDoneMsg:
		m.running--

	case frameMsg:
		return m, frameTick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.refresh()
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the chapter?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	// A mostly opaque curtain hides the scene entirely.
	if m.overlay != nil && m.overlay.Visible() {
		return curtainStyle.Width(m.width).Height(m.height).Render("")
	}

	mainWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - mainWidth - 6

	scene := m.mainViewport.View()
	if m.overlay != nil && m.overlay.Opacity() > 0 {
		scene = lipgloss.NewStyle().Faint(true).Render(scene)
	}

	mainPanel := mainPanelStyle.Width(mainWidth).Height(m.height - 3).Render(scene)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, metaPanel)
}

// frameTick drives repaints so curtain fades are visible.
func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}
