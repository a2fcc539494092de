package story

import (
	"slices"
	"sync"
)

// ScriptItem is one marker of the presentation projection.
type ScriptItem struct {
	Type NodeType `json:"type"`
}

// Outcome is the resolved result of picking a choice option.
type Outcome struct {
	ActionID     string `json:"actionId,omitempty"`
	ResponseText string `json:"responseText"`
}

// LanguageBundle is the flattened, fully resolved text of one language as
// a presentation layer consumes it.
type LanguageBundle struct {
	StartBtn    string            `json:"startBtn"`
	DeathText   string            `json:"deathText"`
	Speaker     string            `json:"speaker"`
	Lines       []string          `json:"lines"`
	ChoiceTitle string            `json:"choiceTitle"`
	Choices     []string          `json:"choices"`
	Responses   []string          `json:"responses"`
	UI          map[string]string `json:"ui"`
}

// graph indexes one language's node list by id. It is built once and
// never rescanned.
type graph struct {
	content *Content
	index   map[string]int
}

func newGraph(c *Content) *graph {
	g := &graph{content: c, index: make(map[string]int, len(c.Nodes))}
	for i, n := range c.Nodes {
		if _, dup := g.index[n.ID]; !dup {
			g.index[n.ID] = i
		}
	}
	return g
}

func (g *graph) node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.content.Nodes[i], true
}

func (g *graph) text(key string) string {
	return g.content.Strings.Text[key]
}

// openingRun walks from the entry node collecting line ids until the first
// choice, a dead end, a missing node or a revisited id.
func (g *graph) openingRun() ([]string, *Node) {
	var lines []string
	seen := make(map[string]bool, len(g.content.Nodes))
	for cursor := g.content.EntryNode; cursor != "" && !seen[cursor]; {
		seen[cursor] = true
		n, ok := g.node(cursor)
		if !ok {
			break
		}
		if n.Type == NodeChoice {
			return lines, n
		}
		if n.Type == NodeLine {
			lines = append(lines, n.ID)
		}
		cursor = n.NextNodeID
	}
	return lines, nil
}

func (g *graph) outcome(opt *ChoiceOption) Outcome {
	if opt == nil {
		return Outcome{}
	}
	if opt.ActionID != "" {
		return Outcome{ActionID: opt.ActionID}
	}

	var out Outcome
	captured := false
	seen := make(map[string]bool, len(g.content.Nodes))
	for cursor := opt.NextNodeID; cursor != "" && !seen[cursor]; {
		seen[cursor] = true
		n, ok := g.node(cursor)
		if !ok {
			break
		}
		if n.Type == NodeLine && !captured {
			out.ResponseText = g.text(n.TextKey)
			captured = true
		}
		if n.Type == NodeAction {
			out.ActionID = n.ActionID
			break
		}
		cursor = n.NextNodeID
	}
	return out
}

// Engine exposes traversal over a loaded Set. The Set itself is read-only;
// the active language and node cursor are the only mutable state.
type Engine struct {
	set    *Set
	graphs map[string]*graph

	mu     sync.RWMutex
	lang   string
	cursor string
}

// NewEngine indexes every language of set. The active language starts at
// defaultLang when present, otherwise at the set's base language.
func NewEngine(set *Set, defaultLang string) *Engine {
	if set == nil {
		set = &Set{}
	}
	e := &Engine{set: set, graphs: make(map[string]*graph, len(set.Languages))}
	for lang, c := range set.Languages {
		if c != nil {
			e.graphs[lang] = newGraph(c)
		}
	}

	switch {
	case e.graphs[defaultLang] != nil:
		e.lang = defaultLang
	case e.graphs[set.Base] != nil:
		e.lang = set.Base
	default:
		if langs := e.Languages(); len(langs) > 0 {
			e.lang = langs[0]
		}
	}
	if g := e.graphs[e.lang]; g != nil {
		e.cursor = g.content.EntryNode
	}
	return e
}

// Set returns the underlying story set.
func (e *Engine) Set() *Set { return e.set }

// Languages returns the loaded language codes, sorted.
func (e *Engine) Languages() []string {
	langs := make([]string, 0, len(e.graphs))
	for lang := range e.graphs {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// SetLanguage switches the active language and resets the cursor to its
// entry node. Unknown languages are rejected without any change.
func (e *Engine) SetLanguage(lang string) bool {
	g, ok := e.graphs[lang]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = lang
	e.cursor = g.content.EntryNode
	return true
}

// Language returns the active language code.
func (e *Engine) Language() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lang
}

func (e *Engine) active() *graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graphs[e.lang]
}

// Content returns the active language's document.
func (e *Engine) Content() *Content {
	if g := e.active(); g != nil {
		return g.content
	}
	return nil
}

// Node looks up a node of the active language.
func (e *Engine) Node(id string) (*Node, bool) {
	return e.NodeIn(e.Language(), id)
}

// NodeIn looks up a node of a specific language.
func (e *Engine) NodeIn(lang, id string) (*Node, bool) {
	g, ok := e.graphs[lang]
	if !ok {
		return nil, false
	}
	return g.node(id)
}

// Reset moves the cursor to nodeID, or to the entry node when nodeID is
// empty, and returns the new cursor.
func (e *Engine) Reset(nodeID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if nodeID == "" {
		if g := e.graphs[e.lang]; g != nil {
			nodeID = g.content.EntryNode
		}
	}
	e.cursor = nodeID
	return e.cursor
}

// CurrentNode returns the node under the cursor.
func (e *Engine) CurrentNode() (*Node, bool) {
	e.mu.RLock()
	g, cursor := e.graphs[e.lang], e.cursor
	e.mu.RUnlock()
	if g == nil {
		return nil, false
	}
	return g.node(cursor)
}

// Advance moves the cursor along the current node's nextNodeId and returns
// the node it lands on. It reports false when there is nowhere to go.
func (e *Engine) Advance() (*Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.graphs[e.lang]
	if g == nil {
		return nil, false
	}
	cur, ok := g.node(e.cursor)
	if !ok || cur.NextNodeID == "" {
		return nil, false
	}
	next, ok := g.node(cur.NextNodeID)
	if !ok {
		return nil, false
	}
	e.cursor = next.ID
	return next, true
}

// OpeningRun returns the ids of the line nodes reachable from the entry
// node before the first choice.
func (e *Engine) OpeningRun() []string {
	g := e.active()
	if g == nil {
		return nil
	}
	lines, _ := g.openingRun()
	return lines
}

// PresentationScript returns one line marker per opening-run line, followed
// by a single choice marker when the run ends at a choice.
func (e *Engine) PresentationScript() []ScriptItem {
	g := e.active()
	if g == nil {
		return nil
	}
	lines, choice := g.openingRun()
	script := make([]ScriptItem, 0, len(lines)+1)
	for range lines {
		script = append(script, ScriptItem{Type: NodeLine})
	}
	if choice != nil {
		script = append(script, ScriptItem{Type: NodeChoice})
	}
	return script
}

// ChoiceNode returns the first choice reached by the opening run.
func (e *Engine) ChoiceNode() (*Node, bool) {
	g := e.active()
	if g == nil {
		return nil, false
	}
	_, choice := g.openingRun()
	return choice, choice != nil
}

func (e *Engine) option(index int) (*graph, *ChoiceOption) {
	g := e.active()
	if g == nil {
		return nil, nil
	}
	_, choice := g.openingRun()
	if choice == nil || index < 0 || index >= len(choice.Options) {
		return g, nil
	}
	return g, &choice.Options[index]
}

// ChoiceActionByIndex returns the actionId carried directly by the option
// at index, or "" when there is none.
func (e *Engine) ChoiceActionByIndex(index int) string {
	_, opt := e.option(index)
	if opt == nil {
		return ""
	}
	return opt.ActionID
}

// ChoiceOutcomeByIndex resolves the option at index of the opening choice.
func (e *Engine) ChoiceOutcomeByIndex(index int) Outcome {
	g, opt := e.option(index)
	if g == nil || opt == nil {
		return Outcome{}
	}
	return g.outcome(opt)
}

// ChoiceOutcome resolves an arbitrary option against the active language.
// An option carrying an actionId resolves immediately; otherwise the chain
// from its nextNodeId is walked until an action node, a dead end or a cycle.
func (e *Engine) ChoiceOutcome(opt *ChoiceOption) Outcome {
	g := e.active()
	if g == nil {
		return Outcome{}
	}
	return g.outcome(opt)
}

// TextByKey resolves a text key in the active language.
func (e *Engine) TextByKey(key string) string {
	return e.TextIn(e.Language(), key)
}

// TextIn resolves a text key in lang. Missing keys yield "".
func (e *Engine) TextIn(lang, key string) string {
	g, ok := e.graphs[lang]
	if !ok {
		return ""
	}
	return g.text(key)
}

// UIBundle returns the active language's strings table.
func (e *Engine) UIBundle() Strings {
	if g := e.active(); g != nil {
		return g.content.Strings
	}
	return Strings{}
}

// Bundle flattens lang into resolved presentation text.
func (e *Engine) Bundle(lang string) LanguageBundle {
	g, ok := e.graphs[lang]
	if !ok {
		return LanguageBundle{}
	}
	s := g.content.Strings
	lines, choice := g.openingRun()

	b := LanguageBundle{
		StartBtn:  s.StartBtn,
		DeathText: s.DeathText,
		Speaker:   s.Speaker,
		Lines:     make([]string, 0, len(lines)),
		Choices:   []string{},
		Responses: []string{},
		UI:        s.UI,
	}
	for _, id := range lines {
		n, _ := g.node(id)
		b.Lines = append(b.Lines, g.text(n.TextKey))
	}
	if choice != nil {
		b.ChoiceTitle = g.text(choice.TitleKey)
		for i := range choice.Options {
			opt := &choice.Options[i]
			b.Choices = append(b.Choices, g.text(opt.TextKey))
			b.Responses = append(b.Responses, g.outcome(opt).ResponseText)
		}
	}
	return b
}

// Bundles flattens every loaded language.
func (e *Engine) Bundles() map[string]LanguageBundle {
	out := make(map[string]LanguageBundle, len(e.graphs))
	for lang := range e.graphs {
		out[lang] = e.Bundle(lang)
	}
	return out
}
