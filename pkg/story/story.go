package story

import "maps"

// NodeType discriminates the variants of a Node.
type NodeType string

const (
	NodeLine   NodeType = "line"
	NodeChoice NodeType = "choice"
	NodeAction NodeType = "action"
	NodeJump   NodeType = "jump"
	NodeEnd    NodeType = "end"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeLine, NodeChoice, NodeAction, NodeJump, NodeEnd:
		return true
	}
	return false
}

// Meta identifies the chapter and language of a document.
type Meta struct {
	ChapterID string `json:"chapterId" yaml:"chapterId"`
	Lang      string `json:"lang" yaml:"lang"`
}

// Strings holds every piece of localized text in a document.
type Strings struct {
	StartBtn  string            `json:"startBtn" yaml:"startBtn"`   // Title screen start button
	DeathText string            `json:"deathText" yaml:"deathText"` // Text shown on the death screen
	Speaker   string            `json:"speaker" yaml:"speaker"`     // Default speaker name
	UI        map[string]string `json:"ui" yaml:"ui"`               // UI labels keyed by name
	Text      map[string]string `json:"text" yaml:"text"`           // Dialogue text keyed by textKey
}

// ChoiceOption is one selectable branch of a choice node.
type ChoiceOption struct {
	ID         string         `json:"id" yaml:"id"`
	TextKey    string         `json:"textKey" yaml:"textKey"`
	NextNodeID string         `json:"nextNodeId,omitempty" yaml:"nextNodeId,omitempty"`
	ActionID   string         `json:"actionId,omitempty" yaml:"actionId,omitempty"`
	Effects    map[string]any `json:"effects,omitempty" yaml:"effects,omitempty"` // Opaque to the engine
}

// Node is a single unit of the dialogue graph. Which fields are meaningful
// depends on Type:
//
//	line:   TextKey, NextNodeID
//	jump:   NextNodeID
//	action: ActionID
//	choice: TitleKey, Options (NextNodeID optional)
//	end:    nothing
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Type       NodeType       `json:"type" yaml:"type"`
	TextKey    string         `json:"textKey,omitempty" yaml:"textKey,omitempty"`
	NextNodeID string         `json:"nextNodeId,omitempty" yaml:"nextNodeId,omitempty"`
	ActionID   string         `json:"actionId,omitempty" yaml:"actionId,omitempty"`
	TitleKey   string         `json:"titleKey,omitempty" yaml:"titleKey,omitempty"`
	Options    []ChoiceOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// Content is one language's complete chapter document.
type Content struct {
	Meta      Meta    `json:"meta" yaml:"meta"`
	EntryNode string  `json:"entryNode" yaml:"entryNode"`
	Strings   Strings `json:"strings" yaml:"strings"`
	Nodes     []Node  `json:"nodes" yaml:"nodes"`
}

// Clone returns a deep copy of c.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := &Content{
		Meta:      c.Meta,
		EntryNode: c.EntryNode,
		Strings: Strings{
			StartBtn:  c.Strings.StartBtn,
			DeathText: c.Strings.DeathText,
			Speaker:   c.Strings.Speaker,
			UI:        maps.Clone(c.Strings.UI),
			Text:      maps.Clone(c.Strings.Text),
		},
		Nodes: cloneNodes(c.Nodes),
	}
	return out
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if n.Options != nil {
			out[i].Options = make([]ChoiceOption, len(n.Options))
			for j, o := range n.Options {
				out[i].Options[j] = o
				out[i].Options[j].Effects = maps.Clone(o.Effects)
			}
		}
	}
	return out
}

// Set is the collection of per-language documents for one chapter.
type Set struct {
	Base      string              `json:"base"`      // Language every other document was merged against
	Languages map[string]*Content `json:"languages"` // Documents keyed by language code
}

// Content returns the document for lang.
func (s *Set) Content(lang string) (*Content, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.Languages[lang]
	return c, ok && c != nil
}
