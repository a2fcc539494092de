package story

import (
	"fmt"
	"slices"
	"strings"
)

// Result is the outcome of a validation pass. Errors lists every violation
// found, in the order checks ran.
type Result struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// Err returns nil for a passing result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{Errors: slices.Clone(r.Errors)}
}

// ValidationError carries the complete list of structural violations.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "story validation failed:\n" + strings.Join(e.Errors, "\n")
}

type reference struct {
	owner  string
	target string
}

type contentValidator struct {
	errors []string
}

func (v *contentValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// ValidateContent checks a single document for structural integrity. It
// never stops at the first problem; all violations are accumulated.
func ValidateContent(c *Content) Result {
	if c == nil {
		return Result{OK: false, Errors: []string{"content must be an object"}}
	}

	v := &contentValidator{}
	v.validateHeader(c)

	if len(c.Nodes) == 0 {
		v.addError("nodes must be a non-empty array")
	}

	ids, refs := v.validateNodes(c.Nodes)

	if c.EntryNode != "" {
		if _, ok := ids[c.EntryNode]; !ok {
			v.addError("entryNode %s does not exist", c.EntryNode)
		}
	}

	for _, ref := range refs {
		if _, ok := ids[ref.target]; !ok {
			v.addError("missing reference: %s -> %s", ref.owner, ref.target)
		}
	}

	return Result{OK: len(v.errors) == 0, Errors: v.errors}
}

func (v *contentValidator) validateHeader(c *Content) {
	if c.Meta.ChapterID == "" {
		v.addError("meta.chapterId is required")
	}
	if c.Meta.Lang == "" {
		v.addError("meta.lang is required")
	}
	if c.EntryNode == "" {
		v.addError("entryNode is required")
	}
	if c.Strings.StartBtn == "" {
		v.addError("strings.startBtn is required")
	}
	if c.Strings.DeathText == "" {
		v.addError("strings.deathText is required")
	}
	if c.Strings.Speaker == "" {
		v.addError("strings.speaker is required")
	}
	if c.Strings.UI == nil {
		v.addError("strings.ui is required")
	}
	if c.Strings.Text == nil {
		v.addError("strings.text is required")
	}
}

// validateNodes returns the set of declared ids and every forward
// reference that still has to be resolved against it.
func (v *contentValidator) validateNodes(nodes []Node) (map[string]int, []reference) {
	ids := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n.ID != "" {
			ids[n.ID]++
		}
	}

	var refs []reference
	for i, n := range nodes {
		if n.ID == "" {
			v.addError("node.id is required (index %d)", i)
			continue
		}
		if ids[n.ID] > 1 {
			v.addError("duplicate node id: %s (index %d)", n.ID, i)
		}
		if n.Type == "" {
			v.addError("node %s: type is required", n.ID)
			continue
		}
		if !n.Type.Valid() {
			v.addError("node %s: unsupported type %s", n.ID, n.Type)
			continue
		}

		switch n.Type {
		case NodeLine:
			if n.NextNodeID == "" {
				v.addError("node %s: nextNodeId is required for line", n.ID)
			}
			if n.TextKey == "" {
				v.addError("node %s: textKey is required for line", n.ID)
			}
		case NodeJump:
			if n.NextNodeID == "" {
				v.addError("node %s: nextNodeId is required for jump", n.ID)
			}
		case NodeAction:
			if n.ActionID == "" {
				v.addError("node %s: actionId is required for action", n.ID)
			}
		case NodeChoice:
			refs = append(refs, v.validateChoice(n)...)
		}

		if n.NextNodeID != "" {
			refs = append(refs, reference{owner: n.ID, target: n.NextNodeID})
		}
	}
	return ids, refs
}

func (v *contentValidator) validateChoice(n Node) []reference {
	if n.TitleKey == "" {
		v.addError("node %s: titleKey is required for choice", n.ID)
	}
	if len(n.Options) == 0 {
		v.addError("node %s: options must be a non-empty array", n.ID)
		return nil
	}

	var refs []reference
	seen := make(map[string]bool, len(n.Options))
	for _, opt := range n.Options {
		if opt.ID == "" {
			v.addError("node %s: option.id is required", n.ID)
		} else if seen[opt.ID] {
			v.addError("node %s: duplicate option id: %s", n.ID, opt.ID)
		}
		seen[opt.ID] = true

		if opt.TextKey == "" {
			v.addError("node %s: option.textKey is required", n.ID)
		}
		if opt.NextNodeID == "" && opt.ActionID == "" {
			v.addError("node %s: option %s needs nextNodeId or actionId", n.ID, opt.ID)
		} else if opt.NextNodeID != "" && opt.ActionID != "" {
			v.addError("node %s: option %s has both nextNodeId and actionId", n.ID, opt.ID)
		}
		if opt.NextNodeID != "" {
			refs = append(refs, reference{owner: n.ID + "." + opt.ID, target: opt.NextNodeID})
		}
	}
	return refs
}

// ValidateSet validates every language independently. Messages are prefixed
// with the language code and the result passes only if every language does.
func ValidateSet(s *Set) Result {
	if s == nil || len(s.Languages) == 0 {
		return Result{OK: false, Errors: []string{"story set cannot be empty"}}
	}

	var errs []string
	if s.Base != "" {
		if _, ok := s.Content(s.Base); !ok {
			errs = append(errs, fmt.Sprintf("base language %s is missing", s.Base))
		}
	}

	langs := make([]string, 0, len(s.Languages))
	for lang := range s.Languages {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	for _, lang := range langs {
		res := ValidateContent(s.Languages[lang])
		for _, e := range res.Errors {
			errs = append(errs, "["+lang+"] "+e)
		}
	}

	return Result{OK: len(errs) == 0, Errors: errs}
}
