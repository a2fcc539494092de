package story

import "maps"

// MergeWithBase builds the document for lang from a base document and an
// optional localized one. A nil localized document yields a copy of base
// tagged with lang. Node graphs are never merged partially: a non-empty
// localized node list replaces the base list wholesale.
func MergeWithBase(base, localized *Content, lang string) *Content {
	out := base.Clone()
	if out == nil {
		return nil
	}
	if localized == nil {
		out.Meta.Lang = lang
		return out
	}

	out.Meta = Meta{
		ChapterID: firstNonEmpty(localized.Meta.ChapterID, base.Meta.ChapterID),
		Lang:      firstNonEmpty(localized.Meta.Lang, lang),
	}
	out.EntryNode = firstNonEmpty(localized.EntryNode, base.EntryNode)

	ls := localized.Strings
	out.Strings.StartBtn = firstNonEmpty(ls.StartBtn, base.Strings.StartBtn)
	out.Strings.DeathText = firstNonEmpty(ls.DeathText, base.Strings.DeathText)
	out.Strings.Speaker = firstNonEmpty(ls.Speaker, base.Strings.Speaker)
	out.Strings.UI = overlay(base.Strings.UI, ls.UI)
	out.Strings.Text = overlay(base.Strings.Text, ls.Text)

	if len(localized.Nodes) > 0 {
		out.Nodes = cloneNodes(localized.Nodes)
	}
	return out
}

// overlay returns the union of base and top, with top winning on clashes.
func overlay(base, top map[string]string) map[string]string {
	if base == nil && top == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(top))
	maps.Copy(out, base)
	maps.Copy(out, top)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
