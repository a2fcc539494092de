package story

import (
	"strings"

	"golang.org/x/text/language"
)

// Game language codes are not all BCP 47 ("tw", "jp"), so they are mapped
// to real tags before matching.
var languageTags = map[string]language.Tag{
	"tw": language.MustParse("zh-Hant-TW"),
	"en": language.English,
	"jp": language.Japanese,
}

// LanguageTag returns the BCP 47 tag for a game language code.
func LanguageTag(code string) (language.Tag, bool) {
	if t, ok := languageTags[code]; ok {
		return t, true
	}
	t, err := language.Parse(code)
	if err != nil {
		return language.Und, false
	}
	return t, true
}

// MatchLanguage picks the available game language that best serves the
// preferences, which may be BCP 47 tags, Accept-Language values or POSIX
// locales such as "ja_JP.UTF-8". With no usable preference the first
// available language is returned.
func MatchLanguage(available []string, preferred ...string) string {
	if len(available) == 0 {
		return ""
	}

	var codes []string
	var tags []language.Tag
	for _, code := range available {
		if t, ok := LanguageTag(code); ok {
			codes = append(codes, code)
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return available[0]
	}

	var want []language.Tag
	for _, p := range preferred {
		for _, code := range available {
			if p == code {
				return code
			}
		}
		want = append(want, parsePreference(p)...)
	}
	if len(want) == 0 {
		return available[0]
	}

	_, index, confidence := language.NewMatcher(tags).Match(want...)
	if confidence == language.No {
		return available[0]
	}
	return codes[index]
}

func parsePreference(p string) []language.Tag {
	p = strings.TrimSpace(p)
	if p == "" || p == "C" || p == "POSIX" {
		return nil
	}
	if strings.ContainsAny(p, ",;") {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			return nil
		}
		return tags
	}
	if i := strings.IndexAny(p, ".@"); i >= 0 {
		p = p[:i]
	}
	t, err := language.Parse(strings.ReplaceAll(p, "_", "-"))
	if err != nil || t == language.Und {
		return nil
	}
	return []language.Tag{t}
}
