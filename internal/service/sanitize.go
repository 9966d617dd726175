package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

// DefaultTag — тег поста без выбранных тегов.
const DefaultTag = "#general"

// CuratedTags — теги, которые предлагает форма публикации.
var CuratedTags = []string{
	"#philosophy", "#deepthoughts", "#randomthoughts", "#existential", "#showerthoughts",
	"#mentalhealth", "#overthinking", "#humancondition", "#introspection", "#ideas",
	"#curious", "#lifequestions", "#minddump", "#emotion", "#truth", "#technology",
	"#relationships", "#school", "#future", "#love", "#career", "#faith", "#politics",
	"#science", "#culture", "#identity", "#purpose", "#memory", "#dreams", "#addiction",
	"#networking", "#jobsearch", "#productivity", "#leadership", "#worklife", "#coding",
	"#ai", "#startups", "#linkedin", "#resume", "#interview", "#rant", "#confession",
	"#advice", "#storytime", "#question", "#pain", "#joy", "#inspiration", "#confused",
	"#lonely", "#hope", "#darkthoughts", "#lighthearted", "#anonymous",
}

// sanitizeContent: убирает управляющие символы (кроме \n и \t), обрезает пробелы,
// проверяет 1..max символов.
func sanitizeContent(s string, max int) (string, bool) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)

	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if max > 0 && utf8.RuneCountInString(s) > max {
		return "", false
	}

	return s, true
}

// normalizeTags приводит теги к виду "#tag" в нижнем регистре, убирает пустые и повторы.
// Пустой набор -> DefaultTag.
func normalizeTags(tags []string, maxTags, maxLen int) ([]string, bool) {
	out := lo.Map(tags, func(t string, _ int) string {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimLeft(t, "#")
		if t == "" {
			return ""
		}
		return "#" + t
	})
	out = lo.Uniq(lo.Reject(out, func(t string, _ int) bool { return t == "" }))

	if len(out) == 0 {
		return []string{DefaultTag}, true
	}

	if maxTags > 0 && len(out) > maxTags {
		return nil, false
	}

	for _, t := range out {
		if maxLen > 0 && utf8.RuneCountInString(t) > maxLen {
			return nil, false
		}
		if strings.IndexFunc(t, unicode.IsSpace) >= 0 {
			return nil, false
		}
	}

	return out, true
}
