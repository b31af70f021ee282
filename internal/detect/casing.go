package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultMinorWords stay lowercase inside a title-cased heading.
var defaultMinorWords = []string{
	"a", "an", "the", "and", "but", "or", "nor", "for", "so", "yet",
	"as", "at", "by", "in", "of", "off", "on", "per", "to", "up", "via",
	"with", "from", "into", "over",
}

// keepsCase reports whether a word carries deliberate capitals after its
// first letter, as in FePc, DNA or iPhone.
func keepsCase(w string) bool {
	for i, r := range []rune(w) {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// splitAffixes separates leading and trailing punctuation from the word.
func splitAffixes(w string) (prefix, core, suffix string) {
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(w, isWord)
	if start < 0 {
		return w, "", ""
	}
	end := strings.LastIndexFunc(w, isWord)
	_, size := lastRune(w[:end+1])
	end += size
	return w[:start], w[start:end], w[end:]
}

func lastRune(s string) (rune, int) {
	rs := []rune(s)
	if len(rs) == 0 {
		return 0, 0
	}
	r := rs[len(rs)-1]
	return r, len(string(r))
}

// Casers keep state, so each call builds its own.
func capitalize(w string) string {
	return cases.Title(language.English).String(w)
}

func lower(w string) string { return cases.Lower(language.English).String(w) }

// TitleCase applies Chicago-style title case: the first and last words and
// every major word are capitalized, minor words are lowercased and words
// with inner capitals are kept.
func TitleCase(s string, minor []string) string {
	if len(minor) == 0 {
		minor = defaultMinorWords
	}
	small := make(map[string]bool, len(minor))
	for _, m := range minor {
		small[strings.ToLower(m)] = true
	}
	words := strings.Split(s, " ")
	first, last := -1, -1
	for i, w := range words {
		if w != "" {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	var process func(w string, isFirst, isLast bool) string
	process = func(w string, isFirst, isLast bool) string {
		prefix, core, suffix := splitAffixes(w)
		if core == "" || keepsCase(core) {
			return w
		}
		if strings.Contains(core, "-") {
			parts := strings.Split(core, "-")
			for i, p := range parts {
				parts[i] = process(p, isFirst && i == 0, isLast && i == len(parts)-1)
			}
			return prefix + strings.Join(parts, "-") + suffix
		}
		if !isFirst && !isLast && small[strings.ToLower(core)] {
			return prefix + lower(core) + suffix
		}
		return prefix + capitalize(core) + suffix
	}
	for i, w := range words {
		words[i] = process(w, i == first, i == last)
	}
	return strings.Join(words, " ")
}

// SentenceCase capitalizes the first word and lowercases the rest, keeping
// words with inner capitals.
func SentenceCase(s string) string {
	words := strings.Split(s, " ")
	seen := false
	for i, w := range words {
		prefix, core, suffix := splitAffixes(w)
		if core == "" {
			continue
		}
		if keepsCase(core) {
			seen = true
			continue
		}
		if !seen {
			words[i] = prefix + capitalize(core) + suffix
			seen = true
			continue
		}
		words[i] = prefix + lower(core) + suffix
	}
	return strings.Join(words, " ")
}
