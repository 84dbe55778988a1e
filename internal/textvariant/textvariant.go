package textvariant

import (
	"regexp"
	"strings"
	"unicode"
)

var separators = regexp.MustCompile(`[\s\-_]+`)

// layoutPairs maps each Latin QWERTY key to the Cyrillic ЙЦУКЕН key in the
// same physical position. The lookup table is built in both directions, so
// converting twice returns the original letter.
var layoutPairs = [...][2]rune{
	{'q', 'й'}, {'w', 'ц'}, {'e', 'у'}, {'r', 'к'}, {'t', 'е'},
	{'y', 'н'}, {'u', 'г'}, {'i', 'ш'}, {'o', 'щ'}, {'p', 'з'},
	{'a', 'ф'}, {'s', 'ы'}, {'d', 'в'}, {'f', 'а'}, {'g', 'п'},
	{'h', 'р'}, {'j', 'о'}, {'k', 'л'}, {'l', 'д'},
	{'z', 'я'}, {'x', 'ч'}, {'c', 'с'}, {'v', 'м'}, {'b', 'и'},
	{'n', 'т'}, {'m', 'ь'},
}

var layout = func() map[rune]rune {
	m := make(map[rune]rune, len(layoutPairs)*2)
	for _, p := range layoutPairs {
		m[p[0]] = p[1]
		m[p[1]] = p[0]
	}
	return m
}()

var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// ConvertLayout swaps every mapped character for its opposite-layout
// counterpart, preserving case. Unmapped characters pass through unchanged.
func ConvertLayout(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		lower := unicode.ToLower(r)
		mapped, ok := layout[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if r != lower {
			mapped = unicode.ToUpper(mapped)
		}
		b.WriteRune(mapped)
	}
	return b.String()
}

// Transliterate lower-cases the input and rewrites Cyrillic letters with
// their Latin phonetic spellings. Soft and hard signs drop out entirely.
func Transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if repl, ok := translit[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Compact removes runs of whitespace, hyphens and underscores, so part
// numbers match regardless of how they were spaced.
func Compact(text string) string {
	return separators.ReplaceAllString(text, "")
}

// Variants returns the search-tolerant alternates of text: layout-converted,
// transliterated, and compacted forms, deduplicated against each other and
// against the input itself.
func Variants(text string) []string {
	var out []string
	seen := map[string]struct{}{text: {}}

	for _, v := range []string{ConvertLayout(text), Transliterate(text), Compact(text)} {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
