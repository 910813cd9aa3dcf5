package prefilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics so "Indústria" and "industria" compare
// equal. Portuguese source data mixes accented and unaccented spellings.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases and accent-folds a string for term comparison.
func normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// stopwords excluded from term extraction. Short function words dominate
// Portuguese descriptions and carry no matching signal.
var stopwords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"em": true, "para": true, "com": true, "por": true, "uma": true,
	"um": true, "os": true, "as": true, "ou": true, "e": true, "a": true,
	"o": true, "que": true, "na": true, "no": true, "nas": true, "nos": true,
	"ao": true, "aos": true, "se": true, "sua": true, "seu": true,
	"and": true, "the": true, "of": true, "for": true, "to": true, "in": true,
}

// tokenize splits normalized text into term tokens, dropping stopwords and
// tokens shorter than three runes.
func tokenize(s string) []string {
	s = normalize(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// termSet builds a deduplicated token set from raw phrases.
func termSet(phrases ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, group := range phrases {
		for _, p := range group {
			for _, tok := range tokenize(p) {
				set[tok] = true
			}
		}
	}
	return set
}
