package terms

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Word length bounds for significant terms. Shorter tokens are mostly
// function words and initialisms; longer ones are usually extraction
// artifacts (URLs, run-together words).
const (
	MinWordLen = 3
	MaxWordLen = 15
)

// Tokenize splits text into lowercase word tokens. A token is a maximal
// run of letters or digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Significant returns the alphabetic, stop-word-filtered tokens of text
// within the significant-word length bounds, in order of appearance.
func Significant(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		if len(tok) < MinWordLen || len(tok) > MaxWordLen {
			continue
		}
		if !isAlpha(tok) {
			continue
		}
		if IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Stem reduces an English word to its stem. Words the stemmer cannot
// handle are returned unchanged, so comparison degrades to exact match
// rather than failing.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// StemSet returns the distinct stems of the given tokens.
func StemSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[Stem(tok)] = struct{}{}
	}
	return set
}

// IsStopWord reports whether a lowercase token is a common English stop
// word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// stopWords is a compact English stop-word list sufficient for keyword
// filtering; this is not a linguistics-grade lexicon and does not need to
// be.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
a about above after again against all am an and any are aren't as at be
because been before being below between both but by can't cannot could
couldn't did didn't do does doesn't doing don't down during each few for
from further had hadn't has hasn't have haven't having he he'd he'll he's
her here here's hers herself him himself his how how's i i'd i'll i'm i've
if in into is isn't it it's its itself let's me more most mustn't my myself
no nor not of off on once only or other ought our ours ourselves out over
own same shan't she she'd she'll she's should shouldn't so some such than
that that's the their theirs them themselves then there there's these they
they'd they'll they're they've this those through to too under until up
very was wasn't we we'd we'll we're we've were weren't what what's when
when's where where's which while who who's whom why why's with won't would
wouldn't you you'd you'll you're you've your yours yourself yourselves`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
