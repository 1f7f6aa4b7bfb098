package spellcheck

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Suggestion is a candidate correction for a word.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
}

// Checker corrects words that are not in its dictionary. Corrections are memoised.
type Checker struct {
	dict          *Dictionary
	personalDict  map[string]struct{}
	substitutions map[string]string
	maxDistance   int
	frequencySort bool

	mu    sync.Mutex
	cache map[string]string
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithPersonalDictionary adds words that are always accepted (case-insensitive).
func WithPersonalDictionary(words []string) Option {
	return func(c *Checker) {
		for _, w := range words {
			c.personalDict[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithSubstitutions sets fixed corrections applied before any dictionary lookup.
func WithSubstitutions(subs map[string]string) Option {
	return func(c *Checker) {
		for from, to := range subs {
			c.substitutions[from] = to
		}
	}
}

// WithMaxDistance sets the maximum edit distance between a word and its correction.
func WithMaxDistance(d int) Option {
	return func(c *Checker) {
		if d > 0 {
			c.maxDistance = d
		}
	}
}

// WithFrequencySort ranks suggestions by word frequency instead of edit distance.
func WithFrequencySort(on bool) Option {
	return func(c *Checker) { c.frequencySort = on }
}

// New creates a Checker over dict.
func New(dict *Dictionary, opts ...Option) *Checker {
	c := &Checker{
		dict:          dict,
		personalDict:  make(map[string]struct{}),
		substitutions: make(map[string]string),
		maxDistance:   3,
		frequencySort: true,
		cache:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reports whether word is spelled correctly. Hyphenated words are correct when
// every part is.
func (c *Checker) Check(word string) bool {
	lower := strings.ToLower(word)
	if _, ok := c.personalDict[lower]; ok {
		return true
	}
	if c.dict.Contains(lower) {
		return true
	}
	if strings.Contains(lower, "-") {
		for _, part := range strings.Split(lower, "-") {
			if part == "" || !c.Check(part) {
				return false
			}
		}
		return true
	}
	return false
}

// Correct returns the best correction for word, or word itself when it is correct or
// no suggestion is close enough.
func (c *Checker) Correct(word string) string {
	if sub, ok := c.substitutions[word]; ok {
		return sub
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if fixed, ok := c.cache[word]; ok {
		return fixed
	}
	fixed := c.correct(word)
	c.cache[word] = fixed
	return fixed
}

func (c *Checker) correct(word string) string {
	// OCR reads a capital I as a bracket
	if word == "]" || word == "[" {
		return "I"
	}
	if c.Check(word) {
		return word
	}
	lower := strings.ToLower(word)
	if strings.HasPrefix(lower, "self") && !strings.HasPrefix(lower, "self-") && len(word) > 4 {
		hyphenated := word[:4] + "-" + word[4:]
		if c.Check(hyphenated) {
			return hyphenated
		}
	}
	suggestions := c.Suggest(word)
	if len(suggestions) == 0 {
		return word
	}
	return matchCase(word, suggestions[0].Term)
}

// Suggest returns dictionary words within the maximum edit distance of word, best first.
func (c *Checker) Suggest(word string) []Suggestion {
	lower := strings.ToLower(word)
	var out []Suggestion
	for _, cand := range c.dict.candidates(lower, c.maxDistance) {
		if cand == lower {
			continue
		}
		dist := matchr.Levenshtein(lower, cand)
		if dist > c.maxDistance {
			continue
		}
		out = append(out, Suggestion{Term: cand, Distance: dist, Frequency: c.dict.Frequency(cand)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c.frequencySort && a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Term < b.Term
	})
	return out
}

// CorrectText corrects each word of whitespace-normalized text, keeping surrounding
// punctuation. Tokens with digits and all-capital words (names, acronyms) are left as is.
func (c *Checker) CorrectText(text string) string {
	tokens := strings.Split(text, " ")
	for i, tok := range tokens {
		if tok == "]" || tok == "[" {
			tokens[i] = c.Correct(tok)
			continue
		}
		start, end := wordBounds(tok)
		if start >= end {
			continue
		}
		core := tok[start:end]
		if skipWord(core) {
			continue
		}
		if fixed := c.Correct(core); fixed != core {
			tokens[i] = tok[:start] + fixed + tok[end:]
		}
	}
	return strings.Join(tokens, " ")
}

// wordBounds returns the byte range of tok without leading and trailing non-letters.
func wordBounds(tok string) (int, int) {
	start := strings.IndexFunc(tok, unicode.IsLetter)
	if start < 0 {
		return 0, 0
	}
	end := strings.LastIndexFunc(tok, unicode.IsLetter)
	// LastIndexFunc returns the start of the last letter
	for end++; end < len(tok) && !isBoundary(tok, end); end++ {
	}
	return start, end
}

func isBoundary(s string, i int) bool {
	return s[i] < 0x80 || s[i]&0xC0 != 0x80
}

func skipWord(w string) bool {
	upper := 0
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsDigit(r):
			return true
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		case r != '-' && r != '\'':
			return true
		}
	}
	return letters > 1 && upper == letters
}

// matchCase gives suggestion the capitalisation pattern of word.
func matchCase(word, suggestion string) string {
	runes := []rune(word)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		s := []rune(suggestion)
		s[0] = unicode.ToUpper(s[0])
		return string(s)
	}
	return suggestion
}
