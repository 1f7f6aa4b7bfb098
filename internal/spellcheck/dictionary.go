// Package spellcheck corrects OCR spelling errors in record text against a
// word-frequency dictionary.
package spellcheck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Dictionary is a set of known words with usage frequencies.
type Dictionary struct {
	freq  map[string]int
	byLen map[int][]string // rune length -> words, for candidate lookup
}

// NewDictionary builds a dictionary from word frequencies. Words are lowercased.
func NewDictionary(freqs map[string]int) *Dictionary {
	d := &Dictionary{
		freq:  make(map[string]int, len(freqs)),
		byLen: make(map[int][]string),
	}
	for w, f := range freqs {
		d.add(w, f)
	}
	return d
}

// LoadDictionary reads a frequency list with one "word count" pair per line.
// The count is optional and defaults to 1; blank lines and lines starting with # are ignored.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return ReadDictionary(f)
}

// ReadDictionary parses a frequency list from r.
func ReadDictionary(r io.Reader) (*Dictionary, error) {
	d := NewDictionary(nil)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		count := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: invalid count %q", line, fields[1])
			}
			count = n
		}
		d.add(fields[0], count)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}

func (d *Dictionary) add(word string, freq int) {
	w := strings.ToLower(word)
	if _, ok := d.freq[w]; !ok {
		n := utf8.RuneCountInString(w)
		d.byLen[n] = append(d.byLen[n], w)
	}
	d.freq[w] += freq
}

// Contains reports whether word is known, ignoring case.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.freq[strings.ToLower(word)]
	return ok
}

// Frequency returns the frequency of word, or 0 if unknown.
func (d *Dictionary) Frequency(word string) int {
	return d.freq[strings.ToLower(word)]
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.freq)
}

// candidates returns words whose length differs from word by at most maxDist runes;
// only those can be within maxDist edits.
func (d *Dictionary) candidates(word string, maxDist int) []string {
	n := utf8.RuneCountInString(word)
	var out []string
	for l := n - maxDist; l <= n+maxDist; l++ {
		out = append(out, d.byLen[l]...)
	}
	return out
}
