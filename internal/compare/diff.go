package compare

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// wordDiff renders the token alignment of a and b inline: removed runs as [-...-],
// added runs as {+...+}, unchanged tokens as is.
func wordDiff(a, b []string) string {
	// autojunk would drop frequent words like "the" from long speeches
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	var parts []string
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			parts = append(parts, a[op.I1:op.I2]...)
		case 'd':
			parts = append(parts, "[-"+strings.Join(a[op.I1:op.I2], " ")+"-]")
		case 'i':
			parts = append(parts, "{+"+strings.Join(b[op.J1:op.J2], " ")+"+}")
		case 'r':
			parts = append(parts,
				"[-"+strings.Join(a[op.I1:op.I2], " ")+"-]",
				"{+"+strings.Join(b[op.J1:op.J2], " ")+"+}")
		}
	}
	return strings.Join(parts, " ")
}

var sentenceEnd = regexp.MustCompile(`([.!?]["')\]]?)\s+`)

// sentences splits normalized text into one line per sentence, each ending in "\n".
func sentences(text string) []string {
	if text == "" {
		return nil
	}
	marked := sentenceEnd.ReplaceAllString(text, "$1\n")
	return difflib.SplitLines(marked)
}

// unifiedDiff renders a unified diff of the sentence-split texts of one record.
func unifiedDiff(id, a, b string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        sentences(a),
		B:        sentences(b),
		FromFile: "old/" + id,
		ToFile:   "new/" + id,
		Context:  1,
	})
}
