package parser

import (
	"regexp"
	"strings"

	"github.com/hyperjump/crec/internal/models"
	"github.com/hyperjump/crec/pkg/utils"
)

// segment is one speech cut out of a raw document, before cleaning.
type segment struct {
	speaker  string
	bioguide string
	title    string
	text     string
}

// headingPattern matches the speaker line that opens a turn in the printed record,
// e.g. "Mr. SMITH.", "Ms. JONES of Ohio.", "The PRESIDING OFFICER.".
var headingPattern = regexp.MustCompile(
	`(?m)^[ \t]*((?:Mr|Mrs|Ms|Miss|Dr)\. [A-Z][A-Z'\-]+(?: [A-Z][A-Z'\-]+)*(?: of [A-Z][a-z]+(?: [A-Z][a-z]+)*)?` +
		`|The (?:PRESIDING OFFICER|SPEAKER pro tempore|SPEAKER|ACTING PRESIDENT pro tempore|PRESIDENT pro tempore|VICE PRESIDENT|CHAIR|CHAIRMAN|CHAIRWOMAN))\.[ \t]+`,
)

// segmentDocument splits doc into speeches. Pre-segmented content wins over the raw body.
func segmentDocument(doc *models.RawDocument) []segment {
	if len(doc.Content) > 0 {
		return segmentContent(doc)
	}
	return segmentText(doc.Text, utils.NormalizeText(doc.Title))
}

// segmentContent turns speech items into segments. Title items set the heading of the
// speeches after them; consecutive items of the same speaker and turn form one speech.
func segmentContent(doc *models.RawDocument) []segment {
	title := utils.NormalizeText(doc.Title)
	var out []segment
	lastTurn := -1
	for _, item := range doc.Content {
		switch item.Kind {
		case models.KindTitle:
			title = utils.NormalizeText(item.Text)
			lastTurn = -1
		case models.KindSpeech:
			speaker := strings.TrimSpace(item.Speaker)
			if n := len(out); n > 0 && item.Turn > 0 && item.Turn == lastTurn && out[n-1].speaker == speaker {
				out[n-1].text += "\n" + item.Text
				continue
			}
			out = append(out, segment{
				speaker:  speaker,
				bioguide: strings.TrimSpace(item.SpeakerBioguide),
				title:    title,
				text:     item.Text,
			})
			lastTurn = item.Turn
		default:
			lastTurn = -1
		}
	}
	return out
}

// segmentText cuts an unsegmented body at speaker headings. Text before the first
// heading is preamble and is dropped.
func segmentText(body, title string) []segment {
	matches := headingPattern.FindAllStringSubmatchIndex(body, -1)
	out := make([]segment, 0, len(matches))
	for i, m := range matches {
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out = append(out, segment{
			speaker: body[m[2]:m[3]],
			title:   title,
			text:    body[m[1]:end],
		})
	}
	return out
}
