// Package models defines core data structures for raw record documents, speech records,
// and comparison results.
package models

// RawDocument is one JSON page of the Congressional Record as served by the remote
// endpoint and stored on disk by the downloader.
type RawDocument struct {
	ID      string        `json:"id"`
	Date    string        `json:"date"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Header  Header        `json:"header"`
	Title   string        `json:"title,omitempty"`
	Content []ContentItem `json:"content,omitempty"`

	// Text is the unsegmented body, used when Content is empty.
	Text string `json:"text,omitempty"`
}

// Header carries the issue-level fields of a record document.
type Header struct {
	Vol       string `json:"vol,omitempty"`
	Num       string `json:"num,omitempty"`
	Chamber   string `json:"chamber,omitempty"`
	Pages     string `json:"pages,omitempty"`
	Extension bool   `json:"extension,omitempty"`
}

// Content item kinds.
const (
	KindTitle     = "title"
	KindSpeech    = "speech"
	KindRecorder  = "recorder"
	KindClerk     = "clerk"
	KindLinebreak = "linebreak"
)

// ContentItem is one pre-segmented block of a document.
type ContentItem struct {
	Kind            string `json:"kind"`
	Speaker         string `json:"speaker,omitempty"`
	SpeakerBioguide string `json:"speaker_bioguide,omitempty"`
	Text            string `json:"text"`
	Turn            int    `json:"turn"`
	ItemNo          int    `json:"itemno"`
}
