package models

// SpeechRecord is one speech or statement attributed to a single speaker.
// Every record maps back to exactly one source document through DocumentID.
type SpeechRecord struct {
	ID              string `json:"id" validate:"required"`
	DocumentID      string `json:"document_id" validate:"required"`
	SourceFile      string `json:"source_file"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Chamber         string `json:"chamber" validate:"required"`
	Speaker         string `json:"speaker" validate:"required"`
	SpeakerBioguide string `json:"speaker_bioguide,omitempty"`
	Title           string `json:"title,omitempty"`
	Position        int    `json:"position" validate:"gte=0"`
	Text            string `json:"text" validate:"required"`
}
