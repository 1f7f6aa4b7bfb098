package models

// ComparisonStatus classifies one identifier in a comparison run.
type ComparisonStatus string

const (
	StatusMatched       ComparisonStatus = "matched"
	StatusAdded         ComparisonStatus = "added"
	StatusRemoved       ComparisonStatus = "removed"
	StatusNotComparable ComparisonStatus = "not_comparable"
)

// ComparisonResult is the outcome for one identifier. Similarity and Distance are only
// meaningful for matched records.
type ComparisonResult struct {
	ID         string           `json:"id"`
	Status     ComparisonStatus `json:"status"`
	Similarity float64          `json:"similarity"`
	Distance   int              `json:"distance"`
	Diff       string           `json:"diff,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}
