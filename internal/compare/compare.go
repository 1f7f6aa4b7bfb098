// Package compare matches speech records of two dataset snapshots by identifier and
// scores the textual change of every matched pair with an edit-distance alignment.
package compare

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/hyperjump/crec/internal/config"
	"github.com/hyperjump/crec/internal/dataset"
	"github.com/hyperjump/crec/internal/models"
	"github.com/hyperjump/crec/pkg/utils"
)

// Options controls how matched pairs are scored and rendered.
type Options struct {
	Unit   string // config.UnitTokens (default) or config.UnitChars
	Diff   string // config.DiffNone (default), config.DiffWords or config.DiffUnified
	Logger *zap.Logger
}

func (o Options) unit() string {
	if o.Unit == "" {
		return config.UnitTokens
	}
	return o.Unit
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Summary aggregates a comparison run.
type Summary struct {
	Matched        int     `json:"matched"`
	Changed        int     `json:"changed"`
	Added          int     `json:"added"`
	Removed        int     `json:"removed"`
	NotComparable  int     `json:"not_comparable"`
	MeanSimilarity float64 `json:"mean_similarity"`
}

// Report is the outcome of comparing an old dataset against a new one.
type Report struct {
	OldRunID string                    `json:"old_run_id,omitempty"`
	NewRunID string                    `json:"new_run_id,omitempty"`
	Unit     string                    `json:"unit"`
	Results  []models.ComparisonResult `json:"results"`
	Summary  Summary                   `json:"summary"`
}

// Similarity scores a against b as 1 - distance / max(len(a), len(b)), where lengths
// and distance are counted in the given unit after text normalization. It returns
// a *models.NotComparableError when either text is empty.
func Similarity(a, b, unit string) (float64, int, error) {
	na, nb := utils.NormalizeText(a), utils.NormalizeText(b)
	switch {
	case na == "" && nb == "":
		return 0, 0, &models.NotComparableError{Reason: "both texts are empty"}
	case na == "":
		return 0, 0, &models.NotComparableError{Reason: "old text is empty"}
	case nb == "":
		return 0, 0, &models.NotComparableError{Reason: "new text is empty"}
	}

	var dist, longest int
	switch unit {
	case config.UnitChars:
		ra, rb := []rune(na), []rune(nb)
		dist = charDistance(ra, rb)
		longest = max(len(ra), len(rb))
	case config.UnitTokens, "":
		ta, tb := utils.Tokens(na), utils.Tokens(nb)
		dist = Distance(ta, tb)
		longest = max(len(ta), len(tb))
	default:
		return 0, 0, fmt.Errorf("unknown comparison unit %q", unit)
	}
	return 1 - float64(dist)/float64(longest), dist, nil
}

// Compare matches records of oldSet and newSet by identifier. Records only in newSet are
// reported as added, records only in oldSet as removed. Results follow newSet's order,
// followed by the removed records in oldSet's order.
func Compare(oldSet, newSet *dataset.Dataset, opts Options) (*Report, error) {
	log := opts.logger()
	report := &Report{
		OldRunID: oldSet.Meta.RunID,
		NewRunID: newSet.Meta.RunID,
		Unit:     opts.unit(),
		Results:  make([]models.ComparisonResult, 0, len(newSet.Records)),
	}

	oldByID := oldSet.ByID()
	seen := make(map[string]bool, len(newSet.Records))
	var total float64

	for _, rec := range newSet.Records {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		prev, ok := oldByID[rec.ID]
		if !ok {
			report.Results = append(report.Results, models.ComparisonResult{ID: rec.ID, Status: models.StatusAdded})
			report.Summary.Added++
			continue
		}

		res, err := comparePair(rec.ID, prev.Text, rec.Text, opts)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, res)
		if res.Status == models.StatusNotComparable {
			report.Summary.NotComparable++
			log.Debug("Pair not comparable", zap.String("id", rec.ID), zap.String("reason", res.Reason))
			continue
		}
		report.Summary.Matched++
		total += res.Similarity
		if res.Similarity < 1 {
			report.Summary.Changed++
		}
	}

	for _, rec := range oldSet.Records {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		report.Results = append(report.Results, models.ComparisonResult{ID: rec.ID, Status: models.StatusRemoved})
		report.Summary.Removed++
	}

	if report.Summary.Matched > 0 {
		report.Summary.MeanSimilarity = total / float64(report.Summary.Matched)
	}
	log.Info("Comparison complete",
		zap.Int("matched", report.Summary.Matched),
		zap.Int("changed", report.Summary.Changed),
		zap.Int("added", report.Summary.Added),
		zap.Int("removed", report.Summary.Removed),
		zap.Int("not_comparable", report.Summary.NotComparable),
	)
	return report, nil
}

func comparePair(id, oldText, newText string, opts Options) (models.ComparisonResult, error) {
	sim, dist, err := Similarity(oldText, newText, opts.unit())
	if err != nil {
		var nc *models.NotComparableError
		if errors.As(err, &nc) {
			return models.ComparisonResult{ID: id, Status: models.StatusNotComparable, Reason: nc.Reason}, nil
		}
		return models.ComparisonResult{}, err
	}
	res := models.ComparisonResult{
		ID:         id,
		Status:     models.StatusMatched,
		Similarity: round(sim),
		Distance:   dist,
	}
	if dist == 0 {
		return res, nil
	}

	switch opts.Diff {
	case config.DiffWords:
		res.Diff = wordDiff(utils.Tokens(oldText), utils.Tokens(newText))
	case config.DiffUnified:
		d, err := unifiedDiff(id, utils.NormalizeText(oldText), utils.NormalizeText(newText))
		if err != nil {
			return models.ComparisonResult{}, fmt.Errorf("render diff for %s: %w", id, err)
		}
		res.Diff = d
	}
	return res, nil
}

// round keeps six decimals so reports are stable across platforms.
func round(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

// CompareFiles reads both datasets and compares them.
func CompareFiles(ctx context.Context, oldPath, newPath string, opts Options) (*Report, error) {
	oldSet, err := dataset.Read(ctx, oldPath)
	if err != nil {
		return nil, fmt.Errorf("read old dataset: %w", err)
	}
	newSet, err := dataset.Read(ctx, newPath)
	if err != nil {
		return nil, fmt.Errorf("read new dataset: %w", err)
	}
	opts.logger().Debug("Loaded datasets",
		zap.String("old", oldPath), zap.Int("old_records", len(oldSet.Records)),
		zap.String("new", newPath), zap.Int("new_records", len(newSet.Records)),
	)
	return Compare(oldSet, newSet, opts)
}
