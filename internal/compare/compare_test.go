package compare

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperjump/crec/internal/config"
	"github.com/hyperjump/crec/internal/dataset"
	"github.com/hyperjump/crec/internal/models"
)

func makeDataset(runID string, pairs ...string) *dataset.Dataset {
	ds := &dataset.Dataset{Meta: dataset.Meta{RunID: runID}}
	for i := 0; i+1 < len(pairs); i += 2 {
		ds.Records = append(ds.Records, models.SpeechRecord{
			ID:         pairs[i],
			DocumentID: "CREC-2021-01-04-pt1-PgS1",
			Date:       "2021-01-04",
			Chamber:    "Senate",
			Speaker:    "Mr. SMITH",
			Position:   i / 2,
			Text:       pairs[i+1],
		})
	}
	return ds
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		unit string
		want float64
	}{
		{"identical tokens", "hello world", "hello world", config.UnitTokens, 1},
		{"identical chars", "hello world", "hello world", config.UnitChars, 1},
		{"whitespace only differs", "hello  world\n", "hello world", config.UnitTokens, 1},
		{"inserted word", "hello world", "hello there world", config.UnitTokens, 2.0 / 3.0},
		{"disjoint tokens", "a b", "c d e", config.UnitTokens, 0},
		{"disjoint chars", "abc", "xyz", config.UnitChars, 0},
		{"kitten sitting", "kitten", "sitting", config.UnitChars, 1 - 3.0/7.0},
		{"default unit is tokens", "hello world", "hello there world", "", 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Similarity(tt.a, tt.b, tt.unit)
			if err != nil {
				t.Fatalf("Similarity: %v", err)
			}
			if !approx(got, tt.want) {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
			rev, _, err := Similarity(tt.b, tt.a, tt.unit)
			if err != nil {
				t.Fatalf("Similarity reversed: %v", err)
			}
			if rev != got {
				t.Errorf("Similarity not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	texts := []string{
		"Mr. President, I rise today in support of the bill.",
		"Mr. President, I rise in support of this bill.",
		"The clerk will call the roll.",
		"I suggest the absence of a quorum.",
	}
	for _, unit := range []string{config.UnitTokens, config.UnitChars} {
		for _, a := range texts {
			for _, b := range texts {
				got, _, err := Similarity(a, b, unit)
				if err != nil {
					t.Fatalf("Similarity: %v", err)
				}
				if got < 0 || got > 1 {
					t.Errorf("Similarity(%q, %q, %s) = %f, out of [0, 1]", a, b, unit, got)
				}
				if a == b && got != 1 {
					t.Errorf("Similarity of identical text = %f, want 1", got)
				}
				again, _, _ := Similarity(a, b, unit)
				if again != got {
					t.Errorf("Similarity not deterministic: %f vs %f", got, again)
				}
			}
		}
	}
}

func TestSimilarity_Empty(t *testing.T) {
	tests := []struct {
		name, a, b, reason string
	}{
		{"old empty", "", "text", "old text is empty"},
		{"new empty", "text", "  ", "new text is empty"},
		{"both empty", "", "", "both texts are empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Similarity(tt.a, tt.b, config.UnitTokens)
			var nc *models.NotComparableError
			if !errors.As(err, &nc) {
				t.Fatalf("error = %v, want NotComparableError", err)
			}
			if nc.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", nc.Reason, tt.reason)
			}
			if !errors.Is(err, models.ErrEmptyText) {
				t.Error("error should wrap ErrEmptyText")
			}
		})
	}
}

func TestSimilarity_UnknownUnit(t *testing.T) {
	if _, _, err := Similarity("a", "b", "lines"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestCompare(t *testing.T) {
	old := makeDataset("old-run",
		"doc/mr-smith/1", "hello world",
		"doc/mr-jones/1", "I yield the floor.",
		"doc/mr-brown/1", "Unchanged remarks.",
	)
	cur := makeDataset("new-run",
		"doc/mr-brown/1", "Unchanged remarks.",
		"doc/mr-smith/1", "hello there world",
		"doc/ms-green/1", "A new speech.",
	)

	report, err := Compare(old, cur, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	want := []models.ComparisonResult{
		{ID: "doc/mr-brown/1", Status: models.StatusMatched, Similarity: 1},
		{ID: "doc/mr-smith/1", Status: models.StatusMatched, Similarity: 0.666667, Distance: 1},
		{ID: "doc/ms-green/1", Status: models.StatusAdded},
		{ID: "doc/mr-jones/1", Status: models.StatusRemoved},
	}
	if diff := cmp.Diff(want, report.Results); diff != "" {
		t.Errorf("Results mismatch (-want +got):\n%s", diff)
	}

	wantSummary := Summary{Matched: 2, Changed: 1, Added: 1, Removed: 1}
	gotSummary := report.Summary
	gotSummary.MeanSimilarity = 0
	if diff := cmp.Diff(wantSummary, gotSummary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
	if !approx(report.Summary.MeanSimilarity, (1+0.666667)/2) {
		t.Errorf("MeanSimilarity = %f", report.Summary.MeanSimilarity)
	}
	if report.OldRunID != "old-run" || report.NewRunID != "new-run" {
		t.Errorf("run IDs = %q, %q", report.OldRunID, report.NewRunID)
	}
	if report.Unit != config.UnitTokens {
		t.Errorf("Unit = %q, want tokens", report.Unit)
	}
}

func TestCompare_AdditionIsNotLowSimilarity(t *testing.T) {
	old := makeDataset("a", "id1", "hello world")
	cur := makeDataset("b", "id1", "hello world", "id2", "hello world")

	report, err := Compare(old, cur, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	if got := report.Results[1]; got.ID != "id2" || got.Status != models.StatusAdded {
		t.Errorf("second result = %+v, want id2 added", got)
	}
}

func TestCompare_NotComparableContinues(t *testing.T) {
	old := makeDataset("a", "id1", "", "id2", "some text")
	cur := makeDataset("b", "id1", "now has text", "id2", "some text")

	report, err := Compare(old, cur, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got := report.Results[0]; got.Status != models.StatusNotComparable || got.Reason != "old text is empty" {
		t.Errorf("id1 result = %+v, want not_comparable", got)
	}
	if got := report.Results[1]; got.Status != models.StatusMatched || got.Similarity != 1 {
		t.Errorf("id2 result = %+v, want matched with similarity 1", got)
	}
	if report.Summary.NotComparable != 1 || report.Summary.Matched != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
}

func TestCompare_UnknownUnit(t *testing.T) {
	ds := makeDataset("a", "id1", "text")
	if _, err := Compare(ds, ds, Options{Unit: "lines"}); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestCompare_Diffs(t *testing.T) {
	old := makeDataset("a",
		"id1", "hello world",
		"id2", "First sentence. Second one.",
		"id3", "same text",
	)
	cur := makeDataset("b",
		"id1", "hello there world",
		"id2", "First sentence. Second two.",
		"id3", "same text",
	)

	words, err := Compare(old, cur, Options{Diff: config.DiffWords})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got := words.Results[0].Diff; got != "hello {+there+} world" {
		t.Errorf("word diff = %q", got)
	}
	if got := words.Results[1].Diff; got != "First sentence. Second [-one.-] {+two.+}" {
		t.Errorf("word diff = %q", got)
	}
	if got := words.Results[2].Diff; got != "" {
		t.Errorf("identical texts should have no diff, got %q", got)
	}

	unified, err := Compare(old, cur, Options{Diff: config.DiffUnified})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	d := unified.Results[1].Diff
	for _, want := range []string{"--- old/id2", "+++ new/id2", "-Second one.\n", "+Second two.\n"} {
		if !strings.Contains(d, want) {
			t.Errorf("unified diff missing %q:\n%s", want, d)
		}
	}

	none, err := Compare(old, cur, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if none.Results[0].Diff != "" {
		t.Errorf("diff rendered without being requested: %q", none.Results[0].Diff)
	}
}

func TestWordDiff(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"a b c", "a b c", "a b c"},
		{"a b c", "a x c", "a [-b-] {+x+} c"},
		{"a b c", "a c", "a [-b-] c"},
		{"a c", "a b c", "a {+b+} c"},
	}
	for _, tt := range tests {
		got := wordDiff(strings.Fields(tt.a), strings.Fields(tt.b))
		if got != tt.want {
			t.Errorf("wordDiff(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSentences(t *testing.T) {
	got := sentences(`He said "Yes." Then left? No! End`)
	want := []string{"He said \"Yes.\"\n", "Then left?\n", "No!\n", "End\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sentences mismatch (-want +got):\n%s", diff)
	}
	if sentences("") != nil {
		t.Error("sentences of empty text should be nil")
	}
}

func TestCompareFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.db")
	newPath := filepath.Join(dir, "new.xlsx")

	if err := dataset.Write(ctx, oldPath, makeDataset("old-run", "id1", "hello world")); err != nil {
		t.Fatal(err)
	}
	if err := dataset.Write(ctx, newPath, makeDataset("new-run", "id1", "hello there world", "id2", "new")); err != nil {
		t.Fatal(err)
	}

	report, err := CompareFiles(ctx, oldPath, newPath, Options{})
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	if report.Summary.Matched != 1 || report.Summary.Added != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if report.OldRunID != "old-run" || report.NewRunID != "new-run" {
		t.Errorf("run IDs = %q, %q", report.OldRunID, report.NewRunID)
	}

	if _, err := CompareFiles(ctx, filepath.Join(dir, "missing.db"), newPath, Options{}); err == nil {
		t.Error("expected error for missing old dataset")
	}
}
