// Package dataset persists parsed speech records as a single tabular file.
//
// The file format follows the output extension: SQLite for .db and .sqlite, a
// spreadsheet for .xlsx. Writes are all-or-nothing: records go to a temporary file in
// the destination directory, which is renamed over the target only after it is complete.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/crec/internal/models"
)

// Format is an on-disk dataset format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatXLSX   Format = "xlsx"
)

// Meta describes the parse run that produced a dataset.
type Meta struct {
	RunID     string
	CreatedAt time.Time
	SourceDir string
}

// Dataset is an ordered table of speech records.
type Dataset struct {
	Meta    Meta
	Records []models.SpeechRecord
}

// New returns an empty dataset stamped with a fresh run ID.
func New(sourceDir string) *Dataset {
	return &Dataset{
		Meta: Meta{
			RunID:     uuid.New().String(),
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			SourceDir: sourceDir,
		},
	}
}

// ByID returns the records keyed by identifier.
func (d *Dataset) ByID() map[string]*models.SpeechRecord {
	out := make(map[string]*models.SpeechRecord, len(d.Records))
	for i := range d.Records {
		out[d.Records[i].ID] = &d.Records[i]
	}
	return out
}

// FormatFor returns the dataset format implied by the extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported dataset extension %q (use .db, .sqlite or .xlsx)", filepath.Ext(path))
	}
}

// Write stores ds at path, replacing any existing file only once the new one is complete.
func Write(ctx context.Context, path string, ds *Dataset) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp dataset: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	switch format {
	case FormatSQLite:
		// sqlite opens the file by name
		if err := tmp.Close(); err != nil {
			return err
		}
		err = writeSQLite(ctx, tmpPath, ds)
	case FormatXLSX:
		err = writeXLSX(ctx, tmp, ds)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	committed = true
	return nil
}

// Read loads the whole dataset at path.
func Read(ctx context.Context, path string) (*Dataset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	switch format {
	case FormatSQLite:
		return readSQLite(ctx, path)
	default:
		return readXLSX(ctx, path)
	}
}

// metaTimeLayout formats Meta.CreatedAt in both backends.
const metaTimeLayout = time.RFC3339

const (
	metaKeyRunID     = "run_id"
	metaKeyCreatedAt = "created_at"
	metaKeySourceDir = "source_dir"
)

func (m Meta) pairs() [][2]string {
	return [][2]string{
		{metaKeyRunID, m.RunID},
		{metaKeyCreatedAt, m.CreatedAt.UTC().Format(metaTimeLayout)},
		{metaKeySourceDir, m.SourceDir},
	}
}

func (m *Meta) set(key, value string) error {
	switch key {
	case metaKeyRunID:
		m.RunID = value
	case metaKeyCreatedAt:
		if value == "" {
			return nil
		}
		t, err := time.Parse(metaTimeLayout, value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", metaKeyCreatedAt, err)
		}
		m.CreatedAt = t
	case metaKeySourceDir:
		m.SourceDir = value
	}
	return nil
}
