// Package parser turns a directory of raw record documents into a dataset of speech
// records with stable identifiers.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/crec/internal/dataset"
	"github.com/hyperjump/crec/internal/models"
	"github.com/hyperjump/crec/internal/spellcheck"
	"github.com/hyperjump/crec/pkg/utils"
)

// Result summarizes a committed parse run.
type Result struct {
	Documents int
	Records   int
	RunID     string
	Output    string
}

// Parser segments raw documents into speech records.
type Parser struct {
	checker   *spellcheck.Checker
	validator *recordValidator
	logger    *zap.Logger
}

// Option is a functional option for configuring Parser.
type Option func(*Parser)

// WithLogger sets the logger for the parser.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSpellChecker enables OCR spelling correction of record text. A nil checker disables it.
func WithSpellChecker(c *spellcheck.Checker) Option {
	return func(p *Parser) { p.checker = c }
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		validator: newRecordValidator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads every *.json document of inDir in lexical order and writes the
// resulting dataset to outFile in a single commit. On any error, including context
// cancellation, an existing outFile is left untouched.
func Parse(ctx context.Context, inDir, outFile string, opts ...Option) (*Result, error) {
	return New(opts...).Parse(ctx, inDir, outFile)
}

// Parse runs the parser over inDir. See the package-level Parse.
func (p *Parser) Parse(ctx context.Context, inDir, outFile string) (*Result, error) {
	files, err := listDocuments(inDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.Warn("No raw documents found", zap.String("dir", inDir))
	}

	ds := dataset.New(inDir)
	seen := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		records, err := p.ParseDocument(doc, name)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if prev, dup := seen[rec.ID]; dup {
				return nil, &models.ValidationError{
					ID:    rec.ID,
					Field: "id",
					Err:   fmt.Errorf("%w (first seen in %s, again in %s)", models.ErrDuplicateID, prev, name),
				}
			}
			seen[rec.ID] = name
		}
		ds.Records = append(ds.Records, records...)
		p.logger.Debug("Parsed document",
			zap.String("file", name),
			zap.String("document_id", documentID(doc, name)),
			zap.Int("records", len(records)),
		)
	}

	if err := dataset.Write(ctx, outFile, ds); err != nil {
		return nil, err
	}
	p.logger.Info("Dataset written",
		zap.String("path", outFile),
		zap.Int("documents", len(files)),
		zap.Int("records", len(ds.Records)),
		zap.String("run_id", ds.Meta.RunID),
	)
	return &Result{
		Documents: len(files),
		Records:   len(ds.Records),
		RunID:     ds.Meta.RunID,
		Output:    outFile,
	}, nil
}

// ParseDocument segments one raw document into validated speech records.
// sourceFile is the document's file name, used when the document carries no ID or date.
func (p *Parser) ParseDocument(doc *models.RawDocument, sourceFile string) ([]models.SpeechRecord, error) {
	docID := documentID(doc, sourceFile)
	date := doc.Date
	if date == "" {
		date = dateFromFileName(sourceFile)
	}

	segments := segmentDocument(doc)
	records := make([]models.SpeechRecord, 0, len(segments))
	ordinals := make(map[string]int)
	for i, seg := range segments {
		slug := utils.Slug(seg.speaker)
		if slug == "" {
			slug = "unknown"
		}
		ordinals[slug]++
		rec := models.SpeechRecord{
			ID:              fmt.Sprintf("%s/%s/%d", docID, slug, ordinals[slug]),
			DocumentID:      docID,
			SourceFile:      sourceFile,
			Date:            date,
			Chamber:         strings.TrimSpace(doc.Header.Chamber),
			Speaker:         seg.speaker,
			SpeakerBioguide: seg.bioguide,
			Title:           seg.title,
			Position:        i,
			Text:            p.clean(seg.text),
		}
		if err := p.validator.validate(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *Parser) clean(text string) string {
	text = utils.NormalizeText(text)
	if p.checker != nil {
		text = p.checker.CorrectText(text)
	}
	return text
}

func listDocuments(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readDocument(path string) (*models.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc models.RawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &models.ValidationError{
			ID:  filepath.Base(path),
			Err: fmt.Errorf("%w: %v", models.ErrMalformedJSON, err),
		}
	}
	return &doc, nil
}

// documentID is the document's own id, or the file stem when it has none.
func documentID(doc *models.RawDocument, sourceFile string) string {
	if id := strings.TrimSpace(doc.ID); id != "" {
		return id
	}
	return strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
}

// dateFromFileName extracts the YYYY-MM-DD prefix of a downloaded page name.
func dateFromFileName(name string) string {
	if len(name) < len(models.DateLayout) {
		return ""
	}
	return name[:len(models.DateLayout)]
}
