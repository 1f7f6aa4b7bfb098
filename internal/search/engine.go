// Package search indexes speech records in a Bleve full-text index and queries it.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/crec/internal/dataset"
	"github.com/hyperjump/crec/internal/models"
)

// runIDKey stores the run ID of the indexed dataset inside the index.
var runIDKey = []byte("crec.run_id")

const (
	batchSize  = 500
	snippetLen = 200
)

// Hit is one matching speech.
type Hit struct {
	Rank    int     `json:"rank"`
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Speaker string  `json:"speaker"`
	Date    string  `json:"date"`
	Chamber string  `json:"chamber"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet"`
}

// Response is the result of one query.
type Response struct {
	Query     string `json:"query"`
	Total     uint64 `json:"total"`
	QueryTime int64  `json:"query_time_ms"`
	Hits      []Hit  `json:"hits"`
}

// Engine is a Bleve index of speech records.
type Engine struct {
	index  bleve.Index
	path   string
	logger *zap.Logger
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so names match as typed
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("speaker", text)

	keyword := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt("chamber", keyword)
	doc.AddFieldMappingsAt("date", keyword)
	doc.AddFieldMappingsAt("document_id", keyword)

	im.AddDocumentMapping("speech", doc)
	im.DefaultType = "speech"
	im.DefaultMapping = doc
	return im
}

// Open opens the index at path, creating an empty one when none exists.
func Open(path string, opts ...Option) (*Engine, error) {
	e := &Engine{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		e.index = index
		return e, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	e.index = index
	return e, nil
}

// Build returns an index of ds at path. An existing index built from the same parse
// run is reused unless rebuild is set; otherwise the index is recreated from scratch.
func Build(ctx context.Context, path string, ds *dataset.Dataset, rebuild bool, opts ...Option) (*Engine, error) {
	if !rebuild {
		if _, err := os.Stat(path); err == nil {
			e, err := Open(path, opts...)
			if err != nil {
				return nil, err
			}
			if runID, _ := e.RunID(); runID != "" && runID == ds.Meta.RunID {
				e.logger.Debug("Reusing search index", zap.String("path", path), zap.String("run_id", runID))
				return e, nil
			}
			if err := e.Close(); err != nil {
				return nil, err
			}
		}
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove old index: %w", err)
	}
	e, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	n, err := e.IndexRecords(ctx, ds.Records)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.index.SetInternal(runIDKey, []byte(ds.Meta.RunID)); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to store run id: %w", err)
	}
	e.logger.Info("Search index built", zap.String("path", path), zap.Int("records", n))
	return e, nil
}

// IndexRecords adds records to the index in batches and returns how many were indexed.
func (e *Engine) IndexRecords(ctx context.Context, records []models.SpeechRecord) (int, error) {
	batch := e.index.NewBatch()
	indexed := 0
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := e.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to index batch: %w", err)
		}
		batch.Reset()
		return nil
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if err := batch.Index(rec.ID, map[string]interface{}{
			"text":        rec.Text,
			"title":       rec.Title,
			"speaker":     rec.Speaker,
			"chamber":     rec.Chamber,
			"date":        rec.Date,
			"document_id": rec.DocumentID,
		}); err != nil {
			return indexed, fmt.Errorf("failed to index %s: %w", rec.ID, err)
		}
		indexed++
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}
	return indexed, flush()
}

// Search runs q against the index.
func (e *Engine) Search(ctx context.Context, q *Query) (*Response, error) {
	if err := ProcessQuery(q, 10); err != nil {
		return nil, err
	}
	start := time.Now()

	req := bleve.NewSearchRequestOptions(buildQuery(q), q.Limit, q.Offset, false)
	req.Fields = []string{"text", "title", "speaker", "chamber", "date"}
	results, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	qterms := terms(q.Text)
	resp := &Response{Query: q.Text, Total: results.Total, Hits: make([]Hit, 0, len(results.Hits))}
	for i, hit := range results.Hits {
		if q.MinScore > 0 && hit.Score < q.MinScore {
			continue
		}
		resp.Hits = append(resp.Hits, Hit{
			Rank:    q.Offset + i + 1,
			ID:      hit.ID,
			Score:   hit.Score,
			Speaker: field(hit.Fields, "speaker"),
			Date:    field(hit.Fields, "date"),
			Chamber: field(hit.Fields, "chamber"),
			Title:   field(hit.Fields, "title"),
			Snippet: Snippet(field(hit.Fields, "text"), qterms, snippetLen),
		})
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func buildQuery(q *Query) blevequery.Query {
	var text blevequery.Query
	if q.Fuzzy {
		text = buildFuzzyQuery(q.Text, q.Fuzziness)
	} else {
		text = bleve.NewMatchQuery(q.Text)
	}
	clauses := []blevequery.Query{text}
	if q.Chamber != "" {
		tq := bleve.NewTermQuery(q.Chamber)
		tq.SetField("chamber")
		clauses = append(clauses, tq)
	}
	if q.Speaker != "" {
		sq := bleve.NewMatchQuery(q.Speaker)
		sq.SetField("speaker")
		sq.SetOperator(blevequery.MatchQueryOperatorAnd)
		clauses = append(clauses, sq)
	}
	if len(clauses) == 1 {
		return text
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// buildFuzzyQuery matches any query term within fuzziness edits.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	ts := terms(query)
	queries := make([]blevequery.Query, 0, len(ts))
	for _, term := range ts {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func field(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// RunID returns the run ID of the dataset the index was built from, or "" if unknown.
func (e *Engine) RunID() (string, error) {
	v, err := e.index.GetInternal(runIDKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DocCount returns the number of indexed speeches.
func (e *Engine) DocCount() (uint64, error) {
	return e.index.DocCount()
}

// Close closes the index.
func (e *Engine) Close() error {
	if e.index == nil {
		return errors.New("index not open")
	}
	return e.index.Close()
}
