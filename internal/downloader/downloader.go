// Package downloader fetches Congressional Record JSON pages for a date range and stores
// one file per page.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/crec/internal/config"
	"github.com/hyperjump/crec/internal/models"
)

// Stats summarizes one Download call.
type Stats struct {
	Requested int // pages requested from the remote endpoint
	Written   int // pages written to disk
	Skipped   int // pages already on disk
	EmptyDays int // days for which the endpoint has no record
}

// Downloader fetches record pages over HTTPS.
type Downloader struct {
	client       *resty.Client
	skipWeekends bool
	logger       *zap.Logger // optional
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Downloader) {
		d.logger = l
		if l != nil {
			d.client.SetLogger(l.Sugar())
		}
	}
}

// WithSkipWeekends skips Saturdays and Sundays without issuing requests.
func WithSkipWeekends(skip bool) Option {
	return func(d *Downloader) { d.skipWeekends = skip }
}

// New creates a downloader for the endpoint described by cfg. Retries on transport
// errors, 429 and 5xx responses are delegated to resty's retry policy.
func New(cfg *config.DownloadConfig, opts ...Option) *Downloader {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil || res == nil {
				return true
			}
			code := res.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	d := &Downloader{client: client, skipWeekends: cfg.SkipWeekends}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FileName returns the on-disk name of one record page.
func FileName(date string, page int) string {
	return fmt.Sprintf("%s-%03d.json", date, page)
}

// Download fetches every page of every day in r into outDir. Pages already on disk are
// not requested again; when the first page of a day is on disk its page count is read
// locally, so re-running over a completed range issues no requests.
// The first NetworkError or ValidationError stops the run; files written so far remain.
func (d *Downloader) Download(ctx context.Context, r models.DateRange, outDir string) (*Stats, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	stats := &Stats{}
	for _, day := range r.Days() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if d.skipWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		if err := d.downloadDay(ctx, day.Format(models.DateLayout), outDir, stats); err != nil {
			return stats, err
		}
	}
	if d.logger != nil {
		d.logger.Info("download finished",
			zap.Int("requested", stats.Requested),
			zap.Int("written", stats.Written),
			zap.Int("skipped", stats.Skipped),
			zap.Int("empty_days", stats.EmptyDays),
		)
	}
	return stats, nil
}

func (d *Downloader) downloadDay(ctx context.Context, date, outDir string, stats *Stats) error {
	first, err := d.page(ctx, date, 1, outDir, stats)
	if err != nil {
		return err
	}
	if first == nil {
		stats.EmptyDays++
		if d.logger != nil {
			d.logger.Debug("no record for day", zap.String("date", date))
		}
		return nil
	}
	for p := 2; p <= first.Pages; p++ {
		doc, err := d.page(ctx, date, p, outDir, stats)
		if err != nil {
			return err
		}
		if doc == nil {
			return &models.NetworkError{ID: pageID(date, p), Err: errors.New("page announced but not found")}
		}
	}
	return nil
}

// page returns the document for date/page, reading it from disk when present and
// fetching and storing it otherwise. A nil document means the endpoint has no such page.
func (d *Downloader) page(ctx context.Context, date string, page int, outDir string, stats *Stats) (*models.RawDocument, error) {
	path := filepath.Join(outDir, FileName(date, page))
	if data, err := os.ReadFile(path); err == nil {
		stats.Skipped++
		doc, err := decode(path, data)
		if err != nil {
			return nil, err
		}
		if d.logger != nil {
			d.logger.Debug("page already on disk", zap.String("path", path))
		}
		return doc, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	body, err := d.fetch(ctx, date, page)
	stats.Requested++
	if err != nil || body == nil {
		return nil, err
	}
	doc, err := decode(pageID(date, page), body)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, body); err != nil {
		return nil, err
	}
	stats.Written++
	if d.logger != nil {
		d.logger.Debug("page written", zap.String("path", path), zap.Int("pages", doc.Pages))
	}
	return doc, nil
}

// fetch returns the response body, or nil when the endpoint answers 404.
func (d *Downloader) fetch(ctx context.Context, date string, page int) ([]byte, error) {
	id := pageID(date, page)
	res, err := d.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"date": date,
			"page": strconv.Itoa(page),
		}).
		Get("/{date}/{page}")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &models.NetworkError{ID: id, Err: err}
	}
	switch code := res.StatusCode(); {
	case code == http.StatusNotFound:
		return nil, nil
	case code < 200 || code > 299:
		return nil, &models.NetworkError{ID: id, Err: fmt.Errorf("unexpected status %s", res.Status())}
	}
	return res.Body(), nil
}

func decode(id string, data []byte) (*models.RawDocument, error) {
	var doc models.RawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &models.ValidationError{ID: id, Err: fmt.Errorf("%w: %v", models.ErrMalformedJSON, err)}
	}
	if doc.Pages < 1 {
		doc.Pages = 1
	}
	return &doc, nil
}

func pageID(date string, page int) string {
	return date + "/" + strconv.Itoa(page)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
