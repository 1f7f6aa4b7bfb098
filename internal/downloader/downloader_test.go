package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/crec/internal/config"
	"github.com/hyperjump/crec/internal/models"
)

// recordServer serves pages keyed by "date/page" and counts requests.
type recordServer struct {
	mu       sync.Mutex
	pages    map[string]string
	status   map[string]int
	requests int
}

func (s *recordServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	key := strings.TrimPrefix(r.URL.Path, "/")
	code, hasCode := s.status[key]
	body, ok := s.pages[key]
	s.mu.Unlock()
	if hasCode {
		w.WriteHeader(code)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (s *recordServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func page(date string, n, total int) string {
	return fmt.Sprintf(`{"id":"CREC-%s-pt1-Pg%d","date":%q,"page":%d,"pages":%d,"header":{"chamber":"Senate"},"content":[{"kind":"speech","speaker":"Mr. SMITH","text":"Page %d.","turn":0,"itemno":1}]}`,
		date, n, date, n, total, n)
}

func newTestDownloader(url string, opts ...Option) *Downloader {
	cfg := config.Default().Download
	cfg.BaseURL = url
	cfg.RetryCount = 2
	cfg.RetryWait = time.Millisecond
	cfg.RetryMaxWait = 5 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	return New(&cfg, opts...)
}

func mustRange(t *testing.T, from, to string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(from, to)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDownload_WritesOneFilePerPage(t *testing.T) {
	srv := &recordServer{pages: map[string]string{
		"2021-01-04/1": page("2021-01-04", 1, 2),
		"2021-01-04/2": page("2021-01-04", 2, 2),
		"2021-01-06/1": page("2021-01-06", 1, 1),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := t.TempDir()
	d := newTestDownloader(ts.URL)
	stats, err := d.Download(context.Background(), mustRange(t, "2021-01-04", "2021-01-06"), out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Written != 3 {
		t.Errorf("Written = %d, want 3", stats.Written)
	}
	if stats.EmptyDays != 1 {
		t.Errorf("EmptyDays = %d, want 1 (2021-01-05 has no record)", stats.EmptyDays)
	}
	for _, name := range []string{"2021-01-04-001.json", "2021-01-04-002.json", "2021-01-06-001.json"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if !bytes.HasPrefix(data, []byte(`{"id":"CREC-`)) {
			t.Errorf("%s: unexpected content %q", name, data)
		}
	}
}

func TestDownload_IdempotentRerun(t *testing.T) {
	srv := &recordServer{pages: map[string]string{
		"2021-01-04/1": page("2021-01-04", 1, 3),
		"2021-01-04/2": page("2021-01-04", 2, 3),
		"2021-01-04/3": page("2021-01-04", 3, 3),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := t.TempDir()
	d := newTestDownloader(ts.URL)
	r := mustRange(t, "2021-01-04", "")
	if _, err := d.Download(context.Background(), r, out); err != nil {
		t.Fatal(err)
	}
	first := srv.count()
	before := snapshot(t, out)

	stats, err := d.Download(context.Background(), r, out)
	if err != nil {
		t.Fatal(err)
	}
	if got := srv.count(); got != first {
		t.Errorf("re-run issued %d extra requests", got-first)
	}
	if stats.Requested != 0 || stats.Written != 0 || stats.Skipped != 3 {
		t.Errorf("re-run stats = %+v", stats)
	}
	after := snapshot(t, out)
	for name, data := range before {
		if !bytes.Equal(data, after[name]) {
			t.Errorf("%s changed on re-run", name)
		}
	}
}

func TestDownload_ResumesPartialDay(t *testing.T) {
	srv := &recordServer{pages: map[string]string{
		"2021-01-04/1": page("2021-01-04", 1, 2),
		"2021-01-04/2": page("2021-01-04", 2, 2),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, FileName("2021-01-04", 1)), []byte(page("2021-01-04", 1, 2)), 0644); err != nil {
		t.Fatal(err)
	}
	stats, err := newTestDownloader(ts.URL).Download(context.Background(), mustRange(t, "2021-01-04", ""), out)
	if err != nil {
		t.Fatal(err)
	}
	if srv.count() != 1 || stats.Written != 1 || stats.Skipped != 1 {
		t.Errorf("requests = %d, stats = %+v", srv.count(), stats)
	}
}

func TestDownload_MalformedJSON(t *testing.T) {
	srv := &recordServer{pages: map[string]string{
		"2021-01-04/1": `<html>maintenance</html>`,
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := t.TempDir()
	_, err := newTestDownloader(ts.URL).Download(context.Background(), mustRange(t, "2021-01-04", ""), out)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.ID != "2021-01-04/1" {
		t.Errorf("ValidationError.ID = %q", verr.ID)
	}
	if !errors.Is(err, models.ErrMalformedJSON) {
		t.Error("expected ErrMalformedJSON")
	}
	if _, err := os.Stat(filepath.Join(out, FileName("2021-01-04", 1))); !os.IsNotExist(err) {
		t.Error("invalid page must not be written")
	}
}

func TestDownload_ServerErrorAfterRetries(t *testing.T) {
	srv := &recordServer{status: map[string]int{"2021-01-04/1": http.StatusServiceUnavailable}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	_, err := newTestDownloader(ts.URL).Download(context.Background(), mustRange(t, "2021-01-04", ""), t.TempDir())
	var nerr *models.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if nerr.ID != "2021-01-04/1" {
		t.Errorf("NetworkError.ID = %q", nerr.ID)
	}
	// one attempt plus two retries
	if got := srv.count(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestDownload_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newTestDownloader(url).Download(context.Background(), mustRange(t, "2021-01-04", ""), t.TempDir())
	var nerr *models.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestDownload_MissingAnnouncedPage(t *testing.T) {
	srv := &recordServer{pages: map[string]string{
		"2021-01-04/1": page("2021-01-04", 1, 2),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	_, err := newTestDownloader(ts.URL).Download(context.Background(), mustRange(t, "2021-01-04", ""), t.TempDir())
	var nerr *models.NetworkError
	if !errors.As(err, &nerr) || nerr.ID != "2021-01-04/2" {
		t.Fatalf("expected NetworkError for page 2, got %v", err)
	}
}

func TestDownload_SkipWeekends(t *testing.T) {
	srv := &recordServer{pages: map[string]string{}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	// 2021-01-09 is a Saturday, 2021-01-10 a Sunday
	stats, err := newTestDownloader(ts.URL, WithSkipWeekends(true)).
		Download(context.Background(), mustRange(t, "2021-01-08", "2021-01-11"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if srv.count() != 2 || stats.EmptyDays != 2 {
		t.Errorf("requests = %d, stats = %+v", srv.count(), stats)
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	srv := &recordServer{pages: map[string]string{"2021-01-04/1": page("2021-01-04", 1, 1)}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestDownloader(ts.URL).Download(ctx, mustRange(t, "2021-01-04", ""), t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if srv.count() != 0 {
		t.Errorf("requests = %d, want 0", srv.count())
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("2021-01-04", 7); got != "2021-01-04-007.json" {
		t.Errorf("FileName = %q", got)
	}
}

func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = data
	}
	return out
}
