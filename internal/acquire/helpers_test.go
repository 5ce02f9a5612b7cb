package acquire

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
	"github.com/cesargomez89/pdfhunter/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// minimalPDF builds a one-page PDF with a correct xref table, padded with a
// comment so it clears size thresholds.
func minimalPDF(padding int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	if padding > 0 {
		buf.WriteString("%")
		buf.Write(bytes.Repeat([]byte("x"), padding))
		buf.WriteString("\n")
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// fileServer serves PDFs and error pages and counts requests.
type fileServer struct {
	*httptest.Server
	hits int32
}

func newFileServer(t *testing.T) *fileServer {
	t.Helper()
	fs := &fileServer{}
	pdf := minimalPDF(2048)
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.hits, 1)
		switch r.URL.Path {
		case "/paper.pdf", "/other.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdf)
		case "/tiny.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 tiny"))
		case "/garbage.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(bytes.Repeat([]byte("not really a pdf "), 200))
		case "/landing":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>sign in</html>"))
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) Hits() int32 {
	return atomic.LoadInt32(&fs.hits)
}

func testExecutor(verify bool) *Executor {
	client := httpclient.NewClient(nil, httpclient.WithMaxAttempts(1))
	return NewExecutor(client, nil, ExecutorConfig{MinBytes: 1024, MaxBytes: 1 << 20, VerifyStructure: verify})
}

// scriptedProbe returns canned results per DOI and logs call order.
type scriptedProbe struct {
	name    string
	results map[string]domain.ProbeResult
	order   *callLog
}

type callLog struct {
	mu    sync.Mutex
	names []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func (p *scriptedProbe) Name() string { return p.name }

func (p *scriptedProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	if p.order != nil {
		p.order.add(p.name)
	}
	if res, ok := p.results[doi]; ok {
		if res.Reason == "panic" {
			panic("boom")
		}
		return res
	}
	return domain.NotFound(domain.FailureNotFound, "no results")
}

type engineFixture struct {
	db       *store.DB
	engine   *Engine
	registry *sources.Registry
	files    *fileServer
	calls    *callLog
	probes   map[string]*scriptedProbe
}

// newEngineFixture registers probes a, b and c (priorities 1..3) backed by
// a real store and file server. Publisher-direct URLs are disabled.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	reg := sources.NewRegistry(db, nil)
	defs := []domain.Source{
		{Name: "a", Priority: 1, TimeoutSec: 5, Enabled: true},
		{Name: "b", Priority: 2, TimeoutSec: 5, Enabled: true},
		{Name: "c", Priority: 3, TimeoutSec: 5, Enabled: true},
	}
	if err := reg.Seed(ctx, defs, nil); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	calls := &callLog{}
	probes := map[string]*scriptedProbe{}
	for _, d := range defs {
		p := &scriptedProbe{name: d.Name, results: map[string]domain.ProbeResult{}, order: calls}
		probes[d.Name] = p
		reg.Register(p)
	}

	engine := NewEngine(EngineDeps{
		Registry:   reg,
		Executor:   testExecutor(false),
		Tracker:    NewTracker(db),
		Patterns:   NewPatternLearner(db),
		Retries:    NewRetryScheduler(db, RetryConfig{MaxRetries: 3}),
		Logger:     logger.Discard(),
		DirectURLs: func(string) []string { return nil },
	})

	return &engineFixture{
		db:       db,
		engine:   engine,
		registry: reg,
		files:    newFileServer(t),
		calls:    calls,
		probes:   probes,
	}
}
