package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/filingscope/filingscope/internal/config"
	"github.com/filingscope/filingscope/internal/edgar"
)

const (
	testTickerMap = `{"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}}`

	testSubmissions = `{
		"name": "Apple Inc.",
		"filings": {"recent": {
			"accessionNumber": ["0000320193-23-000106"],
			"form": ["10-K"],
			"reportDate": ["2023-09-30"]
		}}
	}`

	testIndexPage = `<html><body>
		<a href="aapl-20230930.htm">primary document</a>
		<a href="aapl-20230930_htm.xml">instance</a>
	</body></html>`

	testPrimaryDoc = `<html><body>
		<table>
		<tr><th>Line Item</th><th>2023</th></tr>
		<tr><td>Total net sales</td><td>$ 383,285</td></tr>
		</table>
	</body></html>`

	testInstanceDoc = `<?xml version="1.0"?>
	<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance"
	            xmlns:us-gaap="http://fasb.org/us-gaap/2023">
	  <xbrli:context id="ctx1">
	    <xbrli:period><xbrli:instant>2023-09-30</xbrli:instant></xbrli:period>
	  </xbrli:context>
	  <us-gaap:Assets contextRef="ctx1" unitRef="usd" decimals="-6">352,583</us-gaap:Assets>
	</xbrli:xbrl>`
)

func testServer() *httptest.Server {
	base := "/Archives/edgar/data/320193/000032019323000106"
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", serve(testTickerMap))
	mux.HandleFunc("/submissions/CIK0000320193.json", serve(testSubmissions))
	mux.HandleFunc(base+"/0000320193-23-000106-index.htm", serve(testIndexPage))
	mux.HandleFunc(base+"/aapl-20230930.htm", serve(testPrimaryDoc))
	mux.HandleFunc(base+"/aapl-20230930_htm.xml", serve(testInstanceDoc))
	return httptest.NewServer(mux)
}

func serve(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, body) }
}

func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Registry.SiteURL = srv.URL
	cfg.Registry.ArchiveBaseURL = srv.URL + "/Archives/edgar/data"
	cfg.Registry.SubmissionsURL = srv.URL + "/submissions/CIK%s.json"
	cfg.Registry.TickerMapURL = srv.URL + "/files/company_tickers.json"
	cfg.Fetcher.FilingsDir = filepath.Join(t.TempDir(), "filings")
	cfg.Fetcher.RatePerSecond = 1000
	cfg.Fetcher.RateBurst = 1000
	cfg.Fetcher.RetryDelayMS = 1
	cfg.Extractor.OutputDir = filepath.Join(t.TempDir(), "output")
	return cfg
}

// ── Run ──

func TestRunEndToEnd(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	p := New(cfg, nil)
	err := p.Run(context.Background(), Request{Ticker: "AAPL"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	filingDir := filepath.Join(cfg.Fetcher.FilingsDir, "Apple_Inc.", "0000320193-23-000106")

	// Manifest with the index URL as the first data row.
	manifest, err := os.ReadFile(filepath.Join(filingDir, "index.csv"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(manifest)), "\n")
	if len(lines) != 4 {
		t.Fatalf("manifest lines: got %d (%q), want header + 3 rows", len(lines), lines)
	}
	if !strings.Contains(lines[0], "File Name") || !strings.Contains(lines[0], "File URL") {
		t.Errorf("manifest header: got %q", lines[0])
	}
	if !strings.Contains(lines[1], "Index URL") || !strings.Contains(lines[1], "-index.htm") {
		t.Errorf("manifest first row: got %q", lines[1])
	}

	// Both documents downloaded.
	for _, name := range []string{"aapl-20230930.htm", "aapl-20230930_htm.xml"} {
		fi, err := os.Stat(filepath.Join(filingDir, name))
		if err != nil {
			t.Errorf("stat %s: %v", name, err)
			continue
		}
		if fi.Size() == 0 {
			t.Errorf("%s: zero bytes on disk", name)
		}
	}

	// Facts extracted from the instance document.
	facts, err := os.ReadFile(filepath.Join(cfg.Extractor.OutputDir, "Apple_Inc.", "0000320193-23-000106.csv"))
	if err != nil {
		t.Fatalf("read facts csv: %v", err)
	}
	if !strings.Contains(string(facts), "Assets") {
		t.Errorf("facts csv missing Assets: %q", facts)
	}
	if !strings.Contains(string(facts), "352583") {
		t.Errorf("facts csv missing cleaned value: %q", facts)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)
	p := New(cfg, nil)

	if err := p.Run(context.Background(), Request{Ticker: "AAPL"}); err != nil {
		t.Fatalf("first Run error: %v", err)
	}

	doc := filepath.Join(cfg.Fetcher.FilingsDir, "Apple_Inc.", "0000320193-23-000106", "aapl-20230930.htm")
	fi1, err := os.Stat(doc)
	if err != nil {
		t.Fatalf("stat after first run: %v", err)
	}

	if err := p.Run(context.Background(), Request{Ticker: "AAPL"}); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	fi2, err := os.Stat(doc)
	if err != nil {
		t.Fatalf("stat after second run: %v", err)
	}
	if !fi2.ModTime().Equal(fi1.ModTime()) {
		t.Error("document rewritten on re-run; downloads must be idempotent")
	}
}

func TestRunFetchOnlySkipsExtraction(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	err := New(cfg, nil).Run(context.Background(), Request{Ticker: "AAPL", FetchOnly: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(cfg.Extractor.OutputDir); !os.IsNotExist(err) {
		t.Errorf("output dir exists in fetch-only mode: %v", err)
	}
}

func TestRunByCIK(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	// Short CIK is padded before use; no ticker lookup happens.
	err := New(cfg, nil).Run(context.Background(), Request{CIK: "320193", FetchOnly: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestRunCancellationLeavesNoTruncatedFiles(t *testing.T) {
	base := "/Archives/edgar/data/320193/000032019323000106"
	release := make(chan struct{})
	slow := func(w http.ResponseWriter, r *http.Request) {
		// Send a partial body, then hold the connection open so
		// cancellation lands mid-copy.
		fmt.Fprint(w, "<html>")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", serve(testTickerMap))
	mux.HandleFunc("/submissions/CIK0000320193.json", serve(testSubmissions))
	mux.HandleFunc(base+"/0000320193-23-000106-index.htm", serve(testIndexPage))
	mux.HandleFunc(base+"/aapl-20230930.htm", slow)
	mux.HandleFunc(base+"/aapl-20230930_htm.xml", slow)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)
	cfg := testConfig(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := New(cfg, nil).Run(ctx, Request{Ticker: "AAPL", FetchOnly: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}

	// The manifest survives; no partially downloaded document may.
	walkErr := filepath.WalkDir(cfg.Fetcher.FilingsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if filepath.Base(path) != "index.csv" {
			t.Errorf("truncated document left behind: %s", path)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			t.Errorf("zero-byte file left behind: %s", path)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk filings dir: %v", walkErr)
	}
}

func TestRunYearFilterCreatesOneFilingDir(t *testing.T) {
	submissions := `{
		"name": "Apple Inc.",
		"filings": {"recent": {
			"accessionNumber": ["0000320193-23-000106", "0000320193-22-000108"],
			"form": ["10-K", "10-K"],
			"reportDate": ["2023-09-30", "2022-09-24"]
		}}
	}`
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000320193.json", serve(submissions))
	mux.HandleFunc("/Archives/edgar/data/320193/000032019323000106/0000320193-23-000106-index.htm",
		serve(`<html><body><a href="aapl-20230930.htm">doc</a></body></html>`))
	mux.HandleFunc("/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm",
		serve(testPrimaryDoc))
	srv := httptest.NewServer(mux)
	defer srv.Close()
	cfg := testConfig(t, srv)

	err := New(cfg, nil).Run(context.Background(), Request{CIK: "0000320193", Years: []int{2023}, FetchOnly: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	dirs, err := os.ReadDir(filepath.Join(cfg.Fetcher.FilingsDir, "Apple_Inc."))
	if err != nil {
		t.Fatalf("read company dir: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name() != "0000320193-23-000106" {
		t.Errorf("filing dirs: got %v, want only the 2023 filing", dirs)
	}

	manifest, err := os.ReadFile(filepath.Join(cfg.Fetcher.FilingsDir, "Apple_Inc.", "0000320193-23-000106", "index.csv"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(manifest) == 0 {
		t.Error("manifest is empty")
	}
}

func TestRunNoMatchingFilings(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	err := New(cfg, nil).Run(context.Background(), Request{Ticker: "AAPL", Years: []int{1999}})
	if !errors.Is(err, edgar.ErrNoFilings) {
		t.Errorf("Run: got %v, want ErrNoFilings", err)
	}
}

func TestRunRequiresIdentifier(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	if err := New(cfg, nil).Run(context.Background(), Request{}); err == nil {
		t.Error("Run: expected error with no ticker or CIK")
	}
}

func TestRunUnknownTicker(t *testing.T) {
	srv := testServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	err := New(cfg, nil).Run(context.Background(), Request{Ticker: "NOPE"})
	if !errors.Is(err, edgar.ErrTickerNotFound) {
		t.Errorf("Run: got %v, want ErrTickerNotFound", err)
	}
}
