// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/soultoolman/sci-dl/internal/fetch"
	"github.com/soultoolman/sci-dl/internal/resolve"
	"github.com/soultoolman/sci-dl/pkg/types"
)

const (
	testDOI    = "10.1016/j.neuron.2012.02.004"
	fixturePDF = "%PDF-1.4 neuron fixture body"
)

// newMirrorServer serves a landing page for testDOI whose save button
// points at a relative PDF link on the same host, and the PDF itself.
func newMirrorServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testDOI:
			fmt.Fprint(w, `<html><div id="buttons">
				<button onclick="location.href='/downloads/2012/neuron.pdf?download=true'">&darr; save</button>
			</div></html>`)
		case "/downloads/2012/neuron.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, fixturePDF)
		default:
			http.NotFound(w, r)
		}
	}))
}

func testSession(t *testing.T, baseURL string, retries int) (*fetch.Client, *resolve.Mirror) {
	t.Helper()
	cfg := types.Default()
	cfg.BaseURL = baseURL
	cfg.Retries = retries
	client, err := fetch.New(cfg)
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	mirror, err := resolve.NewMirror(baseURL)
	if err != nil {
		t.Fatalf("resolve.NewMirror: %v", err)
	}
	return client, mirror
}

func TestByDOI(t *testing.T) {
	ts := newMirrorServer(t)
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 5)

	var buf bytes.Buffer
	d, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	if err != nil {
		t.Fatalf("ByDOI: %v", err)
	}

	if d.LookupURL != ts.URL+"/"+testDOI {
		t.Errorf("LookupURL = %q, want %q", d.LookupURL, ts.URL+"/"+testDOI)
	}
	wantPDF := ts.URL + "/downloads/2012/neuron.pdf?download=true"
	if d.PDFURL != wantPDF {
		t.Errorf("PDFURL = %q, want %q", d.PDFURL, wantPDF)
	}
	if string(d.Result.Body()) != fixturePDF {
		t.Errorf("body = %q, want fixture", d.Result.Body())
	}
	out := buf.String()
	if !strings.Contains(out, "resolving:") || !strings.Contains(out, "found PDF:") {
		t.Errorf("progress output missing stages: %q", out)
	}
}

func TestByDOIParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>article not found</body></html>`)
	}))
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 0)

	var buf bytes.Buffer
	_, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	var parseErr *resolve.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestByDOIFetchErrorAfterRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 3)

	var buf bytes.Buffer
	_, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	var fetchErr *fetch.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fetchErr.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", fetchErr.Attempts)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("server saw %d requests, want 4", got)
	}
}

func TestByDOIRejectsNonPDFContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testDOI:
			fmt.Fprint(w, `<div id="buttons"><button onclick="location.href='/downloads/captcha'">save</button></div>`)
		case "/downloads/captcha":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>please solve this captcha</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 0)

	var buf bytes.Buffer
	_, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	var parseErr *resolve.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError for non-PDF content", err)
	}
}

func TestByDOIEmptyDOI(t *testing.T) {
	ts := newMirrorServer(t)
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 0)

	var buf bytes.Buffer
	_, err := ByDOI(context.Background(), client, mirror, "", &buf)
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		doi  string
		want string
	}{
		{"10.1016/j.neuron.2012.02.004", "10.1016_j.neuron.2012.02.004.pdf"},
		{"10.1002/9781118445112.stat06003", "10.1002_9781118445112.stat06003.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.doi); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.doi, got, tt.want)
		}
	}
}

func TestSaveWritesFileAtomically(t *testing.T) {
	ts := newMirrorServer(t)
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 0)

	var buf bytes.Buffer
	d, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	if err != nil {
		t.Fatalf("ByDOI: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, Filename(testDOI))
	// Tiny chunk size to exercise multi-chunk writes.
	if err := d.Save(path, 7); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved PDF: %v", err)
	}
	if string(data) != fixturePDF {
		t.Errorf("saved bytes = %q, want fixture", data)
	}

	// No temp files left behind.
	leftovers, err := filepath.Glob(filepath.Join(dir, ".sci-dl-*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRecordAndSidecar(t *testing.T) {
	ts := newMirrorServer(t)
	defer ts.Close()
	client, mirror := testSession(t, ts.URL, 0)

	var buf bytes.Buffer
	d, err := ByDOI(context.Background(), client, mirror, testDOI, &buf)
	if err != nil {
		t.Fatalf("ByDOI: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, Filename(testDOI))
	rec := d.Record(path)

	if rec.DOI != testDOI {
		t.Errorf("DOI = %q, want %q", rec.DOI, testDOI)
	}
	if rec.Bytes != len(fixturePDF) {
		t.Errorf("Bytes = %d, want %d", rec.Bytes, len(fixturePDF))
	}
	wantSum := fmt.Sprintf("%x", sha256.Sum256([]byte(fixturePDF)))
	if rec.SHA256 != wantSum {
		t.Errorf("SHA256 = %q, want %q", rec.SHA256, wantSum)
	}
	if rec.DownloadedAt.IsZero() {
		t.Error("DownloadedAt should be set")
	}

	sidecar := path + ".yaml"
	if err := WriteRecord(rec, sidecar); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	got, err := ReadRecord(sidecar)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.DOI != rec.DOI || got.PDFURL != rec.PDFURL || got.SHA256 != rec.SHA256 {
		t.Errorf("round-tripped record differs: got %+v, want %+v", got, rec)
	}
}
