package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlasov/claimfold/internal/model"
)

func testFetcher() *Fetcher {
	return NewFetcher(
		model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "claimfold-test", MaxBodyBytes: 1 << 20},
		model.IngestConfig{RequestsPerSecond: 100, Burst: 10},
	)
}

func TestFetcher_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "claimfold-test" {
			t.Errorf("Expected configured user agent, got %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	src := testFetcher().Fetch(context.Background(), server.URL+"/page")
	if src.Meta.Status != model.StatusSuccess {
		t.Fatalf("Expected success, got %s (%s)", src.Meta.Status, src.Meta.Error)
	}
	if src.Meta.SourceType != "url" {
		t.Errorf("Expected url source type, got %q", src.Meta.SourceType)
	}
	if src.Meta.Title != "Rate Decision" {
		t.Errorf("Expected extracted title, got %q", src.Meta.Title)
	}
	if src.Meta.CharLength != len(src.RawText) || src.Meta.CharLength == 0 {
		t.Errorf("Expected char length %d, got %d", len(src.RawText), src.Meta.CharLength)
	}
}

func TestFetcher_URLFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	src := testFetcher().Fetch(context.Background(), server.URL+"/missing")
	if src.Meta.Status != model.StatusFailed {
		t.Fatalf("Expected failed status, got %s", src.Meta.Status)
	}
	if src.Meta.Error != "HTTP 404" {
		t.Errorf("Expected HTTP 404 reason, got %q", src.Meta.Error)
	}
}

func TestFetcher_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	src := testFetcher().Fetch(context.Background(), server.URL)
	if src.Meta.Status != model.StatusEmpty {
		t.Errorf("Expected empty status, got %s", src.Meta.Status)
	}
}

func TestFetcher_LocalText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("Some local source text."), 0o644); err != nil {
		t.Fatal(err)
	}

	src := testFetcher().Fetch(context.Background(), path)
	if src.Meta.Status != model.StatusSuccess {
		t.Fatalf("Expected success, got %s (%s)", src.Meta.Status, src.Meta.Error)
	}
	if src.Meta.SourceType != "local" {
		t.Errorf("Expected local source type, got %q", src.Meta.SourceType)
	}
	if src.Meta.Title != "notes.txt" {
		t.Errorf("Expected file name title, got %q", src.Meta.Title)
	}
	if src.RawText != "Some local source text." {
		t.Errorf("Unexpected raw text %q", src.RawText)
	}
}

func TestFetcher_LocalHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(samplePage), 0o644); err != nil {
		t.Fatal(err)
	}

	src := testFetcher().Fetch(context.Background(), path)
	if src.Meta.Status != model.StatusSuccess {
		t.Fatalf("Expected success, got %s (%s)", src.Meta.Status, src.Meta.Error)
	}
	if src.Meta.Title != "Rate Decision" {
		t.Errorf("Expected extracted title, got %q", src.Meta.Title)
	}
}

func TestFetcher_UnsupportedExtension(t *testing.T) {
	src := testFetcher().Fetch(context.Background(), "document.pdf")
	if src.Meta.Status != model.StatusFailed {
		t.Fatalf("Expected failure for unsupported type, got %s", src.Meta.Status)
	}
}

func TestFetcher_MissingFile(t *testing.T) {
	src := testFetcher().Fetch(context.Background(), "/does/not/exist.txt")
	if src.Meta.Status != model.StatusFailed {
		t.Fatalf("Expected failure for missing file, got %s", src.Meta.Status)
	}
}

func TestSourceID_Stable(t *testing.T) {
	a := SourceID("https://example.com/a")
	b := SourceID("https://example.com/a")
	c := SourceID("https://example.com/b")
	if a != b {
		t.Error("Expected identical ids for identical input")
	}
	if a == c {
		t.Error("Expected distinct ids for distinct input")
	}
	if len(a) != 10 {
		t.Errorf("Expected 10-char id, got %d", len(a))
	}
}
