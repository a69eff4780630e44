package digest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlasov/claimfold/internal/budget"
	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
)

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, _ llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Text: f.text, TokensUsed: 5}, nil
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (f *fakeProvider) IsAvailable(_ context.Context) bool { return true }

func testGroups() []model.ClaimGroup {
	return []model.ClaimGroup{
		{
			GroupID: 0,
			Theme:   "Rates rose",
			Claims: []model.Claim{
				{ID: "s1#0", Text: "Rates rose", SupportingQuote: "rates rose by 50", SourceID: "s1", SourceTitle: "Bank Report"},
				{ID: "s2#0", Text: "Rates went up", SupportingQuote: "rates increased", SourceID: "s2"},
			},
			SourceIDs:   []string{"s1", "s2"},
			Conflicting: true,
		},
		{
			GroupID:   1,
			Theme:     "Inflation persists",
			Claims:    []model.Claim{{ID: "s1#1", Text: "Inflation persists", SupportingQuote: "inflation stayed", SourceID: "s1"}},
			SourceIDs: []string{"s1"},
		},
	}
}

func testSources() []model.Source {
	return []model.Source{
		{Meta: model.SourceMeta{SourceID: "s1", SourceType: "url", SourcePath: "https://example.com/a", Title: "Bank Report", Status: model.StatusSuccess, CharLength: 1000}},
		{Meta: model.SourceMeta{SourceID: "s2", SourceType: "local", SourcePath: "b.txt", Status: model.StatusSuccess, CharLength: 500}},
		{Meta: model.SourceMeta{SourceID: "s3", SourceType: "url", SourcePath: "https://example.com/c", Status: model.StatusFailed, Error: "HTTP 404"}},
	}
}

func newTestGenerator(provider llm.Provider) *Generator {
	g := NewGenerator(provider, budget.NewInvoker(budget.Limits{}), llm.DefaultConfig())
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestFallbackDigest_Deterministic(t *testing.T) {
	groups := testGroups()
	first := FallbackDigest(groups)
	second := FallbackDigest(groups)
	if first != second {
		t.Error("Expected identical output for identical input")
	}
}

func TestFallbackDigest_Content(t *testing.T) {
	out := FallbackDigest(testGroups())

	if !strings.Contains(out, "## Rates rose") {
		t.Error("Expected theme heading")
	}
	if !strings.Contains(out, "*Bank Report*") {
		t.Error("Expected source title label")
	}
	if !strings.Contains(out, "*s2*") {
		t.Error("Expected source id label when title missing")
	}
	if !strings.Contains(out, "conflicting viewpoints") {
		t.Error("Expected conflict note for multi-source group")
	}
	if strings.Count(out, "conflicting viewpoints") != 1 {
		t.Error("Expected conflict note only on the conflicting group")
	}
}

func TestGenerate_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{text: "## Narrative\n\nBody text."}
	g := newTestGenerator(provider)

	md, err := g.Generate(context.Background(), testGroups(), testSources(), dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(md, "# Research Digest") {
		t.Error("Expected digest header")
	}
	if !strings.Contains(md, "**Sources Analyzed:** 2") {
		t.Errorf("Expected 2 successful sources in header, got:\n%s", md)
	}
	if !strings.Contains(md, "**Total Claims:** 3") {
		t.Error("Expected total claim count in header")
	}
	if !strings.Contains(md, "## Narrative") {
		t.Error("Expected model-generated body")
	}

	written, err := os.ReadFile(filepath.Join(dir, "digest.md"))
	if err != nil {
		t.Fatalf("digest.md not written: %v", err)
	}
	if string(written) != md {
		t.Error("Expected returned markdown to match the written file")
	}

	var report SourcesReport
	data, err := os.ReadFile(filepath.Join(dir, "sources.json"))
	if err != nil {
		t.Fatalf("sources.json not written: %v", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("sources.json is not valid JSON: %v", err)
	}
	if report.Metadata.TotalSources != 3 || report.Metadata.SuccessfulSources != 2 {
		t.Errorf("Unexpected report metadata: %+v", report.Metadata)
	}
	if len(report.Sources) != 3 {
		t.Errorf("Expected all sources in report, got %d", len(report.Sources))
	}
	if report.Sources[2].Error != "HTTP 404" {
		t.Errorf("Expected failure reason preserved, got %q", report.Sources[2].Error)
	}
}

func TestGenerate_FallsBackOnGenerationFailure(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{err: llm.ErrTransient}
	g := newTestGenerator(provider)

	md, err := g.Generate(context.Background(), testGroups(), testSources(), dir)
	if err != nil {
		t.Fatalf("Expected degraded digest, got error %v", err)
	}
	if !strings.Contains(md, "## Rates rose") {
		t.Error("Expected template rendering in the body")
	}
}

func TestGenerate_NilProviderUsesFallback(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(nil)

	md, err := g.Generate(context.Background(), testGroups(), testSources(), dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(md, "## Inflation persists") {
		t.Error("Expected template rendering without a provider")
	}
}
