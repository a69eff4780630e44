package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlasov/claimfold/internal/budget"
	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
)

const digestSystem = "You are a research analyst writing a structured research brief. " +
	"Organize findings by thematic sections. Reference sources clearly. " +
	"Preserve conflicting viewpoints with attribution. Never invent facts."

const digestTemplate = `Generate a markdown research digest from these grouped claims.

Grouped Claims:
%s

Sources:
%s

Write the digest with themed sections and source references.`

// Generator renders the grouped claims into digest.md and
// sources.json. The narrative body comes from the generation service;
// when that path fails the body degrades to a deterministic formatter
// over the group data, never to an aborted digest.
type Generator struct {
	provider llm.Provider
	invoker  *budget.Invoker
	cfg      llm.Config

	now func() time.Time
}

// NewGenerator creates a digest generator. provider may be nil, in
// which case only the deterministic formatter is used.
func NewGenerator(provider llm.Provider, invoker *budget.Invoker, cfg llm.Config) *Generator {
	return &Generator{provider: provider, invoker: invoker, cfg: cfg, now: time.Now}
}

// Generate writes digest.md and sources.json under outputDir and
// returns the digest markdown
func (g *Generator) Generate(ctx context.Context, groups []model.ClaimGroup, sources []model.Source, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	body := g.buildBody(ctx, groups, sources)
	digestMD := g.buildHeader(groups, sources) + body

	mdPath := filepath.Join(outputDir, "digest.md")
	if err := os.WriteFile(mdPath, []byte(digestMD), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", mdPath, err)
	}

	report := g.buildSourcesReport(sources)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sources report: %w", err)
	}
	jsonPath := filepath.Join(outputDir, "sources.json")
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", jsonPath, err)
	}

	return digestMD, nil
}

// buildBody asks the model for a narrative and falls back to the
// deterministic rendering on any failure
func (g *Generator) buildBody(ctx context.Context, groups []model.ClaimGroup, sources []model.Source) string {
	if g.provider == nil {
		return FallbackDigest(groups)
	}

	body, err := g.synthesize(ctx, groups, sources)
	if err != nil {
		fmt.Printf("Warning: digest synthesis failed, using template rendering: %v\n", err)
		return FallbackDigest(groups)
	}
	return body
}

func (g *Generator) synthesize(ctx context.Context, groups []model.ClaimGroup, sources []model.Source) (string, error) {
	claimsJSON, err := json.MarshalIndent(prepareClaims(groups), "", "  ")
	if err != nil {
		return "", err
	}
	sourcesJSON, err := json.MarshalIndent(prepareSources(sources), "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(digestTemplate, claimsJSON, sourcesJSON)
	estimated := llm.EstimateTokens(digestSystem + prompt)

	out, err := g.invoker.Invoke(ctx, estimated, func(ctx context.Context) (string, int, error) {
		resp, err := g.provider.Generate(ctx, llm.GenerateRequest{
			System:      digestSystem,
			Prompt:      prompt,
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: g.cfg.Temperature,
		})
		if err != nil {
			return "", 0, err
		}
		return resp.Text, resp.TokensUsed, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// FallbackDigest renders groups without the generation service. Pure
// function of the group data; same input, same markdown.
func FallbackDigest(groups []model.ClaimGroup) string {
	sections := make([]string, 0, len(groups))
	for _, group := range groups {
		var lines []string
		lines = append(lines, fmt.Sprintf("## %s\n", group.Theme))

		for _, claim := range group.Claims {
			label := claim.SourceTitle
			if label == "" {
				label = claim.SourceID
			}
			lines = append(lines, fmt.Sprintf("- **%s**", claim.Text))
			lines = append(lines, fmt.Sprintf("  > %q", claim.SupportingQuote))
			lines = append(lines, fmt.Sprintf("  — *%s*\n", label))
		}

		if group.Conflicting {
			lines = append(lines, "*Note: This group contains potentially conflicting viewpoints.*\n")
		}

		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func (g *Generator) buildHeader(groups []model.ClaimGroup, sources []model.Source) string {
	successful := 0
	for _, s := range sources {
		if s.Meta.Status == model.StatusSuccess {
			successful++
		}
	}

	return fmt.Sprintf("# Research Digest\n\n"+
		"**Generated:** %s\n"+
		"**Sources Analyzed:** %d\n"+
		"**Total Claims:** %d\n"+
		"**Claim Groups:** %d\n\n---\n\n",
		g.now().Format("2006-01-02 15:04:05"), successful, model.TotalClaims(groups), len(groups))
}

// Prompt payload shapes

type claimEntry struct {
	Claim           string `json:"claim"`
	SupportingQuote string `json:"supporting_quote"`
	Source          string `json:"source"`
}

type groupEntry struct {
	Theme         string       `json:"theme"`
	IsConflicting bool         `json:"is_conflicting"`
	Claims        []claimEntry `json:"claims"`
	Sources       []string     `json:"sources"`
}

type sourceEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

func prepareClaims(groups []model.ClaimGroup) []groupEntry {
	out := make([]groupEntry, 0, len(groups))
	for _, group := range groups {
		entry := groupEntry{
			Theme:         group.Theme,
			IsConflicting: group.Conflicting,
			Sources:       group.SourceIDs,
		}
		for _, c := range group.Claims {
			label := c.SourceTitle
			if label == "" {
				label = c.SourceID
			}
			entry.Claims = append(entry.Claims, claimEntry{
				Claim:           c.Text,
				SupportingQuote: c.SupportingQuote,
				Source:          label,
			})
		}
		out = append(out, entry)
	}
	return out
}

func prepareSources(sources []model.Source) []sourceEntry {
	var out []sourceEntry
	for _, s := range sources {
		if s.Meta.Status != model.StatusSuccess {
			continue
		}
		title := s.Meta.Title
		if title == "" {
			title = s.Meta.SourcePath
		}
		out = append(out, sourceEntry{ID: s.Meta.SourceID, Title: title, Type: s.Meta.SourceType})
	}
	return out
}

// SourcesReport is the sources.json document
type SourcesReport struct {
	Metadata ReportMetadata `json:"metadata"`
	Sources  []SourceReport `json:"sources"`
}

// ReportMetadata summarizes the run
type ReportMetadata struct {
	GeneratedAt       string `json:"generated_at"`
	TotalSources      int    `json:"total_sources"`
	SuccessfulSources int    `json:"successful_sources"`
}

// SourceReport is one source's entry in sources.json
type SourceReport struct {
	SourceID   string             `json:"source_id"`
	Title      string             `json:"title"`
	SourceType string             `json:"source_type"`
	SourcePath string             `json:"source_path"`
	Status     model.SourceStatus `json:"status"`
	CharLength int                `json:"char_length"`
	Error      string             `json:"error,omitempty"`
	Claims     []model.Claim      `json:"claims"`
}

func (g *Generator) buildSourcesReport(sources []model.Source) SourcesReport {
	report := SourcesReport{
		Metadata: ReportMetadata{
			GeneratedAt:  g.now().Format(time.RFC3339),
			TotalSources: len(sources),
		},
	}
	for _, s := range sources {
		if s.Meta.Status == model.StatusSuccess {
			report.Metadata.SuccessfulSources++
		}
		report.Sources = append(report.Sources, SourceReport{
			SourceID:   s.Meta.SourceID,
			Title:      s.Meta.Title,
			SourceType: s.Meta.SourceType,
			SourcePath: s.Meta.SourcePath,
			Status:     s.Meta.Status,
			CharLength: s.Meta.CharLength,
			Error:      s.Meta.Error,
			Claims:     s.Claims,
		})
	}
	return report
}
