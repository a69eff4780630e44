package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ivlasov/claimfold/internal/budget"
	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
)

const extractSystemPrompt = "You are a research analyst. You extract key claims from text. " +
	"Every claim must be grounded in the source. Never invent facts. " +
	"Return only valid JSON with no extra text."

const extractTemplate = `Extract 3-7 key claims from this text.
For each claim provide a direct supporting quote from the text.

Return ONLY a JSON array with no additional text:
[{"claim": "...", "supporting_quote": "..."}]

Text:
---
%s
---`

// maxParseRetries bounds re-prompting on malformed responses. Past the
// bound the unit's extraction is abandoned, not the whole run.
const maxParseRetries = 2

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// claimPayload is the wire shape the model is instructed to return
type claimPayload struct {
	Claim           string `json:"claim"`
	SupportingQuote string `json:"supporting_quote"`
}

// Extractor turns summarized source text into atomic claims via the
// generation service, routed through the budget invoker
type Extractor struct {
	provider llm.Provider
	invoker  *budget.Invoker
	cfg      llm.Config
}

// NewExtractor creates a claim extractor
func NewExtractor(provider llm.Provider, invoker *budget.Invoker, cfg llm.Config) *Extractor {
	return &Extractor{provider: provider, invoker: invoker, cfg: cfg}
}

// ExtractClaims asks the model for claims with supporting quotes. A
// malformed response is re-prompted up to maxParseRetries times and
// then the source is given up on with no error; invocation failures
// propagate to the caller, which decides whether the run continues.
func (e *Extractor) ExtractClaims(ctx context.Context, text, sourceID, sourceTitle string) ([]model.Claim, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(extractTemplate, text)
	estimated := llm.EstimateTokens(extractSystemPrompt + prompt)

	var lastParseErr error
	for attempt := 0; attempt <= maxParseRetries; attempt++ {
		raw, err := e.invoker.Invoke(ctx, estimated, func(ctx context.Context) (string, int, error) {
			resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
				System:      extractSystemPrompt,
				Prompt:      prompt,
				MaxTokens:   e.cfg.MaxTokens,
				Temperature: e.cfg.Temperature,
			})
			if err != nil {
				return "", 0, err
			}
			return resp.Text, resp.TokensUsed, nil
		})
		if err != nil {
			return nil, fmt.Errorf("extract claims for %s: %w", sourceID, err)
		}

		payloads, err := parseResponse(raw)
		if err != nil {
			lastParseErr = err
			continue
		}
		return buildClaims(payloads, sourceID, sourceTitle), nil
	}

	fmt.Printf("Warning: abandoning claim extraction for %s: %v\n", sourceID, lastParseErr)
	return nil, nil
}

// parseResponse extracts the JSON array from model output, tolerating
// code fences and prose around it
func parseResponse(raw string) ([]claimPayload, error) {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}

	if match := jsonArrayPattern.FindString(cleaned); match != "" {
		cleaned = match
	}

	var payloads []claimPayload
	if err := json.Unmarshal([]byte(cleaned), &payloads); err != nil {
		return nil, fmt.Errorf("parse claims JSON: %w", err)
	}
	return payloads, nil
}

// buildClaims converts payloads to claims, skipping empty texts and
// assigning ids of the form source_id#n
func buildClaims(payloads []claimPayload, sourceID, sourceTitle string) []model.Claim {
	var claims []model.Claim
	for _, p := range payloads {
		text := strings.TrimSpace(p.Claim)
		if text == "" {
			continue
		}
		claims = append(claims, model.Claim{
			ID:              fmt.Sprintf("%s#%d", sourceID, len(claims)),
			Text:            text,
			SupportingQuote: strings.TrimSpace(p.SupportingQuote),
			SourceID:        sourceID,
			SourceTitle:     sourceTitle,
		})
	}
	return claims
}
