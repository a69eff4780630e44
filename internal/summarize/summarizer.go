package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivlasov/claimfold/internal/budget"
	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
)

const summarizeTemplate = `Summarize the following text concisely. Keep only key facts and claims.
Do not add any information not present in the text.

Text:
---
%s
---

Concise summary:`

// Texts shorter than this many words pass through unsummarized; the
// model would only pad them
const minSummarizeWords = 30

// fallbackChars bounds the degraded summary taken when generation
// fails transiently
const fallbackChars = 500

// Summarizer condenses chunked source text through the generation
// service, packing chunks into batches to keep the call count down.
// All scheduling is delegated to the budget invoker.
type Summarizer struct {
	provider      llm.Provider
	invoker       *budget.Invoker
	cfg           llm.Config
	maxBatchChars int
}

// NewSummarizer creates a summarizer
func NewSummarizer(provider llm.Provider, invoker *budget.Invoker, cfg llm.Config, maxBatchChars int) *Summarizer {
	return &Summarizer{provider: provider, invoker: invoker, cfg: cfg, maxBatchChars: maxBatchChars}
}

// SummarizeChunks batches the chunks and summarizes each batch,
// joining the per-batch summaries with blank lines. Transient
// exhaustion on one batch degrades to a truncated excerpt of that
// batch; rate-limit exhaustion and daily-budget errors abort the run.
func (s *Summarizer) SummarizeChunks(ctx context.Context, chunks []model.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	units := make([]string, len(chunks))
	for i, c := range chunks {
		units[i] = c.Content
	}
	batches := budget.BuildBatches(units, s.maxBatchChars)

	summaries := make([]string, 0, len(batches))
	for i, batch := range batches {
		summary, err := s.summarizeBatch(ctx, batch)
		if err != nil {
			if llm.IsTransient(err) {
				fmt.Printf("Warning: summary generation failed for batch %d, using excerpt: %v\n", i, err)
				summaries = append(summaries, truncate(batch, fallbackChars))
				continue
			}
			return "", err
		}
		summaries = append(summaries, summary)
	}

	return strings.Join(summaries, "\n\n"), nil
}

// summarizeBatch runs one batch through the invoker, passing short
// texts through untouched
func (s *Summarizer) summarizeBatch(ctx context.Context, text string) (string, error) {
	if len(strings.Fields(text)) < minSummarizeWords {
		return text, nil
	}

	prompt := fmt.Sprintf(summarizeTemplate, text)
	estimated := llm.EstimateTokens(prompt)

	out, err := s.invoker.Invoke(ctx, estimated, func(ctx context.Context) (string, int, error) {
		resp, err := s.provider.Generate(ctx, llm.GenerateRequest{
			Prompt:      prompt,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: 0,
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

// truncate cuts text at n bytes without splitting a UTF-8 sequence
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && text[n]&0xC0 == 0x80 {
		n--
	}
	return text[:n]
}
