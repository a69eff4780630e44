package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ivlasov/claimfold/internal/budget"
	"github.com/ivlasov/claimfold/internal/cache"
	"github.com/ivlasov/claimfold/internal/chunk"
	"github.com/ivlasov/claimfold/internal/cluster"
	"github.com/ivlasov/claimfold/internal/digest"
	"github.com/ivlasov/claimfold/internal/extract"
	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
	"github.com/ivlasov/claimfold/internal/summarize"
	"github.com/ivlasov/claimfold/internal/validate"
	"github.com/ivlasov/claimfold/internal/worker"
)

// Pipeline orchestrates a complete digest run: ingest, clean, chunk,
// summarize, extract, ground, cluster, render. All external calls go
// through one budget invoker so the run shares a single quota.
type Pipeline struct {
	fetcher      *Fetcher
	pool         *worker.Pool
	splitter     *chunk.Splitter
	summarizer   *summarize.Summarizer
	extractor    *extract.Extractor
	deduplicator *cluster.Deduplicator
	generator    *digest.Generator
	provider     llm.Provider
	config       *model.Config
}

// NewPipeline wires the pipeline from configuration. An unconfigured
// or failing provider is an error here: unlike scoring-style tools,
// every meaningful stage of this one needs the generation service.
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy)
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider)")
	}

	invoker := budget.NewInvoker(budget.LimitsFromConfig(cfg.Budget, time.Duration(cfg.LLM.Timeout)*time.Second))
	vectors := cache.NewVectorCache(30*time.Minute, 10*time.Minute)
	index := cluster.NewIndex(budgetEmbedder{provider: provider, invoker: invoker}, vectors)

	return &Pipeline{
		fetcher:      NewFetcher(cfg.HTTP, cfg.Ingest),
		pool:         worker.NewPool(cfg.Ingest.Workers),
		splitter:     chunk.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap),
		summarizer:   summarize.NewSummarizer(provider, invoker, llmCfg, cfg.Budget.MaxBatchChars),
		extractor:    extract.NewExtractor(provider, invoker, llmCfg),
		deduplicator: cluster.NewDeduplicator(index, cfg.Cluster.SimilarityThreshold),
		generator:    digest.NewGenerator(provider, invoker, llmCfg),
		provider:     provider,
		config:       cfg,
	}, nil
}

// Result is the outcome of one run
type Result struct {
	Sources     []model.Source
	Groups      []model.ClaimGroup
	TotalClaims int
	Dropped     int
	DigestMD    string
}

// Run processes the given URLs and file paths into a digest under
// outputDir. Per-source failures degrade that source; budget
// exhaustion or a fatal provider error aborts the whole run before any
// groups are materialized.
func (p *Pipeline) Run(ctx context.Context, inputs []string, outputDir string) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no sources given")
	}

	fmt.Printf("Ingesting %d sources...\n", len(inputs))
	sources := p.ingest(ctx, inputs)

	fmt.Println("Summarizing and extracting claims...")
	var allClaims []model.Claim
	sourceTexts := make(map[string]string)
	for i := range sources {
		src := &sources[i]
		if src.Meta.Status != model.StatusSuccess {
			continue
		}

		src.CleanedText = CleanText(src.RawText)
		sourceTexts[src.Meta.SourceID] = src.CleanedText
		src.Chunks = p.splitter.ChunkSource(src)

		summary, err := p.summarizer.SummarizeChunks(ctx, src.Chunks)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", src.Meta.SourceID, err)
		}
		src.Summary = summary

		claims, err := p.extractor.ExtractClaims(ctx, summary, src.Meta.SourceID, src.Meta.Title)
		if err != nil {
			return nil, err
		}
		src.Claims = claims
		allClaims = append(allClaims, claims...)
	}

	kept, dropped := validate.Filter(allClaims, sourceTexts)
	if len(dropped) > 0 {
		fmt.Printf("Dropped %d ungrounded claims\n", len(dropped))
	}

	fmt.Printf("Grouping %d claims...\n", len(kept))
	groups, err := p.deduplicator.Group(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("group claims: %w", err)
	}

	fmt.Println("Generating digest...")
	digestMD, err := p.generator.Generate(ctx, groups, sources, outputDir)
	if err != nil {
		return nil, fmt.Errorf("generate digest: %w", err)
	}

	fmt.Printf("Done: %d claims in %d groups.\n", len(kept), len(groups))
	return &Result{
		Sources:     sources,
		Groups:      groups,
		TotalClaims: len(kept),
		Dropped:     len(dropped),
		DigestMD:    digestMD,
	}, nil
}

// ingest fetches all inputs concurrently, preserving input order
func (p *Pipeline) ingest(ctx context.Context, inputs []string) []model.Source {
	tasks := make([]worker.Task, len(inputs))
	for i, input := range inputs {
		in := input
		tasks[i] = func(ctx context.Context) model.Source {
			src := p.fetcher.Fetch(ctx, in)
			switch src.Meta.Status {
			case model.StatusSuccess:
				fmt.Printf("  ✓ %s (%d chars)\n", in, src.Meta.CharLength)
			case model.StatusEmpty:
				fmt.Printf("  - %s (no usable text)\n", in)
			default:
				fmt.Printf("  ✗ %s: %s\n", in, src.Meta.Error)
			}
			return src
		}
	}
	return p.pool.Run(ctx, tasks)
}

// budgetEmbedder routes embedding calls through the shared invoker so
// remote embedding providers count against the same quota as generation
type budgetEmbedder struct {
	provider llm.Provider
	invoker  *budget.Invoker
}

func (e budgetEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	estimated := 0
	for _, t := range texts {
		estimated += llm.EstimateTokens(t)
	}

	_, err := e.invoker.Invoke(ctx, estimated, func(ctx context.Context) (string, int, error) {
		vecs, err := e.provider.Embed(ctx, texts)
		if err != nil {
			return "", 0, err
		}
		vectors = vecs
		return "", estimated, nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
