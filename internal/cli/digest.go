package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ivlasov/claimfold/internal/model"
	"github.com/ivlasov/claimfold/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	fromFile     string
	outputDir    string
	runTimeout   time.Duration
	fetchTimeout time.Duration
	userAgent    string
	maxBytes     int64
	workers      int
	noRobots     bool
	httpProxy    string
	httpsProxy   string

	llmProvider    string
	llmModel       string
	embeddingModel string
	llmBaseURL     string

	requestsPerMinute int
	tokensPerMinute   int
	requestsPerDay    int
	tokensPerDay      int
	paceDelay         time.Duration
	cooldown          time.Duration

	similarityThreshold float64
)

// digestCmd represents the digest command
var digestCmd = &cobra.Command{
	Use:   "digest [url|file ...]",
	Short: "Build a deduplicated claim digest from URLs and documents",
	Long: `Digest ingests the given web pages and local documents (.txt, .md,
.html) and produces a themed Markdown digest plus a sources report:
- Fetch and clean each source in parallel, respecting robots.txt
- Summarize long sources in batched passes
- Extract atomic claims with verbatim supporting quotes
- Drop claims whose quote is not found in the source text
- Cluster equivalent claims across sources and flag disagreement

Sources can be given as arguments, read from a file with --from-file
(one per line, '#' comments allowed), or both.

Example:
  claimfold digest https://example.com/fed-minutes notes.md
  claimfold digest --from-file sources.txt --output-dir ./digests
  claimfold digest report.html --provider ollama --model llama3.1`,
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)

	// Input/output flags
	digestCmd.Flags().StringVar(&fromFile, "from-file", "", "read additional sources from file (one per line)")
	digestCmd.Flags().StringVar(&outputDir, "output-dir", "output", "output directory for digest.md and sources.json")

	// HTTP flags
	digestCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout (budget pacing makes runs slow by design)")
	digestCmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", 15*time.Second, "timeout for individual fetches")
	digestCmd.Flags().StringVar(&userAgent, "ua", "claimfold/0.1 (+https://github.com/ivlasov/claimfold)", "HTTP User-Agent")
	digestCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	digestCmd.Flags().IntVar(&workers, "workers", 4, "concurrent fetch workers")
	digestCmd.Flags().BoolVar(&noRobots, "no-robots", false, "ignore robots.txt (use only on sites you control)")
	digestCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	digestCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	digestCmd.Flags().StringVar(&llmProvider, "provider", "openai", "LLM provider (openai, groq, ollama)")
	digestCmd.Flags().StringVar(&llmModel, "model", "gpt-4o-mini", "generation model name")
	digestCmd.Flags().StringVar(&embeddingModel, "embedding-model", "text-embedding-3-small", "embedding model name")
	digestCmd.Flags().StringVar(&llmBaseURL, "base-url", "", "provider base URL override")

	// Budget flags
	digestCmd.Flags().IntVar(&requestsPerMinute, "rpm", 30, "max requests per rolling minute")
	digestCmd.Flags().IntVar(&tokensPerMinute, "tpm", 6000, "max tokens per rolling minute")
	digestCmd.Flags().IntVar(&requestsPerDay, "rpd", 1000, "max requests per rolling day")
	digestCmd.Flags().IntVar(&tokensPerDay, "tpd", 250_000, "max tokens per rolling day")
	digestCmd.Flags().DurationVar(&paceDelay, "pace-delay", 22*time.Second, "minimum gap between API calls")
	digestCmd.Flags().DurationVar(&cooldown, "cooldown", 60*time.Second, "wait after a rate-limit response")

	// Clustering flags
	digestCmd.Flags().Float64Var(&similarityThreshold, "threshold", 0.80, "cosine similarity threshold for claim grouping")
}

func runDigest(cmd *cobra.Command, args []string) error {
	inputs, err := collectInputs(args, fromFile)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no sources given (pass URLs/paths as arguments or use --from-file)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Sources: %d\n", len(inputs))
		fmt.Fprintf(os.Stderr, "Provider: %s/%s\n", llmProvider, llmModel)
		fmt.Fprintf(os.Stderr, "Budget: %d rpm, %d tpm, %v pace\n", requestsPerMinute, tokensPerMinute, paceDelay)
		fmt.Fprintln(os.Stderr)
	}

	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = fetchTimeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Ingest.Workers = workers
	cfg.Ingest.RespectRobots = !noRobots
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	cfg.LLM.EmbeddingModel = embeddingModel
	if llmBaseURL != "" {
		cfg.LLM.BaseURL = llmBaseURL
	}
	cfg.Budget.RequestsPerMinute = requestsPerMinute
	cfg.Budget.TokensPerMinute = tokensPerMinute
	cfg.Budget.RequestsPerDay = requestsPerDay
	cfg.Budget.TokensPerDay = tokensPerDay
	cfg.Budget.PaceDelay = paceDelay
	cfg.Budget.Cooldown = cooldown
	cfg.Cluster.SimilarityThreshold = similarityThreshold
	cfg.Output.Dir = outputDir
	cfg.Output.Verbose = verbose

	// Get API key from environment
	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "groq":
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && llmBaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, inputs, outputDir)
	if err != nil {
		return fmt.Errorf("digest failed: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "✓ %d sources processed\n", len(result.Sources))
		fmt.Fprintf(os.Stderr, "✓ %d claims kept, %d dropped as ungrounded\n", result.TotalClaims, result.Dropped)
		fmt.Fprintf(os.Stderr, "✓ %d claim groups\n", len(result.Groups))
	}
	fmt.Printf("Digest written to %s\n", outputDir)

	return nil
}

// collectInputs merges argument sources with the optional list file.
// Blank lines and '#' comments in the file are skipped.
func collectInputs(args []string, file string) ([]string, error) {
	inputs := append([]string(nil), args...)
	if file == "" {
		return inputs, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return inputs, nil
}
