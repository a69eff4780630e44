package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlasov/claimfold/internal/model"
	"github.com/ivlasov/claimfold/internal/util"
	"github.com/ivlasov/claimfold/internal/worker"
)

// supportedExtensions for local file sources
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// Fetcher ingests sources from URLs and local files. URL fetches go
// through the per-domain limiter and, when configured, robots.txt.
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	limiter      *worker.Limiter
	robots       *util.RobotsChecker
}

// NewFetcher creates a fetcher from the HTTP and ingest configuration
func NewFetcher(httpCfg model.HTTPConfig, ingestCfg model.IngestConfig) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy),
			},
		},
		userAgent:    httpCfg.UserAgent,
		maxBodyBytes: httpCfg.MaxBodyBytes,
		limiter:      worker.NewLimiter(ingestCfg.RequestsPerSecond, ingestCfg.Burst),
	}
	if ingestCfg.RespectRobots {
		f.robots = util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout)
	}
	return f
}

// Fetch dispatches by source shape: http(s) URLs are fetched over the
// network, anything else is treated as a local file path
func (f *Fetcher) Fetch(ctx context.Context, source string) model.Source {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchURL(ctx, source)
	}
	return f.fetchLocal(source)
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) model.Source {
	meta := model.SourceMeta{
		SourceID:   SourceID(rawURL),
		SourceType: "url",
		SourcePath: rawURL,
		Status:     model.StatusSuccess,
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return failedSource(meta, "disallowed by robots.txt")
		}
		crawlDelay = delay
	}

	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return failedSource(meta, fmt.Sprintf("rate limit wait: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failedSource(meta, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return failedSource(meta, fmt.Sprintf("request failed: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failedSource(meta, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	reader := io.Reader(resp.Body)
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return failedSource(meta, fmt.Sprintf("read body: %v", err))
	}

	title, text, err := extractHTML(string(body))
	if err != nil {
		return failedSource(meta, fmt.Sprintf("parse HTML: %v", err))
	}

	meta.Title = title
	meta.CharLength = len(text)
	if strings.TrimSpace(text) == "" {
		meta.Status = model.StatusEmpty
	}
	return model.Source{Meta: meta, RawText: text}
}

func (f *Fetcher) fetchLocal(path string) model.Source {
	meta := model.SourceMeta{
		SourceID:   SourceID(path),
		SourceType: "local",
		SourcePath: path,
		Status:     model.StatusSuccess,
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return failedSource(meta, fmt.Sprintf("unsupported file type: %s", ext))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return failedSource(meta, err.Error())
	}

	var text string
	if ext == ".html" || ext == ".htm" {
		title, extracted, err := extractHTML(string(content))
		if err != nil {
			return failedSource(meta, fmt.Sprintf("parse HTML: %v", err))
		}
		meta.Title = title
		text = extracted
	} else {
		meta.Title = filepath.Base(path)
		text = string(content)
	}

	meta.CharLength = len(text)
	if strings.TrimSpace(text) == "" {
		meta.Status = model.StatusEmpty
	}
	return model.Source{Meta: meta, RawText: text}
}

// SourceID derives a short stable identifier from the URL or path
func SourceID(source string) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:10]
}

func failedSource(meta model.SourceMeta, reason string) model.Source {
	meta.Status = model.StatusFailed
	meta.Error = reason
	return model.Source{Meta: meta}
}
