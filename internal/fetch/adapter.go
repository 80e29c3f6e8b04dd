// Package fetch turns a classified post URL into a raw asset bundle by
// trying an ordered list of platform adapters until one succeeds.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
	"github.com/Hchen1218/viral-content-breakdown/internal/worker"
)

// Request carries everything an adapter needs for one fetch attempt.
type Request struct {
	URL           string
	NormalizedURL string
	Platform      model.Platform
	Quality       string
	DownloadDir   string
}

// Bundle is the raw material of a successful fetch. Owned exclusively by
// the extraction stage afterwards; analysis never touches it.
type Bundle struct {
	VideoPaths      []string
	ImagePaths      []string
	AudioPaths      []string
	TranscriptPaths []string
	InfoJSONPaths   []string
	HTML            string
	DownloadDir     string
}

// Empty reports whether the bundle holds nothing an extractor could use.
func (b *Bundle) Empty() bool {
	return b == nil ||
		(len(b.VideoPaths) == 0 && len(b.ImagePaths) == 0 && len(b.AudioPaths) == 0 &&
			len(b.TranscriptPaths) == 0 && len(b.InfoJSONPaths) == 0 && b.HTML == "")
}

// Adapter is one fetch strategy. Implementations must be time-bounded by
// the context they receive.
type Adapter interface {
	ID() string
	// NeedsSession marks adapters that want authentication state; the
	// chain acquires a handle lazily, only when such an adapter runs.
	NeedsSession() bool
	Fetch(ctx context.Context, req *Request, handle *session.Handle) (*Bundle, error)
}

// Attempt records one adapter try for run metadata and failure diagnosis.
type Attempt struct {
	AdapterID string        `json:"adapter_id"`
	Err       string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Result is the chain outcome: the winning bundle, or nothing. Per-attempt
// results are discarded after the chain resolves; only attempts metadata
// is retained.
type Result struct {
	AdapterID string
	Bundle    *Bundle
	Attempts  []Attempt
}

// Chain holds the ordered adapters for a platform. Attempts are strictly
// sequential to avoid conflicting concurrent authentication.
type Chain struct {
	adapters       []Adapter
	provider       session.Provider
	limiter        *worker.Limiter
	adapterTimeout time.Duration
	logger         *zap.Logger
}

func NewChain(adapters []Adapter, provider session.Provider, limiter *worker.Limiter, adapterTimeout time.Duration, logger *zap.Logger) *Chain {
	if adapterTimeout <= 0 {
		adapterTimeout = 3 * time.Minute
	}
	return &Chain{
		adapters:       adapters,
		provider:       provider,
		limiter:        limiter,
		adapterTimeout: adapterTimeout,
		logger:         logger,
	}
}

// Run walks the chain in priority order: Pending → Trying[i] →
// {Fetched | Trying[i+1] | Failed}. A stalled adapter is cut off by its
// per-attempt timeout and treated as failed, not retried.
func (c *Chain) Run(ctx context.Context, req *Request) (*Result, error) {
	if len(c.adapters) == 0 {
		return nil, &model.FetchError{
			StructuredError: *model.NewStructuredError(model.CodeDownloadFailed,
				fmt.Sprintf("no fetch adapter available for platform %s", req.Platform),
				"install yt-dlp or a platform-specific downloader and retry"),
		}
	}

	var (
		attempts []Attempt
		handle   *session.Handle
	)

	for _, adapter := range c.adapters {
		if err := ctx.Err(); err != nil {
			return nil, c.exhausted(req, attempts, "run cancelled: "+err.Error())
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, req.NormalizedURL); err != nil {
				return nil, c.exhausted(req, attempts, "rate limiter wait: "+err.Error())
			}
		}

		if adapter.NeedsSession() && handle == nil && c.provider != nil {
			acquired, err := c.provider.Acquire(ctx, req.Platform)
			if err != nil {
				// Not fatal: the adapter may still succeed without auth.
				c.logger.Warn("session acquisition failed, continuing unauthenticated",
					zap.String("adapter", adapter.ID()), zap.Error(err))
			} else {
				handle = acquired
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.adapterTimeout)
		started := time.Now()
		bundle, err := adapter.Fetch(attemptCtx, req, handle)
		cancel()

		attempt := Attempt{AdapterID: adapter.ID(), Duration: time.Since(started)}
		if err == nil && !bundle.Empty() {
			c.logger.Info("fetch succeeded",
				zap.String("adapter", adapter.ID()),
				zap.Duration("took", attempt.Duration))
			attempts = append(attempts, attempt)
			return &Result{AdapterID: adapter.ID(), Bundle: bundle, Attempts: attempts}, nil
		}

		if err == nil {
			err = fmt.Errorf("adapter produced no usable assets")
		}
		attempt.Err = err.Error()
		attempts = append(attempts, attempt)
		c.logger.Warn("fetch attempt failed",
			zap.String("adapter", adapter.ID()), zap.Error(err))
	}

	return nil, c.exhausted(req, attempts, "")
}

// exhausted builds the terminal FetchError whose next_action aggregates
// remediation derived from what the attempts actually said.
func (c *Chain) exhausted(req *Request, attempts []Attempt, extra string) *model.FetchError {
	var all strings.Builder
	for _, a := range attempts {
		all.WriteString(strings.ToLower(a.Err))
		all.WriteString("\n")
	}
	if extra != "" {
		all.WriteString(strings.ToLower(extra))
	}

	code, reason, nextAction := diagnoseFailure(all.String())
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.AdapterID)
	}

	return &model.FetchError{
		StructuredError: *model.NewStructuredError(code, reason, nextAction),
		Attempts:        ids,
	}
}

// diagnoseFailure maps stderr/error text patterns to a stable code and a
// concrete remediation. DNS problems are distinguished from auth problems
// so the caller can pick the right fix.
func diagnoseFailure(text string) (code, reason, nextAction string) {
	switch {
	case containsAny(text, "nodename nor servname provided", "name or service not known",
		"temporary failure in name resolution", "failed to resolve", "no such host"):
		return model.CodeDNSFailure,
			"network or DNS could not resolve the platform domain",
			"check connectivity/DNS for this environment, or retry behind a working proxy"
	case containsAny(text, "rate limit", "429", "too many requests"):
		return model.CodeRateLimited,
			"the platform rate-limited the download",
			"wait a few minutes before retrying, or refresh the login session"
	case strings.Contains(text, "cookies.binarycookies") ||
		(strings.Contains(text, "operation not permitted") && strings.Contains(text, "cookie")):
		return model.CodeAuthRequired,
			"browser cookies could not be read",
			"use a Chrome/Chromium login or provide an exported cookies file instead of Safari cookies"
	case containsAny(text, "fresh cookies are needed", "login required", "please log in"):
		return model.CodeAuthRequired,
			"the platform requires a refreshed login session",
			"open the post in a logged-in browser, re-run session login, then retry"
	case containsAny(text, "http error 403", "forbidden"):
		return model.CodeAuthRequired,
			"access denied (403)",
			"refresh the login session and retry, or confirm the content is publicly visible"
	case containsAny(text, "http error 404", "404 not found", "does not exist"):
		return model.CodeNotFound,
			"content not found or taken down",
			"check that the URL is valid and the post still exists"
	case containsAny(text, "context deadline exceeded", "timed out", "timeout"):
		return model.CodeAdapterTimeout,
			"every adapter stalled past its time bound",
			"check URL accessibility and network speed, then retry"
	}
	return model.CodeDownloadFailed,
		"download failed and no analyzable media was produced",
		"check URL accessibility and login state, and confirm yt-dlp or a platform downloader is installed"
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
