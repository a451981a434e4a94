// Package licensing turns document text into a licensing summary and a bounded risk score
// by asking a text-generation service, absorbing every failure into a degraded result.
package licensing

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/rightsdesk/internal/domain/ai"
	"github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	"github.com/bryanwahyu/rightsdesk/internal/infra/ai/prompt"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
)

// Fixed texts returned in place of a model response. Callers treat them as valid, degraded text.
const (
	RateLimitFallback  = "Error: Unable to process request due to rate limits. Try again later."
	APIFailureFallback = "Error: Unable to process request due to API failure."

	NoSummary     = "No summary available."
	FailedInfo    = "API Error: Unable to analyze licensing at this time."
	FailedSummary = "Analysis failed due to API limitations."
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Analyzer is immutable after construction and safe for concurrent use.
type Analyzer struct {
	gen          ai.Generator
	maxRetries   int
	initialDelay time.Duration
	sleep        Sleeper
	log          *zap.Logger
}

type Option func(*Analyzer)

// WithMaxRetries sets the attempt budget for rate-limited calls. Values below 1 keep the default.
func WithMaxRetries(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

// WithInitialDelay sets the first backoff wait; it doubles after every rate-limited attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.initialDelay = d
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.sleep = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

func NewAnalyzer(gen ai.Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:          gen,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		sleep:        sleepContext,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Call sends prompt to the generator and returns its text. Rate-limited attempts are retried
// with exponential backoff up to the attempt budget; any other failure stops immediately.
// Call never fails: exhausted or failed calls return RateLimitFallback or APIFailureFallback.
func (a *Analyzer) Call(ctx context.Context, p string) string {
	retries := 0
	delay := a.initialDelay

	for retries < a.maxRetries {
		text, err := a.gen.Generate(ctx, p)
		if err == nil {
			return text
		}
		if !errors.Is(err, ai.ErrRateLimited) {
			a.log.Error("text generation failed", zap.Error(err))
			return APIFailureFallback
		}

		retries++
		if retries >= a.maxRetries {
			break
		}

		a.log.Warn("rate limited, backing off",
			zap.Int("attempt", retries),
			zap.Duration("delay", delay),
		)
		if err := a.sleep(ctx, delay); err != nil {
			a.log.Error("backoff interrupted", zap.Error(err))
			return APIFailureFallback
		}
		if delay <= math.MaxInt64/2 {
			delay *= 2
		}
	}

	a.log.Warn("rate limit retries exhausted", zap.Int("attempts", retries))
	return RateLimitFallback
}

// Analyze asks the model about the licensing of content and scores its answer.
// A panic anywhere in the pipeline yields a zero-score degraded result.
func (a *Analyzer) Analyze(ctx context.Context, content string) (res analyses.Result) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("licensing analysis failed", zap.Any("panic", r))
			res = analyses.Result{
				LicensingInfo:    FailedInfo,
				LicensingSummary: FailedSummary,
				RiskScore:        0,
			}
		}
	}()

	content = strings.ToValidUTF8(content, "�")
	a.log.Debug("analyzing content", zap.Int("bytes", len(content)))

	response := a.Call(ctx, prompt.LicensingPrompt(content))
	return analyses.Result{
		LicensingInfo:    response,
		LicensingSummary: Summarize(response),
		RiskScore:        RiskScore(response),
	}
}

// IsDegraded reports whether text is one of the fixed fallbacks Call returns.
func IsDegraded(text string) bool {
	return text == RateLimitFallback || text == APIFailureFallback
}

// IsDegradedResult reports whether r came from a fallback rather than a model answer.
func IsDegradedResult(r analyses.Result) bool {
	return IsDegraded(r.LicensingInfo) || r.LicensingInfo == FailedInfo
}

// Summarize returns the first line of response, or NoSummary when that line is empty.
func Summarize(response string) string {
	first, _, _ := strings.Cut(response, "\n")
	if first == "" {
		return NoSummary
	}
	return first
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
