package tagger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lazypower/echocloset/internal/metrics"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/sony/gobreaker"
)

// ErrClassifierUnavailable means no classifier answer could be obtained.
// Tagging continues with lexicon tags only.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Rating is a classifier verdict on a five-point scale, 1 = most negative.
type Rating struct {
	Stars      int
	Confidence float64
}

// Classifier rates the sentiment of raw text. Implementations may be slow or
// down; the tagger bounds every call with a timeout.
type Classifier interface {
	Classify(ctx context.Context, text string) (Rating, error)
}

// Result is the outcome of tagging one text.
type Result struct {
	Tags      []string
	Sentiment store.Sentiment
}

// Tagger maps text to emotion tags. Lexicon matches and the classifier's
// verdict are merged by union; the classifier never removes a lexicon tag.
type Tagger struct {
	lexicon    *Lexicon
	tokenizer  Tokenizer
	classifier Classifier
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithClassifier enables the external classifier with a per-call timeout.
func WithClassifier(c Classifier, timeout time.Duration) Option {
	return func(t *Tagger) {
		t.classifier = c
		t.timeout = timeout
	}
}

// WithBreaker overrides the classifier circuit breaker settings.
func WithBreaker(st gobreaker.Settings) Option {
	return func(t *Tagger) {
		t.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

// New builds a Tagger. Without WithClassifier it tags from the lexicon only.
func New(lex *Lexicon, tok Tokenizer, opts ...Option) *Tagger {
	t := &Tagger{
		lexicon:   lex,
		tokenizer: tok,
		timeout:   5 * time.Second,
		breaker:   gobreaker.NewCircuitBreaker(DefaultBreakerSettings()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DefaultBreakerSettings opens the breaker after 3 consecutive classifier
// failures and probes again after a minute.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.Set(breakerStateValue(to))
		},
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Tag returns the deduplicated emotion tags and coarse sentiment for text.
// Blank text yields no tags and unknown sentiment. Classifier failure, timeout
// or an open breaker degrade to lexicon-only tagging.
func (t *Tagger) Tag(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Tags: []string{}, Sentiment: store.SentimentUnknown}
	}

	tags := t.lexicon.Match(t.tokenizer.Tokenize(text))
	for _, tag := range tags {
		metrics.EmotionTags.WithLabelValues(tag, "lexicon").Inc()
	}

	rating, err := t.classify(ctx, text)
	if err != nil {
		slog.Warn("classifier fallback to lexicon only", "error", err)
		return Result{Tags: tags, Sentiment: store.SentimentUnknown}
	}

	sentiment, forced := t.sentimentFor(rating.Stars)
	if forced != "" && !contains(tags, forced) {
		tags = append(tags, forced)
		metrics.EmotionTags.WithLabelValues(forced, "classifier").Inc()
	}
	return Result{Tags: tags, Sentiment: sentiment}
}

// sentimentFor maps a star rating to coarse sentiment and the tag it implies.
func (t *Tagger) sentimentFor(stars int) (store.Sentiment, string) {
	switch stars {
	case 1, 2:
		return store.SentimentNegative, t.lexicon.NegativeTag
	case 4, 5:
		return store.SentimentPositive, t.lexicon.PositiveTag
	default:
		return store.SentimentNeutral, ""
	}
}

func (t *Tagger) classify(ctx context.Context, text string) (Rating, error) {
	if t.classifier == nil {
		return Rating{}, ErrClassifierUnavailable
	}

	start := time.Now()
	out, err := t.breaker.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		return t.callBounded(cctx, text)
	})
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ClassifierCalls.WithLabelValues("open").Inc()
		return Rating{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		metrics.ClassifierCalls.WithLabelValues("timeout").Inc()
		return Rating{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	default:
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		return Rating{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	rating := out.(Rating)
	if rating.Stars < 1 || rating.Stars > 5 {
		metrics.ClassifierCalls.WithLabelValues("invalid").Inc()
		return Rating{}, fmt.Errorf("%w: rating %d out of range", ErrClassifierUnavailable, rating.Stars)
	}
	metrics.ClassifierCalls.WithLabelValues("ok").Inc()
	return rating, nil
}

// callBounded runs the classifier in its own goroutine so a client that
// ignores ctx still cannot hold the caller past the deadline.
func (t *Tagger) callBounded(ctx context.Context, text string) (Rating, error) {
	type reply struct {
		rating Rating
		err    error
	}
	ch := make(chan reply, 1)
	go func() {
		r, err := t.classifier.Classify(ctx, text)
		ch <- reply{r, err}
	}()

	select {
	case r := <-ch:
		return r.rating, r.err
	case <-ctx.Done():
		return Rating{}, ctx.Err()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
