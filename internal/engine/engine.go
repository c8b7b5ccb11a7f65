package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lazypower/echocloset/internal/logging"
	"github.com/lazypower/echocloset/internal/metrics"
	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/lazypower/echocloset/internal/tagger"
)

// DefaultRecentCount is how many entries ListRecent returns when asked for
// zero or fewer.
const DefaultRecentCount = 5

// ErrInvalidInput is returned for commands whose arguments cannot form an entry.
var ErrInvalidInput = errors.New("invalid input")

// Options tune the engine. Zero or negative values fall back to the defaults:
// hourly scans, top 5 tags and a 7-day cooldown. A single hoard can still ask
// for a 0-day cooldown explicitly.
type Options struct {
	ScanInterval        time.Duration
	AnalyzeTopK         int
	DefaultCooldownDays int
}

func (o Options) withDefaults() Options {
	if o.ScanInterval <= 0 {
		o.ScanInterval = time.Hour
	}
	if o.AnalyzeTopK <= 0 {
		o.AnalyzeTopK = 5
	}
	if o.DefaultCooldownDays <= 0 {
		o.DefaultCooldownDays = 7
	}
	return o
}

// Engine runs the journal: entry creation and listing, the aggregate view,
// and the background expiry scanner.
type Engine struct {
	Store    *store.Store
	Tagger   *tagger.Tagger
	Notifier notify.Notifier

	clock clockwork.Clock
	opts  Options
	newID func() string

	scanMu   sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an Engine. A nil clock uses the real clock.
func New(st *store.Store, tg *tagger.Tagger, n notify.Notifier, clock clockwork.Clock, opts Options) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		Store:    st,
		Tagger:   tg,
		Notifier: n,
		clock:    clock,
		opts:     opts.withDefaults(),
		newID:    uuid.NewString,
		stopCh:   make(chan struct{}),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// CreateEcho tags text and appends it as an echo. Tagging, including any
// classifier call, happens before the store is locked.
func (e *Engine) CreateEcho(ctx context.Context, text string) (store.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Entry{}, fmt.Errorf("%w: echo text is empty", ErrInvalidInput)
	}

	now := e.clock.Now()
	res := e.Tagger.Tag(ctx, text)
	entry := store.NewEcho(e.newID(), now, text, res.Tags, res.Sentiment)

	if err := e.Store.Append(entry); err != nil {
		metrics.PersistFailures.WithLabelValues("append").Inc()
		return store.Entry{}, err
	}
	metrics.EntriesCreated.WithLabelValues(string(store.KindEcho)).Inc()
	logging.WithEntry(entry.ID).Info("echo recorded", "tags", entry.Tags, "sentiment", string(entry.Sentiment))
	return entry, nil
}

// CreateHoard appends a pending hoard. A nil cooldownDays uses the default.
func (e *Engine) CreateHoard(ctx context.Context, description string, cooldownDays *int, ownerID string) (store.Entry, error) {
	description = strings.TrimSpace(description)
	ownerID = strings.TrimSpace(ownerID)
	days := e.opts.DefaultCooldownDays
	if cooldownDays != nil {
		days = *cooldownDays
	}

	switch {
	case description == "":
		return store.Entry{}, fmt.Errorf("%w: hoard description is empty", ErrInvalidInput)
	case ownerID == "":
		return store.Entry{}, fmt.Errorf("%w: hoard owner is empty", ErrInvalidInput)
	case days < 0:
		return store.Entry{}, fmt.Errorf("%w: cooldown %d days is negative", ErrInvalidInput, days)
	}

	entry := store.NewHoard(e.newID(), e.clock.Now(), description, days, ownerID)
	if err := e.Store.Append(entry); err != nil {
		metrics.PersistFailures.WithLabelValues("append").Inc()
		return store.Entry{}, err
	}
	metrics.EntriesCreated.WithLabelValues(string(store.KindHoard)).Inc()
	logging.WithEntry(entry.ID).Info("hoard recorded", "owner_id", ownerID, "deadline", entry.Deadline().Format(time.RFC3339))
	return entry, nil
}

// ListRecent returns the last count entries in insertion order. A count of
// zero or less means DefaultRecentCount. With days > 0 only entries from the
// last days calendar days are considered; otherwise there is no window.
func (e *Engine) ListRecent(count, days int) []store.Entry {
	if count <= 0 {
		count = DefaultRecentCount
	}
	var match func(store.Entry) bool
	if days > 0 {
		cutoff := e.clock.Now().AddDate(0, 0, -days)
		match = func(en store.Entry) bool { return !en.Timestamp.Before(cutoff) }
	}

	var out []store.Entry
	for en := range e.Store.Query(match) {
		out = append(out, en)
	}
	if len(out) > count {
		out = out[len(out)-count:]
	}
	if out == nil {
		out = []store.Entry{}
	}
	return out
}

// Entry returns the entry with the given id, or store.ErrNotFound.
func (e *Engine) Entry(id string) (store.Entry, error) {
	return e.Store.Get(id)
}

// ListHoards returns ownerID's pending hoards in insertion order.
func (e *Engine) ListHoards(ownerID string) []store.Entry {
	out := []store.Entry{}
	for en := range e.Store.Query(func(en store.Entry) bool {
		return en.Kind == store.KindHoard && en.Status == store.StatusPending && en.OwnerID == ownerID
	}) {
		out = append(out, en)
	}
	return out
}

// Wipe deletes every entry and returns how many there were. Confirmation is
// the caller's job.
func (e *Engine) Wipe(ctx context.Context) (int, error) {
	n, err := e.Store.Clear()
	if err != nil {
		metrics.PersistFailures.WithLabelValues("clear").Inc()
		return 0, err
	}
	slog.Warn("journal wiped", "entries", n)
	return n, nil
}
