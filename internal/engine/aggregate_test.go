package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/lazypower/echocloset/internal/tagger"
)

func seedEchoes(t *testing.T, f *fixture, at time.Time, tagSets ...[]string) {
	t.Helper()
	for i, tags := range tagSets {
		e := store.NewEcho(at.Format("0102")+string(rune('a'+i)), at, "x", tags, store.SentimentUnknown)
		require.NoError(t, f.eng.Store.Append(e))
	}
}

func TestAnalyzeRanksWithFirstSeenTies(t *testing.T) {
	f := newFixture(t)
	seedEchoes(t, f, t0, []string{"快樂"}, []string{"快樂", "疲憊"}, []string{"生氣"})

	got := f.eng.Analyze(30)
	assert.Equal(t, Analysis{
		WindowDays: 30,
		Entries:    3,
		Tags: []TagCount{
			{Tag: "快樂", Count: 2},
			{Tag: "疲憊", Count: 1},
			{Tag: "生氣", Count: 1},
		},
	}, got)
}

func TestAnalyzeWindowBoundary(t *testing.T) {
	f := newFixture(t)
	seedEchoes(t, f, t0, []string{"焦慮"})

	f.clock.Advance(30 * 24 * time.Hour)
	got := f.eng.Analyze(30)
	assert.Equal(t, 1, got.Entries, "entry exactly 30 days old is inside the window")

	f.clock.Advance(time.Second)
	got = f.eng.Analyze(30)
	assert.True(t, got.NoData)
	assert.Zero(t, got.Entries)
}

func TestAnalyzeNoDataVersusNoEmotion(t *testing.T) {
	f := newFixture(t)

	got := f.eng.Analyze(7)
	assert.True(t, got.NoData)
	assert.NotNil(t, got.Tags)

	seedEchoes(t, f, t0, []string{}, nil)
	got = f.eng.Analyze(7)
	assert.False(t, got.NoData)
	assert.Equal(t, 2, got.Entries)
	assert.Empty(t, got.Tags)
}

func TestAnalyzeIgnoresHoardsAndTruncates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.eng.Store.Append(store.NewHoard("h1", t0, "耳機", 7, "U")))
	seedEchoes(t, f, t0,
		[]string{"快樂", "悲傷", "生氣", "焦慮", "疲憊", "震驚"},
		[]string{"震驚"},
	)

	got := f.eng.Analyze(7)
	assert.Equal(t, 2, got.Entries)
	require.Len(t, got.Tags, 5)
	assert.Equal(t, TagCount{Tag: "震驚", Count: 2}, got.Tags[0])
	assert.Equal(t, "快樂", got.Tags[1].Tag)
}

func TestAnalyzeCountsPersistedDuplicateTagsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"type":"echo","id":"e1","timestamp":"2026-03-01T09:30:00Z","text":"好開心","tags":["快樂","快樂"],"sentiment":"positive"}]`,
	), 0o600))

	st, err := store.Open(store.NewFilePersister(path))
	require.NoError(t, err)
	lex := tagger.DefaultLexicon()
	eng := New(st, tagger.New(lex, tagger.NewMaxMatchTokenizer(lex.Keywords())), notify.NewRecorder(),
		clockwork.NewFakeClockAt(t0), Options{})

	got := eng.Analyze(30)
	assert.Equal(t, 1, got.Entries)
	assert.Equal(t, []TagCount{{Tag: "快樂", Count: 1}}, got.Tags)
}
