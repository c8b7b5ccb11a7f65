package tagger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lazypower/echocloset/internal/store"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	rating Rating
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (Rating, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Rating{}, ctx.Err()
		}
	}
	return f.rating, f.err
}

func newTestTagger(opts ...Option) *Tagger {
	lex := DefaultLexicon()
	return New(lex, NewMaxMatchTokenizer(lex.Keywords()), opts...)
}

func TestTagLexiconOnly(t *testing.T) {
	tg := newTestTagger()

	res := tg.Tag(context.Background(), "好累，今天好煩")
	assert.Subset(t, res.Tags, []string{"疲憊", "生氣"})
	assert.Equal(t, store.SentimentUnknown, res.Sentiment)
}

func TestTagNoMatchIsEmptyNotNil(t *testing.T) {
	res := newTestTagger().Tag(context.Background(), "今天吃了拉麵")
	assert.NotNil(t, res.Tags)
	assert.Empty(t, res.Tags)
}

func TestTagBlankTextSkipsClassifier(t *testing.T) {
	fc := &fakeClassifier{rating: Rating{Stars: 1}}
	tg := newTestTagger(WithClassifier(fc, time.Second))

	for _, text := range []string{"", "   ", "\n\t"} {
		res := tg.Tag(context.Background(), text)
		assert.Empty(t, res.Tags)
		assert.Equal(t, store.SentimentUnknown, res.Sentiment)
	}
	assert.Zero(t, fc.calls.Load())
}

func TestTagIsDeterministic(t *testing.T) {
	tg := newTestTagger()
	first := tg.Tag(context.Background(), "好開心但也有點緊張")
	for range 5 {
		assert.Equal(t, first, tg.Tag(context.Background(), "好開心但也有點緊張"))
	}
	assert.Equal(t, []string{"快樂", "焦慮"}, first.Tags)
}

func TestTagDeduplicates(t *testing.T) {
	res := newTestTagger().Tag(context.Background(), "煩煩煩，生氣，火大")
	assert.Equal(t, []string{"生氣"}, res.Tags)
}

func TestTagClassifierSentiment(t *testing.T) {
	tests := []struct {
		name      string
		stars     int
		text      string
		wantTags  []string
		wantSenti store.Sentiment
	}{
		{"very negative adds sad", 1, "今天吃了拉麵", []string{"悲傷"}, store.SentimentNegative},
		{"negative keeps lexicon tags", 2, "好累", []string{"疲憊", "悲傷"}, store.SentimentNegative},
		{"negative does not duplicate", 2, "好傷心", []string{"悲傷"}, store.SentimentNegative},
		{"neutral adds nothing", 3, "好累", []string{"疲憊"}, store.SentimentNeutral},
		{"positive adds happy", 4, "今天吃了拉麵", []string{"快樂"}, store.SentimentPositive},
		{"very positive unions", 5, "好累", []string{"疲憊", "快樂"}, store.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClassifier{rating: Rating{Stars: tt.stars, Confidence: 0.9}}
			tg := newTestTagger(WithClassifier(fc, time.Second))

			res := tg.Tag(context.Background(), tt.text)
			assert.Equal(t, tt.wantTags, res.Tags)
			assert.Equal(t, tt.wantSenti, res.Sentiment)
		})
	}
}

func TestTagClassifierErrorFallsBack(t *testing.T) {
	fc := &fakeClassifier{err: errors.New("503 model loading")}
	tg := newTestTagger(WithClassifier(fc, time.Second))

	res := tg.Tag(context.Background(), "好累，今天好煩")
	assert.Subset(t, res.Tags, []string{"疲憊", "生氣"})
	assert.Equal(t, store.SentimentUnknown, res.Sentiment)
}

func TestTagClassifierTimeout(t *testing.T) {
	fc := &fakeClassifier{rating: Rating{Stars: 1}, delay: time.Second}
	tg := newTestTagger(WithClassifier(fc, 20*time.Millisecond))

	start := time.Now()
	res := tg.Tag(context.Background(), "好累")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{"疲憊"}, res.Tags)
	assert.Equal(t, store.SentimentUnknown, res.Sentiment)
}

func TestTagInvalidRatingIgnored(t *testing.T) {
	for _, stars := range []int{0, 6, -1} {
		fc := &fakeClassifier{rating: Rating{Stars: stars}}
		tg := newTestTagger(WithClassifier(fc, time.Second))

		res := tg.Tag(context.Background(), "好累")
		assert.Equal(t, []string{"疲憊"}, res.Tags)
		assert.Equal(t, store.SentimentUnknown, res.Sentiment)
	}
}

func TestTagBreakerOpensAfterFailures(t *testing.T) {
	fc := &fakeClassifier{err: errors.New("down")}
	st := DefaultBreakerSettings()
	st.Name = "test"
	st.OnStateChange = nil
	tg := newTestTagger(WithClassifier(fc, time.Second), WithBreaker(st))

	for range 5 {
		tg.Tag(context.Background(), "好累")
	}
	assert.Equal(t, int32(3), fc.calls.Load(), "breaker should stop calling after three failures")
}

func TestClassifyUnavailableWithoutClassifier(t *testing.T) {
	tg := newTestTagger()
	_, err := tg.classify(context.Background(), "好累")
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestBreakerStateValue(t *testing.T) {
	assert.Equal(t, 0.0, breakerStateValue(gobreaker.StateClosed))
	assert.Equal(t, 1.0, breakerStateValue(gobreaker.StateHalfOpen))
	assert.Equal(t, 2.0, breakerStateValue(gobreaker.StateOpen))
}

func TestLoadLexiconFile(t *testing.T) {
	lex, err := LoadLexicon("")
	require.NoError(t, err)
	assert.Len(t, lex.Categories, 8)
	assert.Equal(t, "快樂", lex.PositiveTag)
	assert.Equal(t, "悲傷", lex.NegativeTag)

	_, err = LoadLexicon("/nonexistent/lexicon.yaml")
	assert.Error(t, err)
}

func TestParseLexicon(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
positive_tag: Joy
negative_tag: Gloom
categories:
  - name: Joy
    keywords: [" Happy ", GLAD]
  - name: Gloom
    keywords: [sad]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "glad"}, lex.Categories[0].Keywords)
	assert.Equal(t, []string{"Joy"}, lex.Match([]string{"glad", "day"}))

	bad := map[string]string{
		"no categories": `positive_tag: x`,
		"nameless":      "categories:\n  - keywords: [a]",
		"duplicate":     "categories:\n  - name: a\n    keywords: [x]\n  - name: a\n    keywords: [y]",
		"no keywords":   "categories:\n  - name: a\n    keywords: [\"  \"]",
		"not yaml":      "categories: [",
	}
	for name, doc := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLexicon([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestMaxMatchTokenizer(t *testing.T) {
	tok := NewMaxMatchTokenizer([]string{"好累", "累死", "煩", "OK"})

	assert.Equal(t, []string{"好累", "今", "天", "好", "煩"}, tok.Tokenize("好累，今天好煩"))
	assert.Equal(t, []string{"i", "am", "ok", "累死", "了"}, tok.Tokenize("I am OK! 累死了"))
	assert.Empty(t, tok.Tokenize("，。！ "))
}

func TestExpandSplitsGluedKeywords(t *testing.T) {
	tok := NewMaxMatchTokenizer(DefaultLexicon().Keywords())

	tests := []struct {
		segments []string
		want     []string
	}{
		{[]string{"好累", "，", "今天", "好煩"}, []string{"好累", "今天", "好煩", "煩"}},
		{[]string{"真的", "好開心"}, []string{"真的", "好開心", "開心"}},
		{[]string{"我", "害怕"}, []string{"我", "害怕"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tok.expand(tt.segments), "segments %v", tt.segments)
	}
}

func TestSegmentTokenizerTagging(t *testing.T) {
	lex := DefaultLexicon()
	seg, err := NewSegmentTokenizer(lex.Keywords())
	require.NoError(t, err)
	tg := New(lex, seg)

	tests := []struct {
		text string
		want []string
	}{
		{"好累，今天好煩", []string{"疲憊", "生氣"}},
		{"今天好煩", []string{"生氣"}},
		{"真的好開心", []string{"快樂"}},
		{"好開心但也有點緊張", []string{"快樂", "焦慮"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := tg.Tag(context.Background(), tt.text)
			assert.Subset(t, res.Tags, tt.want, "tokens %v", seg.Tokenize(tt.text))
		})
	}
}
