package tagger

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

// Tokenizer splits text into word units. Chinese has no spaces between
// words, so tokenizers here segment by dictionary rather than whitespace.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

// SegmentTokenizer segments with gse's embedded Chinese dictionary. The
// segmenter happily glues a keyword to its neighbour ("好煩", "好開心"), so
// every segment that is not itself a keyword is re-split by maximum matching
// over the keywords and any keyword found inside is emitted as well.
type SegmentTokenizer struct {
	seg      gse.Segmenter
	keywords *MaxMatchTokenizer
}

// NewSegmentTokenizer loads the embedded dictionary plus the keywords.
func NewSegmentTokenizer(keywords []string) (*SegmentTokenizer, error) {
	seg, err := gse.NewEmbed()
	if err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}
	for _, w := range keywords {
		seg.AddToken(w, 100000)
	}
	return &SegmentTokenizer{seg: seg, keywords: NewMaxMatchTokenizer(keywords)}, nil
}

func (s *SegmentTokenizer) Tokenize(text string) []string {
	return s.keywords.expand(s.seg.Cut(strings.ToLower(text), true))
}

// MaxMatchTokenizer is forward maximum matching over a fixed word list:
// at each position it takes the longest known word, else a single rune.
// Runs of letters and digits stay whole. It needs no dictionary file, so it
// is the fallback when the segmenter cannot load.
type MaxMatchTokenizer struct {
	words  map[string]bool
	maxLen int
}

// NewMaxMatchTokenizer builds a tokenizer that knows words.
func NewMaxMatchTokenizer(words []string) *MaxMatchTokenizer {
	m := &MaxMatchTokenizer{words: make(map[string]bool, len(words))}
	for _, w := range words {
		w = strings.ToLower(w)
		m.words[w] = true
		if n := utf8.RuneCountInString(w); n > m.maxLen {
			m.maxLen = n
		}
	}
	return m
}

func (m *MaxMatchTokenizer) Tokenize(text string) []string {
	runes := []rune(strings.ToLower(text))
	var tokens []string

	for i := 0; i < len(runes); {
		r := runes[i]
		if isWordRune(r) && !unicode.Is(unicode.Han, r) {
			j := i + 1
			for j < len(runes) && isWordRune(runes[j]) && !unicode.Is(unicode.Han, runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
			continue
		}

		n := 1
		for l := min(m.maxLen, len(runes)-i); l > 1; l-- {
			if m.words[string(runes[i:i+l])] {
				n = l
				break
			}
		}
		tokens = append(tokens, string(runes[i:i+n]))
		i += n
	}
	return clean(tokens)
}

// expand returns segments followed, for each multi-rune segment that is not a
// keyword, by the keywords maximum matching finds inside it.
func (m *MaxMatchTokenizer) expand(segments []string) []string {
	tokens := make([]string, 0, len(segments))
	for _, seg := range segments {
		tokens = append(tokens, seg)
		if m.words[seg] || utf8.RuneCountInString(seg) < 2 {
			continue
		}
		for _, sub := range m.Tokenize(seg) {
			if sub != seg && m.words[sub] {
				tokens = append(tokens, sub)
			}
		}
	}
	return clean(tokens)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// clean drops tokens made only of spaces, punctuation or symbols.
func clean(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		keep := false
		for _, r := range t {
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
				keep = true
				break
			}
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}
