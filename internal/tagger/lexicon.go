package tagger

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Category is one emotion and the keywords that trigger it.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon maps emotion categories to trigger keywords. PositiveTag and
// NegativeTag are the categories the classifier adds for positive and
// negative ratings.
type Lexicon struct {
	PositiveTag string     `yaml:"positive_tag"`
	NegativeTag string     `yaml:"negative_tag"`
	Categories  []Category `yaml:"categories"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon file. An empty path yields the built-in lexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// ParseLexicon decodes and validates lexicon YAML. Keywords are lower-cased
// to match the lower-cased text they are compared against.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(lex.Categories) == 0 {
		return nil, errors.New("no categories")
	}

	seen := make(map[string]bool, len(lex.Categories))
	for i := range lex.Categories {
		c := &lex.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true

		kws := c.Keywords[:0]
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", c.Name)
		}
		c.Keywords = kws
	}
	return &lex, nil
}

// Keywords returns every distinct keyword in the lexicon.
func (l *Lexicon) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range l.Categories {
		for _, kw := range c.Keywords {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// Match returns, in lexicon order, each category with at least one keyword
// among tokens. Matching is exact per token.
func (l *Lexicon) Match(tokens []string) []string {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}

	tags := []string{}
	for _, c := range l.Categories {
		for _, kw := range c.Keywords {
			if set[kw] {
				tags = append(tags, c.Name)
				break
			}
		}
	}
	return tags
}
