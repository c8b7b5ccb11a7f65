package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lazypower/echocloset/internal/tagger"
)

// SentimentClassifier rates text by prompting a general LLM.
type SentimentClassifier struct {
	client Client
}

// NewSentimentClassifier wraps client as a tagger.Classifier.
func NewSentimentClassifier(client Client) *SentimentClassifier {
	return &SentimentClassifier{client: client}
}

// Classify asks the model for a star rating and parses the first digit 1-5
// in its reply.
func (s *SentimentClassifier) Classify(ctx context.Context, text string) (tagger.Rating, error) {
	resp, err := s.client.Complete(ctx, SentimentPrompt(text))
	if err != nil {
		return tagger.Rating{}, err
	}
	if resp == nil {
		return tagger.Rating{}, fmt.Errorf("empty completion")
	}
	stars, ok := parseStars(resp.Content)
	if !ok {
		return tagger.Rating{}, fmt.Errorf("no rating in reply %q", truncate(resp.Content, 40))
	}
	return tagger.Rating{Stars: stars, Confidence: 1}, nil
}

func parseStars(s string) (int, bool) {
	for _, r := range s {
		if r >= '1' && r <= '5' {
			return int(r - '0'), true
		}
		if r >= '0' && r <= '9' {
			return 0, false
		}
	}
	return 0, false
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
