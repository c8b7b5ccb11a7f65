package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lazypower/echocloset/internal/tagger"
)

const (
	huggingFaceAPI   = "https://api-inference.huggingface.co/models/"
	huggingFaceModel = "nlptown/bert-base-multilingual-uncased-sentiment"
)

// HuggingFace rates text with a hosted star-rating model. The model answers
// with a score per label "1 star" .. "5 stars"; the best label wins.
type HuggingFace struct {
	token    string
	endpoint string
	client   *http.Client
}

// NewHuggingFace creates a hosted inference classifier. Empty model and
// baseURL fall back to the multilingual review model on the public API.
func NewHuggingFace(token, model, baseURL string) *HuggingFace {
	if model == "" {
		model = huggingFaceModel
	}
	if baseURL == "" {
		baseURL = huggingFaceAPI
	}
	return &HuggingFace{
		token:    token,
		endpoint: strings.TrimRight(baseURL, "/") + "/" + model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify posts text to the inference endpoint.
func (h *HuggingFace) Classify(ctx context.Context, text string) (tagger.Rating, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return tagger.Rating{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return tagger.Rating{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return tagger.Rating{}, fmt.Errorf("huggingface api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return tagger.Rating{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return tagger.Rating{}, fmt.Errorf("huggingface api status %d: %s", resp.StatusCode, respBody)
	}

	labels, err := decodeLabels(respBody)
	if err != nil {
		return tagger.Rating{}, err
	}
	return bestRating(labels)
}

// decodeLabels accepts both the nested [[...]] shape the API returns for a
// single input and a flat [...] list.
func decodeLabels(data []byte) ([]hfLabel, error) {
	var nested [][]hfLabel
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("huggingface api: empty result")
		}
		return nested[0], nil
	}
	var flat []hfLabel
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return flat, nil
}

func bestRating(labels []hfLabel) (tagger.Rating, error) {
	best := tagger.Rating{}
	for _, l := range labels {
		stars, ok := parseStars(l.Label)
		if !ok {
			continue
		}
		if best.Stars == 0 || l.Score > best.Confidence {
			best = tagger.Rating{Stars: stars, Confidence: l.Score}
		}
	}
	if best.Stars == 0 {
		return tagger.Rating{}, fmt.Errorf("huggingface api: no star labels in result")
	}
	return best, nil
}
