package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the persisted timestamp format: ISO-8601 at second precision.
const TimeLayout = time.RFC3339

// Kind discriminates the two entry variants.
type Kind string

const (
	KindEcho  Kind = "echo"
	KindHoard Kind = "hoard"
)

// Status is the lifecycle of a hoard entry. It only ever moves Pending -> Expired.
type Status string

const (
	StatusPending Status = "pending"
	StatusExpired Status = "expired"
)

// Sentiment is the coarse polarity derived from the external classifier.
// The zero value means the classifier gave no answer.
type Sentiment string

const (
	SentimentUnknown  Sentiment = ""
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Entry is one persisted unit of the journal: either an echo (free text plus
// emotion tags) or a hoard (a purchase intent waiting out its cooldown).
// Fields that do not belong to the entry's Kind are left at their zero value.
type Entry struct {
	ID        string
	Kind      Kind
	Timestamp time.Time

	// Echo fields.
	Text      string
	Tags      []string
	Sentiment Sentiment

	// Hoard fields.
	Description  string
	CooldownDays int
	OwnerID      string
	Status       Status
}

// NewEcho builds an echo entry. Tags are a set: duplicates are dropped and a
// nil set is stored as the empty set.
func NewEcho(id string, ts time.Time, text string, tags []string, sentiment Sentiment) Entry {
	return Entry{
		ID:        id,
		Kind:      KindEcho,
		Timestamp: normalizeTime(ts),
		Text:      strings.TrimSpace(text),
		Tags:      uniqueTags(tags),
		Sentiment: sentiment,
	}
}

// NewHoard builds a pending hoard entry.
func NewHoard(id string, ts time.Time, description string, cooldownDays int, ownerID string) Entry {
	return Entry{
		ID:           id,
		Kind:         KindHoard,
		Timestamp:    normalizeTime(ts),
		Description:  strings.TrimSpace(description),
		CooldownDays: cooldownDays,
		OwnerID:      ownerID,
		Status:       StatusPending,
	}
}

// Deadline is the end of a hoard's cooldown, counted in calendar days.
func (e Entry) Deadline() time.Time {
	return e.Timestamp.AddDate(0, 0, e.CooldownDays)
}

// Due reports whether e is a pending hoard whose cooldown has elapsed at now.
func (e Entry) Due(now time.Time) bool {
	return e.Kind == KindHoard && e.Status == StatusPending && !now.Before(e.Deadline())
}

// HasTag reports whether tag is in the echo's tag set.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (e Entry) clone() Entry {
	if e.Tags != nil {
		e.Tags = append([]string(nil), e.Tags...)
	}
	return e
}

// uniqueTags returns tags without repeats, first occurrence first. The result
// is never nil.
func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

type echoRecord struct {
	Type      Kind      `json:"type"`
	ID        string    `json:"id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	Sentiment Sentiment `json:"sentiment"`
}

type hoardRecord struct {
	Type         Kind   `json:"type"`
	ID           string `json:"id,omitempty"`
	Timestamp    string `json:"timestamp"`
	Description  string `json:"description"`
	CooldownDays int    `json:"cooldown_days"`
	OwnerID      string `json:"owner_id"`
	Status       Status `json:"status"`
}

// wireRecord is the union of both variants, used for decoding. Pointers
// distinguish a missing field from its zero value.
type wireRecord struct {
	Type         Kind      `json:"type"`
	ID           string    `json:"id"`
	Timestamp    string    `json:"timestamp"`
	Text         *string   `json:"text"`
	Tags         []string  `json:"tags"`
	Sentiment    Sentiment `json:"sentiment"`
	Description  *string   `json:"description"`
	CooldownDays *int      `json:"cooldown_days"`
	OwnerID      *string   `json:"owner_id"`
	Status       Status    `json:"status"`
}

// MarshalJSON writes only the fields of the entry's variant.
func (e Entry) MarshalJSON() ([]byte, error) {
	ts := e.Timestamp.UTC().Format(TimeLayout)
	switch e.Kind {
	case KindEcho:
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		return json.Marshal(echoRecord{
			Type:      KindEcho,
			ID:        e.ID,
			Timestamp: ts,
			Text:      e.Text,
			Tags:      tags,
			Sentiment: e.Sentiment,
		})
	case KindHoard:
		return json.Marshal(hoardRecord{
			Type:         KindHoard,
			ID:           e.ID,
			Timestamp:    ts,
			Description:  e.Description,
			CooldownDays: e.CooldownDays,
			OwnerID:      e.OwnerID,
			Status:       e.Status,
		})
	default:
		return nil, fmt.Errorf("marshal entry %s: unknown type %q", e.ID, e.Kind)
	}
}

// UnmarshalJSON decodes and validates a persisted record.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var r wireRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	entry, err := r.entry()
	if err != nil {
		return err
	}
	*e = entry
	return nil
}

func (r wireRecord) entry() (Entry, error) {
	ts, err := time.Parse(TimeLayout, r.Timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %q: bad timestamp %q", r.ID, r.Timestamp)
	}

	switch r.Type {
	case KindEcho:
		if r.Text == nil {
			return Entry{}, fmt.Errorf("echo %q: missing text", r.ID)
		}
		switch r.Sentiment {
		case SentimentUnknown, SentimentNegative, SentimentNeutral, SentimentPositive:
		default:
			return Entry{}, fmt.Errorf("echo %q: bad sentiment %q", r.ID, r.Sentiment)
		}
		return Entry{
			ID:        r.ID,
			Kind:      KindEcho,
			Timestamp: normalizeTime(ts),
			Text:      *r.Text,
			Tags:      uniqueTags(r.Tags),
			Sentiment: r.Sentiment,
		}, nil
	case KindHoard:
		if r.Description == nil || r.CooldownDays == nil || r.OwnerID == nil {
			return Entry{}, fmt.Errorf("hoard %q: missing field", r.ID)
		}
		if *r.CooldownDays < 0 {
			return Entry{}, fmt.Errorf("hoard %q: negative cooldown %d", r.ID, *r.CooldownDays)
		}
		if r.Status != StatusPending && r.Status != StatusExpired {
			return Entry{}, fmt.Errorf("hoard %q: bad status %q", r.ID, r.Status)
		}
		return Entry{
			ID:           r.ID,
			Kind:         KindHoard,
			Timestamp:    normalizeTime(ts),
			Description:  *r.Description,
			CooldownDays: *r.CooldownDays,
			OwnerID:      *r.OwnerID,
			Status:       r.Status,
		}, nil
	default:
		return Entry{}, fmt.Errorf("entry %q: unknown type %q", r.ID, r.Type)
	}
}
