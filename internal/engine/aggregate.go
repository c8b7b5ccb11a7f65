package engine

import (
	"slices"

	"github.com/lazypower/echocloset/internal/store"
)

// TagCount is one row of the emotion histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Analysis is the emotion histogram over a window. NoData means the window
// held no echoes at all; an empty Tags with Entries > 0 means echoes were
// written but none carried an emotion.
type Analysis struct {
	WindowDays int        `json:"window_days"`
	Entries    int        `json:"entries"`
	Tags       []TagCount `json:"tags"`
	NoData     bool       `json:"no_data"`
}

// Analyze counts tags on echoes from the last windowDays calendar days,
// boundary included. Rows are ordered by count, ties by the order in which
// the tags first appear, and cut to the top K.
func (e *Engine) Analyze(windowDays int) Analysis {
	cutoff := e.clock.Now().AddDate(0, 0, -windowDays)

	var (
		rows    []TagCount
		index   = make(map[string]int)
		entries int
	)
	for en := range e.Store.Query(func(en store.Entry) bool {
		return en.Kind == store.KindEcho && !en.Timestamp.Before(cutoff)
	}) {
		entries++
		for _, tag := range en.Tags {
			i, ok := index[tag]
			if !ok {
				i = len(rows)
				index[tag] = i
				rows = append(rows, TagCount{Tag: tag})
			}
			rows[i].Count++
		}
	}

	slices.SortStableFunc(rows, func(a, b TagCount) int { return b.Count - a.Count })
	if len(rows) > e.opts.AnalyzeTopK {
		rows = rows[:e.opts.AnalyzeTopK]
	}
	if rows == nil {
		rows = []TagCount{}
	}
	return Analysis{WindowDays: windowDays, Entries: entries, Tags: rows, NoData: entries == 0}
}
