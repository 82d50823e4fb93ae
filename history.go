package testgenpro

import "time"

// PerformanceHistory is the append-only log of graded scores for one user.
// Insertion order is chronological order.
type PerformanceHistory struct {
	entries []ScoreEntry
}

// NewPerformanceHistory creates a history, optionally seeded with prior entries
func NewPerformanceHistory(entries ...ScoreEntry) *PerformanceHistory {
	h := &PerformanceHistory{}
	h.entries = append(h.entries, entries...)
	return h
}

// Append records a score percentage
func (h *PerformanceHistory) Append(percentage float64) ScoreEntry {
	entry := ScoreEntry{Percentage: percentage, RecordedAt: time.Now()}
	h.entries = append(h.entries, entry)
	return entry
}

// Average returns the mean percentage, or ErrEmptyHistory
func (h *PerformanceHistory) Average() (float64, error) {
	if len(h.entries) == 0 {
		return 0, ErrEmptyHistory
	}
	var sum float64
	for _, e := range h.entries {
		sum += e.Percentage
	}
	return sum / float64(len(h.entries)), nil
}

// Series returns the percentages in chronological order, for charting
func (h *PerformanceHistory) Series() []float64 {
	series := make([]float64, len(h.entries))
	for i, e := range h.entries {
		series[i] = e.Percentage
	}
	return series
}

// Entries returns a copy of the recorded entries
func (h *PerformanceHistory) Entries() []ScoreEntry {
	return append([]ScoreEntry(nil), h.entries...)
}

func (h *PerformanceHistory) Len() int {
	return len(h.entries)
}
