package mastery

import (
	"sort"
	"time"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// DataPoint is one clean numeric observation. Non-numeric progress values
// must be filtered out before reaching the evaluator.
type DataPoint struct {
	ID    string
	Date  time.Time
	Value float64
}

// Outcome reports the result of evaluating a criterion against a series.
// When mastered, MasteryDate is the date of the last observation in the
// earliest satisfying window and ObservationIDs lists every observation in
// that window, qualifying or not; the proof is the whole window.
type Outcome struct {
	Mastered       bool
	MasteryDate    time.Time
	ObservationIDs []string
}

// Evaluate scans a series of observations for the earliest window that
// satisfies the criterion. The window slides over sort order, not calendar
// adjacency: gaps between session dates do not break a run. Fewer
// observations than the rule requires is a normal negative, not an error.
func Evaluate(points []DataPoint, c Criterion, collection models.DataCollectionType) Outcome {
	sorted := make([]DataPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	window := c.Count
	if c.Mode == ModeQuota {
		window = c.Total
	}
	if window <= 0 || len(sorted) < window {
		return Outcome{}
	}

	for start := 0; start+window <= len(sorted); start++ {
		qualifying := 0
		for _, p := range sorted[start : start+window] {
			if qualifies(p.Value, c, collection) {
				qualifying++
			}
		}
		if qualifying < c.Count {
			continue
		}

		ids := make([]string, 0, window)
		for _, p := range sorted[start : start+window] {
			ids = append(ids, p.ID)
		}
		return Outcome{
			Mastered:       true,
			MasteryDate:    sorted[start+window-1].Date,
			ObservationIDs: ids,
		}
	}

	return Outcome{}
}

// qualifies applies the per-observation predicate. Frequency-reduction goals
// invert the comparison: the behaviour should fall to or below the threshold.
func qualifies(value float64, c Criterion, collection models.DataCollectionType) bool {
	if collection == models.CollectFrequency && c.ReduceBelow {
		return value <= c.Threshold
	}
	return value >= c.Threshold
}
