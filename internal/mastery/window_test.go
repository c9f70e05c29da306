package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

func day(n int) time.Time {
	return time.Date(2025, time.September, n, 0, 0, 0, 0, time.UTC)
}

func series(values ...float64) []DataPoint {
	points := make([]DataPoint, len(values))
	for i, v := range values {
		points[i] = DataPoint{ID: string(rune('a' + i)), Date: day(i + 1), Value: v}
	}
	return points
}

func TestEvaluateRunModeRejectsBrokenRun(t *testing.T) {
	c := Criterion{Mode: ModeRun, Threshold: 90, Count: 3}

	// 90, 40, 90, 90 contains no window of 3 contiguous passing values.
	out := Evaluate(series(90, 40, 90, 90), c, models.CollectPercentage)
	assert.False(t, out.Mastered)
}

func TestEvaluateRunModeFindsRun(t *testing.T) {
	c := Criterion{Mode: ModeRun, Threshold: 80, Count: 3}

	out := Evaluate(series(85, 82, 90), c, models.CollectPercentage)
	require.True(t, out.Mastered)
	assert.Equal(t, day(3), out.MasteryDate)
	assert.Equal(t, []string{"a", "b", "c"}, out.ObservationIDs)
}

func TestEvaluateQuotaMode(t *testing.T) {
	c := Criterion{Mode: ModeQuota, Threshold: 90, Count: 3, Total: 4}

	// The single window of size 4 holds three qualifying values.
	out := Evaluate(series(90, 40, 90, 90), c, models.CollectPercentage)
	require.True(t, out.Mastered)
	assert.Equal(t, day(4), out.MasteryDate)
	// Proof lists every observation in the window, not just the passing ones.
	assert.Equal(t, []string{"a", "b", "c", "d"}, out.ObservationIDs)
}

func TestEvaluateQuotaModeEarliestWindowWins(t *testing.T) {
	c := Criterion{Mode: ModeQuota, Threshold: 80, Count: 2, Total: 3}

	// Windows starting at index 0 and index 2 both satisfy the quota; the
	// earliest-starting one is the answer even though the later scores higher.
	out := Evaluate(series(85, 90, 40, 95, 99), c, models.CollectPercentage)
	require.True(t, out.Mastered)
	assert.Equal(t, day(3), out.MasteryDate)
	assert.Equal(t, []string{"a", "b", "c"}, out.ObservationIDs)
}

func TestEvaluateFrequencyReduction(t *testing.T) {
	c := Criterion{Mode: ModeRun, Threshold: 2, Count: 3, ReduceBelow: true}

	out := Evaluate(series(3, 1, 1, 1), c, models.CollectFrequency)
	require.True(t, out.Mastered)
	assert.Equal(t, day(4), out.MasteryDate)
	assert.Equal(t, []string{"b", "c", "d"}, out.ObservationIDs)
}

func TestEvaluateReductionIgnoredOutsideFrequency(t *testing.T) {
	// ReduceBelow only inverts the comparison for frequency collection.
	c := Criterion{Mode: ModeRun, Threshold: 80, Count: 2, ReduceBelow: true}

	out := Evaluate(series(85, 90), c, models.CollectPercentage)
	assert.True(t, out.Mastered)

	out = Evaluate(series(10, 10), c, models.CollectPercentage)
	assert.False(t, out.Mastered)
}

func TestEvaluateInsufficientData(t *testing.T) {
	c := Criterion{Mode: ModeRun, Threshold: 50, Count: 3}

	assert.False(t, Evaluate(nil, c, models.CollectPercentage).Mastered)
	assert.False(t, Evaluate(series(100, 100), c, models.CollectPercentage).Mastered)

	quota := Criterion{Mode: ModeQuota, Threshold: 50, Count: 2, Total: 5}
	assert.False(t, Evaluate(series(100, 100, 100, 100), quota, models.CollectPercentage).Mastered)
}

func TestEvaluateSortsByDateStably(t *testing.T) {
	c := Criterion{Mode: ModeRun, Threshold: 80, Count: 2}

	// Unordered input; the passing pair only exists after sorting by date.
	points := []DataPoint{
		{ID: "late", Date: day(5), Value: 90},
		{ID: "early", Date: day(1), Value: 40},
		{ID: "mid", Date: day(3), Value: 85},
	}
	out := Evaluate(points, c, models.CollectPercentage)
	require.True(t, out.Mastered)
	assert.Equal(t, []string{"mid", "late"}, out.ObservationIDs)

	// Equal dates keep their original relative order.
	tied := []DataPoint{
		{ID: "first", Date: day(2), Value: 85},
		{ID: "second", Date: day(2), Value: 90},
	}
	out = Evaluate(tied, c, models.CollectPercentage)
	require.True(t, out.Mastered)
	assert.Equal(t, []string{"first", "second"}, out.ObservationIDs)
}
