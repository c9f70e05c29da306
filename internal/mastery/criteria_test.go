package mastery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRatioForm(t *testing.T) {
	c, ok := Parse("85% accuracy in 4/5 trials")
	require.True(t, ok)
	assert.Equal(t, ModeQuota, c.Mode)
	assert.Equal(t, 85.0, c.Threshold)
	assert.Equal(t, 4, c.Count)
	assert.Equal(t, 5, c.Total)
	assert.False(t, c.ReduceBelow)
}

func TestParseOutOfForm(t *testing.T) {
	c, ok := Parse("90% in 3 out of 4 trials")
	require.True(t, ok)
	assert.Equal(t, ModeQuota, c.Mode)
	assert.Equal(t, 90.0, c.Threshold)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, 4, c.Total)
}

func TestParseRatioWinsOverSpanPhrase(t *testing.T) {
	// The ratio branch must win even when an "over"/"for" phrase is present.
	c, ok := Parse("80% on 4/5 opportunities over 2 weeks")
	require.True(t, ok)
	assert.Equal(t, ModeQuota, c.Mode)
	assert.Equal(t, 4, c.Count)
	assert.Equal(t, 5, c.Total)
}

func TestParseConsecutivePhrase(t *testing.T) {
	c, ok := Parse("90% over 3 consecutive sessions")
	require.True(t, ok)
	assert.Equal(t, ModeRun, c.Mode)
	assert.Equal(t, 90.0, c.Threshold)
	assert.Equal(t, 3, c.Count)
	assert.Zero(t, c.Total)
}

func TestParseForPhrase(t *testing.T) {
	c, ok := Parse("80% accuracy for 5 sessions")
	require.True(t, ok)
	assert.Equal(t, ModeRun, c.Mode)
	assert.Equal(t, 5, c.Count)
}

func TestParseDefaultsToRunOfThree(t *testing.T) {
	c, ok := Parse("80% accuracy")
	require.True(t, ok)
	assert.Equal(t, ModeRun, c.Mode)
	assert.Equal(t, 3, c.Count)
}

func TestParseReductionWords(t *testing.T) {
	for _, text := range []string{
		"reduce occurrences to 20% of intervals",
		"decrease to 20% of intervals",
		"under 20% of work periods",
		"less than 20% of prompts",
	} {
		c, ok := Parse(text)
		require.True(t, ok, text)
		assert.True(t, c.ReduceBelow, text)
	}
}

func TestParseReductionWithoutPercent(t *testing.T) {
	c, ok := Parse("reduce to under 2 per hour for 3 days")
	require.True(t, ok)
	assert.True(t, c.ReduceBelow)
	assert.Equal(t, 2.0, c.Threshold)
	assert.Equal(t, ModeRun, c.Mode)
	assert.Equal(t, 3, c.Count)
}

func TestParseNoThreshold(t *testing.T) {
	_, ok := Parse("student will improve reading comprehension")
	assert.False(t, ok)

	_, ok = Parse("")
	assert.False(t, ok)
}

func TestParseDeterminism(t *testing.T) {
	const text = "85% accuracy in 4/5 trials over 2 consecutive weeks"
	first, ok := Parse(text)
	require.True(t, ok)
	second, ok := Parse(text)
	require.True(t, ok)
	assert.Equal(t, first, second)
}
