package mastery

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode distinguishes the two readings of a count phrase. A run rule requires
// every observation in some window to qualify; a quota rule requires at least
// Count qualifying observations among the Total most recent in a window.
type Mode int

const (
	ModeRun Mode = iota
	ModeQuota
)

// Criterion is the structured form of a free-text target-criteria string.
type Criterion struct {
	Mode        Mode
	Threshold   float64
	Count       int
	Total       int // window size, quota mode only
	ReduceBelow bool
}

var (
	percentPattern = regexp.MustCompile(`(\d+)%`)
	numberPattern  = regexp.MustCompile(`\d+`)
	ratioPattern   = regexp.MustCompile(`(\d+)\s*/\s*(\d+)\s*(?:trial|session|attempt|opportunit)`)
	outOfPattern   = regexp.MustCompile(`(\d+)\s+out\s+of\s+(\d+)`)
	spanPattern    = regexp.MustCompile(`consecutive\s*(\d+)|over\s+(\d+)|for\s+(\d+)`)
)

var reductionWords = []string{"reduce", "decrease", "under", "less than"}

// Parse interprets a human-written target-criteria sentence. The second
// return value is false when the text carries no usable threshold, which
// callers treat as "mastery checking disabled" rather than an error.
//
// Count phrases are tried in priority order: an explicit ratio ("4/5
// trials"), an "X out of Y" phrase, then a consecutive/over/for span. When
// none match the rule defaults to a run of 3.
func Parse(text string) (Criterion, bool) {
	lowered := strings.ToLower(text)

	c := Criterion{ReduceBelow: containsAny(lowered, reductionWords)}

	if m := percentPattern.FindStringSubmatch(lowered); m != nil {
		c.Threshold = mustFloat(m[1])
	} else if c.ReduceBelow {
		// Reduction targets are often phrased without a percent sign
		// ("reduce to under 2 per hour"); the first numeral is the ceiling.
		m := numberPattern.FindString(lowered)
		if m == "" {
			return Criterion{}, false
		}
		c.Threshold = mustFloat(m)
	} else {
		return Criterion{}, false
	}

	if m := ratioPattern.FindStringSubmatch(lowered); m != nil {
		c.Mode = ModeQuota
		c.Count = mustInt(m[1])
		c.Total = mustInt(m[2])
		return c, true
	}

	if m := outOfPattern.FindStringSubmatch(lowered); m != nil {
		c.Mode = ModeQuota
		c.Count = mustInt(m[1])
		c.Total = mustInt(m[2])
		return c, true
	}

	c.Mode = ModeRun
	c.Count = 3
	if m := spanPattern.FindStringSubmatch(lowered); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				c.Count = mustInt(group)
				break
			}
		}
	}
	return c, true
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func mustFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}

func mustInt(raw string) int {
	v, _ := strconv.Atoi(raw)
	return v
}
