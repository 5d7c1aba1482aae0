package model

import (
	"fmt"
	"strings"
	"time"
)

// Pattern is the daily technical pattern label attached to a trading day
type Pattern int

const (
	PatternOther Pattern = iota
	PatternBreakdown
	PatternBoxRange
	PatternBreakoutPullback
	PatternBreakout
)

var patternNames = map[Pattern]string{
	PatternBreakout:         "breakout",
	PatternBreakoutPullback: "breakout-pullback",
	PatternBoxRange:         "box-range",
	PatternBreakdown:        "breakdown",
	PatternOther:            "other",
}

// patternPriority orders patterns for mode tie-breaking, higher wins
var patternPriority = map[Pattern]int{
	PatternBreakout:         5,
	PatternBreakoutPullback: 4,
	PatternBoxRange:         3,
	PatternBreakdown:        2,
	PatternOther:            1,
}

// AllPatterns lists every pattern from highest to lowest priority
var AllPatterns = []Pattern{
	PatternBreakout,
	PatternBreakoutPullback,
	PatternBoxRange,
	PatternBreakdown,
	PatternOther,
}

// String returns the wire label of the pattern
func (p Pattern) String() string {
	if name, ok := patternNames[p]; ok {
		return name
	}
	return patternNames[PatternOther]
}

// Priority returns the tie-break rank of the pattern
func (p Pattern) Priority() int {
	return patternPriority[p]
}

// ParsePattern maps a label to a Pattern. Unknown labels map to PatternOther
// and report ok=false.
func ParsePattern(label string) (Pattern, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for p, name := range patternNames {
		if name == label {
			return p, true
		}
	}
	return PatternOther, false
}

// MarshalText implements encoding.TextMarshaler
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, ok := ParsePattern(string(text))
	if !ok && len(text) > 0 {
		return fmt.Errorf("unknown pattern %q", string(text))
	}
	*p = parsed
	return nil
}

// PatternLabel is one day's classification from the pattern collaborator
type PatternLabel struct {
	Date    time.Time `json:"date"`
	Pattern Pattern   `json:"pattern"`
}
