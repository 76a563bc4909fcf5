package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0.75, RiskHigh},
		{0.7, RiskHigh},
		{0.6999, RiskMedium},
		{0.5, RiskMedium},
		{0.4, RiskMedium},
		{0.3999, RiskLow},
		{0.2, RiskLow},
		{0, RiskLow},
		{1, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %v", tt.score)
	}
}

func TestSummarizeRisk(t *testing.T) {
	clause := func(level RiskLevel) Clause { return Clause{RiskLevel: level} }

	tests := []struct {
		name    string
		clauses []Clause
		want    RiskLevel
	}{
		{"empty", nil, RiskLow},
		{"one medium", []Clause{clause(RiskMedium), clause(RiskLow)}, RiskLow},
		{"two medium", []Clause{clause(RiskMedium), clause(RiskMedium)}, RiskMedium},
		{"any high", []Clause{clause(RiskLow), clause(RiskHigh)}, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SummarizeRisk(tt.clauses).OverallRisk)
		})
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	assert.Equal(t, RiskHigh, MaxRisk(RiskMedium, RiskHigh))
	assert.Equal(t, RiskMedium, MaxRisk(RiskMedium, RiskLow))

	level, ok := ParseRiskLevel(" medium ")
	assert.True(t, ok)
	assert.Equal(t, RiskMedium, level)

	_, ok = ParseRiskLevel("severe")
	assert.False(t, ok)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(ErrInputTooLarge, "after", "%d bytes", 42)

	assert.True(t, errors.Is(err, ErrInputTooLarge))
	assert.False(t, errors.Is(err, ErrEmptyInput))
	assert.Equal(t, "input too large: after: 42 bytes", err.Error())

	var verr *ValidationError
	assert.True(t, errors.As(error(err), &verr))
	assert.Equal(t, "after", verr.Field)
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Start: 0, End: 5}
	assert.True(t, a.Overlaps(Span{Start: 4, End: 8}))
	assert.False(t, a.Overlaps(Span{Start: 5, End: 8}), "half-open spans that touch do not overlap")
	assert.Equal(t, 5, a.Len())
}
