package analyzer

import (
	"math"
	"testing"

	"jdroaster/internal/catalog"
	"jdroaster/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestEvidenceWeight(t *testing.T) {
	assert.Equal(t, 0.0, evidenceWeight(0, 2))
	assert.InDelta(t, 1-math.Exp(-0.5), evidenceWeight(1, 2), 1e-12)
	assert.InDelta(t, 1-math.Exp(-1), evidenceWeight(2, 2), 1e-12)
	assert.InDelta(t, 1-math.Exp(-2), evidenceWeight(2, 1), 1e-12)

	// diminishing returns: each extra hit adds less than the previous one
	prevGain := math.Inf(1)
	for n := 1; n <= 10; n++ {
		gain := evidenceWeight(n, 2) - evidenceWeight(n-1, 2)
		assert.Less(t, gain, prevGain)
		prevGain = gain
	}
}

func TestClusterMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		window  int
		want    float64
	}{
		{"empty", nil, 2, 1},
		{"single", []int{4}, 2, 1},
		{"adjacent pair", []int{1, 2}, 2, 1.2},
		{"gap equal to window", []int{1, 3}, 2, 1.2},
		{"gap beyond window", []int{1, 4}, 2, 1},
		{"two clusters", []int{0, 1, 2, 10, 11, 12}, 2, 1.4},
		{"zero window", []int{1, 2, 3}, 0, 1},
		{"one long run", []int{0, 1, 2, 3, 4, 5, 6, 7}, 2, 2.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, clusterMultiplier(tt.indices, tt.window), 1e-12)
		})
	}
}

func TestSeverityWeightAndRank(t *testing.T) {
	assert.Equal(t, 0.5, severityWeight(types.SeverityInfo))
	assert.Equal(t, 1.0, severityWeight(types.SeverityWarn))
	assert.Equal(t, 2.0, severityWeight(types.SeverityHigh))

	assert.Greater(t, severityRank(types.SeverityHigh), severityRank(types.SeverityWarn))
	assert.Greater(t, severityRank(types.SeverityWarn), severityRank(types.SeverityInfo))
}

func TestBucketScoreCap(t *testing.T) {
	rule := &catalog.Rule{Severity: types.SeverityHigh, Tau: 0.1, ClusterWindow: 100}
	evidence := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	// 2 * ~1 * 2.8 would exceed the cap
	assert.Equal(t, 3.0, bucketScore(rule, evidence))
}

func TestScaledDelta(t *testing.T) {
	tests := []struct {
		name  string
		base  int
		score float64
		limit int
		want  int
	}{
		{"rounds half up positive", 5, 0.5, 25, 3},
		{"rounds half up negative", -5, 0.5, 25, -2},
		{"rounds down below half", -4, 0.3934, 25, -2},
		{"caps positive", 40, 3, 25, 25},
		{"caps negative", -40, 3, 25, -25},
		{"zero limit", -10, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scaledDelta(tt.base, tt.score, tt.limit))
		})
	}
}

func TestApplyBucketClampsEachStep(t *testing.T) {
	scores := types.BaselineScores()
	rule := &catalog.Rule{
		MaxPerRuleImpact: 100,
		ScoreDelta: []catalog.DimensionDelta{
			{Dimension: types.DimensionClarity, Delta: -80},
			{Dimension: types.DimensionVagueness, Delta: 80},
		},
	}

	applyBucket(&scores, rule, 1)
	assert.Equal(t, 0, scores.Clarity)
	assert.Equal(t, 100, scores.Vagueness)

	applyBucket(&scores, &catalog.Rule{
		MaxPerRuleImpact: 100,
		ScoreDelta:       []catalog.DimensionDelta{{Dimension: types.DimensionClarity, Delta: 30}},
	}, 1)
	assert.Equal(t, 30, scores.Clarity)
}

func TestMergeIndices(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4, 7}, mergeIndices([]int{2, 7}, []int{1, 2, 4}))
	assert.Empty(t, mergeIndices())
}
