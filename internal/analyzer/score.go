package analyzer

import (
	"math"

	"jdroaster/internal/catalog"
	"jdroaster/internal/types"
)

const (
	maxBucketScore  = 3.0
	clusterStepGain = 0.2
)

// severityWeight maps severity onto its scoring multiplier
func severityWeight(s types.Severity) float64 {
	switch s {
	case types.SeverityHigh:
		return 2
	case types.SeverityWarn:
		return 1
	default:
		return 0.5
	}
}

// severityRank orders insights for output, highest first
func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityHigh:
		return 3
	case types.SeverityWarn:
		return 2
	default:
		return 1
	}
}

// evidenceWeight gives diminishing returns: 1 - e^(-n/tau)
func evidenceWeight(n int, tau float64) float64 {
	if n <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(n)/tau)
}

// clusterMultiplier rewards evidence that sits close together. indices must
// be ascending; members within window of their predecessor share a cluster.
func clusterMultiplier(indices []int, window int) float64 {
	if len(indices) <= 1 {
		return 1
	}
	clusters := 1
	for k := 1; k < len(indices); k++ {
		if indices[k]-indices[k-1] > window {
			clusters++
		}
	}
	avg := float64(len(indices)) / float64(clusters)
	return 1 + clusterStepGain*math.Max(0, avg-1)
}

// bucketScore combines severity, evidence count and clustering, capped at 3
func bucketScore(rule *catalog.Rule, evidence []int) float64 {
	score := severityWeight(rule.Severity) *
		evidenceWeight(len(evidence), rule.Tau) *
		clusterMultiplier(evidence, rule.ClusterWindow)
	return math.Min(maxBucketScore, score)
}

// scaledDelta scales a base delta and caps its magnitude
func scaledDelta(base int, score float64, limit int) int {
	return max(-limit, min(limit, roundHalfUp(float64(base)*score)))
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// applyBucket adds a rule's scaled deltas to scores, clamping after each one
func applyBucket(scores *types.Scores, rule *catalog.Rule, score float64) {
	for _, d := range rule.ScoreDelta {
		scores.Add(d.Dimension, scaledDelta(d.Delta, score, rule.MaxPerRuleImpact))
	}
}

// summarize builds the receipt summary for a list of evidence positions
func summarize(ids []string, evidence []int, window int) types.EvidenceSummary {
	summary := types.EvidenceSummary{
		Count:     len(ids),
		Clustered: clusterMultiplier(evidence, window) > 1,
	}
	if len(ids) > 0 {
		strongest := ids[0]
		summary.Strongest = &strongest
	}
	return summary
}
