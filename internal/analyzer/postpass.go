package analyzer

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"jdroaster/internal/catalog"
	"jdroaster/internal/types"
)

const (
	contradictionEvidenceCap = 6
	imbalanceEvidenceCap     = 8
	imbalanceMinHits         = 6
	compensationCeiling      = 30

	// SalaryRangeType is the green flag type that satisfies the compensation check
	SalaryRangeType = "salary_range_present"

	contradictionID = "in_contradiction_%s_%s"
	imbalanceID     = "in_imbalance_responsibilities"
	compMissingID   = "in_comp_missing"
)

// detectContradictions penalizes pairs of rules that both fired while one
// declares it contradicts the other
func detectContradictions(buckets []*bucket, sentences []types.Sentence, scores *types.Scores) []types.Finding {
	byID := make(map[string]*bucket, len(buckets))
	for _, b := range buckets {
		byID[b.rule.ID] = b
	}

	var findings []types.Finding
	for _, b := range buckets {
		for _, otherID := range b.rule.Contradicts {
			other, ok := byID[otherID]
			if !ok {
				continue
			}

			weight := math.Min(severityWeight(b.rule.Severity), severityWeight(other.rule.Severity))
			penalty := -roundHalfUp(5 * weight)
			scores.Add(types.DimensionClarity, penalty)
			scores.Add(types.DimensionScopeCreep, min(-2, penalty))

			evidence := mergeIndices(b.indices, other.indices)
			evidence = evidence[:min(len(evidence), contradictionEvidenceCap)]
			ids := sentenceIDs(sentences, evidence)

			findings = append(findings, types.Finding{
				ID:                  fmt.Sprintf(contradictionID, b.rule.ID, otherID),
				Type:                "contradiction",
				Title:               fmt.Sprintf("Contradictory statements detected: %s vs %s", b.rule.ID, otherID),
				Explanation:         "This job description contains statements that conflict with each other.",
				Severity:            types.SeverityWarn,
				EvidenceSentenceIDs: ids,
				BucketScore:         weight,
				EvidenceSummary:     summarize(ids, evidence, catalog.DefaultClusterWindow),
			})
		}
	}
	return findings
}

// detectImbalance flags many responsibilities paired with no support signals
func detectImbalance(buckets []*bucket, sentences []types.Sentence, scores *types.Scores) (types.Finding, bool) {
	responsibilityHits, supportHits := 0, 0
	var responsibility [][]int
	for _, b := range buckets {
		if isResponsibilityRule(b.rule) {
			responsibilityHits += b.size()
			responsibility = append(responsibility, b.indices)
		}
		if isSupportRule(b.rule) {
			supportHits += b.size()
		}
	}

	if responsibilityHits < imbalanceMinHits || supportHits != 0 {
		return types.Finding{}, false
	}

	scores.Add(types.DimensionScopeCreep, -10)
	scores.Add(types.DimensionClarity, -5)

	evidence := mergeIndices(responsibility...)
	evidence = evidence[:min(len(evidence), imbalanceEvidenceCap)]
	ids := sentenceIDs(sentences, evidence)

	return types.Finding{
		ID:                  imbalanceID,
		Type:                "scope",
		Title:               "Many responsibilities listed with no support or resources",
		Explanation:         "The role lists many responsibilities but provides no signals about team size, reporting, or support.",
		Severity:            types.SeverityWarn,
		EvidenceSentenceIDs: ids,
		BucketScore:         1,
		EvidenceSummary:     summarize(ids, evidence, catalog.DefaultClusterWindow),
	}, true
}

// checkCompensation caps compensation clarity when no salary range was found
func checkCompensation(greenFlags []types.Finding, scores *types.Scores) (types.Finding, bool) {
	for _, g := range greenFlags {
		if g.Type == SalaryRangeType {
			return types.Finding{}, false
		}
	}

	scores.Set(types.DimensionCompensationClarity, min(scores.CompensationClarity, compensationCeiling))

	return types.Finding{
		ID:                  compMissingID,
		Type:                "compensation",
		Title:               "Compensation not clearly stated",
		Explanation:         "No obvious salary range or compensation details were detected. This often increases negotiation ambiguity.",
		Severity:            types.SeverityWarn,
		EvidenceSentenceIDs: []string{},
		BucketScore:         1,
		EvidenceSummary:     types.EvidenceSummary{},
	}, true
}

func isResponsibilityRule(r *catalog.Rule) bool {
	return r.HasTag(catalog.TagResponsibilityLoad) || containsAny(r, "responsib")
}

func isSupportRule(r *catalog.Rule) bool {
	return r.HasTag(catalog.TagSupportSignal) || containsAny(r, "team", "support")
}

// containsAny checks the rule id and type for any of the given fragments
func containsAny(r *catalog.Rule, fragments ...string) bool {
	id := strings.ToLower(r.ID)
	typ := strings.ToLower(r.Type)
	for _, f := range fragments {
		if strings.Contains(id, f) || strings.Contains(typ, f) {
			return true
		}
	}
	return false
}

// mergeIndices unions ascending index lists into one ascending list
func mergeIndices(lists ...[]int) []int {
	var merged []int
	for _, l := range lists {
		merged = append(merged, l...)
	}
	slices.Sort(merged)
	return slices.Compact(merged)
}
