package analyzer

import (
	"jdroaster/internal/catalog"
	"jdroaster/internal/types"
)

// bucket is the evidence one rule collected during one analysis.
// indices are sentence positions, unique and ascending.
type bucket struct {
	rule    *catalog.Rule
	indices []int
	tokens  map[int][]string
}

func (b *bucket) size() int {
	return len(b.indices)
}

// evidence returns the earliest indices, capped at the rule's maxEvidence
func (b *bucket) evidence() []int {
	return b.indices[:min(len(b.indices), b.rule.MaxEvidence)]
}

// collectBuckets runs every rule over the sentences. Buckets come back in
// catalog order and only for rules with at least one hit.
func collectBuckets(rules []*catalog.Rule, sentences []types.Sentence) []*bucket {
	var buckets []*bucket
	for _, rule := range rules {
		if b := collectBucket(rule, sentences); b != nil {
			buckets = append(buckets, b)
		}
	}
	return buckets
}

func collectBucket(rule *catalog.Rule, sentences []types.Sentence) *bucket {
	excluded := indexExclusions(rule, sentences)
	if excluded.skipsRule(rule) {
		return nil
	}

	var b *bucket
	for i, s := range sentences {
		if excluded.skipsCandidate(rule, i) {
			continue
		}
		res := Match(rule, s.Text)
		if !res.Matched || excluded.blocksMatch(rule, i) {
			continue
		}

		if b == nil {
			b = &bucket{rule: rule, tokens: make(map[int][]string)}
		}
		// each sentence is visited once per rule
		b.indices = append(b.indices, i)
		if res.Token != "" {
			b.tokens[i] = append(b.tokens[i], res.Token)
		}
	}
	return b
}

// sentenceIDs maps sentence positions onto ids
func sentenceIDs(sentences []types.Sentence, indices []int) []string {
	ids := make([]string, len(indices))
	for k, i := range indices {
		ids[k] = sentences[i].ID
	}
	return ids
}
