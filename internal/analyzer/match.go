package analyzer

import (
	"jdroaster/internal/catalog"
	"jdroaster/internal/types"
)

// MatchResult is the outcome of evaluating one rule against one sentence
type MatchResult struct {
	Matched bool
	Token   string
}

// Match evaluates a rule's condition against sentence text. Exclusions are
// not considered; they are resolved per document by an exclusionIndex.
func Match(rule *catalog.Rule, text string) MatchResult {
	var (
		token string
		ok    bool
	)
	switch c := rule.Condition.(type) {
	case *catalog.PhraseCondition:
		token, ok = c.Match(text)
	case *catalog.RegexCondition:
		token, ok = c.Match(text)
	case *catalog.ComboCondition:
		token, ok = c.Match(text)
	}
	return MatchResult{Matched: ok, Token: token}
}

// exclusionIndex holds, for one rule, the sentence indices on which its
// exclusion predicate fires
type exclusionIndex struct {
	hits  []bool
	count int
}

func indexExclusions(rule *catalog.Rule, sentences []types.Sentence) exclusionIndex {
	idx := exclusionIndex{hits: make([]bool, len(sentences))}
	if rule.Exclusion == nil {
		return idx
	}
	for i, s := range sentences {
		if rule.Exclusion.Matches(s.Text) {
			idx.hits[i] = true
			idx.count++
		}
	}
	return idx
}

// skipsRule reports whether a document-scoped exclusion disables the rule
func (x exclusionIndex) skipsRule(rule *catalog.Rule) bool {
	return rule.ExcludeScope == catalog.ScopeDocument && x.count > 0
}

// skipsCandidate reports whether sentence i is out of bounds for the rule
// before its condition is evaluated
func (x exclusionIndex) skipsCandidate(rule *catalog.Rule, i int) bool {
	return rule.ExcludeScope == catalog.ScopeSentence && x.hits[i]
}

// blocksMatch reports whether a window-scoped exclusion discards a match on
// sentence i
func (x exclusionIndex) blocksMatch(rule *catalog.Rule, i int) bool {
	if rule.ExcludeScope != catalog.ScopeWindow || x.count == 0 {
		return false
	}
	from := max(0, i-rule.ExcludeWindow)
	to := min(len(x.hits)-1, i+rule.ExcludeWindow)
	for j := from; j <= to; j++ {
		if x.hits[j] {
			return true
		}
	}
	return false
}
