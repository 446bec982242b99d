package catalog

import (
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"jdroaster/internal/errors"
	"jdroaster/internal/types"
)

// Kind tells whether a rule produces an insight or a green flag
type Kind string

const (
	KindInsight   Kind = "insight"
	KindGreenFlag Kind = "greenFlag"
)

// ExcludeScope is the breadth over which an exclusion suppresses matches
type ExcludeScope string

const (
	ScopeSentence ExcludeScope = "sentence"
	ScopeDocument ExcludeScope = "document"
	ScopeWindow   ExcludeScope = "window"
)

// Tags understood by the post-pass imbalance detector
const (
	TagResponsibilityLoad = "responsibility-load"
	TagSupportSignal      = "support-signal"
)

// Defaults applied to optional rule fields
const (
	DefaultMaxEvidence      = 8
	DefaultExcludeWindow    = 2
	DefaultTau              = 2.0
	DefaultClusterWindow    = 2
	DefaultMaxPerRuleImpact = 25
)

// DimensionDelta is the base score delta of a rule for one dimension
type DimensionDelta struct {
	Dimension types.Dimension
	Delta     int
}

// Rule is a compiled, read-only catalog entry
type Rule struct {
	ID          string
	Group       string
	Kind        Kind
	Type        string
	Title       string
	Explanation string
	Severity    types.Severity

	// ScoreDelta is ordered by types.Dimensions
	ScoreDelta  []DimensionDelta
	MaxEvidence int
	Priority    int

	Condition Condition

	Exclusion     *Exclusion
	ExcludeScope  ExcludeScope
	ExcludeWindow int

	Contradicts []string
	Tags        []string

	Tau              float64
	ClusterWindow    int
	MaxPerRuleImpact int
}

// HasTag reports whether the rule carries tag
func (r *Rule) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Catalog is an immutable, ordered rule collection
type Catalog struct {
	version string
	source  string
	rules   []*Rule
	byID    map[string]*Rule
}

// Version returns the catalog's declared version
func (c *Catalog) Version() string { return c.version }

// Source describes where the catalog was loaded from
func (c *Catalog) Source() string { return c.source }

// Len returns the number of rules
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the rules in catalog order
func (c *Catalog) Rules() []*Rule {
	return slices.Clone(c.rules)
}

// Rule looks up a rule by id
func (c *Catalog) Rule(id string) (*Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Summary lists the catalog for display
func (c *Catalog) Summary() types.CatalogSummary {
	summary := types.CatalogSummary{
		Version: c.version,
		Source:  c.source,
		Rules:   make([]types.RuleSummary, 0, len(c.rules)),
	}
	for _, r := range c.rules {
		summary.Rules = append(summary.Rules, types.RuleSummary{
			ID:       r.ID,
			Group:    r.Group,
			Kind:     string(r.Kind),
			Type:     r.Type,
			Severity: r.Severity,
			Mode:     string(r.Condition.Mode()),
			Priority: r.Priority,
			Title:    r.Title,
		})
	}
	return summary
}

// compile turns a decoded document into a catalog. Every problem found is
// reported; the catalog is only returned when there are none.
func compile(doc document, source string) (*Catalog, error) {
	cat := &Catalog{
		version: doc.Version,
		source:  source,
		byID:    make(map[string]*Rule, len(doc.Rules)),
	}

	var problems []error
	if len(doc.Rules) == 0 {
		problems = append(problems, fmt.Errorf("catalog has no rules"))
	}

	for i, spec := range doc.Rules {
		rule, errs := compileRule(spec)
		if len(errs) > 0 {
			for _, err := range errs {
				problems = append(problems, fmt.Errorf("rule[%d] %q: %w", i, spec.ID, err))
			}
			continue
		}
		if _, dup := cat.byID[rule.ID]; dup {
			problems = append(problems, fmt.Errorf("rule[%d] %q: duplicate id", i, rule.ID))
			continue
		}
		cat.byID[rule.ID] = rule
		cat.rules = append(cat.rules, rule)
	}

	for _, r := range cat.rules {
		for _, other := range r.Contradicts {
			if _, ok := cat.byID[other]; !ok {
				problems = append(problems, fmt.Errorf("rule %q: contradicts unknown rule %q", r.ID, other))
			}
		}
	}

	if len(problems) > 0 {
		return nil, errors.NewCatalogError(errors.ErrCodeInvalidCatalog, "rule catalog is invalid", stderrors.Join(problems...)).
			WithContext("source", source).
			WithContext("problems", len(problems))
	}
	return cat, nil
}

func compileRule(spec ruleSpec) (*Rule, []error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(spec.ID) == "" {
		fail("id is required")
	}
	if strings.TrimSpace(spec.Type) == "" {
		fail("type is required")
	}
	if strings.TrimSpace(spec.Title) == "" {
		fail("title is required")
	}

	rule := &Rule{
		ID:               spec.ID,
		Group:            spec.Group,
		Kind:             KindInsight,
		Type:             spec.Type,
		Title:            spec.Title,
		Explanation:      spec.Explanation,
		Severity:         types.SeverityInfo,
		MaxEvidence:      DefaultMaxEvidence,
		Priority:         spec.Priority,
		ExcludeScope:     ScopeSentence,
		ExcludeWindow:    DefaultExcludeWindow,
		Contradicts:      slices.Clone(spec.Contradicts),
		Tags:             slices.Clone(spec.Tags),
		Tau:              DefaultTau,
		ClusterWindow:    DefaultClusterWindow,
		MaxPerRuleImpact: DefaultMaxPerRuleImpact,
	}

	switch Kind(spec.Kind) {
	case "":
	case KindInsight, KindGreenFlag:
		rule.Kind = Kind(spec.Kind)
	default:
		fail("unknown kind %q", spec.Kind)
	}

	switch types.Severity(spec.Severity) {
	case "":
	case types.SeverityInfo, types.SeverityWarn, types.SeverityHigh:
		rule.Severity = types.Severity(spec.Severity)
	default:
		fail("unknown severity %q", spec.Severity)
	}

	for _, d := range types.Dimensions {
		if delta, ok := spec.ScoreDelta[string(d)]; ok {
			rule.ScoreDelta = append(rule.ScoreDelta, DimensionDelta{Dimension: d, Delta: delta})
		}
	}
	for _, name := range slices.Sorted(maps.Keys(spec.ScoreDelta)) {
		if !types.IsDimension(name) {
			fail("unknown scoreDelta dimension %q", name)
		}
	}

	if spec.MaxEvidence != nil {
		if *spec.MaxEvidence < 1 {
			fail("maxEvidence must be at least 1")
		}
		rule.MaxEvidence = *spec.MaxEvidence
	}
	if spec.ExcludeWindow != nil {
		if *spec.ExcludeWindow < 0 {
			fail("excludeWindow must not be negative")
		}
		rule.ExcludeWindow = *spec.ExcludeWindow
	}
	if spec.Tau != nil {
		if *spec.Tau <= 0 {
			fail("tau must be positive")
		}
		rule.Tau = *spec.Tau
	}
	if spec.ClusterWindow != nil {
		if *spec.ClusterWindow < 0 {
			fail("clusterWindow must not be negative")
		}
		rule.ClusterWindow = *spec.ClusterWindow
	}
	if spec.MaxPerRuleImpact != nil {
		if *spec.MaxPerRuleImpact < 0 {
			fail("maxPerRuleImpact must not be negative")
		}
		rule.MaxPerRuleImpact = *spec.MaxPerRuleImpact
	}

	switch ExcludeScope(spec.ExcludeScope) {
	case "":
	case ScopeSentence, ScopeDocument, ScopeWindow:
		rule.ExcludeScope = ExcludeScope(spec.ExcludeScope)
	default:
		fail("unknown excludeScope %q", spec.ExcludeScope)
	}

	if spec.Exclude != nil {
		ex, err := NewExclusion(spec.Exclude.Phrases, spec.Exclude.Patterns, spec.Exclude.Flags)
		if err != nil {
			fail("%v", err)
		}
		rule.Exclusion = ex
	}

	for _, other := range spec.Contradicts {
		if other == spec.ID {
			fail("rule contradicts itself")
		}
	}

	cond, err := compileMatch(Mode(spec.Mode), spec.Match)
	if err != nil {
		fail("%v", err)
	}
	rule.Condition = cond

	return rule, errs
}

func compileMatch(mode Mode, m matchSpec) (Condition, error) {
	switch mode {
	case ModePhrase:
		if len(m.Patterns) > 0 || m.Flags != "" || len(m.MustInclude) > 0 {
			return nil, fmt.Errorf("phrase mode only accepts phrases, caseInsensitive and wordBoundary")
		}
		return NewPhraseCondition(m.Phrases, boolOr(m.CaseInsensitive, true), boolOr(m.WordBoundary, false))
	case ModeRegex:
		if len(m.Phrases) > 0 || m.CaseInsensitive != nil || m.WordBoundary != nil || len(m.MustInclude) > 0 {
			return nil, fmt.Errorf("regex mode only accepts patterns and flags")
		}
		return NewRegexCondition(m.Patterns, m.Flags)
	case ModeCombo:
		if len(m.Phrases) > 0 || len(m.Patterns) > 0 || m.Flags != "" || m.CaseInsensitive != nil || m.WordBoundary != nil {
			return nil, fmt.Errorf("combo mode only accepts mustInclude")
		}
		subs := make([]Condition, 0, len(m.MustInclude))
		for i, cs := range m.MustInclude {
			if Mode(cs.Mode) == ModeCombo {
				return nil, fmt.Errorf("mustInclude[%d]: nested combo is not supported", i)
			}
			sub, err := compileMatch(Mode(cs.Mode), matchSpec{
				Phrases:         cs.Phrases,
				CaseInsensitive: cs.CaseInsensitive,
				WordBoundary:    cs.WordBoundary,
				Patterns:        cs.Patterns,
				Flags:           cs.Flags,
			})
			if err != nil {
				return nil, fmt.Errorf("mustInclude[%d]: %w", i, err)
			}
			subs = append(subs, sub)
		}
		return NewComboCondition(subs)
	case "":
		return nil, fmt.Errorf("mode is required")
	default:
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
