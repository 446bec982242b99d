// Package analyzer turns job-description text into a deterministic,
// evidence-backed report.
//
// The pipeline is linear: Normalize, segment into sentences, match every
// catalog rule against every sentence, aggregate hits into per-rule buckets,
// score the buckets, run the post-pass detectors and assemble the report.
// Apart from the caller-supplied clock and id generator the output is a pure
// function of the input text and the catalog, and an Analyzer is safe for
// concurrent use.
package analyzer

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"jdroaster/internal/catalog"
	"jdroaster/internal/errors"
	"jdroaster/internal/types"
)

// timeLayout renders createdAt with millisecond precision in UTC
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Analyzer runs the analysis pipeline against one immutable catalog
type Analyzer struct {
	catalog   *catalog.Catalog
	rules     []*catalog.Rule
	segmenter *Segmenter
	now       func() time.Time
	newID     func() string
	version   int
	logger    *errors.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithSegmenter replaces the default Unicode segmenter
func WithSegmenter(s *Segmenter) Option {
	return func(a *Analyzer) {
		a.segmenter = s
	}
}

// WithClock sets the source of createdAt
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithIDGenerator assigns report ids; reports carry no id without one
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) {
		a.newID = newID
	}
}

// WithReportVersion overrides the report schema version
func WithReportVersion(v int) Option {
	return func(a *Analyzer) {
		a.version = v
	}
}

// WithLogger enables debug logging of rule matches
func WithLogger(logger *errors.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer over cat
func New(cat *catalog.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog:   cat,
		rules:     cat.Rules(),
		segmenter: NewSegmenter(),
		now:       time.Now,
		version:   types.ReportVersion,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the catalog the analyzer evaluates
func (a *Analyzer) Catalog() *catalog.Catalog {
	return a.catalog
}

// Sentences normalizes and segments raw text without scoring it
func (a *Analyzer) Sentences(raw string) *types.SentencesResult {
	normalized := Normalize(raw)
	return &types.SentencesResult{
		NormalizedText: normalized,
		Sentences:      a.segmenter.Segment(normalized),
	}
}

// Analyze runs the full pipeline. It never fails: text without recognizable
// sentences yields a report with baseline scores and only synthetic findings.
func (a *Analyzer) Analyze(raw string) *types.Report {
	normalized := Normalize(raw)
	sentences := a.segmenter.Segment(normalized)
	result := a.evaluate(sentences)

	report := &types.Report{
		Version:        a.version,
		CreatedAt:      a.now().UTC().Format(timeLayout),
		NormalizedText: normalized,
		Sentences:      sentences,
		Scores:         result.scores,
		Insights:       result.insights,
		GreenFlags:     result.greenFlags,
	}
	if a.newID != nil {
		report.ID = a.newID()
	}
	return report
}

type evaluation struct {
	scores     types.Scores
	insights   []types.Finding
	greenFlags []types.Finding
}

func (a *Analyzer) evaluate(sentences []types.Sentence) evaluation {
	buckets := collectBuckets(a.rules, sentences)
	a.logMatches(buckets, sentences)

	out := evaluation{
		scores:     types.BaselineScores(),
		insights:   make([]types.Finding, 0),
		greenFlags: make([]types.Finding, 0),
	}

	// Deltas are applied and clamped one bucket at a time in this order,
	// which makes saturation order-dependent but reproducible.
	ordered := slices.Clone(buckets)
	slices.SortStableFunc(ordered, func(x, y *bucket) int {
		if c := cmp.Compare(y.rule.Priority, x.rule.Priority); c != 0 {
			return c
		}
		return strings.Compare(x.rule.ID, y.rule.ID)
	})

	for _, b := range ordered {
		finding := a.materialize(b, sentences, &out.scores)
		if b.rule.Kind == catalog.KindGreenFlag {
			out.greenFlags = append(out.greenFlags, finding)
		} else {
			out.insights = append(out.insights, finding)
		}
	}

	out.insights = append(out.insights, detectContradictions(buckets, sentences, &out.scores)...)
	if f, ok := detectImbalance(buckets, sentences, &out.scores); ok {
		out.insights = append(out.insights, f)
	}
	if f, ok := checkCompensation(out.greenFlags, &out.scores); ok {
		out.insights = append(out.insights, f)
	}

	slices.SortStableFunc(out.insights, func(x, y types.Finding) int {
		if c := cmp.Compare(severityRank(y.Severity), severityRank(x.Severity)); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	out.scores.Clamp()

	return out
}

// materialize scores a bucket, applies its deltas and builds its finding
func (a *Analyzer) materialize(b *bucket, sentences []types.Sentence, scores *types.Scores) types.Finding {
	rule := b.rule
	evidence := b.evidence()
	ids := sentenceIDs(sentences, evidence)
	score := bucketScore(rule, evidence)

	applyBucket(scores, rule, score)

	finding := types.Finding{
		Type:                rule.Type,
		Title:               rule.Title,
		Explanation:         rule.Explanation,
		EvidenceSentenceIDs: ids,
		Priority:            rule.Priority,
		BucketScore:         score,
		EvidenceSummary:     summarize(ids, evidence, rule.ClusterWindow),
	}
	if rule.Kind == catalog.KindGreenFlag {
		finding.ID = "gf_" + rule.ID
	} else {
		finding.ID = "in_" + rule.ID
		finding.Severity = rule.Severity
	}
	return finding
}

func (a *Analyzer) logMatches(buckets []*bucket, sentences []types.Sentence) {
	if a.logger == nil {
		return
	}
	for _, b := range buckets {
		for _, i := range b.indices {
			a.logger.Debug("Rule matched",
				"rule_id", b.rule.ID,
				"sentence_id", sentences[i].ID,
				"tokens", b.tokens[i])
		}
	}
}
