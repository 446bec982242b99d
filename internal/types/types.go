package types

// ReportVersion is the schema version stamped on every report
const ReportVersion = 1

// Severity grades an insight
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
	SeverityHigh Severity = "high"
)

// Sentence is an offset-addressed unit of normalized text.
// Start and End are half-open byte offsets into the normalized text.
type Sentence struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Dimension names one of the five score keys
type Dimension string

const (
	DimensionClarity             Dimension = "clarity"
	DimensionVagueness           Dimension = "vagueness"
	DimensionScopeCreep          Dimension = "scopeCreep"
	DimensionOnCallInDisguise    Dimension = "onCallInDisguise"
	DimensionCompensationClarity Dimension = "compensationClarity"
)

// Dimensions lists every score dimension in output order
var Dimensions = []Dimension{
	DimensionClarity,
	DimensionVagueness,
	DimensionScopeCreep,
	DimensionOnCallInDisguise,
	DimensionCompensationClarity,
}

// BaselineScore is the starting value of every dimension
const BaselineScore = 50

// Scores is the five-dimension score vector, each value in [0,100]
type Scores struct {
	Clarity             int `json:"clarity"`
	Vagueness           int `json:"vagueness"`
	ScopeCreep          int `json:"scopeCreep"`
	OnCallInDisguise    int `json:"onCallInDisguise"`
	CompensationClarity int `json:"compensationClarity"`
}

// BaselineScores returns a vector with every dimension at the baseline
func BaselineScores() Scores {
	return Scores{
		Clarity:             BaselineScore,
		Vagueness:           BaselineScore,
		ScopeCreep:          BaselineScore,
		OnCallInDisguise:    BaselineScore,
		CompensationClarity: BaselineScore,
	}
}

// Get returns the value of a dimension; unknown dimensions read as zero
func (s *Scores) Get(d Dimension) int {
	if p := s.field(d); p != nil {
		return *p
	}
	return 0
}

// Add applies delta to a dimension and clamps the result to [0,100]
func (s *Scores) Add(d Dimension, delta int) {
	if p := s.field(d); p != nil {
		*p = ClampScore(*p + delta)
	}
}

// Set overwrites a dimension, clamped to [0,100]
func (s *Scores) Set(d Dimension, value int) {
	if p := s.field(d); p != nil {
		*p = ClampScore(value)
	}
}

// Clamp forces every dimension into [0,100]
func (s *Scores) Clamp() {
	for _, d := range Dimensions {
		s.Set(d, s.Get(d))
	}
}

func (s *Scores) field(d Dimension) *int {
	switch d {
	case DimensionClarity:
		return &s.Clarity
	case DimensionVagueness:
		return &s.Vagueness
	case DimensionScopeCreep:
		return &s.ScopeCreep
	case DimensionOnCallInDisguise:
		return &s.OnCallInDisguise
	case DimensionCompensationClarity:
		return &s.CompensationClarity
	}
	return nil
}

// ClampScore bounds n to [0,100]
func ClampScore(n int) int {
	return max(0, min(100, n))
}

// IsDimension reports whether name is a known score key
func IsDimension(name string) bool {
	for _, d := range Dimensions {
		if string(d) == name {
			return true
		}
	}
	return false
}

// EvidenceSummary condenses the receipts of a finding
type EvidenceSummary struct {
	Count     int     `json:"count"`
	Clustered bool    `json:"clustered"`
	Strongest *string `json:"strongest"` // first evidence sentence id, null when none
}

// Finding is an insight (risk) or a green flag (positive signal).
// Severity is only set for insights.
type Finding struct {
	ID                  string          `json:"id"`
	Type                string          `json:"type"`
	Title               string          `json:"title"`
	Explanation         string          `json:"explanation"`
	Severity            Severity        `json:"severity,omitempty"`
	EvidenceSentenceIDs []string        `json:"evidenceSentenceIds"`
	Priority            int             `json:"priority"`
	BucketScore         float64         `json:"bucketScore"`
	EvidenceSummary     EvidenceSummary `json:"evidenceSummary"`
}

// Report is the immutable analysis output
type Report struct {
	ID             string     `json:"id,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      string     `json:"createdAt"`
	NormalizedText string     `json:"normalizedText"`
	Sentences      []Sentence `json:"sentences"`
	Scores         Scores     `json:"scores"`
	Insights       []Finding  `json:"insights"`
	GreenFlags     []Finding  `json:"greenFlags"`
}

// SentenceByID returns the sentence with the given id
func (r *Report) SentenceByID(id string) (Sentence, bool) {
	for _, s := range r.Sentences {
		if s.ID == id {
			return s, true
		}
	}
	return Sentence{}, false
}

// SentencesResult is the normalization and segmentation output without scoring
type SentencesResult struct {
	NormalizedText string     `json:"normalizedText"`
	Sentences      []Sentence `json:"sentences"`
}

// RuleSummary describes one catalog rule for listings
type RuleSummary struct {
	ID       string   `json:"id"`
	Group    string   `json:"group"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Mode     string   `json:"mode"`
	Priority int      `json:"priority"`
	Title    string   `json:"title"`
}

// CatalogSummary describes a loaded rule catalog
type CatalogSummary struct {
	Version string        `json:"version"`
	Source  string        `json:"source"`
	Rules   []RuleSummary `json:"rules"`
}

// AnalyzeTextRequest is the HTTP request body for analysis endpoints
type AnalyzeTextRequest struct {
	RawText *string `json:"rawText"`
}

// AnalyzeTextResponse wraps a report for HTTP clients
type AnalyzeTextResponse struct {
	OK     bool    `json:"ok"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// DebugSentencesResponse is returned by the debug sentences endpoint
type DebugSentencesResponse struct {
	OK             bool       `json:"ok"`
	NormalizedText string     `json:"normalizedText"`
	Sentences      []Sentence `json:"sentences"`
}

// ScoreLabel is a coarse presentation label for a score
type ScoreLabel string

const (
	LabelGood     ScoreLabel = "Good"
	LabelMixed    ScoreLabel = "Mixed"
	LabelRisky    ScoreLabel = "Risky"
	LabelHighRisk ScoreLabel = "High risk"
)

// LabelFor maps a score onto its presentation label
func LabelFor(score int) ScoreLabel {
	s := ClampScore(score)
	switch {
	case s >= 75:
		return LabelGood
	case s >= 50:
		return LabelMixed
	case s >= 30:
		return LabelRisky
	default:
		return LabelHighRisk
	}
}
