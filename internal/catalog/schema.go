package catalog

// document is the on-disk shape of a rule catalog
type document struct {
	Version string     `json:"version" yaml:"version" toml:"version"`
	Rules   []ruleSpec `json:"rules" yaml:"rules" toml:"rules"`
}

type ruleSpec struct {
	ID          string `json:"id" yaml:"id" toml:"id"`
	Group       string `json:"group" yaml:"group" toml:"group"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Type        string `json:"type" yaml:"type" toml:"type"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Explanation string `json:"explanation" yaml:"explanation" toml:"explanation"`
	Severity    string `json:"severity,omitempty" yaml:"severity,omitempty" toml:"severity,omitempty"`

	ScoreDelta  map[string]int `json:"scoreDelta,omitempty" yaml:"scoreDelta,omitempty" toml:"scoreDelta,omitempty"`
	MaxEvidence *int           `json:"maxEvidence,omitempty" yaml:"maxEvidence,omitempty" toml:"maxEvidence,omitempty"`
	Priority    int            `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority,omitempty"`

	Mode  string    `json:"mode" yaml:"mode" toml:"mode"`
	Match matchSpec `json:"match" yaml:"match" toml:"match"`

	Exclude       *excludeSpec `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	ExcludeScope  string       `json:"excludeScope,omitempty" yaml:"excludeScope,omitempty" toml:"excludeScope,omitempty"`
	ExcludeWindow *int         `json:"excludeWindow,omitempty" yaml:"excludeWindow,omitempty" toml:"excludeWindow,omitempty"`

	Contradicts []string `json:"contradicts,omitempty" yaml:"contradicts,omitempty" toml:"contradicts,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`

	Tau              *float64 `json:"tau,omitempty" yaml:"tau,omitempty" toml:"tau,omitempty"`
	ClusterWindow    *int     `json:"clusterWindow,omitempty" yaml:"clusterWindow,omitempty" toml:"clusterWindow,omitempty"`
	MaxPerRuleImpact *int     `json:"maxPerRuleImpact,omitempty" yaml:"maxPerRuleImpact,omitempty" toml:"maxPerRuleImpact,omitempty"`
}

// matchSpec carries the union of all mode payloads; compile checks that
// only the fields belonging to the rule's mode are set.
type matchSpec struct {
	Phrases         []string        `json:"phrases,omitempty" yaml:"phrases,omitempty" toml:"phrases,omitempty"`
	CaseInsensitive *bool           `json:"caseInsensitive,omitempty" yaml:"caseInsensitive,omitempty" toml:"caseInsensitive,omitempty"`
	WordBoundary    *bool           `json:"wordBoundary,omitempty" yaml:"wordBoundary,omitempty" toml:"wordBoundary,omitempty"`
	Patterns        []string        `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty"`
	Flags           string          `json:"flags,omitempty" yaml:"flags,omitempty" toml:"flags,omitempty"`
	MustInclude     []conditionSpec `json:"mustInclude,omitempty" yaml:"mustInclude,omitempty" toml:"mustInclude,omitempty"`
}

type conditionSpec struct {
	Mode            string   `json:"mode" yaml:"mode" toml:"mode"`
	Phrases         []string `json:"phrases,omitempty" yaml:"phrases,omitempty" toml:"phrases,omitempty"`
	CaseInsensitive *bool    `json:"caseInsensitive,omitempty" yaml:"caseInsensitive,omitempty" toml:"caseInsensitive,omitempty"`
	WordBoundary    *bool    `json:"wordBoundary,omitempty" yaml:"wordBoundary,omitempty" toml:"wordBoundary,omitempty"`
	Patterns        []string `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty"`
	Flags           string   `json:"flags,omitempty" yaml:"flags,omitempty" toml:"flags,omitempty"`
}

type excludeSpec struct {
	Phrases  []string `json:"phrases,omitempty" yaml:"phrases,omitempty" toml:"phrases,omitempty"`
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty"`
	Flags    string   `json:"flags,omitempty" yaml:"flags,omitempty" toml:"flags,omitempty"`
}
