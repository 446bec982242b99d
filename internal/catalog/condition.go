package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how a rule matches a sentence
type Mode string

const (
	ModePhrase Mode = "phrase"
	ModeRegex  Mode = "regex"
	ModeCombo  Mode = "combo"
)

// Condition is a compiled match predicate. The set of implementations is
// closed: *PhraseCondition, *RegexCondition and *ComboCondition.
type Condition interface {
	// Match reports whether text satisfies the condition and returns the
	// token that explains the hit.
	Match(text string) (token string, ok bool)
	Mode() Mode
	sealed()
}

// PhraseCondition matches when any phrase occurs in the text
type PhraseCondition struct {
	Phrases         []string
	CaseInsensitive bool
	WordBoundary    bool

	folded   []string
	boundary []*regexp.Regexp
}

// NewPhraseCondition compiles a phrase predicate
func NewPhraseCondition(phrases []string, caseInsensitive, wordBoundary bool) (*PhraseCondition, error) {
	if len(phrases) == 0 {
		return nil, fmt.Errorf("phrase condition requires at least one phrase")
	}

	c := &PhraseCondition{
		Phrases:         append([]string(nil), phrases...),
		CaseInsensitive: caseInsensitive,
		WordBoundary:    wordBoundary,
	}

	for i, p := range phrases {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("phrase %d is empty", i)
		}
		if wordBoundary {
			expr := `\b` + regexp.QuoteMeta(p) + `\b`
			if caseInsensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("phrase %q: %w", p, err)
			}
			c.boundary = append(c.boundary, re)
			continue
		}
		if caseInsensitive {
			c.folded = append(c.folded, strings.ToLower(p))
		} else {
			c.folded = append(c.folded, p)
		}
	}

	return c, nil
}

// Match returns the first configured phrase found in text
func (c *PhraseCondition) Match(text string) (string, bool) {
	if c.WordBoundary {
		for i, re := range c.boundary {
			if re.MatchString(text) {
				return c.Phrases[i], true
			}
		}
		return "", false
	}

	haystack := text
	if c.CaseInsensitive {
		haystack = strings.ToLower(text)
	}
	for i, p := range c.folded {
		if strings.Contains(haystack, p) {
			return c.Phrases[i], true
		}
	}
	return "", false
}

func (c *PhraseCondition) Mode() Mode { return ModePhrase }
func (c *PhraseCondition) sealed()    {}

// RegexCondition matches when any pattern matches the text
type RegexCondition struct {
	Patterns []string
	Flags    string

	compiled []*regexp.Regexp
}

// NewRegexCondition compiles a regex predicate
func NewRegexCondition(patterns []string, flags string) (*RegexCondition, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("regex condition requires at least one pattern")
	}

	prefix, err := inlineFlags(flags)
	if err != nil {
		return nil, err
	}

	c := &RegexCondition{
		Patterns: append([]string(nil), patterns...),
		Flags:    flags,
	}
	for _, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("empty regex pattern")
		}
		re, err := regexp.Compile(prefix + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		c.compiled = append(c.compiled, re)
	}
	return c, nil
}

// Match returns the first pattern string that matches text
func (c *RegexCondition) Match(text string) (string, bool) {
	for i, re := range c.compiled {
		if re.MatchString(text) {
			return c.Patterns[i], true
		}
	}
	return "", false
}

func (c *RegexCondition) Mode() Mode { return ModeRegex }
func (c *RegexCondition) sealed()    {}

// ComboCondition matches only when every sub-condition matches
type ComboCondition struct {
	Conditions []Condition
}

// NewComboCondition builds an AND over phrase and regex conditions
func NewComboCondition(conditions []Condition) (*ComboCondition, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("combo condition requires at least one sub-condition")
	}
	for i, c := range conditions {
		if c.Mode() == ModeCombo {
			return nil, fmt.Errorf("sub-condition %d: nested combo is not supported", i)
		}
	}
	return &ComboCondition{Conditions: append([]Condition(nil), conditions...)}, nil
}

// Match joins the tokens of all sub-conditions with " + "
func (c *ComboCondition) Match(text string) (string, bool) {
	tokens := make([]string, 0, len(c.Conditions))
	for _, sub := range c.Conditions {
		token, ok := sub.Match(text)
		if !ok {
			return "", false
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " + "), true
}

func (c *ComboCondition) Mode() Mode { return ModeCombo }
func (c *ComboCondition) sealed()    {}

// Exclusion is a rule's negative predicate. Phrases always match
// case-insensitively without word boundaries.
type Exclusion struct {
	phrases  *PhraseCondition
	patterns *RegexCondition
}

// NewExclusion compiles an exclusion; it returns nil when both lists are empty
func NewExclusion(phrases, patterns []string, flags string) (*Exclusion, error) {
	if len(phrases) == 0 && len(patterns) == 0 {
		return nil, nil
	}

	ex := &Exclusion{}
	var err error
	if len(phrases) > 0 {
		if ex.phrases, err = NewPhraseCondition(phrases, true, false); err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
	}
	if len(patterns) > 0 {
		if ex.patterns, err = NewRegexCondition(patterns, flags); err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
	}
	return ex, nil
}

// Matches reports whether the exclusion fires on text
func (e *Exclusion) Matches(text string) bool {
	if e == nil {
		return false
	}
	if e.phrases != nil {
		if _, ok := e.phrases.Match(text); ok {
			return true
		}
	}
	if e.patterns != nil {
		if _, ok := e.patterns.Match(text); ok {
			return true
		}
	}
	return false
}

// inlineFlags maps regex flag letters onto RE2 inline flags.
// g, u, y and d carry no meaning for a single boolean test and are ignored.
func inlineFlags(flags string) (string, error) {
	var out []byte
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(string(out), f) {
				out = append(out, byte(f))
			}
		case 'g', 'u', 'y', 'd':
		default:
			return "", fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if len(out) == 0 {
		return "", nil
	}
	return "(?" + string(out) + ")", nil
}
