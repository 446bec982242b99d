package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"jdroaster/internal/errors"
	"jdroaster/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "version": "test-1",
  "rules": [
    {
      "id": "vague",
      "group": "vagueness",
      "type": "vague_language",
      "title": "Vague",
      "explanation": "Vague words",
      "severity": "warn",
      "scoreDelta": {"vagueness": -8},
      "mode": "phrase",
      "match": {"phrases": ["rockstar"]}
    },
    {
      "id": "salary",
      "group": "compensation",
      "kind": "greenFlag",
      "type": "salary_range_present",
      "title": "Salary",
      "explanation": "Range present",
      "scoreDelta": {"compensationClarity": 20},
      "mode": "regex",
      "match": {"patterns": ["\\$\\d+k?\\s*-\\s*\\$?\\d+k?"], "flags": "i"}
    }
  ]
}`

const sampleYAML = `
version: test-1
rules:
  - id: vague
    group: vagueness
    type: vague_language
    title: Vague
    explanation: Vague words
    severity: warn
    scoreDelta:
      vagueness: -8
    mode: phrase
    match:
      phrases: [rockstar]
  - id: salary
    group: compensation
    kind: greenFlag
    type: salary_range_present
    title: Salary
    explanation: Range present
    scoreDelta:
      compensationClarity: 20
    mode: regex
    match:
      patterns: ['\$\d+k?\s*-\s*\$?\d+k?']
      flags: i
`

const sampleTOML = `
version = "test-1"

[[rules]]
id = "vague"
group = "vagueness"
type = "vague_language"
title = "Vague"
explanation = "Vague words"
severity = "warn"
mode = "phrase"
scoreDelta = { vagueness = -8 }
match = { phrases = ["rockstar"] }

[[rules]]
id = "salary"
group = "compensation"
kind = "greenFlag"
type = "salary_range_present"
title = "Salary"
explanation = "Range present"
mode = "regex"
scoreDelta = { compensationClarity = 20 }
match = { patterns = ['\$\d+k?\s*-\s*\$?\d+k?'], flags = "i" }
`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", sampleJSON, FormatJSON},
		{"yaml", sampleYAML, FormatYAML},
		{"toml", sampleTOML, FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Parse([]byte(tt.data), tt.format, tt.name)
			require.NoError(t, err)

			assert.Equal(t, "test-1", cat.Version())
			assert.Equal(t, tt.name, cat.Source())
			require.Equal(t, 2, cat.Len())

			vague, ok := cat.Rule("vague")
			require.True(t, ok)
			assert.Equal(t, KindInsight, vague.Kind)
			assert.Equal(t, types.SeverityWarn, vague.Severity)
			assert.Equal(t, []DimensionDelta{{types.DimensionVagueness, -8}}, vague.ScoreDelta)
			assert.Equal(t, ModePhrase, vague.Condition.Mode())

			salary, ok := cat.Rule("salary")
			require.True(t, ok)
			assert.Equal(t, KindGreenFlag, salary.Kind)
			token, matched := salary.Condition.Match("Pay is $90k - $110K")
			assert.True(t, matched)
			assert.Equal(t, `\$\d+k?\s*-\s*\$?\d+k?`, token)
		})
	}
}

func TestRuleDefaults(t *testing.T) {
	cat, err := Parse([]byte(sampleJSON), FormatJSON, "test")
	require.NoError(t, err)

	rule, _ := cat.Rule("salary")
	assert.Equal(t, types.SeverityInfo, rule.Severity)
	assert.Equal(t, DefaultMaxEvidence, rule.MaxEvidence)
	assert.Equal(t, 0, rule.Priority)
	assert.Equal(t, ScopeSentence, rule.ExcludeScope)
	assert.Equal(t, DefaultExcludeWindow, rule.ExcludeWindow)
	assert.Equal(t, DefaultTau, rule.Tau)
	assert.Equal(t, DefaultClusterWindow, rule.ClusterWindow)
	assert.Equal(t, DefaultMaxPerRuleImpact, rule.MaxPerRuleImpact)
	assert.Nil(t, rule.Exclusion)
}

// ruleJSON wraps a single rule body into a catalog document
func ruleJSON(body string) []byte {
	return fmt.Appendf(nil, `{"version":"v","rules":[%s]}`, body)
}

func TestParseValidationErrors(t *testing.T) {
	base := `"group":"g","type":"t","title":"T","explanation":"E"`

	tests := []struct {
		name string
		data []byte
	}{
		{"empty document", []byte("   ")},
		{"no rules", []byte(`{"version":"v","rules":[]}`)},
		{"unknown field", ruleJSON(`{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":["x"]},"weight":3}`)},
		{"missing id", ruleJSON(`{` + base + `,"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"missing mode", ruleJSON(`{"id":"a",` + base + `,"match":{"phrases":["x"]}}`)},
		{"unsupported mode", ruleJSON(`{"id":"a",` + base + `,"mode":"fuzzy","match":{"phrases":["x"]}}`)},
		{"empty phrases", ruleJSON(`{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":[]}}`)},
		{"blank phrase", ruleJSON(`{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":[" "]}}`)},
		{"phrase payload on regex rule", ruleJSON(`{"id":"a",` + base + `,"mode":"regex","match":{"phrases":["x"]}}`)},
		{"pattern payload on phrase rule", ruleJSON(`{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":["x"],"patterns":["y"]}}`)},
		{"invalid regex", ruleJSON(`{"id":"a",` + base + `,"mode":"regex","match":{"patterns":["(unclosed"]}}`)},
		{"unsupported flag", ruleJSON(`{"id":"a",` + base + `,"mode":"regex","match":{"patterns":["x"],"flags":"x"}}`)},
		{"nested combo", ruleJSON(`{"id":"a",` + base + `,"mode":"combo","match":{"mustInclude":[{"mode":"combo"}]}}`)},
		{"empty combo", ruleJSON(`{"id":"a",` + base + `,"mode":"combo","match":{"mustInclude":[]}}`)},
		{"unknown kind", ruleJSON(`{"id":"a",` + base + `,"kind":"warning","mode":"phrase","match":{"phrases":["x"]}}`)},
		{"unknown severity", ruleJSON(`{"id":"a",` + base + `,"severity":"critical","mode":"phrase","match":{"phrases":["x"]}}`)},
		{"unknown dimension", ruleJSON(`{"id":"a",` + base + `,"scoreDelta":{"happiness":3},"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"unknown scope", ruleJSON(`{"id":"a",` + base + `,"excludeScope":"paragraph","mode":"phrase","match":{"phrases":["x"]}}`)},
		{"zero maxEvidence", ruleJSON(`{"id":"a",` + base + `,"maxEvidence":0,"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"negative window", ruleJSON(`{"id":"a",` + base + `,"excludeWindow":-1,"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"zero tau", ruleJSON(`{"id":"a",` + base + `,"tau":0,"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"bad exclude regex", ruleJSON(`{"id":"a",` + base + `,"exclude":{"patterns":["[a-"]},"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"unknown contradiction", ruleJSON(`{"id":"a",` + base + `,"contradicts":["b"],"mode":"phrase","match":{"phrases":["x"]}}`)},
		{"self contradiction", ruleJSON(`{"id":"a",` + base + `,"contradicts":["a"],"mode":"phrase","match":{"phrases":["x"]}}`)},
		{
			"duplicate id",
			ruleJSON(`{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":["x"]}},{"id":"a",` + base + `,"mode":"phrase","match":{"phrases":["y"]}}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Parse(tt.data, FormatJSON, "test")
			require.Error(t, err)
			assert.Nil(t, cat)
			assert.True(t, errors.IsType(err, errors.ErrorTypeCatalog), "expected catalog error, got %v", err)
		})
	}
}

func TestParseReportsAllProblems(t *testing.T) {
	data := ruleJSON(`{"id":"a","type":"t","title":"T","mode":"fuzzy","match":{}},{"type":"t","title":"T","mode":"phrase","match":{"phrases":["x"]}}`)

	_, err := Parse(data, FormatJSON, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rule[0] "a": unsupported mode "fuzzy"`)
	assert.Contains(t, err.Error(), `rule[1] "": id is required`)
}

func TestPhraseCondition(t *testing.T) {
	tests := []struct {
		name            string
		phrases         []string
		caseInsensitive bool
		wordBoundary    bool
		text            string
		wantToken       string
		wantMatch       bool
	}{
		{"case insensitive substring", []string{"Rockstar"}, true, false, "we want ROCKSTARS", "Rockstar", true},
		{"case sensitive miss", []string{"Rockstar"}, false, false, "we want rockstars", "", false},
		{"case sensitive hit", []string{"Rockstar"}, false, false, "a Rockstar hire", "Rockstar", true},
		{"boundary rejects inner word", []string{"doe"}, true, true, "This does not count", "", false},
		{"boundary accepts word", []string{"DOE"}, true, true, "Salary DOE.", "DOE", true},
		{"boundary escapes metacharacters", []string{"c++"}, true, true, "Write C++ daily", "", false},
		{"first phrase wins", []string{"guru", "ninja"}, true, false, "ninja guru", "guru", true},
		{"no boundary substring", []string{"on"}, true, false, "ownership", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewPhraseCondition(tt.phrases, tt.caseInsensitive, tt.wordBoundary)
			require.NoError(t, err)

			token, ok := c.Match(tt.text)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestRegexConditionFlags(t *testing.T) {
	c, err := NewRegexCondition([]string{`^on call$`}, "gim")
	require.NoError(t, err)

	token, ok := c.Match("first line\nON CALL\nlast line")
	assert.True(t, ok)
	assert.Equal(t, `^on call$`, token)

	strict, err := NewRegexCondition([]string{`on call`}, "")
	require.NoError(t, err)
	_, ok = strict.Match("ON CALL")
	assert.False(t, ok)
}

func TestComboCondition(t *testing.T) {
	phrase, err := NewPhraseCondition([]string{"on-call"}, true, false)
	require.NoError(t, err)
	regex, err := NewRegexCondition([]string{`\brotation\b`}, "i")
	require.NoError(t, err)

	combo, err := NewComboCondition([]Condition{phrase, regex})
	require.NoError(t, err)

	token, ok := combo.Match("On-call follows a weekly Rotation.")
	assert.True(t, ok)
	assert.Equal(t, `on-call + \brotation\b`, token)

	_, ok = combo.Match("On-call is expected.")
	assert.False(t, ok)
}

func TestExclusion(t *testing.T) {
	ex, err := NewExclusion([]string{"No Rockstars"}, []string{`\bunpaid\b`}, "i")
	require.NoError(t, err)

	assert.True(t, ex.Matches("we hire no rockstars here"))
	assert.True(t, ex.Matches("UNPAID overtime"))
	assert.False(t, ex.Matches("rockstar wanted"))

	empty, err := NewExclusion(nil, nil, "")
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.False(t, empty.Matches("anything"))
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	assert.Equal(t, DefaultSource, cat.Source())
	assert.NotEmpty(t, cat.Version())

	modes := map[Mode]int{}
	kinds := map[Kind]int{}
	for _, r := range cat.Rules() {
		modes[r.Condition.Mode()]++
		kinds[r.Kind]++
	}
	assert.Positive(t, modes[ModePhrase])
	assert.Positive(t, modes[ModeRegex])
	assert.Positive(t, modes[ModeCombo])
	assert.Positive(t, kinds[KindInsight])
	assert.Positive(t, kinds[KindGreenFlag])

	salary, ok := cat.Rule("salary_range_present")
	require.True(t, ok)
	assert.Equal(t, "salary_range_present", salary.Type)
	_, matched := salary.Condition.Match("Salary, $90k-$110k DOE.")
	assert.True(t, matched)

	other, err := Default()
	require.NoError(t, err)
	assert.NotSame(t, cat, other)
}

func TestSummary(t *testing.T) {
	cat, err := Parse([]byte(sampleYAML), FormatYAML, "inline")
	require.NoError(t, err)

	summary := cat.Summary()
	assert.Equal(t, "test-1", summary.Version)
	assert.Equal(t, "inline", summary.Source)
	require.Len(t, summary.Rules, 2)
	assert.Equal(t, "vague", summary.Rules[0].ID)
	assert.Equal(t, "phrase", summary.Rules[0].Mode)
	assert.Equal(t, "greenFlag", summary.Rules[1].Kind)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"catalog.json": sampleJSON,
		"catalog.yml":  sampleYAML,
		"catalog.toml": sampleTOML,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cat, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, 2, cat.Len(), name)
		assert.Equal(t, path, cat.Source(), name)
	}

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.txt")
		require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), errors.ErrCodeInvalidFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), errors.ErrCodeCatalogNotFound)
	})
}

type fakeSecrets struct {
	values map[string]string
	err    error
}

func (f *fakeSecrets) GetStringSecret(path, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[path+"#"+key]
	if !ok {
		return "", fmt.Errorf("key %s not found in secret %s", key, path)
	}
	return v, nil
}

func TestLoadFromSecret(t *testing.T) {
	reader := &fakeSecrets{values: map[string]string{"jdroaster/catalog#rules": sampleYAML}}

	cat, err := LoadFromSecret(reader, "jdroaster/catalog", "rules", FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "vault:jdroaster/catalog#rules", cat.Source())
	assert.Equal(t, 2, cat.Len())

	_, err = LoadFromSecret(&fakeSecrets{err: fmt.Errorf("sealed")}, "jdroaster/catalog", "rules", FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCatalog))
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"rules.json", FormatJSON, false},
		{"rules.YAML", FormatYAML, false},
		{"rules.yml", FormatYAML, false},
		{"/etc/jdroaster/rules.toml", FormatTOML, false},
		{"rules.ini", "", true},
		{"rules", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
