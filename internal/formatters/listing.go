package formatters

import (
	"fmt"
	"strings"

	"jdroaster/internal/types"
)

// SentencesTextFormatter lists segmented sentences with their offsets
type SentencesTextFormatter struct {
	palette palette
}

func (stf *SentencesTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.SentencesResult)
	if !ok {
		return "", fmt.Errorf("expected *types.SentencesResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString(stf.palette.heading.Sprintf("=== SENTENCES (%d) ===", len(result.Sentences)) + "\n")
	for _, s := range result.Sentences {
		span := stf.palette.muted.Sprintf("[%d,%d)", s.Start, s.End)
		output.WriteString(fmt.Sprintf("%-6s %s %q\n", s.ID, span, s.Text))
	}
	return output.String(), nil
}

func (stf *SentencesTextFormatter) SupportedType() string {
	return TypeSentencesResult
}

// SentencesMarkdownFormatter renders segmented sentences as a table
type SentencesMarkdownFormatter struct{}

func (smf *SentencesMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.SentencesResult)
	if !ok {
		return "", fmt.Errorf("expected *types.SentencesResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Sentences\n\n")
	output.WriteString("| ID | Start | End | Text |\n|---|---:|---:|---|\n")
	for _, s := range result.Sentences {
		output.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", s.ID, s.Start, s.End, escapeCell(s.Text)))
	}
	return output.String(), nil
}

func (smf *SentencesMarkdownFormatter) SupportedType() string {
	return TypeSentencesResult
}

// CatalogTextFormatter lists catalog rules
type CatalogTextFormatter struct {
	palette palette
}

func (ctf *CatalogTextFormatter) Format(data any) (string, error) {
	summary, err := asCatalogSummary(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(ctf.palette.heading.Sprintf("=== CATALOG %s ===", summary.Version) + "\n")
	output.WriteString(fmt.Sprintf("Source: %s\n", summary.Source))
	output.WriteString(fmt.Sprintf("Rules:  %d\n\n", len(summary.Rules)))
	for _, r := range summary.Rules {
		kind := ctf.palette.good.Sprint(r.Kind)
		if r.Kind != "greenFlag" {
			kind = ctf.palette.severity(r.Severity).Sprintf("%s/%s", r.Kind, r.Severity)
		}
		output.WriteString(fmt.Sprintf("%-28s p%-3d %-7s %s  %s\n", r.ID, r.Priority, r.Mode, kind, r.Title))
	}
	return output.String(), nil
}

func (ctf *CatalogTextFormatter) SupportedType() string {
	return TypeCatalogSummary
}

// CatalogMarkdownFormatter renders catalog rules as a table
type CatalogMarkdownFormatter struct{}

func (cmf *CatalogMarkdownFormatter) Format(data any) (string, error) {
	summary, err := asCatalogSummary(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# Rule Catalog %s\n\n", summary.Version))
	output.WriteString(fmt.Sprintf("Source: `%s`\n\n", summary.Source))
	output.WriteString("| ID | Group | Kind | Severity | Mode | Priority | Title |\n|---|---|---|---|---|---:|---|\n")
	for _, r := range summary.Rules {
		output.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d | %s |\n",
			r.ID, r.Group, r.Kind, r.Severity, r.Mode, r.Priority, escapeCell(r.Title)))
	}
	return output.String(), nil
}

func (cmf *CatalogMarkdownFormatter) SupportedType() string {
	return TypeCatalogSummary
}

func asCatalogSummary(data any) (types.CatalogSummary, error) {
	switch v := data.(type) {
	case types.CatalogSummary:
		return v, nil
	case *types.CatalogSummary:
		return *v, nil
	default:
		return types.CatalogSummary{}, fmt.Errorf("expected types.CatalogSummary, got %T", data)
	}
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
