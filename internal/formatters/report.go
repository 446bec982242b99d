package formatters

import (
	"fmt"
	"strings"

	"jdroaster/internal/types"
)

var dimensionTitles = map[types.Dimension]string{
	types.DimensionClarity:             "Clarity",
	types.DimensionVagueness:           "Vagueness",
	types.DimensionScopeCreep:          "Scope creep",
	types.DimensionOnCallInDisguise:    "On-call in disguise",
	types.DimensionCompensationClarity: "Compensation clarity",
}

// receipts resolves a finding's evidence ids to sentences, skipping unknown ids
func receipts(report *types.Report, f types.Finding) []types.Sentence {
	out := make([]types.Sentence, 0, len(f.EvidenceSentenceIDs))
	for _, id := range f.EvidenceSentenceIDs {
		if s, ok := report.SentenceByID(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// oneLine collapses line breaks so a sentence fits a single output line
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ReportTextFormatter renders a report for terminals
type ReportTextFormatter struct {
	palette palette
}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	report, ok := data.(*types.Report)
	if !ok {
		return "", fmt.Errorf("expected *types.Report, got %T", data)
	}
	p := rtf.palette

	var output strings.Builder

	output.WriteString(p.heading.Sprint("=== JOB DESCRIPTION REPORT ===") + "\n")
	if report.ID != "" {
		output.WriteString(fmt.Sprintf("Report:    %s\n", report.ID))
	}
	output.WriteString(fmt.Sprintf("Created:   %s\n", report.CreatedAt))
	output.WriteString(fmt.Sprintf("Sentences: %d\n\n", len(report.Sentences)))

	output.WriteString(p.heading.Sprint("=== SCORES ===") + "\n")
	for _, d := range types.Dimensions {
		score := report.Scores.Get(d)
		label := types.LabelFor(score)
		output.WriteString(fmt.Sprintf("%-22s %3d/100  %s\n", dimensionTitles[d], score, p.label(label).Sprint(label)))
	}
	output.WriteString("\n")

	output.WriteString(p.heading.Sprintf("=== INSIGHTS (%d) ===", len(report.Insights)) + "\n")
	if len(report.Insights) == 0 {
		output.WriteString(p.muted.Sprint("No risks detected.") + "\n")
	}
	for _, f := range report.Insights {
		tag := p.severity(f.Severity).Sprintf("[%s]", strings.ToUpper(string(f.Severity)))
		rtf.writeFinding(&output, report, f, tag)
	}
	output.WriteString("\n")

	output.WriteString(p.heading.Sprintf("=== GREEN FLAGS (%d) ===", len(report.GreenFlags)) + "\n")
	if len(report.GreenFlags) == 0 {
		output.WriteString(p.muted.Sprint("No green flags found.") + "\n")
	}
	for _, f := range report.GreenFlags {
		rtf.writeFinding(&output, report, f, p.good.Sprint("[+]"))
	}

	return output.String(), nil
}

func (rtf *ReportTextFormatter) writeFinding(output *strings.Builder, report *types.Report, f types.Finding, tag string) {
	output.WriteString(fmt.Sprintf("%s %s %s\n", tag, f.Title, rtf.palette.muted.Sprintf("(%s)", f.ID)))
	if f.Explanation != "" {
		output.WriteString(fmt.Sprintf("    %s\n", f.Explanation))
	}
	sentences := receipts(report, f)
	if len(sentences) == 0 {
		return
	}
	summary := fmt.Sprintf("%d", f.EvidenceSummary.Count)
	if f.EvidenceSummary.Clustered {
		summary += ", clustered"
	}
	output.WriteString(fmt.Sprintf("    Evidence (%s):\n", summary))
	for _, s := range sentences {
		output.WriteString(fmt.Sprintf("      %s %q\n", rtf.palette.muted.Sprint(s.ID), oneLine(s.Text)))
	}
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return TypeReport
}

// ReportMarkdownFormatter renders a report as markdown with receipts and
// the highlighted source text
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(*types.Report)
	if !ok {
		return "", fmt.Errorf("expected *types.Report, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Job Description Report\n\n")
	if report.ID != "" {
		output.WriteString(fmt.Sprintf("**Report:** `%s`  \n", report.ID))
	}
	output.WriteString(fmt.Sprintf("**Created:** %s  \n", report.CreatedAt))
	output.WriteString(fmt.Sprintf("**Sentences:** %d\n\n", len(report.Sentences)))

	output.WriteString("## Scores\n\n")
	output.WriteString("| Dimension | Score | Label |\n|---|---:|---|\n")
	for _, d := range types.Dimensions {
		score := report.Scores.Get(d)
		output.WriteString(fmt.Sprintf("| %s | %d | %s |\n", dimensionTitles[d], score, types.LabelFor(score)))
	}
	output.WriteString("\n")

	output.WriteString("## Insights\n\n")
	if len(report.Insights) == 0 {
		output.WriteString("_No risks detected._\n\n")
	}
	for _, f := range report.Insights {
		output.WriteString(fmt.Sprintf("### %s `%s`\n\n", f.Title, f.Severity))
		writeMarkdownFinding(&output, report, f)
	}

	output.WriteString("## Green Flags\n\n")
	if len(report.GreenFlags) == 0 {
		output.WriteString("_No green flags found._\n\n")
	}
	for _, f := range report.GreenFlags {
		output.WriteString(fmt.Sprintf("### %s\n\n", f.Title))
		writeMarkdownFinding(&output, report, f)
	}

	output.WriteString("## Highlighted Text\n\n")
	output.WriteString(highlight(report))
	output.WriteString("\n")

	return output.String(), nil
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return TypeReport
}

func writeMarkdownFinding(output *strings.Builder, report *types.Report, f types.Finding) {
	if f.Explanation != "" {
		output.WriteString(f.Explanation + "\n\n")
	}
	for _, s := range receipts(report, f) {
		output.WriteString(fmt.Sprintf("> %s _(%s)_\n>\n", oneLine(s.Text), s.ID))
	}
	if f.EvidenceSummary.Count > 0 {
		output.WriteString("\n")
	}
}

// highlight walks the sentences over the normalized text, emphasising
// every sentence cited by a finding and copying the gaps verbatim
func highlight(report *types.Report) string {
	cited := make(map[string]bool)
	for _, group := range [][]types.Finding{report.Insights, report.GreenFlags} {
		for _, f := range group {
			for _, id := range f.EvidenceSentenceIDs {
				cited[id] = true
			}
		}
	}

	text := report.NormalizedText
	var output strings.Builder
	cursor := 0
	for _, s := range report.Sentences {
		if s.Start < cursor || s.End > len(text) {
			continue
		}
		output.WriteString(text[cursor:s.Start])
		if cited[s.ID] {
			output.WriteString(emphasise(text[s.Start:s.End]))
		} else {
			output.WriteString(text[s.Start:s.End])
		}
		cursor = s.End
	}
	output.WriteString(text[cursor:])
	return output.String()
}

// emphasise bolds each non-blank line separately; markdown emphasis
// cannot span line breaks
func emphasise(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = "**" + line + "**"
		}
	}
	return strings.Join(lines, "\n")
}
