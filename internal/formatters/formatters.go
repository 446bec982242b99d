package formatters

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"jdroaster/internal/types"

	"golang.org/x/term"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type keys used by the registry
const (
	TypeAny             = "any"
	TypeReport          = "Report"
	TypeSentencesResult = "SentencesResult"
	TypeCatalogSummary  = "CatalogSummary"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a registry with the default formatters.
// colored enables ANSI styling in text output.
func NewFormatterRegistry(colored bool) *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	palette := newPalette(colored)

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeReport, &ReportTextFormatter{palette: palette})
	registry.RegisterFormatter("markdown", TypeReport, &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeSentencesResult, &SentencesTextFormatter{palette: palette})
	registry.RegisterFormatter("markdown", TypeSentencesResult, &SentencesMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeCatalogSummary, &CatalogTextFormatter{palette: palette})
	registry.RegisterFormatter("markdown", TypeCatalogSummary, &CatalogMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.Report:
		return TypeReport
	case *types.SentencesResult:
		return TypeSentencesResult
	case types.CatalogSummary, *types.CatalogSummary:
		return TypeCatalogSummary
	default:
		return TypeAny
	}
}

// ColorEnabled reports whether styled output suits f: it must be a terminal
// and NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}
