package common

import (
	"fmt"
	"slices"
	"strings"

	"jdroaster/internal/errors"
	"jdroaster/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// ValidateScoreThreshold checks a --fail-below value. Negative disables the
// gate; otherwise it must be a valid score.
func ValidateScoreThreshold(threshold int) error {
	if threshold > 100 {
		return fmt.Errorf("score threshold %d is out of range 0..100", threshold)
	}
	return nil
}

// CheckScoreThreshold fails when any dimension of the report scores below
// threshold. A negative threshold disables the check.
func CheckScoreThreshold(report *types.Report, threshold int) error {
	if threshold < 0 || report == nil {
		return nil
	}

	var failing []string
	for _, d := range types.Dimensions {
		if score := report.Scores.Get(d); score < threshold {
			failing = append(failing, fmt.Sprintf("%s=%d", d, score))
		}
	}
	if len(failing) == 0 {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeScoreBelowLimit,
		fmt.Sprintf("scores below %d: %s", threshold, strings.Join(failing, ", ")), nil).
		WithContext("threshold", threshold)
}
