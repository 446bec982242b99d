package common

import (
	"fmt"
	"io"
	"os"

	"jdroaster/internal/errors"
	"jdroaster/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	stdout        io.Writer
	// console styles output for stdout; plain is used for files so no
	// escape codes end up on disk
	console *formatters.FormatterRegistry
	plain   *formatters.FormatterRegistry
	logger  *errors.Logger
}

// NewOutputHandler creates a new output handler writing to stdout. Colour is
// enabled only when stdout is a terminal.
func NewOutputHandler(logger *errors.Logger, stdout io.Writer) *OutputHandler {
	if stdout == nil {
		stdout = os.Stdout
	}
	colored := false
	if f, ok := stdout.(*os.File); ok {
		colored = formatters.ColorEnabled(f)
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0, nil),
		stdout:        stdout,
		console:       formatters.NewFormatterRegistry(colored),
		plain:         formatters.NewFormatterRegistry(false),
		logger:        logger,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	registry := oh.console
	if config.OutputFile != "" {
		registry = oh.plain
	}

	output, err := registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile != "" {
		if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
			return err
		}
		oh.logger.Info("Output written successfully",
			"file", config.OutputFile, "format", config.OutputFormat)
		return nil
	}

	if _, err := io.WriteString(oh.stdout, output); err != nil {
		return errors.NewIOError("STDOUT_WRITE_FAILED", "Cannot write output", err)
	}
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.plain.GetSupportedFormats()
}
