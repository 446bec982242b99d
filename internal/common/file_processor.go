package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jdroaster/internal/errors"
	"jdroaster/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
	stdin       io.Reader
}

// NewFileProcessor creates a new file processor instance. maxFileSize caps
// every read, including standard input; zero disables the cap.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64, stdin io.Reader) *FileProcessor {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize, stdin: stdin}
}

// ReadInput reads a job description from a file, or from standard input
// when arg is empty or "-"
func (fp *FileProcessor) ReadInput(arg string) (string, error) {
	if utils.IsStdin(arg) {
		fp.logger.Debug("Reading input from stdin")
		return fp.readLimited(fp.stdin, "stdin")
	}

	if err := utils.ValidateInputFile(arg, fp.maxFileSize); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", arg), err)
	}

	if !utils.IsTextFile(arg) {
		fp.logger.Warn("File may not be a text file", "filename", arg)
	}

	return fp.ReadFile(arg)
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	return fp.readLimited(file, filename)
}

func (fp *FileProcessor) readLimited(r io.Reader, name string) (string, error) {
	if fp.maxFileSize > 0 {
		// one extra byte distinguishes "exactly at the limit" from "over it"
		r = io.LimitReader(r, fp.maxFileSize+1)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read content: %s", name), err)
	}

	if fp.maxFileSize > 0 && int64(len(content)) > fp.maxFileSize {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Input %s exceeds %s", name, utils.FormatFileSize(fp.maxFileSize)), nil)
	}

	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
