package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// StdinArg is the conventional argument meaning "read standard input"
const StdinArg = "-"

// IsStdin reports whether an input argument refers to standard input
func IsStdin(arg string) bool {
	return arg == "" || arg == StdinArg
}

// ValidateInputFile checks that a file exists, is a regular readable file
// and, when maxSize is positive, is no larger than maxSize bytes
func ValidateInputFile(filename string, maxSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file %s is %s, limit is %s",
			filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ValidateOutputFile checks if the output file path is valid, creating the
// parent directory when needed
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory: %s", filename)
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile checks if the file has a plain-text extension. Files without
// an extension are treated as text since job postings are often saved bare.
func IsTextFile(filename string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return true
	}
	textExtensions := []string{".txt", ".md", ".markdown", ".text"}

	return slices.Contains(textExtensions, ext)
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
