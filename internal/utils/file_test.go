package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "jd.txt")
	require.NoError(t, os.WriteFile(small, []byte("We need a rockstar."), 0600))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		wantErr string
	}{
		{"readable file", small, 0, ""},
		{"within limit", small, 19, ""},
		{"over limit", small, 10, "limit is 10 B"},
		{"empty name", "", 0, "filename cannot be empty"},
		{"missing", filepath.Join(dir, "nope.txt"), 0, "file does not exist"},
		{"directory", dir, 0, "path is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path, tt.maxSize)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "out.json")
	require.NoError(t, ValidateOutputFile(target))
	assert.DirExists(t, filepath.Dir(target))

	assert.NoError(t, ValidateOutputFile(""))
	assert.ErrorContains(t, ValidateOutputFile(t.TempDir()), "is a directory")
}

func TestIsTextFile(t *testing.T) {
	assert.True(t, IsTextFile("posting.TXT"))
	assert.True(t, IsTextFile("posting.md"))
	assert.True(t, IsTextFile("posting"))
	assert.False(t, IsTextFile("posting.pdf"))
}

func TestIsStdin(t *testing.T) {
	assert.True(t, IsStdin(""))
	assert.True(t, IsStdin("-"))
	assert.False(t, IsStdin("jd.txt"))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "2.0 MB", FormatFileSize(2*1024*1024))
}
