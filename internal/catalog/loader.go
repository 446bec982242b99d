package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jdroaster/internal/errors"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a catalog serialization format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// DefaultSource names the embedded catalog
const DefaultSource = "embedded:default"

// Default parses the embedded catalog. Every call returns an independent copy.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML, DefaultSource)
}

// MustDefault is Default for callers that treat a broken embedded catalog as fatal
func MustDefault() *Catalog {
	cat, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded rule catalog is invalid: %v", err))
	}
	return cat
}

// FormatFromPath picks a format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported catalog file extension %q (use .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q", name)
	}
}

// Load reads, decodes and validates a catalog file
func Load(path string) (*Catalog, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewCatalogError(errors.ErrCodeCatalogNotFound, "failed to resolve catalog path", err).
			WithContext("path", path)
	}

	format, err := FormatFromPath(absPath)
	if err != nil {
		return nil, errors.NewCatalogError(errors.ErrCodeInvalidFormat, "unsupported catalog format", err).
			WithContext("path", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		code := errors.ErrCodeFileNotReadable
		if os.IsNotExist(err) {
			code = errors.ErrCodeCatalogNotFound
		}
		return nil, errors.NewCatalogError(code, "failed to read catalog file", err).
			WithContext("path", absPath)
	}

	return Parse(data, format, absPath)
}

// Parse decodes and validates catalog data. Unknown fields are rejected.
func Parse(data []byte, format Format, source string) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewCatalogError(errors.ErrCodeInvalidCatalog, "catalog is empty", nil).
			WithContext("source", source)
	}

	var doc document
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		err = fmt.Errorf("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, errors.NewCatalogError(errors.ErrCodeInvalidCatalog, "failed to decode catalog", err).
			WithContext("source", source).
			WithContext("format", string(format))
	}

	return compile(doc, source)
}

// SecretReader reads a string value from a secret store
type SecretReader interface {
	GetStringSecret(path, key string) (string, error)
}

// LoadFromSecret reads a serialized catalog stored under key at path
func LoadFromSecret(reader SecretReader, path, key string, format Format) (*Catalog, error) {
	content, err := reader.GetStringSecret(path, key)
	if err != nil {
		return nil, errors.NewCatalogError(errors.ErrCodeVaultFailed, "failed to read catalog from secret store", err).
			WithContext("path", path).
			WithContext("key", key)
	}
	return Parse([]byte(content), format, "vault:"+path+"#"+key)
}
