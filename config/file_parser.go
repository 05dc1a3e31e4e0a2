package config

import (
	"path/filepath"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
)

// FileType names a structured document format understood by NewFileSource.
type FileType string

const (
	FileTypeJSON FileType = "json"
	FileTypeYAML FileType = "yaml"
	FileTypeTOML FileType = "toml"
)

func (f FileType) String() string {
	return string(f)
}

// Parser returns the koanf parser for f.
func (f FileType) Parser() (koanf.Parser, error) {
	switch f {
	case FileTypeJSON:
		return json.Parser(), nil
	case FileTypeYAML:
		return yaml.Parser(), nil
	case FileTypeTOML:
		return toml.Parser(), nil
	}
	return nil, errors.Wrap(ErrInvalidArgument, errors.CategoryBadInput, "unsupported file type").
		WithTextCode("INVALID_FILE_TYPE").
		WithMetadata(map[string]any{
			"file_type":   string(f),
			"valid_types": []string{string(FileTypeJSON), string(FileTypeYAML), string(FileTypeTOML)},
		})
}

// InferFileType picks a FileType from the extension of path, falling
// back to fallback[0] and then to JSON.
func InferFileType(path string, fallback ...FileType) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FileTypeJSON
	case ".yaml", ".yml":
		return FileTypeYAML
	case ".toml":
		return FileTypeTOML
	}
	if len(fallback) > 0 && fallback[0] != "" {
		return fallback[0]
	}
	return FileTypeJSON
}
