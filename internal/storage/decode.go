package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/chapter-engine/pkg/story"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// extensions lists accepted file extensions in lookup order.
var extensions = []string{".json", ".yaml", ".yml"}

// FormatOf returns the encoding implied by a file name.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Decode strictly parses one story document. Unknown fields are rejected
// in both encodings.
func Decode(data []byte, format Format) (*story.Content, error) {
	var c story.Content
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, errors.New("document contains invalid JSON")
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed strict JSON unmarshaling: %w", err)
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("document is empty")
			}
			return nil, fmt.Errorf("failed strict YAML unmarshaling: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format: %q", format)
	}
	return &c, nil
}

// Encode renders c in format.
func Encode(c *story.Content, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(c, "", "  ")
	case FormatYAML:
		return yaml.Marshal(c)
	}
	return nil, fmt.Errorf("unsupported document format: %q", format)
}
