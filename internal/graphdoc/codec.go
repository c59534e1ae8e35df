package graphdoc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// Extensions lists the file extensions LoadPath picks up.
var Extensions = []string{".json", ".yaml", ".yml", ".hcl"}

// FormatFor picks the format from a file name.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported graph file %q", path)
	}
}

// Decode parses src in the given format. filename is used in diagnostics.
func Decode(src []byte, format Format, filename string) (*Document, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(src)
	case FormatYAML:
		return DecodeYAML(src)
	case FormatHCL:
		return DecodeHCL(src, filename)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// DecodeJSON parses a JSON document.
func DecodeJSON(src []byte) (*Document, error) {
	var d Document
	if err := sonic.Unmarshal(src, &d); err != nil {
		return nil, fmt.Errorf("failed to decode JSON graph: %w", err)
	}
	return &d, nil
}

// DecodeYAML parses a YAML document.
func DecodeYAML(src []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(src, &d); err != nil {
		return nil, fmt.Errorf("failed to decode YAML graph: %w", err)
	}
	return &d, nil
}

// EncodeJSON renders d as indented JSON.
func EncodeJSON(d *Document) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(d, "", "  ")
}

// EncodeYAML renders d as YAML.
func EncodeYAML(d *Document) ([]byte, error) {
	return yaml.Marshal(d)
}
