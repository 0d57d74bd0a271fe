// Package export encodes and decodes instruction records for interchange.
// JSONL is the default; YAML and TOML are offered for hand-authored packs.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// Format is an interchange encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// ParseFormat accepts a format name, case-insensitively. "json" is an
// alias for jsonl and "yml" for yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jsonl", "json", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown format %q (valid: jsonl, yaml, toml)", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q: no extension", path)
	}
	return ParseFormat(ext)
}

// tomlRecords is the TOML document shape: one [[instruction]] table per record.
type tomlRecords struct {
	Instructions []types.ExportRecord `toml:"instruction"`
}

type tomlBulkItems struct {
	Items []types.BulkUpdateItem `toml:"item"`
}

// Encode writes records to w.
func Encode(w io.Writer, format Format, records []types.ExportRecord) error {
	switch format {
	case FormatJSONL:
		return encodeJSONL(w, records)
	case FormatYAML:
		return encodeYAML(w, records)
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(tomlRecords{Instructions: records}); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q", format)
}

// Decode reads records from r.
func Decode(r io.Reader, format Format) ([]types.ExportRecord, error) {
	switch format {
	case FormatJSONL:
		return decodeJSONL[types.ExportRecord](r)
	case FormatYAML:
		return decodeYAML[types.ExportRecord](r)
	case FormatTOML:
		var doc tomlRecords
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		return doc.Instructions, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// DecodeBulkItems reads find/replace items for a bulk update. TOML files
// use one [[item]] table per item.
func DecodeBulkItems(r io.Reader, format Format) ([]types.BulkUpdateItem, error) {
	switch format {
	case FormatJSONL:
		return decodeJSONL[types.BulkUpdateItem](r)
	case FormatYAML:
		return decodeYAML[types.BulkUpdateItem](r)
	case FormatTOML:
		var doc tomlBulkItems
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		return doc.Items, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

func encodeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i+1, err)
		}
	}
	return nil
}

// decodeJSONL accepts one JSON value per line. A single JSON array is
// also accepted so plain .json files import too.
func decodeJSONL[T any](r io.Reader) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode json array: %w", err)
		}
		return items, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var items []T
	for {
		var item T
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", len(items)+1, err)
		}
		items = append(items, item)
	}
}

func encodeYAML[T any](w io.Writer, items []T) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func decodeYAML[T any](r io.Reader) ([]T, error) {
	var items []T
	err := yaml.NewDecoder(r).Decode(&items)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return items, nil
}
