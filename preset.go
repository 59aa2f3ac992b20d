package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

type PresetFormat string

const (
	PresetJSON PresetFormat = "json"
	PresetTOML PresetFormat = "toml"
)

func ParsePresetFormat(s string) (PresetFormat, error) {
	switch f := PresetFormat(strings.ToLower(s)); f {
	case PresetJSON, PresetTOML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown preset format %q (want json or toml)", s)
	}
}

// ExportPreset writes the table as name = value pairs.
func ExportPreset(w io.Writer, t *Table, format PresetFormat) error {
	values := make(map[string]int, t.Count())
	for _, p := range t.Params() {
		values[p.Name] = p.Value
	}

	switch format {
	case PresetJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	case PresetTOML:
		return toml.NewEncoder(w).Encode(values)
	default:
		return fmt.Errorf("unknown preset format %q", format)
	}
}

// ImportPreset reads name = value pairs into t. Names missing from the
// preset keep their current value. Every entry is checked before any is
// applied.
func ImportPreset(r io.Reader, t *Table, format PresetFormat) error {
	var values map[string]int
	switch format {
	case PresetJSON:
		if err := json.NewDecoder(r).Decode(&values); err != nil {
			return fmt.Errorf("failed to parse json preset: %w", err)
		}
	case PresetTOML:
		if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
			return fmt.Errorf("failed to parse toml preset: %w", err)
		}
	default:
		return fmt.Errorf("unknown preset format %q", format)
	}

	for name, v := range values {
		p, ok := t.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err := p.check(v); err != nil {
			return err
		}
	}
	for name, v := range values {
		if err := t.SetByName(name, v); err != nil {
			return err
		}
	}
	return nil
}
