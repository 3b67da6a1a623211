package config

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
	yaml "go.yaml.in/yaml/v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// formatOf picks the decoder by extension; anything but .yaml/.yml is JSON.
func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// decodeYAML fills cfg from a single YAML document. Unknown keys and a
// second document are rejected; an empty file is the zero config.
func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return zerr.Wrap(err, "yaml decode")
	}
	var next yaml.Node
	switch err := dec.Decode(&next); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return zerr.Wrap(ErrInvalid, "more than one yaml document")
	default:
		return zerr.Wrap(err, "yaml decode")
	}
}
