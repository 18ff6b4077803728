// Package transfer encodes conversations for export and decodes them for
// import, as JSON or YAML envelopes carrying a checksum.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// FormatFromPath picks the format by file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes the log as an indented envelope.
func Encode(messages []chat.Message, format Format) ([]byte, error) {
	env, err := chat.NewEnvelope(messages)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return nil, fmt.Errorf("could not encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("could not encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("could not encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

// Decode parses and verifies an envelope. Failures wrap chat.ErrMalformedLog.
func Decode(data []byte, format Format) ([]chat.Message, error) {
	var env chat.Envelope

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", chat.ErrMalformedLog, err)
		}
	default:
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", chat.ErrMalformedLog, err)
		}
	}

	return env.Verify()
}
