package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

// Format selects how results are written.
type Format string

const (
	FormatProperties Format = "properties"
	FormatYAML       Format = "yaml"
	FormatJSON       Format = "json"
)

// ParseFormat validates a --output value. Empty selects properties.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatProperties:
		return FormatProperties, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (properties, yaml, json)", value)
	}
}

// DumpProperties writes props sorted by key with secret values masked.
func DumpProperties(w io.Writer, props map[string]string, format Format) error {
	masked := opts.MaskProperties(props)
	if format != FormatProperties {
		return Write(w, masked, format)
	}
	keys := make([]string, 0, len(masked))
	for key := range masked {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, masked[key]); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes value as YAML or JSON. Properties falls back to YAML for
// structured values.
func Write(w io.Writer, value any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	}
}
