// Package model loads the pretrained synthesis networks and exposes them
// through the interfaces the pipeline packages consume.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrModelLoad reports a missing or malformed model artifact. Loading is
// strict: a parameter absent from its partition aborts the whole load.
var ErrModelLoad = errors.New("model load")

// Component identifies one of the expression networks inside the bundled
// checkpoint.
type Component string

const (
	ComponentContentEncoder Component = "content_encoder"
	ComponentStyleEncoder   Component = "style_encoder"
	ComponentDecoder        Component = "decoder"
)

// componentPrefixes maps each component to its qualified-name prefix in
// the flat checkpoint. Names under other prefixes (optimizer state,
// discriminators) are inert and skipped.
var componentPrefixes = map[Component]string{
	ComponentContentEncoder: "content_encoder.",
	ComponentStyleEncoder:   "style_encoder.",
	ComponentDecoder:        "decoder.",
}

// TensorInfo describes one checkpoint parameter.
type TensorInfo struct {
	Shape []int64 `json:"shape"`
	DType string  `json:"dtype"`
}

// Manifest is the JSON sidecar shipped with the exported model bundle:
// the flat parameter table of the original checkpoint plus the parameter
// names each component requires.
type Manifest struct {
	Parameters map[string]TensorInfo  `json:"parameters"`
	Expected   map[Component][]string `json:"expected"`
}

// LoadManifest reads and validates a checkpoint manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %w", ErrModelLoad, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest %s: %w", ErrModelLoad, path, err)
	}
	if len(m.Parameters) == 0 {
		return nil, fmt.Errorf("%w: manifest %s lists no parameters", ErrModelLoad, path)
	}
	return &m, nil
}

// Partition splits the flat parameter table by component prefix,
// stripping the prefix from each name. Unknown prefixes are ignored.
func (m *Manifest) Partition() map[Component]map[string]TensorInfo {
	parts := make(map[Component]map[string]TensorInfo, len(componentPrefixes))
	for c := range componentPrefixes {
		parts[c] = make(map[string]TensorInfo)
	}
	for name, info := range m.Parameters {
		for c, prefix := range componentPrefixes {
			if strings.HasPrefix(name, prefix) {
				parts[c][strings.TrimPrefix(name, prefix)] = info
				break
			}
		}
	}
	return parts
}

// Validate checks every expected parameter name against its partition
// and fails on the first component with missing names.
func (m *Manifest) Validate() error {
	parts := m.Partition()
	for _, c := range []Component{ComponentContentEncoder, ComponentStyleEncoder, ComponentDecoder} {
		expected, ok := m.Expected[c]
		if !ok {
			return fmt.Errorf("%w: manifest has no expected-parameter list for %s", ErrModelLoad, c)
		}
		part := parts[c]
		var missing []string
		for _, name := range expected {
			if _, ok := part[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: component %s missing parameters: %s", ErrModelLoad, c, strings.Join(missing, ", "))
		}
	}
	return nil
}
