// Package valuesfile implements ports.ValuesPatcherPort: an in-place update
// of a single dotted key path inside a YAML values file, preserving the rest
// of the document including comments and key order.
package valuesfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Adapter patches YAML values files through the yaml.v3 node API.
type Adapter struct{}

// New creates a new values file patcher.
func New() *Adapter {
	return &Adapter{}
}

// SetValue sets keyPath (e.g. "image.tag") to value in the YAML file at
// path, creating intermediate mappings as needed. A non-empty comment is
// attached to the updated value as a provenance marker. The file contents
// before and after the patch are returned so callers can report the change.
func (a *Adapter) SetValue(file, keyPath, value, comment string) (before, after []byte, err error) {
	before, err = os.ReadFile(file) //nolint:gosec // G304: path comes from the cloned repo, not user input
	if err != nil {
		return nil, nil, fmt.Errorf("reading values file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(before, &root); err != nil {
		return nil, nil, fmt.Errorf("parsing values file: %w", err)
	}

	// An empty file unmarshals to a zero node; start a fresh document.
	if root.Kind == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	target, err := resolvePath(root.Content[0], strings.Split(strings.TrimPrefix(keyPath, "."), "."))
	if err != nil {
		return nil, nil, fmt.Errorf("resolving key path (%s): %w", keyPath, err)
	}

	target.SetString(value)
	if comment != "" {
		target.LineComment = comment
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, nil, fmt.Errorf("encoding values file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, fmt.Errorf("encoding values file: %w", err)
	}
	after = buf.Bytes()

	info, err := os.Stat(file)
	if err != nil {
		return nil, nil, fmt.Errorf("stat values file: %w", err)
	}
	if err := os.WriteFile(file, after, info.Mode().Perm()); err != nil {
		return nil, nil, fmt.Errorf("writing values file: %w", err)
	}

	return before, after, nil
}

// resolvePath walks the mapping nodes along keys, creating missing mappings,
// and returns the value node for the final key.
func resolvePath(node *yaml.Node, keys []string) (*yaml.Node, error) {
	for i, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("empty key segment at position %d", i)
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("key (%s) is not a mapping", strings.Join(keys[:i], "."))
		}

		value := findMapValue(node, key)
		if value == nil {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
			if i < len(keys)-1 {
				value = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}
			node.Content = append(node.Content, keyNode, value)
		}
		node = value
	}
	return node, nil
}

// findMapValue returns the value node for key in a mapping node, or nil.
func findMapValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
