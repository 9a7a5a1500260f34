// SPDX-License-Identifier: MPL-2.0

// Package manifest edits a flatpak-builder YAML manifest. The document is
// held as a yaml.Node tree instead of typed structs so that key order,
// comments, and every field this tool does not model survive the rewrite.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// ParseError indicates the manifest is not well-formed YAML or lacks
	// the modules/sources structure this tool edits.
	ParseError struct {
		Path  string // empty when parsed from memory
		Cause error
	}

	// Document is a parsed manifest file.
	Document struct {
		root yaml.Node
	}
)

// Error names the file (when known) and the structural expectation that failed.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("parsing manifest: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Cause }

// Load reads and parses the manifest file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	d, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, err
	}

	return d, nil
}

// Parse parses manifest YAML from memory.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, &ParseError{Cause: err}
	}

	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 ||
		d.root.Content[0].Kind != yaml.MappingNode {
		return nil, &ParseError{Cause: fmt.Errorf("document root is not a mapping")}
	}

	return &d, nil
}

// SetSource locates the module named moduleName, then its first source
// entry carrying a url field, and overwrites that entry's url and sha256
// values. A sha256 key is added when the source lacks one.
func (d *Document) SetSource(moduleName, url, sha256 string) error {
	modules := mapValue(d.root.Content[0], "modules")
	if modules == nil || modules.Kind != yaml.SequenceNode {
		return &ParseError{Cause: fmt.Errorf("missing modules sequence")}
	}

	for _, module := range modules.Content {
		if module.Kind != yaml.MappingNode {
			continue
		}
		name := mapValue(module, "name")
		if name == nil || name.Value != moduleName {
			continue
		}

		sources := mapValue(module, "sources")
		if sources == nil || sources.Kind != yaml.SequenceNode {
			return &ParseError{Cause: fmt.Errorf("module %q has no sources sequence", moduleName)}
		}

		for _, source := range sources.Content {
			if source.Kind != yaml.MappingNode || mapValue(source, "url") == nil {
				continue
			}
			setScalar(source, "url", url)
			setScalar(source, "sha256", sha256)
			return nil
		}

		return &ParseError{Cause: fmt.Errorf("module %q has no source with a url field", moduleName)}
	}

	return &ParseError{Cause: fmt.Errorf("module %q not found", moduleName)}
}

// Bytes serializes the manifest with 2-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("serializing manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setScalar overwrites the value for key in a mapping node, appending the
// key when absent.
func setScalar(mapping *yaml.Node, key, value string) {
	if v := mapValue(mapping, key); v != nil {
		v.SetString(value)
		return
	}

	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}
