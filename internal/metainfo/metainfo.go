// SPDX-License-Identifier: MPL-2.0

// Package metainfo edits an AppStream metainfo XML file. Only the
// /component/releases collection is modeled; everything else in the
// document (ids, screenshots, content ratings) is carried through
// untouched, which is why the document is kept as a full element tree
// rather than unmarshaled into structs.
package metainfo

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/beevik/etree"
)

// xmlDeclaration is written when the source document carries none.
const xmlDeclaration = `<?xml version='1.0' encoding='utf-8'?>` + "\n"

type (
	// ParseError indicates the metainfo file is not well-formed XML or is
	// missing the /component/releases structure this tool edits.
	ParseError struct {
		Path  string // empty when parsed from memory
		Cause error
	}

	// Document is a parsed metainfo file.
	Document struct {
		doc            *etree.Document
		releases       *etree.Element
		hasDeclaration bool
	}

	// Release is a read-only view of one release entry.
	Release struct {
		Version string
		Date    string
	}
)

// Error names the file (when known) and the structural expectation that failed.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parsing metainfo %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("parsing metainfo: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Cause }

// Load reads and parses the metainfo file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metainfo: %w", err)
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

// Parse parses metainfo XML from memory.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Cause: err}
	}

	releases := doc.FindElement("/component/releases")
	if releases == nil {
		return nil, &ParseError{Cause: fmt.Errorf("missing /component/releases element")}
	}

	return &Document{
		doc:            doc,
		releases:       releases,
		hasDeclaration: bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("<?xml")),
	}, nil
}

// Releases returns the release entries in document order. Entries without a
// version attribute are skipped.
func (d *Document) Releases() []Release {
	var out []Release
	for _, el := range d.releases.SelectElements("release") {
		v := el.SelectAttrValue("version", "")
		if v == "" {
			continue
		}
		out = append(out, Release{
			Version: v,
			Date:    el.SelectAttrValue("date", ""),
		})
	}
	return out
}

// CurrentVersion returns the release entry with the lexicographically
// maximal version attribute. This mirrors how the upstream files have
// always been compared; it is not semver ordering.
func (d *Document) CurrentVersion() (Release, error) {
	releases := d.Releases()
	if len(releases) == 0 {
		return Release{}, &ParseError{Cause: fmt.Errorf("no release entries under /component/releases")}
	}

	current := releases[0]
	for _, r := range releases[1:] {
		if r.Version > current.Version {
			current = r
		}
	}

	return current, nil
}

// PrependRelease inserts a new release entry as the first (most recent)
// child of the releases collection. Each change becomes one <p> text node
// inside the entry's <description>.
func (d *Document) PrependRelease(version, date string, changes []string) {
	rel := etree.NewElement("release")
	rel.CreateAttr("version", version)
	rel.CreateAttr("date", date)

	desc := rel.CreateElement("description")
	for _, change := range changes {
		desc.CreateElement("p").SetText(change)
	}

	d.releases.InsertChildAt(0, rel)
}

// Bytes serializes the document with 2-space indentation, an XML
// declaration, and a trailing newline.
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)

	out, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing metainfo: %w", err)
	}

	if !d.hasDeclaration && !bytes.HasPrefix(out, []byte("<?xml")) {
		out = append([]byte(xmlDeclaration), out...)
	}

	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	return out, nil
}
