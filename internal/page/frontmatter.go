// internal/page/frontmatter.go
package page

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var delimiter = []byte("\n---\n")

// Document is a content file split into its front matter and body.
type Document struct {
	Header  []byte
	Preview string
	Body    string

	// Squashed reports that the file had more delimited sections than
	// expected and the extra ones were folded back into Body.
	Squashed bool
}

// Split separates a content file on the literal "\n---\n" delimiter.
//
// No delimiter means the whole file is body. One delimiter gives a YAML
// header and a body. Two give a header, a preview and a body; the body
// still starts with the preview text. Any more are squashed: everything
// after the header is the body and no preview is set.
func Split(content []byte) Document {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	parts := bytes.Split(content, delimiter)

	switch len(parts) {
	case 1:
		return Document{Body: string(parts[0])}
	case 2:
		return Document{Header: parts[0], Body: string(parts[1])}
	case 3:
		return Document{
			Header:  parts[0],
			Preview: string(parts[1]),
			Body:    string(parts[1]) + "\n" + string(parts[2]),
		}
	}
	return Document{
		Header:   parts[0],
		Body:     string(bytes.Join(parts[1:], delimiter)),
		Squashed: true,
	}
}

// ParseHeader decodes a YAML front matter block into a map. An empty header
// yields an empty map.
func ParseHeader(header []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(header)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
