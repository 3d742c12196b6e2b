// internal/render/render.go
package render

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/verkaro/editml-go"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Renderer turns the raw body of a content file into HTML.
type Renderer interface {
	Render(src string) (string, error)
}

// Func adapts a plain function to Renderer.
type Func func(src string) (string, error)

// Render calls f(src).
func (f Func) Render(src string) (string, error) { return f(src) }

// Options controls the built-in renderers.
type Options struct {
	// Sanitize runs markdown and HTML output through a UGC policy.
	Sanitize bool
}

// Identity returns its input unchanged. It is used for extensions with no
// registered renderer.
var Identity Renderer = Func(func(src string) (string, error) { return src, nil })

// Markdown renders CommonMark with GFM and footnotes. Links to .md files are
// rewritten to .html.
type Markdown struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewMarkdown builds the goldmark pipeline.
func NewMarkdown(opts Options) *Markdown {
	m := &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithASTTransformers(
					util.Prioritized(newMDLinkTransformer(), 100),
				),
			),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
	}
	if opts.Sanitize {
		m.sanitizer = bluemonday.UGCPolicy()
	}
	return m
}

func (m *Markdown) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}
	if m.sanitizer != nil {
		return string(m.sanitizer.SanitizeBytes(buf.Bytes())), nil
	}
	return buf.String(), nil
}

// Plain escapes text and turns newlines into <br>.
type Plain struct{}

func (Plain) Render(src string) (string, error) {
	return strings.ReplaceAll(html.EscapeString(src), "\n", "<br>"), nil
}

// HTML passes markup through, sanitized when configured.
type HTML struct {
	sanitizer *bluemonday.Policy
}

// NewHTML returns the HTML passthrough renderer.
func NewHTML(opts Options) *HTML {
	h := &HTML{}
	if opts.Sanitize {
		h.sanitizer = bluemonday.UGCPolicy()
	}
	return h
}

func (h *HTML) Render(src string) (string, error) {
	if h.sanitizer != nil {
		return h.sanitizer.Sanitize(src), nil
	}
	return src, nil
}

// EditML renders the clean view of an EditML document as markdown.
type EditML struct {
	markdown *Markdown
}

func (e *EditML) Render(src string) (string, error) {
	clean, err := EditMLToMarkdown(src)
	if err != nil {
		return "", err
	}
	return e.markdown.Render(clean)
}

// EditMLToMarkdown accepts every edit in an EditML document and returns the
// resulting markdown.
func EditMLToMarkdown(raw string) (string, error) {
	nodes, parseIssues := editml.Parse(raw)
	if len(parseIssues) > 0 && parseIssues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml parsing error: %s", parseIssues[0].Message)
	}
	clean, transformIssues := editml.TransformCleanView(nodes)
	if len(transformIssues) > 0 && transformIssues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml transformation error: %s", transformIssues[0].Message)
	}
	return clean, nil
}

// Registry maps file extensions (without the dot, lower case) to renderers.
type Registry struct {
	byExt map[string]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Renderer)}
}

// Defaults returns a registry with the built-in renderers.
func Defaults(opts Options) *Registry {
	md := NewMarkdown(opts)
	r := NewRegistry()
	r.Register(md, "md", "markdown", "mkd")
	r.Register(Plain{}, "txt")
	r.Register(NewHTML(opts), "html", "htm")
	r.Register(&EditML{markdown: md}, "editml")
	return r
}

// Register binds a renderer to extensions, replacing earlier bindings.
func (r *Registry) Register(rd Renderer, exts ...string) {
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = rd
	}
}

// Lookup returns the renderer for a file name. When none is registered the
// identity renderer is returned with ok set to false.
func (r *Registry) Lookup(filename string) (rd Renderer, ok bool) {
	rd, ok = r.byExt[normalizeExt(filepath.Ext(filename))]
	if !ok {
		return Identity, false
	}
	return rd, true
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
