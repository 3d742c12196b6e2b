// internal/render/goldmark_extensions.go
package render

import (
	"net/url"
	"path"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// sourceExts are content extensions whose links point at pages that end up
// as .html in the output.
var sourceExts = map[string]bool{".md": true, ".markdown": true, ".mkd": true, ".editml": true}

// mdLinkTransformer rewrites relative links to content sources so that they
// point at the generated pages.
type mdLinkTransformer struct{}

func newMDLinkTransformer() parser.ASTTransformer {
	return &mdLinkTransformer{}
}

func (t *mdLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = rewriteDestination(link.Destination)
		return ast.WalkContinue, nil
	})
}

// rewriteDestination swaps a source extension for .html, keeping any query
// or fragment. Absolute URLs are left alone.
func rewriteDestination(dest []byte) []byte {
	u, err := url.Parse(string(dest))
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return dest
	}
	ext := path.Ext(u.Path)
	if !sourceExts[ext] {
		return dest
	}
	u.Path = u.Path[:len(u.Path)-len(ext)] + ".html"
	return []byte(u.String())
}
