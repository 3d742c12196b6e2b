package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	r := Defaults(Options{})

	for _, name := range []string{"a.md", "b.MARKDOWN", "c.mkd"} {
		rd, ok := r.Lookup(name)
		assert.True(t, ok, name)
		assert.IsType(t, &Markdown{}, rd, name)
	}

	rd, ok := r.Lookup("notes.txt")
	assert.True(t, ok)
	assert.Equal(t, Plain{}, rd)

	rd, ok = r.Lookup("doc.rst")
	assert.False(t, ok)
	out, err := rd.Render("*as is*")
	require.NoError(t, err)
	assert.Equal(t, "*as is*", out)
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := Defaults(Options{})
	r.Register(Func(func(src string) (string, error) { return "<pre>" + src + "</pre>", nil }), ".TXT")

	rd, ok := r.Lookup("x.txt")
	require.True(t, ok)
	out, err := rd.Render("hi")
	require.NoError(t, err)
	assert.Equal(t, "<pre>hi</pre>", out)
}

func TestMarkdownRewritesSourceLinks(t *testing.T) {
	md := NewMarkdown(Options{})
	out, err := md.Render("[next](next.md) [sec](other.mkd#part) [ext](https://example.com/a.md)")
	require.NoError(t, err)
	assert.Contains(t, out, `href="next.html"`)
	assert.Contains(t, out, `href="other.html#part"`)
	assert.Contains(t, out, `href="https://example.com/a.md"`)
}

func TestMarkdownSanitize(t *testing.T) {
	src := "hello <script>alert(1)</script>"

	unsafe, err := NewMarkdown(Options{}).Render(src)
	require.NoError(t, err)
	assert.Contains(t, unsafe, "<script>")

	safe, err := NewMarkdown(Options{Sanitize: true}).Render(src)
	require.NoError(t, err)
	assert.NotContains(t, safe, "<script>")
	assert.Contains(t, safe, "hello")
}

func TestPlain(t *testing.T) {
	out, err := Plain{}.Render("a < b\nc")
	require.NoError(t, err)
	assert.Equal(t, "a &lt; b<br>c", out)
}

func TestHTMLPassthrough(t *testing.T) {
	out, err := NewHTML(Options{}).Render(`<p onclick="x()">hi</p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p onclick="x()">hi</p>`, out)

	out, err = NewHTML(Options{Sanitize: true}).Render(`<p onclick="x()">hi</p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p>hi</p>`, out)
}
