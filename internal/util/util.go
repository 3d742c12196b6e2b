// internal/util/util.go
package util

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// punctRE is the delimiter class a title is split on before normalization.
var punctRE = regexp.MustCompile("[\t !\"#$%&'()*\\-/<=>?@\\[\\\\\\]^_`{|},.]+")

// Slugify generates an ASCII-only, lowercase identifier that is safe for
// filenames and URLs. Words are joined with "-".
//
// Each word is NFKD-normalized so diacritics decompose into a base letter
// plus combining marks, and every non-ASCII byte is then dropped. Anything
// left outside [a-z0-9] acts as a further word boundary, which keeps the
// function idempotent.
func Slugify(text string) string {
	var words []string
	for _, word := range punctRE.Split(strings.ToLower(text), -1) {
		word = foldASCII(word)
		words = append(words, strings.FieldsFunc(word, notSlugRune)...)
	}
	return strings.Join(words, "-")
}

func foldASCII(s string) string {
	s = norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < utf8.RuneSelf {
			b.WriteByte(s[i])
		}
	}
	return strings.ToLower(b.String())
}

func notSlugRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// Chunk partitions items into consecutive slices of at most size elements.
// The last chunk may be shorter. A non-positive size yields one chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// ComputeBaseHref calculates the relative path to the site root
// so that CSS/JS links work correctly for pages at any depth.
// For example, a page at posts/a/b.html would get a BaseHref of "../../".
func ComputeBaseHref(relPath string) string {
	relPath = strings.TrimPrefix(filepath.ToSlash(relPath), "/")
	dir := filepath.Dir(filepath.FromSlash(relPath))
	if dir == "." {
		return ""
	}
	depth := strings.Count(dir, string(os.PathSeparator)) + 1
	return strings.Repeat("../", depth)
}
