package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World!", "hello-world"},
		{"  Multi   Space ", "multi-space"},
		{"Crème Brûlée", "creme-brulee"},
		{"already-a-slug", "already-a-slug"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"Tabs\tand_underscores", "tabs-and-underscores"},
		{"a:b;c", "a-b-c"},
		{"日本語", ""},
		{"", ""},
		{"Ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	for _, s := range []string{"Hello World!", "Ünïcödé títle", "x--y", "Q&A: part 2"} {
		once := Slugify(s)
		assert.Equal(t, once, Slugify(once), s)
	}
}

func TestChunk(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	chunks := Chunk(items, 10)
	if assert.Len(t, chunks, 3) {
		assert.Len(t, chunks[0], 10)
		assert.Len(t, chunks[1], 10)
		assert.Len(t, chunks[2], 5)
		assert.Equal(t, 20, chunks[2][0])
	}

	assert.Nil(t, Chunk([]int{}, 10))
	assert.Len(t, Chunk(items, 0), 1)
	assert.Len(t, Chunk(items, 25), 1)
}

func TestComputeBaseHref(t *testing.T) {
	assert.Equal(t, "", ComputeBaseHref("/index.html"))
	assert.Equal(t, "../", ComputeBaseHref("/blog/hello.html"))
	assert.Equal(t, "../../", ComputeBaseHref(filepath.Join("a", "b", "c.html")))
	assert.Equal(t, "../", ComputeBaseHref("/blog/"))
}
