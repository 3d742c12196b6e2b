//go:build property
// +build property

package util

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var slugShape = regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)

func TestSlugifyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("slugify is idempotent", prop.ForAll(
		func(s string) bool {
			once := Slugify(s)
			return Slugify(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("slug matches [a-z0-9-] without edge delimiters", prop.ForAll(
		func(s string) bool {
			return slugShape.MatchString(Slugify(s))
		},
		gen.AnyString(),
	))

	properties.Property("chunks cover the input in order", prop.ForAll(
		func(items []int, size int) bool {
			var flat []int
			for _, c := range Chunk(items, size) {
				if len(c) > size {
					return false
				}
				flat = append(flat, c...)
			}
			if len(flat) != len(items) {
				return false
			}
			for i := range flat {
				if flat[i] != items[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
