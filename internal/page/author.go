// internal/page/author.go
package page

import (
	"regexp"
	"strings"
)

var authorRE = regexp.MustCompile(`^([^<>]*) *(<(.*@.*)>)?$`)

// Author is a page or site author parsed from "Name <email>", "Name" or
// "<email>". Empty Name or Email means the part was not given.
type Author struct {
	Raw   string
	Name  string
	Email string
}

// ParseAuthor parses a single author string. Strings that do not fit the
// pattern keep only Raw.
func ParseAuthor(raw string) Author {
	a := Author{Raw: strings.TrimSpace(raw)}
	match := authorRE.FindStringSubmatch(a.Raw)
	if match == nil {
		return a
	}
	a.Name = strings.TrimSpace(match[1])
	a.Email = strings.TrimSpace(match[3])
	return a
}

// ParseAuthors parses every element of raw.
func ParseAuthors(raw []string) []Author {
	authors := make([]Author, 0, len(raw))
	for _, r := range raw {
		authors = append(authors, ParseAuthor(r))
	}
	return authors
}

func (a Author) String() string {
	switch {
	case a.Name == "":
		return a.Raw
	case a.Email == "":
		return a.Name
	}
	return a.Name + " <" + a.Email + ">"
}
