// internal/page/url.go
package page

import (
	"regexp"
	"strconv"
	"strings"
)

var slashesRE = regexp.MustCompile(`//+`)

// URLOptions are the site options that shape a page URL.
type URLOptions struct {
	// IncludeIndex keeps a trailing "index.<ext>"; otherwise the URL ends
	// at the directory slash.
	IncludeIndex bool
	// Relative drops the leading slash instead of enforcing it.
	Relative bool
}

// URLParts returns the placeholder values for a page. {page} is blank on the
// first page of a listing and {type} is a deprecated alias of {ext}.
func URLParts(m *Meta) map[string]string {
	parts := map[string]string{
		"slug":     m.Slug,
		"category": strings.Join(m.Category, "/"),
		"page":     "",
		"ext":      m.Ext,
		"type":     m.Ext,
		"date":     "",
		"time":     "",
		"datetime": "",
	}
	if m.Pagination.CurPage > 1 {
		parts["page"] = strconv.Itoa(m.Pagination.CurPage)
	}
	if m.Date != nil {
		parts["date"] = m.Date.Format("2006/01/02")
	}
	if m.Time != nil {
		parts["time"] = strings.ReplaceAll(m.Time.String(), ":", "-")
	}
	if m.Datetime != nil {
		parts["datetime"] = m.Datetime.Format("2006-01-02T15-04-05")
	}
	return parts
}

// BuildURL substitutes the page's placeholders into pattern and normalizes
// the slashes.
func BuildURL(pattern string, m *Meta, opts URLOptions) string {
	parts := URLParts(m)
	pairs := make([]string, 0, 2*len(parts))
	for k, v := range parts {
		pairs = append(pairs, "{"+k+"}", v)
	}
	url := strings.NewReplacer(pairs...).Replace(pattern)
	url = slashesRE.ReplaceAllString(url, "/")

	if !opts.IncludeIndex {
		url = stripIndex(url, m.Ext)
	}

	url = strings.TrimLeft(url, "/")
	if !opts.Relative {
		url = "/" + url
	}
	return url
}

func stripIndex(url, ext string) string {
	index := "index." + ext
	if url == index {
		return ""
	}
	if strings.HasSuffix(url, "/"+index) {
		return strings.TrimSuffix(url, index)
	}
	return url
}
