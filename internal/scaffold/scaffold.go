// internal/scaffold/scaffold.go

// Package scaffold creates new sites and new content files.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"skillet/internal/config"
	"skillet/internal/util"
)

// ErrExists is returned instead of overwriting existing files.
var ErrExists = errors.New("already exists")

// ArchetypeDir holds the templates new content files are created from.
const ArchetypeDir = "archetypes"

// CreateNewSite writes a starter site into dir, which must be missing or
// empty. It returns the files it wrote, relative to dir.
func CreateNewSite(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	case len(entries) > 0:
		return nil, fmt.Errorf("%s is not empty: %w", dir, ErrExists)
	}

	files := []struct{ path, content string }{
		{config.DefaultFile, configContent},
		{"site.biff", siteBiffContent},
		{"content/index.md", indexContent},
		{"media/css/style.css", styleContent},
		{"templates/default.html", defaultTemplateContent},
		{"templates/partials/header.html", headerTemplateContent},
		{"templates/partials/footer.html", footerTemplateContent},
		{ArchetypeDir + "/default.md", archetypeContent},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return written, fmt.Errorf("failed to write file %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}
	return written, nil
}

// ContentData is what archetype templates are executed with.
type ContentData struct {
	Title    string
	Slug     string
	Type     string
	Category string
	Date     string
	Authors  []string
}

// CreateNewContent writes a new page of type kind into the content
// directory, filed under a category of the same name. The archetype
// archetypes/<kind>.md is used when it exists, then archetypes/default.md,
// then a built-in one. It returns the new file's path.
func CreateNewContent(opts *config.Site, kind, title string, now time.Time) (string, error) {
	slug := util.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q has no usable slug", title)
	}
	kind = strings.Trim(kind, "/")
	path := filepath.Join(opts.ContentDir, filepath.FromSlash(kind), slug+".md")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, ErrExists)
	}

	src, err := archetype(kind)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New("archetype").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse archetype for %s: %w", kind, err)
	}

	data := ContentData{
		Title:    title,
		Slug:     slug,
		Type:     kind,
		Category: kind,
		Date:     now.Format(time.DateOnly),
		Authors:  opts.Authors,
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to execute archetype template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func archetype(kind string) (string, error) {
	for _, name := range []string{kind + ".md", "default.md"} {
		data, err := os.ReadFile(filepath.Join(ArchetypeDir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("could not read archetype %s: %w", name, err)
		}
	}
	return archetypeContent, nil
}

const configContent = `site_title: My skillet site
author: Your Name <you@example.com>
description: A new site built with skillet.
url_pattern: /{category}/{slug}{page}.{ext}
# Built-in hooks: heading_anchors, counter, trace, story.
hooks:
  - heading_anchors
`

const siteBiffContent = `// title: My Enchanted Garden
// author: A. Writer
// STATES: has_water, has_seed
// FLAG-STATES: unlocked_gate, puzzle_solved
// LOCAL-STATES: door

=== index ===
// title: Home
You are at the start.
* Go outside -> outside

=== outside ===
// title: The Great Outdoors
- {door == true}
  You are outside. This is the end.
  Hope you had fun

END
`

const indexContent = `title: Home
---
Welcome to your new site.

Add pages with ` + "`skillet new page <type> <title>`" + ` and build with ` + "`skillet build`" + `.
`

const archetypeContent = `title: {{ .Title }}
category: {{ .Category }}
date: {{ .Date }}
{{- if .Authors }}
authors:
{{- range .Authors }}
  - {{ . }}
{{- end }}
{{- end }}
---
Write something meaningful here.
`

const styleContent = `body {
  font-family: sans-serif;
  max-width: 700px;
  margin: 2em auto;
  padding: 0 1em;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
.header-line {
  display: flex;
  justify-content: space-between;
  align-items: baseline;
  gap: 1em;
  margin-bottom: 2em;
  flex-wrap: wrap;
}
.site-name { font-size: 0.9em; color: #777; font-style: italic; flex-grow: 1; }
.page-author { font-size: 0.9em; color: #777; font-style: italic; text-align: right; }
main { margin-bottom: 3em; }
footer { text-align: center; font-size: 0.9em; color: #555; }
footer nav a { color: #444; text-decoration: none; margin: 0 0.5em; }
a.heading_anchor { visibility: hidden; text-decoration: none; margin-left: 0.3em; }
h1:hover a.heading_anchor, h2:hover a.heading_anchor, h3:hover a.heading_anchor { visibility: visible; }
`

const defaultTemplateContent = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ .page.Title }} | {{ .site.title }}</title>
  <link rel="stylesheet" href="{{ .base_href }}css/style.css">
  {{ with .site.description }}<meta name="description" content="{{ . }}">{{ end }}
</head>
<body>
  {{ template "header" . }}
  <main>
    <h1>{{ .page.Title }}</h1>
    {{ safe .page.Content }}
    {{ with .pagination.PageItems }}
    <ul>
      {{ range . }}<li><a href="{{ .URL }}">{{ .Title }}</a></li>{{ end }}
    </ul>
    {{ end }}
  </main>
  {{ template "footer" . }}
</body>
</html>
`

const headerTemplateContent = `{{ define "header" }}
<header>
  <div class="header-line">
    <div class="site-name">{{ .site.title }}</div>
    {{ with .page.Author.Name }}<div class="page-author">{{ . }}</div>{{ end }}
  </div>
</header>
{{ end }}`

const footerTemplateContent = `{{ define "footer" }}
<footer>
  <nav>
    <a href="{{ .base_href }}index.html">home</a>
    {{ with .pagination.PrevPage }}<a href="{{ .URL }}">newer</a>{{ end }}
    {{ with .pagination.NextPage }}<a href="{{ .URL }}">older</a>{{ end }}
  </nav>
  <div class="copyright">&copy; {{ .site.title }}</div>
</footer>
{{ end }}`
