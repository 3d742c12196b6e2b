// internal/story/story.go

// Package story compiles an interactive .biff story into site pages, one
// page per knot and state. Choices become links between the pages.
package story

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/natefinch/atomic"
	"github.com/verkaro/bigif/bigif"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"skillet/internal/render"
)

var (
	knotRE     = regexp.MustCompile(`^\s*===\s*([\w-]+)\s*===\s*$`)
	unsafeRE   = regexp.MustCompile(`[^\w- ]+`)
	dashesRE   = regexp.MustCompile(`-+`)
	titleCaser = cases.Title(language.Und)
)

// Page is one compiled knot.
type Page struct {
	// Path is slash separated and relative to the content directory.
	Path string
	// Meta is the page's front matter.
	Meta map[string]any
	// Body is markdown.
	Body string
}

// URL is the page's URL pattern: its path with the template's extension.
func (p Page) URL() string {
	return "/" + strings.TrimSuffix(p.Path, ".md") + ".{ext}"
}

// Document renders the page as a content file: YAML front matter, the
// delimiter, then the body.
func (p Page) Document() ([]byte, error) {
	header, err := yaml.Marshal(p.Meta)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter for %s: %w", p.Path, err)
	}
	var buf bytes.Buffer
	buf.Write(header)
	buf.WriteString("---\n")
	buf.WriteString(p.Body)
	return buf.Bytes(), nil
}

// Load reads and compiles the story at path.
func Load(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compiling story %s: %w", path, err)
	}
	return pages, nil
}

// Compile turns biff source into pages, ordered by path.
func Compile(biffData []byte) ([]Page, error) {
	knotMeta, err := parseKnotMeta(biffData)
	if err != nil {
		return nil, fmt.Errorf("failed to pre-parse biff for front matter: %w", err)
	}

	jsonBytes, err := bigif.Compile(string(biffData))
	if err != nil {
		return nil, fmt.Errorf("biff syntax error: %w", err)
	}
	var compiled struct {
		Metadata map[string]string `json:"metadata"`
		Graph    struct {
			Nodes map[string]*bigif.StoryNode `json:"nodes"`
		} `json:"graph"`
	}
	if err := json.Unmarshal(jsonBytes, &compiled); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story json: %w", err)
	}

	paths := buildPaths(compiled.Graph.Nodes)
	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return paths[ids[i]] < paths[ids[j]] })

	pages := make([]Page, 0, len(ids))
	for _, id := range ids {
		node := compiled.Graph.Nodes[id]
		meta := knotMeta[node.KnotName]
		title, content := extractTitle(node.KnotName, node.Content, meta)

		body, err := render.EditMLToMarkdown(content)
		if err != nil {
			return nil, fmt.Errorf("knot %s: %w", node.KnotName, err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", title, body)
		for _, edge := range node.Edges {
			target, ok := paths[edge.TargetNodeID]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "* [%s](%s)\n", edge.Text, relLink(paths[id], target))
		}

		p := Page{Path: paths[id], Body: sb.String()}
		p.Meta = frontMatter(compiled.Metadata, title, meta)
		p.Meta["url"] = p.URL()
		pages = append(pages, p)
	}
	return pages, nil
}

// WriteFiles writes pages as content files under contentDir.
func WriteFiles(pages []Page, contentDir string) (int, error) {
	for i, p := range pages {
		doc, err := p.Document()
		if err != nil {
			return i, err
		}
		target := filepath.Join(contentDir, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return i, fmt.Errorf("failed to create directory for story file: %w", err)
		}
		if err := atomic.WriteFile(target, bytes.NewReader(doc)); err != nil {
			return i, fmt.Errorf("failed to write story file %s: %w", target, err)
		}
	}
	return len(pages), nil
}

// parseKnotMeta collects "// key: value" comments that follow a knot header.
func parseKnotMeta(biffData []byte) (map[string]map[string]string, error) {
	data := make(map[string]map[string]string)
	var knot string

	scanner := bufio.NewScanner(bytes.NewReader(biffData))
	for scanner.Scan() {
		line := strings.TrimFunc(scanner.Text(), unicode.IsSpace)
		if m := knotRE.FindStringSubmatch(line); len(m) > 1 {
			knot = m[1]
			if data[knot] == nil {
				data[knot] = make(map[string]string)
			}
			continue
		}
		if knot == "" || !strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "//")), ":")
		if ok {
			data[knot][strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}
	return data, scanner.Err()
}

// extractTitle picks the knot's title: the title comment, else the first H1,
// else the knot name. The H1 lines are removed from the content.
func extractTitle(knotName, content string, meta map[string]string) (string, string) {
	title := meta["title"]
	var heading string
	var lines []string

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimFunc(line, unicode.IsSpace)
		if strings.HasPrefix(trimmed, "# ") {
			if heading == "" {
				heading = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			}
			continue
		}
		lines = append(lines, line)
	}

	switch {
	case title != "":
	case heading != "":
		title = heading
	default:
		title = titleCaser.String(strings.ReplaceAll(knotName, "_", " "))
	}
	return title, strings.TrimSpace(strings.Join(lines, "\n"))
}

func frontMatter(story map[string]string, title string, knot map[string]string) map[string]any {
	fm := map[string]any{"title": title, "published": true}
	if st, ok := story["title"]; ok {
		fm["story_title"] = st
	}
	if sa, ok := story["author"]; ok {
		fm["story_author"] = sa
	}
	for k, v := range knot {
		if k != "title" {
			fm[k] = v
		}
	}
	return fm
}

// buildPaths names a content file for every node: scene directories, then
// the knot name joined with the node's set flags.
func buildPaths(nodes map[string]*bigif.StoryNode) map[string]string {
	paths := make(map[string]string, len(nodes))
	for id, node := range nodes {
		dirs := []string{"story"}
		if node.Scene != "" {
			for _, seg := range strings.Split(node.Scene, "/") {
				dirs = append(dirs, sanitize(seg))
			}
		}
		parts := []string{sanitize(node.KnotName)}
		var flags []string
		for k, v := range node.State {
			if v {
				flags = append(flags, sanitize(k))
			}
		}
		sort.Strings(flags)
		parts = append(parts, flags...)
		paths[id] = path.Join(append(dirs, strings.Join(parts, "-")+".md")...)
	}
	return paths
}

// relLink is the link from the page at from to the page at to.
func relLink(from, to string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(to))
	if err != nil {
		return to
	}
	return filepath.ToSlash(rel)
}

func sanitize(s string) string {
	s = unsafeRE.ReplaceAllString(strings.ToLower(s), "")
	s = strings.ReplaceAll(s, " ", "-")
	return dashesRE.ReplaceAllString(s, "-")
}
