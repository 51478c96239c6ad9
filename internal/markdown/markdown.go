// Package markdown renders course documents to HTML and derives display titles.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Extensions is the fixed parser extension set used for every document.
const Extensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings |
	blackfriday.HeadingIDs |
	blackfriday.AutoHeadingIDs |
	blackfriday.Footnotes |
	blackfriday.DefinitionLists |
	blackfriday.BackslashLineBreak |
	blackfriday.HardLineBreak

// HTMLFlags configures the HTML renderer.
const HTMLFlags = blackfriday.CommonHTMLFlags | blackfriday.FootnoteReturnLinks

// Rendered is the output of Render.
type Rendered struct {
	HTML string
	TOC  string
}

type heading struct {
	level int
	id    string
	text  string
}

// Render converts source to HTML and builds a nested table of contents from
// its headings.
func Render(source []byte) Rendered {
	source = bytes.ReplaceAll(source, []byte("\r\n"), []byte("\n"))

	parser := blackfriday.New(blackfriday.WithExtensions(Extensions))
	root := parser.Parse(source)

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: HTMLFlags})

	var buf bytes.Buffer
	renderer.RenderHeader(&buf, root)
	root.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		return renderer.RenderNode(&buf, node, entering)
	})
	renderer.RenderFooter(&buf, root)

	return Rendered{
		HTML: buf.String(),
		TOC:  buildTOC(collectHeadings(root)),
	}
}

// collectHeadings mirrors the renderer's handling of duplicate heading ids so
// TOC anchors match the ids written into the HTML.
func collectHeadings(root *blackfriday.Node) []heading {
	var out []heading
	seen := make(map[string]int)

	root.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering || node.Type != blackfriday.Heading || node.IsTitleblock {
			return blackfriday.GoToNext
		}
		id := node.HeadingID
		if id != "" {
			id = uniqueID(seen, id)
		}
		out = append(out, heading{level: node.Level, id: id, text: nodeText(node)})
		return blackfriday.SkipChildren
	})
	return out
}

func uniqueID(seen map[string]int, id string) string {
	for count, found := seen[id]; found; count, found = seen[id] {
		tmp := fmt.Sprintf("%s-%d", id, count+1)
		if _, tmpFound := seen[tmp]; !tmpFound {
			seen[id] = count + 1
			id = tmp
		} else {
			id = id + "-1"
		}
	}
	if _, found := seen[id]; !found {
		seen[id] = 0
	}
	return id
}

func nodeText(node *blackfriday.Node) string {
	var b strings.Builder
	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && (n.Type == blackfriday.Text || n.Type == blackfriday.Code) {
			b.Write(n.Literal)
		}
		return blackfriday.GoToNext
	})
	return strings.TrimSpace(b.String())
}

func buildTOC(headings []heading) string {
	if len(headings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="toc">` + "\n")

	base := headings[0].level
	for _, h := range headings[1:] {
		if h.level < base {
			base = h.level
		}
	}

	depth := 0
	for i, h := range headings {
		level := h.level - base + 1
		switch {
		case level > depth:
			for depth < level {
				b.WriteString("<ul>\n")
				depth++
				if depth < level {
					b.WriteString("<li>\n")
				}
			}
		default:
			if i > 0 {
				b.WriteString("</li>\n")
			}
			for depth > level {
				b.WriteString("</ul>\n</li>\n")
				depth--
			}
		}

		b.WriteString("<li>")
		if h.id != "" {
			fmt.Fprintf(&b, `<a href="#%s">%s</a>`, html.EscapeString(h.id), html.EscapeString(h.text))
		} else {
			b.WriteString(html.EscapeString(h.text))
		}
	}
	b.WriteString("</li>\n")
	for depth > 1 {
		b.WriteString("</ul>\n</li>\n")
		depth--
	}
	b.WriteString("</ul>\n</div>\n")
	return b.String()
}

// Humanize turns a slug into a title: underscores and hyphens become spaces
// and every word is capitalized.
func Humanize(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return ""
	}
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

// Stem returns filename without its extension.
func Stem(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// Title derives a document title. When the first non-empty line is a
// heading, its text wins; otherwise the humanized filename stem is used.
func Title(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		break
	}
	return Humanize(Stem(filename))
}

// Slug builds the filename for a new document from its title.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s + ".md"
}
