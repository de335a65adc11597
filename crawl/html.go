package crawl

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// RenderHTML converts an HTML document to markdown-like text. Headings,
// lists, links, images and preformatted blocks keep their markdown form.
// Scripts, styles and page chrome are dropped.
func RenderHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var rd renderer
	rd.render(doc)

	out := trailingSpace.ReplaceAllString(rd.b.String(), "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

type renderer struct {
	b   strings.Builder
	pre int
}

func (r *renderer) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		r.element(n)
		return
	}
	r.children(n)
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.render(c)
	}
}

func (r *renderer) element(n *html.Node) {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head,
		atom.Svg, atom.Iframe, atom.Nav, atom.Form, atom.Button:
		return

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		r.block()
		r.b.WriteString(strings.Repeat("#", level) + " ")
		r.children(n)
		r.block()

	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
		atom.Footer, atom.Aside, atom.Ul, atom.Ol, atom.Table, atom.Blockquote,
		atom.Dl, atom.Figure:
		r.block()
		r.children(n)
		r.block()

	case atom.Li, atom.Dt, atom.Dd:
		r.newline()
		if n.DataAtom == atom.Li {
			r.b.WriteString("- ")
		}
		r.children(n)
		r.newline()

	case atom.Tr:
		r.newline()
		r.children(n)
		r.newline()

	case atom.Td, atom.Th:
		r.children(n)
		r.b.WriteString(" ")

	case atom.Br:
		r.b.WriteString("\n")

	case atom.Hr:
		r.block()
		r.b.WriteString("---")
		r.block()

	case atom.Pre:
		r.block()
		r.b.WriteString("```\n")
		r.pre++
		r.children(n)
		r.pre--
		r.newline()
		r.b.WriteString("```")
		r.block()

	case atom.Code:
		if r.pre > 0 {
			r.children(n)
			return
		}
		r.b.WriteString("`")
		r.children(n)
		r.b.WriteString("`")

	case atom.Strong, atom.B:
		r.b.WriteString("**")
		r.children(n)
		r.b.WriteString("**")

	case atom.Em, atom.I:
		r.b.WriteString("_")
		r.children(n)
		r.b.WriteString("_")

	case atom.A:
		href := attr(n, "href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			r.children(n)
			return
		}
		r.b.WriteString("[")
		r.children(n)
		r.b.WriteString("](" + href + ")")

	case atom.Img:
		if src := attr(n, "src"); src != "" {
			r.b.WriteString("![" + attr(n, "alt") + "](" + src + ")")
		}

	default:
		r.children(n)
	}
}

func (r *renderer) text(data string) {
	if r.pre > 0 {
		r.b.WriteString(data)
		return
	}

	fields := strings.Fields(data)
	if len(fields) == 0 {
		if data != "" {
			r.space()
		}
		return
	}
	if startsWithSpace(data) {
		r.space()
	}
	r.b.WriteString(strings.Join(fields, " "))
	if endsWithSpace(data) {
		r.b.WriteString(" ")
	}
}

// space writes a single separating space unless the output already ends in
// whitespace.
func (r *renderer) space() {
	s := r.b.String()
	if s == "" || endsWithSpace(s) {
		return
	}
	r.b.WriteString(" ")
}

func (r *renderer) newline() {
	s := r.b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	r.b.WriteString("\n")
}

func (r *renderer) block() {
	s := r.b.String()
	switch {
	case s == "" || strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		r.b.WriteString("\n")
	default:
		r.b.WriteString("\n\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsAny(s[:1], " \t\n\r\f")
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsAny(s[len(s)-1:], " \t\n\r\f")
}
