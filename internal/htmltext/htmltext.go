// Package htmltext turns HTML fragments into readable text with light markdown structure.
package htmltext

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// ToText sanitizes fragment and renders headings, list items and paragraphs as text blocks.
func ToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ugcPolicy.Sanitize(fragment)))
	if err != nil {
		return StripTags(fragment)
	}
	return FromSelection(doc.Selection)
}

// FromSelection renders an already parsed selection.
func FromSelection(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	c := &converter{}
	for _, n := range sel.Nodes {
		c.walk(n)
	}
	c.flush()
	return c.String()
}

// StripTags removes all markup and unescapes entities.
func StripTags(fragment string) string {
	return collapse(html.UnescapeString(strictPolicy.Sanitize(fragment)))
}

type block struct {
	text string
	item bool
}

type converter struct {
	blocks []block
	inline strings.Builder
	prefix string
	item   bool
}

func (c *converter) walk(n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		c.inline.WriteString(n.Data)
		return
	case nethtml.ElementNode:
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.walk(child)
		}
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Template:
		return
	case atom.Br:
		c.flush()
		return
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.flush()
		c.prefix = strings.Repeat("#", int(n.Data[1]-'0')) + " "
		c.children(n)
		c.flush()
		return
	case atom.Li:
		c.flush()
		c.prefix = "- "
		c.item = true
		c.children(n)
		c.flush()
		return
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Blockquote, atom.Pre,
		atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Header, atom.Footer, atom.Figure, atom.Figcaption, atom.Hr:
		c.flush()
		c.children(n)
		c.flush()
		return
	}
	c.children(n)
}

func (c *converter) children(n *nethtml.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
}

func (c *converter) flush() {
	text := collapse(c.inline.String())
	c.inline.Reset()
	if text != "" {
		c.blocks = append(c.blocks, block{text: c.prefix + text, item: c.item})
	}
	c.prefix = ""
	c.item = false
}

func (c *converter) String() string {
	var b strings.Builder
	for i, blk := range c.blocks {
		if i > 0 {
			if blk.item && c.blocks[i-1].item {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(blk.text)
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
