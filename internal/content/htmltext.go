package content

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kr/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultWidth is the column at which extracted text is wrapped.
const DefaultWidth = 80

const droppedElements = "head, script, style, noscript, template, iframe, svg, object, embed"

// HTMLToText renders an HTML document as plain text wrapped at width columns.
// Headings are prefixed with '#' marks, list items with bullets or numbers,
// blockquotes with '>' and preformatted blocks are kept verbatim.
func HTMLToText(r io.Reader, width int) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(droppedElements).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	tr := &textRenderer{width: width}
	for _, node := range root.Nodes {
		tr.walkChildren(node)
	}
	tr.flush()

	return strings.Join(tr.blocks, "\n\n"), nil
}

type listState struct {
	ordered bool
	next    int
}

type textRenderer struct {
	width  int
	blocks []string
	inline strings.Builder
	lists  []listState
	quotes int

	// marker precedes the next non-empty paragraph (list bullet or heading level).
	marker string
	// group is the index of the first block of the outermost open list or quote.
	group int
}

func (tr *textRenderer) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		tr.walk(c)
	}
}

func (tr *textRenderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		tr.writeText(n.Data)
		return
	case html.ElementNode:
	default:
		tr.walkChildren(n)
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		tr.flush()
		level := int(n.Data[1] - '0')
		tr.marker = strings.Repeat("#", level) + " "
		tr.walkChildren(n)
		tr.flush()
		tr.marker = ""

	case atom.Br:
		tr.inline.WriteByte('\n')

	case atom.Hr:
		tr.flush()
		tr.addBlock(strings.Repeat("-", min(tr.width, 40)))

	case atom.Pre:
		tr.flush()
		tr.addBlock(strings.TrimRight(nodeText(n), "\n"))

	case atom.Blockquote:
		tr.flush()
		tr.openGroup()
		tr.quotes++
		tr.walkChildren(n)
		tr.flush()
		tr.quotes--

	case atom.Ul, atom.Ol, atom.Menu:
		tr.flush()
		tr.openGroup()
		state := listState{ordered: n.DataAtom == atom.Ol, next: 1}
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && state.ordered {
			state.next = start
		}
		tr.lists = append(tr.lists, state)
		tr.walkChildren(n)
		tr.flush()
		tr.lists = tr.lists[:len(tr.lists)-1]

	case atom.Li:
		tr.flush()
		tr.marker = tr.listMarker()
		tr.walkChildren(n)
		tr.flush()
		tr.marker = ""

	case atom.Img:
		if alt := strings.TrimSpace(attr(n, "alt")); alt != "" {
			tr.writeText("[" + alt + "]")
		}

	case atom.Td, atom.Th:
		tr.walkChildren(n)
		tr.writeText(" ")

	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Nav, atom.Aside, atom.Table, atom.Tr, atom.Form,
		atom.Figure, atom.Figcaption, atom.Dl, atom.Dt, atom.Dd, atom.Address,
		atom.Details, atom.Summary:
		tr.flush()
		tr.walkChildren(n)
		tr.flush()

	default:
		tr.walkChildren(n)
	}
}

// writeText appends s to the current paragraph with whitespace runs collapsed.
func (tr *textRenderer) writeText(s string) {
	if s == "" {
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		tr.inline.WriteByte(' ')
		return
	}
	if isSpace(s[0]) {
		tr.inline.WriteByte(' ')
	}
	tr.inline.WriteString(strings.Join(fields, " "))
	if isSpace(s[len(s)-1]) {
		tr.inline.WriteByte(' ')
	}
}

func (tr *textRenderer) listMarker() string {
	if len(tr.lists) == 0 {
		return "* "
	}
	state := &tr.lists[len(tr.lists)-1]
	if !state.ordered {
		return "* "
	}
	marker := strconv.Itoa(state.next) + ". "
	state.next++
	return marker
}

// openGroup starts a run of blocks that are joined without blank lines.
func (tr *textRenderer) openGroup() {
	if len(tr.lists) == 0 && tr.quotes == 0 {
		tr.group = len(tr.blocks)
	}
}

// flush wraps the pending paragraph and stores it as a block. The pending
// marker precedes the first line; continuation lines are aligned under it.
func (tr *textRenderer) flush() {
	raw := tr.inline.String()
	tr.inline.Reset()

	var lines []string
	for _, segment := range strings.Split(raw, "\n") {
		segment = strings.Join(strings.Fields(segment), " ")
		if segment != "" {
			lines = append(lines, segment)
		}
	}
	if len(lines) == 0 {
		return
	}

	marker := tr.marker
	tr.marker = ""

	indent := ""
	if depth := len(tr.lists); depth > 1 {
		indent = strings.Repeat("  ", depth-1)
	}
	quote := strings.Repeat("> ", tr.quotes)
	prefixWidth := len(quote) + len(indent) + len(marker)

	limit := tr.width - prefixWidth
	if limit < 20 {
		limit = 20
	}

	var out []string
	for _, line := range lines {
		out = append(out, strings.Split(text.Wrap(line, limit), "\n")...)
	}

	continuation := strings.Repeat(" ", len(marker))
	for i, line := range out {
		lead := continuation
		if i == 0 {
			lead = marker
		}
		out[i] = quote + indent + lead + line
	}

	tr.addBlock(strings.Join(out, "\n"))
}

func (tr *textRenderer) addBlock(block string) {
	if strings.TrimSpace(block) == "" {
		return
	}
	// List items and quoted lines of the same list or quote stay together.
	if n := len(tr.blocks); n > tr.group && (len(tr.lists) > 0 || tr.quotes > 0) {
		tr.blocks[n-1] += "\n" + block
		return
	}
	tr.blocks = append(tr.blocks, block)
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
