// Package html extracts readable text from HTML documents.
// Scripts, styles and document metadata are dropped; block elements
// become line or paragraph breaks so the splitter can honour them.
package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Generic MIME extractor, higher than plaintext
}

// Extract returns the visible text of the document as a single page.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawContent) ([]domain.Page, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := Text(raw.Data)
	if err != nil {
		return nil, err
	}
	return []domain.Page{{Number: 1, Text: text}}, nil
}

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

// paragraphs end with a blank line; lines end with a single newline.
var (
	paragraphs = map[atom.Atom]bool{
		atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
		atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
		atom.Blockquote: true, atom.Pre: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
		atom.Header: true, atom.Footer: true, atom.Main: true, atom.Aside: true, atom.Nav: true,
	}
	lines = map[atom.Atom]bool{
		atom.Br: true, atom.Hr: true, atom.Li: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
	}
)

// Pre-compiled regular expressions for whitespace cleanup.
var (
	multiSpaces   = regexp.MustCompile(`[ \t\r\f\v]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Text parses an HTML document and returns its readable text.
func Text(data []byte) (string, error) {
	root, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %w", domain.ErrUnsupportedFormat, err)
	}

	var b strings.Builder
	walk(&b, root)

	content := multiSpaces.ReplaceAllString(b.String(), " ")
	rawLines := strings.Split(content, "\n")
	for i, line := range rawLines {
		rawLines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(rawLines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content), nil
}

func walk(b *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case nethtml.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Td || n.DataAtom == atom.Th {
			b.WriteString(" ")
		}
	case nethtml.CommentNode, nethtml.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}

	if n.Type == nethtml.ElementNode {
		switch {
		case paragraphs[n.DataAtom]:
			b.WriteString("\n\n")
		case lines[n.DataAtom]:
			b.WriteString("\n")
		}
	}
}
