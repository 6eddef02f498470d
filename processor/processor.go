// Package processor finds translatable regions in an HTML document and
// applies or reverts in-place word substitutions.
package processor

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page. It is not safe for concurrent use; the
// scheduler serialises every access.
type Document struct {
	doc      *goquery.Document
	fragment bool
}

// ParseDocument parses a complete page from r.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &wordweave.ProcessorError{
			Message: "failed to parse HTML",
			Cause:   err,
			Op:      "parse",
		}
	}
	return &Document{doc: doc}, nil
}

// ParseHTML parses content. Input without an <html> element is treated as a
// fragment and serialised back as the body contents only.
func ParseHTML(content string) (*Document, error) {
	d, err := ParseDocument(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	d.fragment = !strings.Contains(strings.ToLower(content), "<html")
	return d, nil
}

// Selection returns the goquery selection of the whole document.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Root returns the <body> element, or the document node when there is none.
func (d *Document) Root() *html.Node {
	if body := d.doc.Find("body"); body.Length() > 0 {
		return body.Get(0)
	}
	return d.doc.Get(0)
}

// HTML serialises the document in its current state.
func (d *Document) HTML() (string, error) {
	var out string
	var err error
	if d.fragment {
		out, err = d.doc.Find("body").Html()
	} else {
		out, err = d.doc.Html()
	}
	if err != nil {
		return "", &wordweave.ProcessorError{
			Message: "failed to serialize HTML",
			Cause:   err,
			Op:      "render",
		}
	}
	return out, nil
}

// Text returns the visible text of the document, whitespace collapsed.
func (d *Document) Text() string {
	return ExtractText(d.Root())
}
