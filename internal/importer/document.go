package importer

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// element is a generic XML element: its leading character data and its child
// elements in document order. Attributes are not used by the importer.
type element struct {
	Name     string
	Text     string // Character data before the first child element or comment
	Children []*element

	textDone bool
}

// parseDocument reads a whole XML document and returns its root element.
// Non UTF-8 documents are decoded using the charset from their XML declaration.
// Anything but whitespace, comments and processing instructions outside the
// root element makes the document invalid.
func parseDocument(r io.Reader) (*element, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var root *element
	var open []*element
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(open) == 0 {
				return nil, fmt.Errorf("junk after document element: <%s>", t.Name.Local)
			}
			el := &element{Name: t.Name.Local}
			if root == nil {
				root = el
			} else {
				parent := open[len(open)-1]
				parent.textDone = true
				parent.Children = append(parent.Children, el)
			}
			open = append(open, el)
		case xml.EndElement:
			open = open[:len(open)-1]
		case xml.CharData:
			if len(open) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("text outside the document element")
				}
				continue
			}
			if top := open[len(open)-1]; !top.textDone {
				top.Text += string(t)
			}
		case xml.Comment, xml.ProcInst:
			if len(open) > 0 {
				open[len(open)-1].textDone = true
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("element <%s> is not closed", open[len(open)-1].Name)
	}
	return root, nil
}

// items returns the direct children of e named tag.
func (e *element) items(tag string) []*element {
	var out []*element
	for _, child := range e.Children {
		if child.Name == tag {
			out = append(out, child)
		}
	}
	return out
}

// find returns the first direct child named tag, or nil.
func (e *element) find(tag string) *element {
	for _, child := range e.Children {
		if child.Name == tag {
			return child
		}
	}
	return nil
}

// text returns the trimmed text of the first child named tag. It returns nil
// when the child is missing or its text is blank.
func (e *element) text(tag string) *string {
	child := e.find(tag)
	if child == nil {
		return nil
	}
	s := strings.TrimSpace(child.Text)
	if s == "" {
		return nil
	}
	return &s
}
