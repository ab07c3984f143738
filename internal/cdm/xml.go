package cdm

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// xmlNode is a generic element tree used so documents parse whether or
// not they declare the CDM namespace.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

func (n *xmlNode) attr(local string) string {
	for _, a := range n.attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// ParseXML reads a message in CCSDS XML form. Element lookup prefers
// the document's declared namespace and falls back to local names, so
// both namespaced and plain documents parse. The two objects come from
// the first two segment elements in document order.
func ParseXML(r io.Reader) (*CDM, error) {
	root, err := decodeTree(r)
	if err != nil {
		return nil, fmt.Errorf("reading XML message: %w", err)
	}
	if root == nil {
		return nil, &ParseError{Field: "document", Msg: "no root element"}
	}

	space := root.name.Space
	matches := func(n *xmlNode, local string) bool {
		if space != "" && n.name.Space == space && n.name.Local == local {
			return true
		}
		return n.name.Local == local
	}

	var segments []*xmlNode
	var findSegments func(n *xmlNode)
	findSegments = func(n *xmlNode) {
		for _, c := range n.children {
			if matches(c, "segment") {
				segments = append(segments, c)
				continue
			}
			findSegments(c)
		}
	}
	findSegments(root)
	if len(segments) < 2 {
		return nil, &ParseError{Field: "segment", Msg: fmt.Sprintf("need 2 object segments, found %d", len(segments))}
	}

	isSegment := func(n *xmlNode) bool {
		for _, s := range segments {
			if n == s {
				return true
			}
		}
		return false
	}

	header := map[string]fieldValue{}
	var collectLeaves func(n *xmlNode, into map[string]fieldValue, skipSegments bool)
	collectLeaves = func(n *xmlNode, into map[string]fieldValue, skipSegments bool) {
		for _, c := range n.children {
			if skipSegments && isSegment(c) {
				continue
			}
			if len(c.children) == 0 {
				text := strings.TrimSpace(c.text.String())
				if text != "" {
					into[c.name.Local] = fieldValue{value: text, unit: c.attr("units")}
				}
				continue
			}
			collectLeaves(c, into, skipSegments)
		}
	}
	collectLeaves(root, header, true)
	if v := root.attr("version"); v != "" {
		header["CCSDS_CDM_VERS"] = fieldValue{value: v}
	}

	objects := [2]map[string]fieldValue{{}, {}}
	for i := 0; i < 2; i++ {
		collectLeaves(segments[i], objects[i], false)
		// Scope is positional in XML; the OBJECT marker is redundant.
		delete(objects[i], "OBJECT")
	}

	return buildCDM(header, objects)
}

// decodeTree builds the element tree from the token stream.
func decodeTree(r io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(r)
	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	return root, nil
}
