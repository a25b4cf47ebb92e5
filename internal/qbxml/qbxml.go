// Package qbxml encodes and decodes qbXML documents, the XML dialect spoken
// by the QuickBooks Online Edition AppGateway. Documents are modelled as
// ordered Node trees rather than structs because the message catalog is
// large, element order is significant, and responses routinely carry tags
// the client has never seen.
package qbxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DefaultVersion is the highest qbXML version the Online Edition gateway
// accepts.
const DefaultVersion = "6.0"

// rootName is the document element wrapping every request and response.
const rootName = "QBXML"

// Marshal renders an envelope (the ordered top-level message sets, e.g.
// SignonMsgsRq followed by QBXMLMsgsRq) as a complete qbXML document:
// XML declaration, qbxml version processing instruction, and the QBXML
// root element. An empty version selects DefaultVersion.
func Marshal(envelope Nodes, version string) ([]byte, error) {
	if version == "" {
		version = DefaultVersion
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	tokens := []xml.Token{
		xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0"`)},
		xml.ProcInst{Target: "qbxml", Inst: []byte(`version="` + version + `"`)},
	}
	for _, tok := range tokens {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, fmt.Errorf("encode prolog: %w", err)
		}
	}

	root := Node{Name: rootName, Children: envelope}
	if err := encodeNode(enc, root); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeNode writes one element and its subtree to the encoder.
func encodeNode(enc *xml.Encoder, n Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: a.Name},
			Value: a.Value,
		})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if len(n.Children) > 0 {
		for _, c := range n.Children {
			if err := encodeNode(enc, c); err != nil {
				return err
			}
		}
	} else if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Unmarshal parses a qbXML document and returns its root element as a Node
// tree. Processing instructions, comments, and inter-element whitespace are
// discarded; attributes (statusCode, statusSeverity, ...) are preserved.
// The root is returned whatever its name, so callers can decode fragments
// as well as full QBXML documents.
func Unmarshal(data []byte) (Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Node{}, fmt.Errorf("decode document: no root element")
		}
		if err != nil {
			return Node{}, fmt.Errorf("decode document: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			n, err := decodeElement(dec, start)
			if err != nil {
				return Node{}, fmt.Errorf("decode document: %w", err)
			}
			return n, nil
		}
	}
}

// decodeElement consumes tokens up to and including the element's end tag.
func decodeElement(dec *xml.Decoder, start xml.StartElement) (Node, error) {
	n := Node{Name: start.Name.Local}
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return Node{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			if s := strings.TrimSpace(string(t)); s != "" {
				n.Text += s
			}
		case xml.EndElement:
			return n, nil
		}
	}
}
