package qbxml

// Attr is a single XML attribute on a Node.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a qbXML document: a name, optional attributes,
// and either character data or ordered child elements. Element order is
// significant in qbXML, so requests are built as node slices rather than
// maps.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []Node
}

// Nodes is an ordered sequence of sibling elements.
type Nodes []Node

// El builds an element with the given children.
func El(name string, children ...Node) Node {
	return Node{Name: name, Children: children}
}

// Text builds a leaf element containing character data.
func Text(name, value string) Node {
	return Node{Name: name, Text: value}
}

// WithAttr returns a copy of the node with an attribute appended.
func (n Node) WithAttr(name, value string) Node {
	attrs := make([]Attr, 0, len(n.Attrs)+1)
	attrs = append(attrs, n.Attrs...)
	attrs = append(attrs, Attr{Name: name, Value: value})
	n.Attrs = attrs
	return n
}

// Find walks the tree following the given element names, taking the first
// matching child at each step. It returns false if any step is missing.
func (n Node) Find(path ...string) (Node, bool) {
	cur := n
	for _, name := range path {
		found := false
		for _, c := range cur.Children {
			if c.Name == name {
				cur = c
				found = true
				break
			}
		}
		if !found {
			return Node{}, false
		}
	}
	return cur, true
}

// Value returns the character data of the element at the given path, or
// the empty string if the path does not exist.
func (n Node) Value(path ...string) string {
	c, ok := n.Find(path...)
	if !ok {
		return ""
	}
	return c.Text
}

// Attr returns the value of the named attribute, or the empty string.
func (n Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}
