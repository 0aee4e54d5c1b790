// Package binary implements the compact binary encoding of protocol nodes.
//
// A node is a tag, an ordered attribute list and optional content. Strings are
// compressed through the token dictionaries, numeric and upper-case hex
// strings are nibble packed, and JIDs use dedicated layouts so they never go
// through their text form on the wire.
package binary

// Attr is one attribute of a node. Value is a string or a types.JID after
// decoding; the encoder additionally accepts integers and booleans.
type Attr struct {
	Key   string
	Value any
}

// Attrs is the ordered attribute list of a node. Keys are unique.
type Attrs []Attr

// Get returns the value for key.
func (a Attrs) Get(key string) (any, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key or appends a new attribute.
func (a *Attrs) Set(key string, value any) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Key: key, Value: value})
}

// Node represents an XML-like element of the protocol.
//
// Content is nil, []Node, []byte, string or types.JID.
type Node struct {
	Tag     string
	Attrs   Attrs
	Content any
}

// GetChildren returns the Content of the node as a list of nodes. If the
// content is not a list of nodes, this returns nil.
func (n *Node) GetChildren() []Node {
	if n.Content == nil {
		return nil
	}
	children, ok := n.Content.([]Node)
	if !ok {
		return nil
	}
	return children
}

// GetChildrenByTag returns the children of the node with the given tag.
func (n *Node) GetChildrenByTag(tag string) (children []Node) {
	for _, node := range n.GetChildren() {
		if node.Tag == tag {
			children = append(children, node)
		}
	}
	return
}

// GetOptionalChildByTag follows the given tags through the tree and returns
// the final node, or false if any step is missing.
func (n *Node) GetOptionalChildByTag(tags ...string) (val Node, ok bool) {
	val = *n
Outer:
	for _, tag := range tags {
		for _, child := range val.GetChildren() {
			if child.Tag == tag {
				val = child
				continue Outer
			}
		}
		return Node{}, false
	}
	return val, true
}

// GetChildByTag does the same as GetOptionalChildByTag, but returns an empty
// node instead of false when a tag is missing.
func (n *Node) GetChildByTag(tags ...string) Node {
	node, _ := n.GetOptionalChildByTag(tags...)
	return node
}

// AttrGetter returns a helper for reading typed attribute values.
func (n *Node) AttrGetter() *AttrGetter {
	return &AttrGetter{attrs: n.Attrs}
}
