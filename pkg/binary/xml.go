package binary

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ZentaChain/wasocket/pkg/types"
)

// XMLString renders the node as indented XML for logs and debugging tools.
// Binary content is shown as hex when it is not printable UTF-8.
func (n *Node) XMLString() string {
	var b strings.Builder
	n.writeXML(&b, 0)
	return b.String()
}

func (n *Node) writeXML(b *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)
	b.WriteString(pad)
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, attr := range n.Attrs {
		fmt.Fprintf(b, " %s=%q", attr.Key, attrString(attr.Value))
	}

	switch content := n.Content.(type) {
	case nil:
		b.WriteString("/>")
	case []Node:
		b.WriteString(">\n")
		for _, child := range content {
			child.writeXML(b, indent+1)
			b.WriteByte('\n')
		}
		b.WriteString(pad)
		fmt.Fprintf(b, "</%s>", n.Tag)
	case []byte:
		b.WriteByte('>')
		if utf8.Valid(content) && isPrintable(content) {
			b.Write(content)
		} else {
			b.WriteString("<!-- ")
			b.WriteString(hex.EncodeToString(content))
			b.WriteString(" -->")
		}
		fmt.Fprintf(b, "</%s>", n.Tag)
	default:
		fmt.Fprintf(b, ">%s</%s>", attrString(content), n.Tag)
	}
}

func attrString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case types.JID:
		return typed.String()
	default:
		return fmt.Sprint(v)
	}
}

func isPrintable(data []byte) bool {
	for _, c := range string(data) {
		if c < 0x20 && c != '\n' && c != '\t' {
			return false
		}
	}
	return true
}
