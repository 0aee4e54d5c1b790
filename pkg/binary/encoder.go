package binary

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ZentaChain/wasocket/pkg/token"
	"github.com/ZentaChain/wasocket/pkg/types"
)

type binaryEncoder struct {
	data []byte
}

func newEncoder() *binaryEncoder {
	// Leading frame flags byte; 0 means uncompressed.
	return &binaryEncoder{data: []byte{0}}
}

// Marshal encodes the node into a frame payload, including the leading flags byte.
func Marshal(n Node) ([]byte, error) {
	w := newEncoder()
	if err := w.writeNode(n, 0); err != nil {
		return nil, err
	}
	return w.data, nil
}

func (w *binaryEncoder) pushByte(b byte) {
	w.data = append(w.data, b)
}

func (w *binaryEncoder) pushBytes(bytes []byte) {
	w.data = append(w.data, bytes...)
}

func (w *binaryEncoder) pushString(s string) {
	w.data = append(w.data, s...)
}

func (w *binaryEncoder) pushIntN(value, n int) {
	for i := n - 1; i >= 0; i-- {
		w.pushByte(byte(value >> (i * 8)))
	}
}

func (w *binaryEncoder) pushInt20(value int) {
	w.pushBytes([]byte{byte((value >> 16) & 0x0F), byte((value >> 8) & 0xFF), byte(value & 0xFF)})
}

func (w *binaryEncoder) writeByteLength(length int) error {
	switch {
	case length < 256:
		w.pushByte(token.Binary8)
		w.pushByte(byte(length))
	case length < 1<<20:
		w.pushByte(token.Binary20)
		w.pushInt20(length)
	case length < math.MaxInt32:
		w.pushByte(token.Binary32)
		w.pushIntN(length, 4)
	default:
		return fmt.Errorf("%w: length %d too large", ErrInvalidType, length)
	}
	return nil
}

func (w *binaryEncoder) writeListStart(listSize int) error {
	switch {
	case listSize == 0:
		w.pushByte(token.ListEmpty)
	case listSize < 256:
		w.pushByte(token.List8)
		w.pushByte(byte(listSize))
	case listSize < 1<<16:
		w.pushByte(token.List16)
		w.pushIntN(listSize, 2)
	default:
		return fmt.Errorf("%w: list of %d items", ErrInvalidType, listSize)
	}
	return nil
}

func hasContent(content any) bool {
	switch c := content.(type) {
	case nil:
		return false
	case []Node:
		return c != nil
	case []byte:
		return c != nil
	}
	return true
}

func (w *binaryEncoder) writeNode(n Node, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}
	if len(n.Tag) == 0 {
		return fmt.Errorf("%w: empty tag", ErrInvalidNode)
	}

	content := 0
	if hasContent(n.Content) {
		content = 1
	}
	if err := w.writeListStart(2*len(n.Attrs) + 1 + content); err != nil {
		return err
	}
	w.writeString(n.Tag)
	if err := w.writeAttributes(n.Attrs); err != nil {
		return fmt.Errorf("<%s>: %w", n.Tag, err)
	}
	if content == 1 {
		if err := w.writeContent(n.Content, depth); err != nil {
			return fmt.Errorf("<%s>: %w", n.Tag, err)
		}
	}
	return nil
}

func (w *binaryEncoder) writeAttributes(attrs Attrs) error {
	for i, attr := range attrs {
		for _, prev := range attrs[:i] {
			if prev.Key == attr.Key {
				return fmt.Errorf("%w: duplicate attribute %q", ErrInvalidNode, attr.Key)
			}
		}
		w.writeString(attr.Key)
		if err := w.writeValue(attr.Value); err != nil {
			return fmt.Errorf("attribute %q: %w", attr.Key, err)
		}
	}
	return nil
}

func (w *binaryEncoder) writeContent(content any, depth int) error {
	switch typed := content.(type) {
	case []Node:
		// An empty list keeps the List8 marker so it decodes as an empty
		// slice rather than as absent content.
		if len(typed) == 0 {
			w.pushByte(token.List8)
			w.pushByte(0)
			return nil
		}
		if err := w.writeListStart(len(typed)); err != nil {
			return err
		}
		for _, child := range typed {
			if err := w.writeNode(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		return w.writeBytes(typed)
	default:
		return w.writeValue(content)
	}
}

func (w *binaryEncoder) writeValue(value any) error {
	switch typed := value.(type) {
	case string:
		w.writeString(typed)
	case types.JID:
		return w.writeJID(typed)
	case *types.JID:
		if typed == nil {
			return fmt.Errorf("%w: nil JID", ErrInvalidType)
		}
		return w.writeJID(*typed)
	case int:
		w.writeString(strconv.FormatInt(int64(typed), 10))
	case int32:
		w.writeString(strconv.FormatInt(int64(typed), 10))
	case int64:
		w.writeString(strconv.FormatInt(typed, 10))
	case uint:
		w.writeString(strconv.FormatUint(uint64(typed), 10))
	case uint32:
		w.writeString(strconv.FormatUint(uint64(typed), 10))
	case uint64:
		w.writeString(strconv.FormatUint(typed, 10))
	case bool:
		w.writeString(strconv.FormatBool(typed))
	default:
		return fmt.Errorf("%w: %T", ErrInvalidType, value)
	}
	return nil
}

func (w *binaryEncoder) writeBytes(value []byte) error {
	if err := w.writeByteLength(len(value)); err != nil {
		return err
	}
	w.pushBytes(value)
	return nil
}

func (w *binaryEncoder) writeStringRaw(value string) {
	// Strings are bounded by attribute and tag sizes far below Binary32.
	_ = w.writeByteLength(len(value))
	w.pushString(value)
}

func (w *binaryEncoder) writeString(value string) {
	if len(value) == 0 {
		w.writeStringRaw(value)
		return
	}
	if tokenIndex, ok := token.IndexOfSingleToken(value); ok {
		w.pushByte(tokenIndex)
	} else if dictIndex, index, ok := token.IndexOfDoubleByteToken(value); ok {
		w.pushByte(token.Dictionary0 + dictIndex)
		w.pushByte(index)
	} else if validateNibble(value) {
		w.writePackedBytes(value, token.Nibble8)
	} else if validateHex(value) {
		w.writePackedBytes(value, token.Hex8)
	} else {
		w.writeStringRaw(value)
	}
}

// writeJID picks the wire layout for jid. A JID whose fields the layout
// cannot carry is rejected instead of being truncated.
func (w *binaryEncoder) writeJID(jid types.JID) error {
	switch {
	case (jid.Server == types.DefaultUserServer && (jid.Device > 0 || jid.RawAgent > 0)) ||
		jid.Server == types.HiddenUserServer || jid.Server == types.HostedServer:
		if err := checkADJID(jid); err != nil {
			return err
		}
		w.pushByte(token.ADJID)
		w.pushByte(jid.ActualAgent())
		w.pushByte(uint8(jid.Device))
		w.writeString(jid.User)
	case jid.Server == types.MessengerServer:
		if jid.RawAgent > 0 || jid.Integrator > 0 {
			return fmt.Errorf("%w: JID %s carries agent or integrator", ErrInvalidType, jid)
		}
		w.pushByte(token.FBJID)
		w.writeString(jid.User)
		w.pushIntN(int(jid.Device), 2)
		w.writeString(jid.Server)
	case jid.Server == types.InteropServer:
		if jid.RawAgent > 0 {
			return fmt.Errorf("%w: JID %s carries an agent", ErrInvalidType, jid)
		}
		w.pushByte(token.InteropJID)
		w.writeString(jid.User)
		w.pushIntN(int(jid.Device), 2)
		w.pushIntN(int(jid.Integrator), 2)
		w.writeString(jid.Server)
	default:
		if len(jid.Server) == 0 {
			return fmt.Errorf("%w: JID without server", ErrInvalidType)
		}
		if jid.RawAgent > 0 || jid.Device > 0 || jid.Integrator > 0 {
			return fmt.Errorf("%w: server %q has no device form", ErrInvalidType, jid.Server)
		}
		w.pushByte(token.JIDPair)
		if len(jid.User) == 0 {
			w.pushByte(token.ListEmpty)
		} else {
			w.writeString(jid.User)
		}
		w.writeString(jid.Server)
	}
	return nil
}

func checkADJID(jid types.JID) error {
	switch {
	case jid.Device > math.MaxUint8:
		return fmt.Errorf("%w: device %d does not fit an AD JID", ErrInvalidType, jid.Device)
	case jid.Integrator > 0:
		return fmt.Errorf("%w: AD JID with integrator %d", ErrInvalidType, jid.Integrator)
	case jid.Server != types.HostedServer && jid.RawAgent > 0:
		return fmt.Errorf("%w: agent %d on %s", ErrInvalidType, jid.RawAgent, jid.Server)
	case jid.Server == types.HostedServer && jid.RawAgent <= 1:
		// Agents 0 and 1 name the default and lid servers.
		return fmt.Errorf("%w: hosted JID with agent %d", ErrInvalidType, jid.RawAgent)
	}
	return nil
}

func packNibble(value byte) byte {
	switch value {
	case '-':
		return 10
	case '.':
		return 11
	case 0:
		return 15
	default:
		// validateNibble guarantees a digit here.
		return value - '0'
	}
}

func packHex(value byte) byte {
	switch {
	case value >= '0' && value <= '9':
		return value - '0'
	case value >= 'A' && value <= 'F':
		return 10 + value - 'A'
	default:
		// The only other input is the zero padding byte.
		return 15
	}
}

func packBytePair(packer func(byte) byte, part1, part2 byte) byte {
	return (packer(part1) << 4) | packer(part2)
}

func validateNibble(value string) bool {
	if len(value) > token.PackedMax {
		return false
	}
	for _, char := range value {
		if !(char >= '0' && char <= '9') && char != '-' && char != '.' {
			return false
		}
	}
	return true
}

func validateHex(value string) bool {
	if len(value) > token.PackedMax {
		return false
	}
	for _, char := range value {
		if !(char >= '0' && char <= '9') && !(char >= 'A' && char <= 'F') {
			return false
		}
	}
	return true
}

func (w *binaryEncoder) writePackedBytes(value string, dataType byte) {
	w.pushByte(dataType)

	roundedLength := byte((len(value) + 1) / 2)
	if len(value)%2 != 0 {
		roundedLength |= 128
	}
	w.pushByte(roundedLength)

	packer := packNibble
	if dataType == token.Hex8 {
		packer = packHex
	}
	l := len(value) / 2
	for i := 0; i < l; i++ {
		w.pushByte(packBytePair(packer, value[2*i], value[2*i+1]))
	}
	if len(value)%2 != 0 {
		w.pushByte(packBytePair(packer, value[len(value)-1], 0))
	}
}
