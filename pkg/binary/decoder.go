package binary

import (
	"fmt"
	"strings"

	"github.com/ZentaChain/wasocket/pkg/token"
	"github.com/ZentaChain/wasocket/pkg/types"
)

// MaxDepth is the deepest node nesting accepted by the codec.
const MaxDepth = 256

const minNodeSize = 3

type binaryDecoder struct {
	data  []byte
	index int
}

func newDecoder(data []byte) *binaryDecoder {
	return &binaryDecoder{data, 0}
}

// Unmarshal decodes a node from data that has already had its flags byte
// removed (see Unpack). The whole buffer must be consumed.
func Unmarshal(data []byte) (*Node, error) {
	r := newDecoder(data)
	n, err := r.readNode(0)
	if err != nil {
		return nil, err
	}
	if r.index != len(r.data) {
		return n, fmt.Errorf("%w: %d", ErrLeftoverBytes, len(r.data)-r.index)
	}
	return n, nil
}

func (r *binaryDecoder) checkEOS(length int) error {
	if length < 0 || r.index+length > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, length, r.index, len(r.data)-r.index)
	}
	return nil
}

func (r *binaryDecoder) readByte() (byte, error) {
	if err := r.checkEOS(1); err != nil {
		return 0, err
	}
	b := r.data[r.index]
	r.index++
	return b, nil
}

func (r *binaryDecoder) readIntN(n int) (int, error) {
	if err := r.checkEOS(n); err != nil {
		return 0, err
	}
	var ret int
	for i := 0; i < n; i++ {
		ret = ret<<8 | int(r.data[r.index+i])
	}
	r.index += n
	return ret, nil
}

func (r *binaryDecoder) readInt20() (int, error) {
	if err := r.checkEOS(3); err != nil {
		return 0, err
	}
	ret := (int(r.data[r.index])&0x0F)<<16 | int(r.data[r.index+1])<<8 | int(r.data[r.index+2])
	r.index += 3
	return ret, nil
}

func (r *binaryDecoder) readRaw(length int) ([]byte, error) {
	if err := r.checkEOS(length); err != nil {
		return nil, err
	}
	ret := r.data[r.index : r.index+length]
	r.index += length
	return ret, nil
}

func (r *binaryDecoder) readListSize(tag byte) (int, error) {
	switch tag {
	case token.ListEmpty:
		return 0, nil
	case token.List8:
		return r.readIntN(1)
	case token.List16:
		return r.readIntN(2)
	default:
		return 0, fmt.Errorf("%w: list size marker %d", ErrInvalidMarker, tag)
	}
}

func (r *binaryDecoder) readNode(depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	sizeTag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	listSize, err := r.readListSize(sizeTag)
	if err != nil {
		return nil, err
	}
	if listSize == 0 {
		return nil, fmt.Errorf("%w: empty node list", ErrInvalidNode)
	}

	rawTag, err := r.read(true, depth)
	if err != nil {
		return nil, err
	}
	tag, ok := rawTag.(string)
	if !ok || len(tag) == 0 {
		return nil, fmt.Errorf("%w: missing tag", ErrInvalidNode)
	}

	ret := &Node{Tag: tag}
	ret.Attrs, err = r.readAttributes((listSize-1)>>1, depth)
	if err != nil {
		return nil, fmt.Errorf("<%s>: %w", tag, err)
	}
	if listSize%2 == 1 {
		return ret, nil
	}

	ret.Content, err = r.read(false, depth)
	if err != nil {
		return nil, fmt.Errorf("<%s>: %w", tag, err)
	}
	return ret, nil
}

func (r *binaryDecoder) readAttributes(n, depth int) (Attrs, error) {
	if n == 0 {
		return nil, nil
	}
	ret := make(Attrs, 0, n)
	for i := 0; i < n; i++ {
		keyIfc, err := r.read(true, depth)
		if err != nil {
			return nil, err
		}
		key, ok := keyIfc.(string)
		if !ok {
			return nil, fmt.Errorf("%w: attribute key at index %d is %T", ErrInvalidNode, i, keyIfc)
		}
		if _, dup := ret.Get(key); dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q", ErrInvalidNode, key)
		}
		value, err := r.read(true, depth)
		if err != nil {
			return nil, err
		}
		switch value.(type) {
		case string, types.JID:
		default:
			return nil, fmt.Errorf("%w: attribute %q has %T value", ErrInvalidNode, key, value)
		}
		ret = append(ret, Attr{Key: key, Value: value})
	}
	return ret, nil
}

func (r *binaryDecoder) readList(tag byte, depth int) ([]Node, error) {
	size, err := r.readListSize(tag)
	if err != nil {
		return nil, err
	}
	// Every node takes at least a list marker, a size and a tag token.
	if size > (len(r.data)-r.index)/minNodeSize {
		return nil, fmt.Errorf("%w: list of %d nodes with %d bytes left", ErrTruncated, size, len(r.data)-r.index)
	}
	ret := make([]Node, size)
	for i := 0; i < size; i++ {
		n, err := r.readNode(depth + 1)
		if err != nil {
			return nil, err
		}
		ret[i] = *n
	}
	return ret, nil
}

func (r *binaryDecoder) readBytesOrString(length int, asString bool) (any, error) {
	data, err := r.readRaw(length)
	if err != nil {
		return nil, err
	}
	if asString {
		return string(data), nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// readJIDField reads the user or server of a JID. Only string and token
// markers are accepted, so a JID can never nest inside another one.
func (r *binaryDecoder) readJIDField(allowEmpty bool, depth int) (string, error) {
	if err := r.checkEOS(1); err != nil {
		return "", err
	}
	switch marker := r.data[r.index]; marker {
	case token.ListEmpty:
		if allowEmpty {
			r.index++
			return "", nil
		}
		return "", fmt.Errorf("%w: empty JID field", ErrInvalidNode)
	case token.List8, token.List16, token.FBJID, token.InteropJID, token.JIDPair, token.ADJID:
		return "", fmt.Errorf("%w: marker %d inside JID", ErrInvalidNode, marker)
	}
	val, err := r.read(true, depth)
	if err != nil {
		return "", err
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidNode, val)
	}
	return str, nil
}

func (r *binaryDecoder) read(asString bool, depth int) (any, error) {
	tagByte, err := r.readByte()
	if err != nil {
		return nil, err
	}

	switch tagByte {
	case token.ListEmpty:
		return nil, nil
	case token.List8, token.List16:
		if asString {
			return nil, fmt.Errorf("%w: node list where a string was expected", ErrInvalidNode)
		}
		return r.readList(tagByte, depth)
	case token.Binary8:
		size, err := r.readIntN(1)
		if err != nil {
			return nil, err
		}
		return r.readBytesOrString(size, asString)
	case token.Binary20:
		size, err := r.readInt20()
		if err != nil {
			return nil, err
		}
		return r.readBytesOrString(size, asString)
	case token.Binary32:
		size, err := r.readIntN(4)
		if err != nil {
			return nil, err
		}
		return r.readBytesOrString(size, asString)
	case token.Dictionary0, token.Dictionary1, token.Dictionary2, token.Dictionary3:
		i, err := r.readIntN(1)
		if err != nil {
			return nil, err
		}
		str, err := token.GetDoubleToken(int(tagByte-token.Dictionary0), i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return str, nil
	case token.FBJID:
		return r.readFBJID(depth)
	case token.InteropJID:
		return r.readInteropJID(depth)
	case token.JIDPair:
		return r.readJIDPair(depth)
	case token.ADJID:
		return r.readADJID(depth)
	case token.Nibble8, token.Hex8:
		return r.readPacked8(tagByte)
	default:
		str, err := token.GetSingleToken(int(tagByte))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return str, nil
	}
}

func (r *binaryDecoder) readJIDPair(depth int) (types.JID, error) {
	user, err := r.readJIDField(true, depth)
	if err != nil {
		return types.JID{}, err
	}
	server, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	if len(server) == 0 {
		return types.JID{}, fmt.Errorf("%w: JID pair without server", ErrInvalidNode)
	}
	return types.NewJID(user, server), nil
}

func (r *binaryDecoder) readADJID(depth int) (types.JID, error) {
	agent, err := r.readByte()
	if err != nil {
		return types.JID{}, err
	}
	device, err := r.readByte()
	if err != nil {
		return types.JID{}, err
	}
	user, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	return types.NewADJID(user, agent, device), nil
}

func (r *binaryDecoder) readFBJID(depth int) (types.JID, error) {
	user, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	device, err := r.readIntN(2)
	if err != nil {
		return types.JID{}, err
	}
	server, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	if server != types.MessengerServer {
		return types.JID{}, fmt.Errorf("%w: FB JID server %q", ErrInvalidNode, server)
	}
	return types.JID{User: user, Device: uint16(device), Server: server}, nil
}

func (r *binaryDecoder) readInteropJID(depth int) (types.JID, error) {
	user, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	device, err := r.readIntN(2)
	if err != nil {
		return types.JID{}, err
	}
	integrator, err := r.readIntN(2)
	if err != nil {
		return types.JID{}, err
	}
	server, err := r.readJIDField(false, depth)
	if err != nil {
		return types.JID{}, err
	}
	if server != types.InteropServer {
		return types.JID{}, fmt.Errorf("%w: interop JID server %q", ErrInvalidNode, server)
	}
	return types.JID{User: user, Device: uint16(device), Integrator: uint16(integrator), Server: server}, nil
}

func unpackNibble(value byte) (byte, error) {
	switch {
	case value < 10:
		return '0' + value, nil
	case value == 10:
		return '-', nil
	case value == 11:
		return '.', nil
	case value == 15:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: nibble %d", ErrInvalidPacked, value)
	}
}

func unpackHex(value byte) (byte, error) {
	switch {
	case value < 10:
		return '0' + value, nil
	case value < 16:
		return 'A' + value - 10, nil
	default:
		return 0, fmt.Errorf("%w: hex %d", ErrInvalidPacked, value)
	}
}

func unpackByte(tag byte, value byte) (byte, error) {
	if tag == token.Nibble8 {
		return unpackNibble(value)
	}
	return unpackHex(value)
}

func (r *binaryDecoder) readPacked8(tag byte) (string, error) {
	startByte, err := r.readByte()
	if err != nil {
		return "", err
	}
	length := int(startByte & 127)
	if err = r.checkEOS(length); err != nil {
		return "", err
	}

	var build strings.Builder
	build.Grow(length * 2)
	for i := 0; i < length; i++ {
		currByte := r.data[r.index]
		r.index++
		upper, err := unpackByte(tag, (currByte&0xF0)>>4)
		if err != nil {
			return "", err
		}
		lower, err := unpackByte(tag, currByte&0x0F)
		if err != nil {
			return "", err
		}
		build.WriteByte(upper)
		build.WriteByte(lower)
	}

	ret := build.String()
	if startByte>>7 != 0 {
		if len(ret) == 0 {
			return "", fmt.Errorf("%w: odd flag on empty value", ErrInvalidPacked)
		}
		ret = ret[:len(ret)-1]
	}
	return ret, nil
}
