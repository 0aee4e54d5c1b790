package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// FlagCompressed is set in the leading flags byte of a frame payload whose
// node bytes are zlib compressed.
const FlagCompressed = 0x02

// Unpack strips the flags byte from a decrypted frame payload and inflates
// the node bytes if the compressed flag is set.
func Unpack(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame payload", ErrTruncated)
	}
	dataType, data := data[0], data[1:]
	if dataType&FlagCompressed == 0 {
		return data, nil
	}
	decompressor, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("binary: open zlib stream: %w", err)
	}
	defer decompressor.Close()
	out, err := io.ReadAll(decompressor)
	if err != nil {
		return nil, fmt.Errorf("binary: inflate payload: %w", err)
	}
	return out, nil
}

// Compress turns a payload produced by Marshal into its compressed form.
func Compress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty frame payload", ErrTruncated)
	}
	var buf bytes.Buffer
	buf.WriteByte(payload[0] | FlagCompressed)
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload[1:]); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalFrame unpacks and decodes a decrypted frame payload.
func UnmarshalFrame(payload []byte) (*Node, error) {
	data, err := Unpack(payload)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
