package noise

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// HandshakeMessage is the protobuf envelope carried by every handshake frame.
// Exactly one of the three fields is set.
type HandshakeMessage struct {
	ClientHello  *Hello
	ServerHello  *Hello
	ClientFinish *Finish
}

// Hello carries the ephemeral key and, from the server, the encrypted static
// key and certificate chain.
type Hello struct {
	Ephemeral []byte
	Static    []byte
	Payload   []byte
}

// Finish carries the client's encrypted static key and login payload.
type Finish struct {
	Static  []byte
	Payload []byte
}

// CertChain is the server certificate chain sent encrypted in ServerHello.
type CertChain struct {
	Leaf         *NoiseCertificate
	Intermediate *NoiseCertificate
}

// NoiseCertificate is a serialized CertDetails and a signature over it.
type NoiseCertificate struct {
	Details   []byte
	Signature []byte
}

// CertDetails is the signed content of a NoiseCertificate.
type CertDetails struct {
	Serial       uint32
	IssuerSerial uint32
	Key          []byte
	NotBefore    uint64
	NotAfter     uint64
}

const (
	fieldClientHello  protowire.Number = 2
	fieldServerHello  protowire.Number = 3
	fieldClientFinish protowire.Number = 4
)

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// rangeFields calls fn for each field of a protobuf message. Bytes fields are
// passed as value, varints as n. Other wire types are skipped.
func rangeFields(b []byte, fn func(num protowire.Number, value []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch typ {
		case protowire.BytesType:
			value, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(n))
			}
			if err := fn(num, value, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(n))
			}
			if err := fn(num, nil, v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte{}, b...)
}

func (h *Hello) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, h.Ephemeral)
	b = appendBytes(b, 2, h.Static)
	b = appendBytes(b, 3, h.Payload)
	return b
}

func unmarshalHello(b []byte) (*Hello, error) {
	h := &Hello{}
	err := rangeFields(b, func(num protowire.Number, value []byte, _ uint64) error {
		switch num {
		case 1:
			h.Ephemeral = cloneBytes(value)
		case 2:
			h.Static = cloneBytes(value)
		case 3:
			h.Payload = cloneBytes(value)
		}
		return nil
	})
	return h, err
}

func (f *Finish) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, f.Static)
	b = appendBytes(b, 2, f.Payload)
	return b
}

func unmarshalFinish(b []byte) (*Finish, error) {
	f := &Finish{}
	err := rangeFields(b, func(num protowire.Number, value []byte, _ uint64) error {
		switch num {
		case 1:
			f.Static = cloneBytes(value)
		case 2:
			f.Payload = cloneBytes(value)
		}
		return nil
	})
	return f, err
}

// Marshal encodes the envelope.
func (m *HandshakeMessage) Marshal() []byte {
	var b []byte
	if m.ClientHello != nil {
		b = appendBytes(b, fieldClientHello, m.ClientHello.marshal())
	}
	if m.ServerHello != nil {
		b = appendBytes(b, fieldServerHello, m.ServerHello.marshal())
	}
	if m.ClientFinish != nil {
		b = appendBytes(b, fieldClientFinish, m.ClientFinish.marshal())
	}
	return b
}

// UnmarshalHandshakeMessage decodes an envelope. Unknown fields are ignored.
func UnmarshalHandshakeMessage(b []byte) (*HandshakeMessage, error) {
	m := &HandshakeMessage{}
	err := rangeFields(b, func(num protowire.Number, value []byte, _ uint64) error {
		var err error
		switch num {
		case fieldClientHello:
			m.ClientHello, err = unmarshalHello(value)
		case fieldServerHello:
			m.ServerHello, err = unmarshalHello(value)
		case fieldClientFinish:
			m.ClientFinish, err = unmarshalFinish(value)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Marshal encodes the certificate.
func (c *NoiseCertificate) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, c.Details)
	b = appendBytes(b, 2, c.Signature)
	return b
}

func unmarshalNoiseCertificate(b []byte) (*NoiseCertificate, error) {
	c := &NoiseCertificate{}
	err := rangeFields(b, func(num protowire.Number, value []byte, _ uint64) error {
		switch num {
		case 1:
			c.Details = cloneBytes(value)
		case 2:
			c.Signature = cloneBytes(value)
		}
		return nil
	})
	return c, err
}

// Marshal encodes the chain.
func (c *CertChain) Marshal() []byte {
	var b []byte
	if c.Leaf != nil {
		b = appendBytes(b, 1, c.Leaf.Marshal())
	}
	if c.Intermediate != nil {
		b = appendBytes(b, 2, c.Intermediate.Marshal())
	}
	return b
}

// UnmarshalCertChain decodes a certificate chain.
func UnmarshalCertChain(b []byte) (*CertChain, error) {
	c := &CertChain{}
	err := rangeFields(b, func(num protowire.Number, value []byte, _ uint64) error {
		var err error
		switch num {
		case 1:
			c.Leaf, err = unmarshalNoiseCertificate(value)
		case 2:
			c.Intermediate, err = unmarshalNoiseCertificate(value)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Marshal encodes the details.
func (d *CertDetails) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(d.Serial))
	b = appendVarint(b, 2, uint64(d.IssuerSerial))
	b = appendBytes(b, 3, d.Key)
	b = appendVarint(b, 4, d.NotBefore)
	b = appendVarint(b, 5, d.NotAfter)
	return b
}

// UnmarshalCertDetails decodes certificate details.
func UnmarshalCertDetails(b []byte) (*CertDetails, error) {
	d := &CertDetails{}
	err := rangeFields(b, func(num protowire.Number, value []byte, n uint64) error {
		switch num {
		case 1:
			d.Serial = uint32(n)
		case 2:
			d.IssuerSerial = uint32(n)
		case 3:
			d.Key = cloneBytes(value)
		case 4:
			d.NotBefore = n
		case 5:
			d.NotAfter = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
