package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/wasocket/pkg/token"
	"github.com/ZentaChain/wasocket/pkg/types"
)

func TestJIDWireLayouts(t *testing.T) {
	tests := []struct {
		name   string
		jid    types.JID
		marker byte
	}{
		{"plain user", types.NewJID("1234", types.DefaultUserServer), token.JIDPair},
		{"server only", types.ServerJID, token.JIDPair},
		{"group", types.NewJID("123-456", types.GroupServer), token.JIDPair},
		{"device on default server", types.JID{User: "1234", Device: 3, Server: types.DefaultUserServer}, token.ADJID},
		{"hidden user", types.NewJID("5678", types.HiddenUserServer), token.ADJID},
		{"hosted agent", types.JID{User: "42", RawAgent: 128, Device: 1, Server: types.HostedServer}, token.ADJID},
		{"messenger", types.JID{User: "99", Device: 1000, Server: types.MessengerServer}, token.FBJID},
		{"interop", types.JID{User: "77", Device: 2, Integrator: 512, Server: types.InteropServer}, token.InteropJID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(Node{Tag: "user", Content: tt.jid})
			require.NoError(t, err)
			// flags, list8, size, tag token, then the value marker
			require.Greater(t, len(data), 4)
			assert.Equal(t, tt.marker, data[4])

			decoded, err := Unmarshal(data[1:])
			require.NoError(t, err)
			assert.Equal(t, tt.jid, decoded.Content)
			assert.Equal(t, tt.jid.String(), decoded.Content.(types.JID).String())
		})
	}
}

func TestJIDPointerAttribute(t *testing.T) {
	jid := types.NewJID("1234", types.DefaultUserServer)
	decoded := roundTrip(t, Node{Tag: "message", Attrs: Attrs{{Key: "to", Value: &jid}}})
	assert.Equal(t, jid, decoded.AttrGetter().JID("to"))
}

func TestDecodeRejectsWrongJIDServer(t *testing.T) {
	userToken := tokenByte(t, "user")
	gus := tokenByte(t, "g.us")
	// <user> with an FB JID whose server is g.us
	data := []byte{token.List8, 2, userToken, token.FBJID, token.Nibble8, 0x01, 0x99, 0x00, 0x01, gus}
	_, err := Unmarshal(data)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestMarshalRejectsJIDsWithoutWireForm(t *testing.T) {
	tests := []struct {
		name string
		jid  types.JID
	}{
		{"device above one byte", types.JID{User: "1234", Device: 300, Server: types.DefaultUserServer}},
		{"hosted with lid agent", types.JID{User: "1234", RawAgent: 1, Device: 2, Server: types.HostedServer}},
		{"hosted without agent", types.JID{User: "1234", Device: 2, Server: types.HostedServer}},
		{"agent on default server", types.JID{User: "1234", RawAgent: 5, Server: types.DefaultUserServer}},
		{"agent on lid", types.JID{User: "1234", RawAgent: 5, Device: 1, Server: types.HiddenUserServer}},
		{"integrator on lid", types.JID{User: "1234", Integrator: 3, Server: types.HiddenUserServer}},
		{"device on group", types.JID{User: "123-456", Device: 1, Server: types.GroupServer}},
		{"agent on messenger", types.JID{User: "99", RawAgent: 2, Server: types.MessengerServer}},
		{"agent on interop", types.JID{User: "77", RawAgent: 2, Integrator: 1, Server: types.InteropServer}},
		{"no server", types.JID{User: "1234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(Node{Tag: "user", Content: tt.jid})
			assert.ErrorIs(t, err, ErrInvalidType)

			_, err = Marshal(Node{Tag: "message", Attrs: Attrs{{Key: "to", Value: tt.jid}}})
			assert.ErrorIs(t, err, ErrInvalidType)
		})
	}
}

func TestJIDBinaryRoundTripAtLimits(t *testing.T) {
	jids := []types.JID{
		{User: "1234", Device: 255, Server: types.DefaultUserServer},
		{User: "1234", RawAgent: 2, Device: 255, Server: types.HostedServer},
		{User: "1234", Device: 99, Server: types.HiddenUserServer},
		{User: "99", Device: 65535, Server: types.MessengerServer},
		{User: "77", Device: 65535, Integrator: 65535, Server: types.InteropServer},
	}
	for _, jid := range jids {
		decoded := roundTrip(t, Node{Tag: "user", Content: jid})
		assert.Equal(t, jid, decoded.Content)
	}
}
