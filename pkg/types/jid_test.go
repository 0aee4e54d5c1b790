package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  JID
	}{
		{"user", "1234@s.whatsapp.net", JID{User: "1234", Server: DefaultUserServer}},
		{"device", "1234:5@s.whatsapp.net", JID{User: "1234", Device: 5, Server: DefaultUserServer}},
		{"agent and device", "1234.2:5@hosted", JID{User: "1234", RawAgent: 2, Device: 5, Server: HostedServer}},
		{"agent only", "1234.3@hosted", JID{User: "1234", RawAgent: 3, Server: HostedServer}},
		{"group", "123-456@g.us", JID{User: "123-456", Server: GroupServer}},
		{"bare server", "s.whatsapp.net", ServerJID},
		{"status broadcast", "status@broadcast", StatusBroadcast},
		{"interop", "512-77:2@interop", JID{User: "77", Device: 2, Integrator: 512, Server: InteropServer}},
		{"interop without device", "3-77@interop", JID{User: "77", Integrator: 3, Server: InteropServer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseJIDErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrEmptyJIDServer},
		{"a@", ErrEmptyJIDServer},
		{"a@b@c", ErrTooManyAts},
		{"1.2.3@hosted", ErrTooManyDots},
		{"1:2:3@s.whatsapp.net", ErrTooManyColons},
		{"1.2:3:4@hosted", ErrTooManyColons},
		{"1:2:3.4@s.whatsapp.net", ErrTooManyColons},
		{"1:2.3@hosted", ErrTooManyColons},
		{"x-77:2@interop", ErrInvalidIntegrator},
		{"0-77@interop", ErrInvalidIntegrator},
		{"70000-77@interop", ErrInvalidIntegrator},
		{"1.x@hosted", ErrInvalidAgent},
		{"1.300@hosted", ErrInvalidAgent},
		{"1:x@s.whatsapp.net", ErrInvalidDevice},
		{"1:70000@s.whatsapp.net", ErrInvalidDevice},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseJID(tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidJID)
		})
	}
}

func TestNewADJID(t *testing.T) {
	assert.Equal(t, JID{User: "1", Device: 2, Server: DefaultUserServer}, NewADJID("1", 0, 2))
	assert.Equal(t, JID{User: "1", Device: 2, Server: HiddenUserServer}, NewADJID("1", 1, 2))
	assert.Equal(t, JID{User: "1", RawAgent: 5, Device: 2, Server: HostedServer}, NewADJID("1", 5, 2))

	assert.Equal(t, uint8(1), NewJID("1", HiddenUserServer).ActualAgent())
	assert.Equal(t, uint8(5), NewADJID("1", 5, 0).ActualAgent())
}

func TestJIDHelpers(t *testing.T) {
	jid := JID{User: "1234", Device: 9, Server: DefaultUserServer}
	assert.Equal(t, uint64(1234), jid.UserInt())
	assert.Equal(t, NewJID("1234", DefaultUserServer), jid.ToNonAD())
	assert.False(t, jid.IsEmpty())
	assert.True(t, EmptyJID.IsEmpty())
	assert.Equal(t, uint64(0), NewJID("abc", GroupServer).UserInt())

	text, err := jid.MarshalText()
	require.NoError(t, err)
	var parsed JID
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, jid, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("a@b@c")))
}

func TestJIDTextRoundTrip(t *testing.T) {
	jids := []JID{
		{User: "1234", Server: DefaultUserServer},
		{User: "1234", Device: 300, Server: DefaultUserServer},
		{User: "42", RawAgent: 128, Device: 1, Server: HostedServer},
		{User: "77", Device: 2, Integrator: 512, Server: InteropServer},
		{User: "99", Device: 1000, Server: MessengerServer},
	}
	for _, jid := range jids {
		text, err := jid.MarshalText()
		require.NoError(t, err)
		var parsed JID
		require.NoError(t, parsed.UnmarshalText(text), "%s", text)
		assert.Equal(t, jid, parsed)
	}

	_, err := JID{User: "77", Integrator: 5, Server: DefaultUserServer}.MarshalText()
	assert.ErrorIs(t, err, ErrInvalidIntegrator)
}

func TestPrivacySettings(t *testing.T) {
	var settings PrivacySettings
	require.NoError(t, settings.Set(PrivacySettingTypeOnline, PrivacySettingMatchLastSeen))
	assert.Equal(t, PrivacySettingMatchLastSeen, settings.Online)

	assert.Error(t, settings.Set(PrivacySettingTypeReadReceipts, PrivacySettingContacts))
	assert.Equal(t, PrivacySettingUndefined, settings.ReadReceipts)

	assert.True(t, PrivacySettingTypeCallAdd.Allows(PrivacySettingKnown))
	assert.False(t, PrivacySettingTypeGroupAdd.Allows(PrivacySettingKnown))
	assert.False(t, PrivacySettingType("bogus").Known())
	assert.Error(t, PrivacySettingType("bogus").Validate(PrivacySettingAll))
}

func TestEnumsKeepUnknownValues(t *testing.T) {
	assert.True(t, PresenceAvailable.Known())
	assert.False(t, Presence("invisible").Known())
	assert.Equal(t, "invisible", string(Presence("invisible")))
	assert.True(t, ChatPresenceComposing.Known())
	assert.False(t, ReceiptType("future").Known())
}
