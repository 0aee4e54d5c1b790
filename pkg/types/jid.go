// Package types contains the addressing identifiers and small protocol value
// types that travel as node attribute values.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Known JID servers.
const (
	DefaultUserServer = "s.whatsapp.net"
	GroupServer       = "g.us"
	LegacyUserServer  = "c.us"
	BroadcastServer   = "broadcast"
	HiddenUserServer  = "lid"
	MessengerServer   = "msgr"
	InteropServer     = "interop"
	NewsletterServer  = "newsletter"
	HostedServer      = "hosted"
)

// Some common JIDs.
var (
	EmptyJID           = JID{}
	ServerJID          = NewJID("", DefaultUserServer)
	GroupServerJID     = NewJID("", GroupServer)
	BroadcastServerJID = NewJID("", BroadcastServer)
	StatusBroadcast    = NewJID("status", BroadcastServer)
)

var (
	ErrInvalidJID     = errors.New("types: invalid JID")
	ErrTooManyAts     = fmt.Errorf("%w: unexpected number of @ in JID", ErrInvalidJID)
	ErrTooManyDots    = fmt.Errorf("%w: unexpected number of dots in JID", ErrInvalidJID)
	ErrTooManyColons  = fmt.Errorf("%w: unexpected number of colons in JID", ErrInvalidJID)
	ErrInvalidAgent   = fmt.Errorf("%w: invalid agent", ErrInvalidJID)
	ErrInvalidDevice  = fmt.Errorf("%w: invalid device", ErrInvalidJID)
	ErrEmptyJIDServer = fmt.Errorf("%w: empty server", ErrInvalidJID)

	ErrInvalidIntegrator = fmt.Errorf("%w: invalid integrator", ErrInvalidJID)
)

// JID is the protocol's addressing identifier.
type JID struct {
	User       string
	RawAgent   uint8
	Device     uint16
	Integrator uint16
	Server     string
}

// NewJID creates a JID without agent or device.
func NewJID(user, server string) JID {
	return JID{User: user, Server: server}
}

// NewADJID creates a device JID from the compact binary agent/device pair.
// Agent 0 is the default user server, 1 is the hidden (lid) server and any
// other agent is a hosted identity.
func NewADJID(user string, agent, device uint8) JID {
	var server string
	switch agent {
	case 0:
		server = DefaultUserServer
	case 1:
		server = HiddenUserServer
		agent = 0
	default:
		server = HostedServer
	}
	return JID{
		User:     user,
		RawAgent: agent,
		Device:   uint16(device),
		Server:   server,
	}
}

// ActualAgent returns the agent byte used by the binary AD-JID form.
func (jid JID) ActualAgent() uint8 {
	switch jid.Server {
	case DefaultUserServer:
		return 0
	case HiddenUserServer:
		return 1
	default:
		return jid.RawAgent
	}
}

// UserInt returns the user part parsed as an integer, or 0 if it is not numeric.
func (jid JID) UserInt() uint64 {
	number, _ := strconv.ParseUint(jid.User, 10, 64)
	return number
}

// ToNonAD returns the JID without agent and device.
func (jid JID) ToNonAD() JID {
	return JID{
		User:       jid.User,
		Server:     jid.Server,
		Integrator: jid.Integrator,
	}
}

// IsEmpty returns true if the JID has no server, which is required for all JIDs.
func (jid JID) IsEmpty() bool {
	return len(jid.Server) == 0
}

// String formats the JID as user[.agent][:device]@server. Interop JIDs
// prefix the user with "integrator-".
func (jid JID) String() string {
	var b strings.Builder
	if len(jid.User) > 0 || jid.RawAgent > 0 || jid.Device > 0 || jid.Integrator > 0 {
		if jid.Integrator > 0 {
			b.WriteString(strconv.FormatUint(uint64(jid.Integrator), 10))
			b.WriteByte('-')
		}
		b.WriteString(jid.User)
		if jid.RawAgent > 0 {
			b.WriteByte('.')
			b.WriteString(strconv.FormatUint(uint64(jid.RawAgent), 10))
		}
		if jid.Device > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatUint(uint64(jid.Device), 10))
		}
		b.WriteByte('@')
	}
	b.WriteString(jid.Server)
	return b.String()
}

// MarshalText implements encoding.TextMarshaler. Only interop JIDs have a
// text form for the integrator.
func (jid JID) MarshalText() ([]byte, error) {
	if jid.Integrator > 0 && jid.Server != InteropServer {
		return nil, fmt.Errorf("%w: integrator on %s", ErrInvalidIntegrator, jid.Server)
	}
	return []byte(jid.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (jid *JID) UnmarshalText(val []byte) error {
	out, err := ParseJID(string(val))
	if err != nil {
		return err
	}
	*jid = out
	return nil
}

// ParseJID parses the text form of a JID. A string without @ is a bare server.
func ParseJID(jid string) (JID, error) {
	parts := strings.Split(jid, "@")
	switch len(parts) {
	case 1:
		if len(parts[0]) == 0 {
			return JID{}, ErrEmptyJIDServer
		}
		return NewJID("", parts[0]), nil
	case 2:
	default:
		return JID{}, ErrTooManyAts
	}
	if len(parts[1]) == 0 {
		return JID{}, ErrEmptyJIDServer
	}

	parsed := JID{User: parts[0], Server: parts[1]}
	if parsed.Server == InteropServer {
		if prefix, user, ok := strings.Cut(parsed.User, "-"); ok {
			integrator, err := strconv.ParseUint(prefix, 10, 16)
			if err != nil || integrator == 0 {
				return JID{}, fmt.Errorf("%w %q", ErrInvalidIntegrator, prefix)
			}
			parsed.Integrator = uint16(integrator)
			parsed.User = user
		}
	}
	user, agentDevice, hasDot := strings.Cut(parsed.User, ".")
	if hasDot {
		if strings.Contains(agentDevice, ".") {
			return JID{}, ErrTooManyDots
		}
		if strings.Contains(user, ":") {
			return JID{}, ErrTooManyColons
		}
		parsed.User = user
		agentPart, devicePart, hasColon := strings.Cut(agentDevice, ":")
		if strings.Contains(devicePart, ":") {
			return JID{}, ErrTooManyColons
		}
		agent, err := strconv.ParseUint(agentPart, 10, 8)
		if err != nil {
			return JID{}, fmt.Errorf("%w %q: %v", ErrInvalidAgent, agentPart, err)
		}
		parsed.RawAgent = uint8(agent)
		if hasColon {
			device, err := parseDevice(devicePart)
			if err != nil {
				return JID{}, err
			}
			parsed.Device = device
		}
	} else if user, devicePart, hasColon := strings.Cut(parsed.User, ":"); hasColon {
		if strings.Contains(devicePart, ":") {
			return JID{}, ErrTooManyColons
		}
		parsed.User = user
		device, err := parseDevice(devicePart)
		if err != nil {
			return JID{}, err
		}
		parsed.Device = device
	}
	return parsed, nil
}

func parseDevice(raw string) (uint16, error) {
	device, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidDevice, raw, err)
	}
	return uint16(device), nil
}
