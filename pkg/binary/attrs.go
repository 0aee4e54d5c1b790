package binary

import (
	"fmt"
	"strconv"

	"github.com/ZentaChain/wasocket/pkg/types"
)

// AttrGetter reads typed values out of a node's attributes and collects the
// errors, so a handler can read every field and check once at the end.
type AttrGetter struct {
	attrs  Attrs
	Errors []error
}

func (ag *AttrGetter) fail(err error) {
	ag.Errors = append(ag.Errors, err)
}

func (ag *AttrGetter) getString(key string, require bool) (string, bool) {
	val, ok := ag.attrs.Get(key)
	if !ok {
		if require {
			ag.fail(fmt.Errorf("didn't find required attribute %q", key))
		}
		return "", false
	}
	switch typed := val.(type) {
	case string:
		return typed, true
	case types.JID:
		return typed.String(), true
	default:
		ag.fail(fmt.Errorf("expected attribute %q to be string, but was %T", key, val))
		return "", false
	}
}

// OptionalString returns the string value of key, or "" if missing.
func (ag *AttrGetter) OptionalString(key string) string {
	s, _ := ag.getString(key, false)
	return s
}

// String returns the string value of key and records an error if missing.
func (ag *AttrGetter) String(key string) string {
	s, _ := ag.getString(key, true)
	return s
}

func (ag *AttrGetter) getJID(key string, require bool) (types.JID, bool) {
	val, ok := ag.attrs.Get(key)
	if !ok {
		if require {
			ag.fail(fmt.Errorf("didn't find required JID attribute %q", key))
		}
		return types.JID{}, false
	}
	switch typed := val.(type) {
	case types.JID:
		return typed, true
	case string:
		jid, err := types.ParseJID(typed)
		if err != nil {
			ag.fail(fmt.Errorf("attribute %q: %w", key, err))
			return types.JID{}, false
		}
		return jid, true
	default:
		ag.fail(fmt.Errorf("expected attribute %q to be JID, but was %T", key, val))
		return types.JID{}, false
	}
}

// OptionalJID returns the JID value of key, or the empty JID if missing.
func (ag *AttrGetter) OptionalJID(key string) types.JID {
	jid, _ := ag.getJID(key, false)
	return jid
}

// JID returns the JID value of key and records an error if missing.
func (ag *AttrGetter) JID(key string) types.JID {
	jid, _ := ag.getJID(key, true)
	return jid
}

// Int64 parses the value of key as a base 10 integer.
func (ag *AttrGetter) Int64(key string) int64 {
	s, ok := ag.getString(key, true)
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		ag.fail(fmt.Errorf("failed to parse int in attribute %q: %w", key, err))
	}
	return v
}

// Bool parses the value of key as a boolean; a missing key is false.
func (ag *AttrGetter) Bool(key string) bool {
	s, ok := ag.getString(key, false)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		ag.fail(fmt.Errorf("failed to parse bool in attribute %q: %w", key, err))
	}
	return v
}

// OK returns true if there are no errors.
func (ag *AttrGetter) OK() bool {
	return len(ag.Errors) == 0
}

// Error returns the first recorded error, if any.
func (ag *AttrGetter) Error() error {
	if len(ag.Errors) == 0 {
		return nil
	}
	if len(ag.Errors) == 1 {
		return ag.Errors[0]
	}
	return fmt.Errorf("%w (and %d more attribute errors)", ag.Errors[0], len(ag.Errors)-1)
}
