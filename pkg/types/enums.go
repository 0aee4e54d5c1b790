package types

// Protocol values that arrive as attribute strings. Each type keeps
// unrecognized values verbatim so they survive a decode/encode round trip.

// Presence is the availability announced in <presence type="...">.
type Presence string

const (
	PresenceAvailable   Presence = "available"
	PresenceUnavailable Presence = "unavailable"
)

// Known reports whether the value is one this package recognizes.
func (p Presence) Known() bool {
	switch p {
	case PresenceAvailable, PresenceUnavailable:
		return true
	}
	return false
}

// ChatPresence is the typing state in <chatstate>.
type ChatPresence string

const (
	ChatPresenceComposing ChatPresence = "composing"
	ChatPresencePaused    ChatPresence = "paused"
)

func (p ChatPresence) Known() bool {
	switch p {
	case ChatPresenceComposing, ChatPresencePaused:
		return true
	}
	return false
}

// ChatPresenceMedia distinguishes text typing from voice recording.
type ChatPresenceMedia string

const (
	ChatPresenceMediaText  ChatPresenceMedia = ""
	ChatPresenceMediaAudio ChatPresenceMedia = "audio"
)

func (m ChatPresenceMedia) Known() bool {
	switch m {
	case ChatPresenceMediaText, ChatPresenceMediaAudio:
		return true
	}
	return false
}

// ReceiptType is the type attribute of a <receipt> node.
type ReceiptType string

const (
	// ReceiptTypeDelivered means the message reached the device.
	ReceiptTypeDelivered ReceiptType = ""
	// ReceiptTypeSender is sent by your own devices when a message you sent is delivered to them.
	ReceiptTypeSender ReceiptType = "sender"
	// ReceiptTypeRetry means the message was delivered but could not be decrypted.
	ReceiptTypeRetry ReceiptType = "retry"
	// ReceiptTypeRead means the user opened the chat and saw the message.
	ReceiptTypeRead ReceiptType = "read"
	// ReceiptTypeReadSelf means the current user read the message on another device with read receipts off.
	ReceiptTypeReadSelf ReceiptType = "read-self"
	// ReceiptTypePlayed means a view-once media message was opened.
	ReceiptTypePlayed      ReceiptType = "played"
	ReceiptTypePlayedSelf  ReceiptType = "played-self"
	ReceiptTypeServerError ReceiptType = "server-error"
	ReceiptTypeInactive    ReceiptType = "inactive"
	ReceiptTypePeerMsg     ReceiptType = "peer_msg"
	ReceiptTypeHistorySync ReceiptType = "hist_sync"
)

func (r ReceiptType) Known() bool {
	switch r {
	case ReceiptTypeDelivered, ReceiptTypeSender, ReceiptTypeRetry, ReceiptTypeRead,
		ReceiptTypeReadSelf, ReceiptTypePlayed, ReceiptTypePlayedSelf, ReceiptTypeServerError,
		ReceiptTypeInactive, ReceiptTypePeerMsg, ReceiptTypeHistorySync:
		return true
	}
	return false
}

// ProfilePictureType is the requested resolution of a profile picture.
type ProfilePictureType string

const (
	ProfilePictureFull    ProfilePictureType = "image"
	ProfilePicturePreview ProfilePictureType = "preview"
)

func (p ProfilePictureType) Known() bool {
	return p == ProfilePictureFull || p == ProfilePicturePreview
}
