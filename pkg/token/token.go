// Package token contains the string dictionaries shared by both ends of a
// connection to compress frequent tag, attribute and value strings.
//
// The dictionary version is announced once in the connection header, so the
// tables below must never be edited in place: a change requires a new
// DictVersion.
package token

import "fmt"

// DictVersion is the dictionary version sent in the connection header.
const DictVersion = 3

// Markers used by the binary node codec.
const (
	ListEmpty   = 0
	Dictionary0 = 236
	Dictionary1 = 237
	Dictionary2 = 238
	Dictionary3 = 239
	InteropJID  = 245
	FBJID       = 246
	ADJID       = 247
	List8       = 248
	List16      = 249
	JIDPair     = 250
	Hex8        = 251
	Binary8     = 252
	Binary20    = 253
	Binary32    = 254
	Nibble8     = 255
)

// PackedMax is the longest string that may be nibble or hex packed.
const PackedMax = 127

// SingleByteTokens maps one-byte indices to strings. Index 0 is reserved for
// ListEmpty and is never produced by the encoder.
var SingleByteTokens = [...]string{"", "xmlstreamstart", "xmlstreamend", "s.whatsapp.net", "type", "participant", "from", "receipt", "id", "notification", "disappearing_mode", "status", "jid", "broadcast", "user", "devices", "device_hash", "to", "offline", "message", "result", "class", "xmlns", "duration", "notify", "iq", "t", "ack", "g.us", "enc", "urn:xmpp:whatsapp:push", "presence", "config_value", "picture", "verified_name", "config_code", "key-index-list", "contact", "mediatype", "routing_info", "edge_routing", "get", "read", "urn:xmpp:ping", "fallback_hostname", "0", "chatstate", "business_hours_config", "unavailable", "download_buckets", "skmsg", "verified_level", "composing", "handshake", "device-list", "media", "text", "fallback_ip4", "media_conn", "device", "creation", "location", "config", "item", "fallback_ip6", "count", "w:profile:picture", "image", "business", "2", "hostname", "call-creator", "display_name", "relaylatency", "platform", "abprops", "success", "msg", "offline_preview", "prop", "key-index", "v", "day_of_week", "pkmsg", "version", "1", "ping", "w:p", "download", "video", "set", "specific_hours", "props", "primary", "unknown", "hash", "commerce_experience", "last", "subscribe", "max_buckets", "call", "profile", "member_since_text", "close_time", "call-id", "sticker", "mode", "participants", "value", "query", "profile_options", "open_time", "code", "list", "host", "ts", "contacts", "upload", "lid", "preview", "update", "usync", "w:stats", "delivery", "auth_ttl", "context", "fail", "cart_enabled", "appdata", "category", "atn", "direct_connection", "decrypt-fail", "relay_id", "mmg-fallback.whatsapp.net", "target", "available", "name", "last_id", "mmg.whatsapp.net", "categories", "401", "is_new", "index", "tctoken", "ip4", "token_id", "latency", "recipient", "edit", "ip6", "add", "thumbnail-document", "26", "paused", "true", "identity", "stream:error", "key", "sidelist", "background", "audio", "3", "thumbnail-image", "biz-cover-photo", "cat", "gcm", "thumbnail-video", "error", "auth", "deny", "serial", "in", "registration", "thumbnail-link", "remove", "00", "gif", "thumbnail-gif", "tag", "capability", "multicast", "item-not-found", "description", "business_hours", "config_expo_key", "md-app-state", "expiration", "fallback", "ttl", "300", "md-msg-hist", "device_orientation", "out", "w:m", "open_24h", "side_list", "token", "inactive", "01", "document", "te2", "played", "encrypt", "msgr", "hide", "direct_path", "12", "state", "not-authorized", "url", "terminate", "signature", "status-revoke-delay", "02", "te", "linked_accounts", "trusted_contact", "timezone", "ptt", "kyc-id", "privacy_token", "readreceipts", "appointment_only", "address", "expected_ts", "privacy", "7", "android", "interactive", "device-identity", "enabled", "attribute_padding", "1080", "03", "screen_height"}

// DoubleByteTokens holds the four extended dictionaries addressed by the
// Dictionary0..Dictionary3 markers followed by a one-byte index.
var DoubleByteTokens = [...][]string{
	{"read-self", "active", "fbns", "protocol", "reaction", "screen_width", "heartbeat", "deviceid", "2:47DEQpj8", "uploadfieldstat", "voip_settings", "retry", "priority", "longitude", "conflict", "false", "ig_professional", "replaced", "preaccept", "cover_photo", "uncompressed", "encopt", "ppic", "04", "passive", "status-revoke-drop", "keygen", "540", "offer", "rate", "opus", "latitude", "w:gp2", "ver", "4", "business_profile", "medium", "sender", "prev_v_id", "email", "website", "invited", "sign_credential", "05", "transport", "skey", "reason", "peer_abtest_bucket", "America/Sao_Paulo", "appid", "refresh", "100", "06", "404", "101", "104", "107", "102", "109", "103", "member_add_mode", "105", "transaction-id", "110", "106", "outgoing", "108", "111", "tokens", "followers", "cell_towers", "cell_tower", "invite", "none", "verified"},
	{"reject", "dirty", "announcement", "020", "13", "9", "status_video_max_bitrate", "fb:thrift_iq", "offline_batch", "022", "full", "ctwa_first_business_reply_logging", "h.264", "smax_id", "group_recent_reset", "admin", "superadmin", "membership_approval_mode", "restrict", "locked", "ephemeral", "subject", "creator", "s_t", "s_o", "size", "linked_groups", "parent", "community", "default_sub_group"},
	{"64", "ptt_playback_speed_enabled", "web_product_list_message_enabled", "paid_convo_status", "newsletter", "mex", "reaction_codes", "view", "subscribers", "verification", "invite_code", "thread_metadata", "picture_id", "mute", "muted", "unmute", "follow", "unfollow", "role", "owner", "subscriber", "guest"},
	{"1724", "profile_picture", "1071", "1314", "1605", "407", "990", "1710", "746", "thumbnail-sticker", "is_supported", "vp8", "multi_device", "push_config", "pkey", "call_offer", "transport_config", "audio_opus", "video_h264"},
}

var (
	singleByteTokenIndex map[string]byte
	doubleByteTokenIndex map[string]doubleByteTokenIndexEntry
)

type doubleByteTokenIndexEntry struct {
	dictionary byte
	index      byte
}

func init() {
	singleByteTokenIndex = make(map[string]byte, len(SingleByteTokens))
	for i, t := range SingleByteTokens {
		if i == ListEmpty {
			continue
		}
		singleByteTokenIndex[t] = byte(i)
	}

	doubleByteTokenIndex = make(map[string]doubleByteTokenIndexEntry)
	for d, dict := range DoubleByteTokens {
		if len(dict) > 256 {
			panic(fmt.Sprintf("token: dictionary %d has %d entries", d, len(dict)))
		}
		for i, t := range dict {
			if _, ok := singleByteTokenIndex[t]; ok {
				continue
			}
			if _, ok := doubleByteTokenIndex[t]; ok {
				continue
			}
			doubleByteTokenIndex[t] = doubleByteTokenIndexEntry{byte(d), byte(i)}
		}
	}
}

// GetSingleToken returns the string at the given one-byte index.
func GetSingleToken(i int) (string, error) {
	if i <= ListEmpty || i >= len(SingleByteTokens) {
		return "", fmt.Errorf("%w: single-byte index %d", ErrInvalidIndex, i)
	}
	return SingleByteTokens[i], nil
}

// GetDoubleToken returns the string at the given dictionary and index.
func GetDoubleToken(dict, i int) (string, error) {
	if dict < 0 || dict >= len(DoubleByteTokens) {
		return "", fmt.Errorf("%w: dictionary %d", ErrInvalidIndex, dict)
	}
	tokens := DoubleByteTokens[dict]
	if i < 0 || i >= len(tokens) {
		return "", fmt.Errorf("%w: dictionary %d index %d", ErrInvalidIndex, dict, i)
	}
	return tokens[i], nil
}

// IndexOfSingleToken returns the one-byte index of the given string.
func IndexOfSingleToken(token string) (val byte, ok bool) {
	val, ok = singleByteTokenIndex[token]
	return
}

// IndexOfDoubleByteToken returns the dictionary and index of the given string.
func IndexOfDoubleByteToken(token string) (byte, byte, bool) {
	entry, ok := doubleByteTokenIndex[token]
	return entry.dictionary, entry.index, ok
}
