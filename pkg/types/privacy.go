package types

import "fmt"

// PrivacySetting is one value of a user's privacy settings. Every privacy
// category shares this type; PrivacySettingType.Allows restricts which values
// a given category accepts.
type PrivacySetting string

const (
	PrivacySettingUndefined        PrivacySetting = ""
	PrivacySettingAll              PrivacySetting = "all"
	PrivacySettingContacts         PrivacySetting = "contacts"
	PrivacySettingContactBlacklist PrivacySetting = "contact_blacklist"
	PrivacySettingMatchLastSeen    PrivacySetting = "match_last_seen"
	PrivacySettingKnown            PrivacySetting = "known"
	PrivacySettingNone             PrivacySetting = "none"
)

// PrivacySettingType is the category a PrivacySetting applies to.
type PrivacySettingType string

const (
	PrivacySettingTypeGroupAdd     PrivacySettingType = "groupadd"
	PrivacySettingTypeLastSeen     PrivacySettingType = "last"
	PrivacySettingTypeStatus       PrivacySettingType = "status"
	PrivacySettingTypeProfile      PrivacySettingType = "profile"
	PrivacySettingTypeReadReceipts PrivacySettingType = "readreceipts"
	PrivacySettingTypeOnline       PrivacySettingType = "online"
	PrivacySettingTypeCallAdd      PrivacySettingType = "calladd"
)

var privacyAllowed = map[PrivacySettingType][]PrivacySetting{
	PrivacySettingTypeGroupAdd:     {PrivacySettingAll, PrivacySettingContacts, PrivacySettingContactBlacklist, PrivacySettingNone},
	PrivacySettingTypeLastSeen:     {PrivacySettingAll, PrivacySettingContacts, PrivacySettingContactBlacklist, PrivacySettingNone},
	PrivacySettingTypeStatus:       {PrivacySettingAll, PrivacySettingContacts, PrivacySettingContactBlacklist, PrivacySettingNone},
	PrivacySettingTypeProfile:      {PrivacySettingAll, PrivacySettingContacts, PrivacySettingContactBlacklist, PrivacySettingNone},
	PrivacySettingTypeReadReceipts: {PrivacySettingAll, PrivacySettingNone},
	PrivacySettingTypeOnline:       {PrivacySettingAll, PrivacySettingMatchLastSeen},
	PrivacySettingTypeCallAdd:      {PrivacySettingAll, PrivacySettingKnown},
}

// Known reports whether the category is recognized.
func (t PrivacySettingType) Known() bool {
	_, ok := privacyAllowed[t]
	return ok
}

// Allows reports whether value is valid for this category. Unknown
// categories accept nothing.
func (t PrivacySettingType) Allows(value PrivacySetting) bool {
	for _, v := range privacyAllowed[t] {
		if v == value {
			return true
		}
	}
	return false
}

// Validate returns an error if value is not allowed for the category.
func (t PrivacySettingType) Validate(value PrivacySetting) error {
	if !t.Allows(value) {
		return fmt.Errorf("types: privacy setting %q not allowed for %q", value, t)
	}
	return nil
}

// PrivacySettings contains the user's privacy settings.
type PrivacySettings struct {
	GroupAdd     PrivacySetting
	LastSeen     PrivacySetting
	Status       PrivacySetting
	Profile      PrivacySetting
	ReadReceipts PrivacySetting
	CallAdd      PrivacySetting
	Online       PrivacySetting
}

// Set assigns value to the field for the given category after validating it.
func (s *PrivacySettings) Set(category PrivacySettingType, value PrivacySetting) error {
	if err := category.Validate(value); err != nil {
		return err
	}
	switch category {
	case PrivacySettingTypeGroupAdd:
		s.GroupAdd = value
	case PrivacySettingTypeLastSeen:
		s.LastSeen = value
	case PrivacySettingTypeStatus:
		s.Status = value
	case PrivacySettingTypeProfile:
		s.Profile = value
	case PrivacySettingTypeReadReceipts:
		s.ReadReceipts = value
	case PrivacySettingTypeCallAdd:
		s.CallAdd = value
	case PrivacySettingTypeOnline:
		s.Online = value
	}
	return nil
}
