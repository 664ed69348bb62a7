package store

type UserSetting struct {
	UserID              string
	DefaultModel        string
	Theme               string
	CustomInstructions  string
	AutocompleteEnabled bool
	UpdatedTs           int64
}

type FindUserSetting struct {
	UserID string
}

// DefaultUserSetting is returned for users that never saved their settings.
func DefaultUserSetting(userID string) *UserSetting {
	return &UserSetting{
		UserID:              userID,
		Theme:               "system",
		AutocompleteEnabled: true,
	}
}
