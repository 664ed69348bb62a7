package store

// UserProfile is the public face of a user. ID is the identity provider's user id.
type UserProfile struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	CreatedTs   int64
	UpdatedTs   int64
}

type FindUserProfile struct {
	ID string
}
