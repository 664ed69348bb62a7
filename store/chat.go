package store

// Chat is a conversation owned by one user.
type Chat struct {
	ID       string
	UserID   string
	Title    string
	ModelID  string
	Pinned   bool
	Archived bool
	Tags     []string
	// ShareID is empty unless the chat is publicly shared.
	ShareID   string
	CreatedTs int64
	UpdatedTs int64
}

type FindChat struct {
	ID       *string
	UserID   *string
	ShareID  *string
	Pinned   *bool
	Archived *bool
	// Tag is applied after the query since tags are stored as a JSON array.
	Tag   *string
	Limit *int
}

type UpdateChat struct {
	ID       string
	UserID   string
	Title    *string
	ModelID  *string
	Pinned   *bool
	Archived *bool
	Tags     *[]string
	// ShareID set to an empty string revokes the share.
	ShareID   *string
	UpdatedTs *int64
}

type DeleteChat struct {
	ID     string
	UserID string
}
