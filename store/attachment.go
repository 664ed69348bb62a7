package store

type Attachment struct {
	ID     string
	UserID string
	// ChatID and MessageID are empty until the upload is linked.
	ChatID        string
	MessageID     string
	FileName      string
	ContentType   string
	Size          int64
	StoragePath   string
	ThumbnailPath string
	CreatedTs     int64
}

type FindAttachment struct {
	ID        *string
	IDs       []string
	UserID    *string
	ChatID    *string
	MessageID *string
}

type UpdateAttachment struct {
	ID        string
	ChatID    *string
	MessageID *string
}

type DeleteAttachment struct {
	ID string
}
