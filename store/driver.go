package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Chat model related methods.
	CreateChat(ctx context.Context, create *Chat) (*Chat, error)
	ListChats(ctx context.Context, find *FindChat) ([]*Chat, error)
	UpdateChat(ctx context.Context, update *UpdateChat) (*Chat, error)
	// DeleteChat removes the chat together with its messages, attachments, index rows and code conversions.
	DeleteChat(ctx context.Context, delete *DeleteChat) error

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	DeleteMessage(ctx context.Context, delete *DeleteMessage) error

	// Attachment model related methods.
	CreateAttachment(ctx context.Context, create *Attachment) (*Attachment, error)
	ListAttachments(ctx context.Context, find *FindAttachment) ([]*Attachment, error)
	UpdateAttachment(ctx context.Context, update *UpdateAttachment) error
	DeleteAttachment(ctx context.Context, delete *DeleteAttachment) error

	// ChatIndex model related methods.
	UpsertChatIndex(ctx context.Context, upsert *ChatIndex) (*ChatIndex, error)
	ListChatIndexes(ctx context.Context, find *FindChatIndex) ([]*ChatIndex, error)
	DeleteChatIndex(ctx context.Context, delete *DeleteChatIndex) error

	// CodeConversion model related methods.
	CreateCodeConversion(ctx context.Context, create *CodeConversion) (*CodeConversion, error)
	ListCodeConversions(ctx context.Context, find *FindCodeConversion) ([]*CodeConversion, error)

	// UserSetting model related methods.
	UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error)
	GetUserSetting(ctx context.Context, find *FindUserSetting) (*UserSetting, error)

	// UserProfile model related methods.
	UpsertUserProfile(ctx context.Context, upsert *UserProfile) (*UserProfile, error)
	GetUserProfile(ctx context.Context, find *FindUserProfile) (*UserProfile, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error)
}
