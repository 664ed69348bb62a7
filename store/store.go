package store

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	userSettingCache *cache.LRUCache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:           driver,
		profile:          profile,
		userSettingCache: cache.NewLRUCache(1000, 10*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.userSettingCache.Clear()
	return s.driver.Close()
}

func (s *Store) CreateChat(ctx context.Context, create *Chat) (*Chat, error) {
	return s.driver.CreateChat(ctx, create)
}

// ListChats returns chats ordered pinned first, then by most recent update.
func (s *Store) ListChats(ctx context.Context, find *FindChat) ([]*Chat, error) {
	list, err := s.driver.ListChats(ctx, find)
	if err != nil {
		return nil, err
	}
	if find.Tag == nil {
		return list, nil
	}
	filtered := make([]*Chat, 0, len(list))
	for _, chat := range list {
		if slices.Contains(chat.Tags, *find.Tag) {
			filtered = append(filtered, chat)
		}
	}
	return filtered, nil
}

// GetChat returns the chat or ErrNotFound.
func (s *Store) GetChat(ctx context.Context, find *FindChat) (*Chat, error) {
	list, err := s.ListChats(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateChat(ctx context.Context, update *UpdateChat) (*Chat, error) {
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	return s.driver.UpdateChat(ctx, update)
}

func (s *Store) DeleteChat(ctx context.Context, delete *DeleteChat) error {
	return s.driver.DeleteChat(ctx, delete)
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().UnixMilli()
	}
	if create.ToolInvocations == "" {
		create.ToolInvocations = "[]"
	}
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// GetMessage returns the message or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, find *FindMessage) (*Message, error) {
	list, err := s.driver.ListMessages(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) DeleteMessage(ctx context.Context, delete *DeleteMessage) error {
	return s.driver.DeleteMessage(ctx, delete)
}

func (s *Store) CreateAttachment(ctx context.Context, create *Attachment) (*Attachment, error) {
	return s.driver.CreateAttachment(ctx, create)
}

func (s *Store) ListAttachments(ctx context.Context, find *FindAttachment) ([]*Attachment, error) {
	return s.driver.ListAttachments(ctx, find)
}

// GetAttachment returns the attachment or ErrNotFound.
func (s *Store) GetAttachment(ctx context.Context, find *FindAttachment) (*Attachment, error) {
	list, err := s.driver.ListAttachments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateAttachment(ctx context.Context, update *UpdateAttachment) error {
	return s.driver.UpdateAttachment(ctx, update)
}

func (s *Store) DeleteAttachment(ctx context.Context, delete *DeleteAttachment) error {
	return s.driver.DeleteAttachment(ctx, delete)
}

func (s *Store) UpsertChatIndex(ctx context.Context, upsert *ChatIndex) (*ChatIndex, error) {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}
	return s.driver.UpsertChatIndex(ctx, upsert)
}

func (s *Store) ListChatIndexes(ctx context.Context, find *FindChatIndex) ([]*ChatIndex, error) {
	return s.driver.ListChatIndexes(ctx, find)
}

func (s *Store) DeleteChatIndex(ctx context.Context, delete *DeleteChatIndex) error {
	return s.driver.DeleteChatIndex(ctx, delete)
}

func (s *Store) CreateCodeConversion(ctx context.Context, create *CodeConversion) (*CodeConversion, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateCodeConversion(ctx, create)
}

func (s *Store) ListCodeConversions(ctx context.Context, find *FindCodeConversion) ([]*CodeConversion, error) {
	return s.driver.ListCodeConversions(ctx, find)
}

func (s *Store) UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error) {
	upsert.UpdatedTs = time.Now().Unix()
	setting, err := s.driver.UpsertUserSetting(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.userSettingCache.Invalidate(userSettingCacheKey(upsert.UserID))
	return setting, nil
}

// GetUserSetting returns the stored setting, or nil when the user never saved one.
func (s *Store) GetUserSetting(ctx context.Context, find *FindUserSetting) (*UserSetting, error) {
	key := userSettingCacheKey(find.UserID)
	if raw, ok := s.userSettingCache.Get(key); ok {
		setting := &UserSetting{}
		if err := json.Unmarshal(raw, setting); err == nil {
			return setting, nil
		}
	}

	setting, err := s.driver.GetUserSetting(ctx, find)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	if raw, err := json.Marshal(setting); err == nil {
		s.userSettingCache.Set(key, raw, 0)
	}
	return setting, nil
}

func (s *Store) UpsertUserProfile(ctx context.Context, upsert *UserProfile) (*UserProfile, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now
	return s.driver.UpsertUserProfile(ctx, upsert)
}

func (s *Store) GetUserProfile(ctx context.Context, find *FindUserProfile) (*UserProfile, error) {
	return s.driver.GetUserProfile(ctx, find)
}

func userSettingCacheKey(userID string) string {
	return "user_setting:" + userID
}
