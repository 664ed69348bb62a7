// Package attachment stores uploaded files on disk and prepares them for prompts.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/t3clone/t3chat/plugin/thumbnail"
	"github.com/t3clone/t3chat/store"
)

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = errors.New("attachment exceeds the upload size limit")

const (
	// maxInlineTextBytes bounds the text of one attachment inlined into a prompt.
	maxInlineTextBytes = 64 << 10
	// maxInlineImageBytes bounds one image sent to a vision model.
	maxInlineImageBytes = 8 << 20
)

// TextExtractor turns documents such as PDFs into plain text.
type TextExtractor interface {
	IsSupported(contentType string) bool
	ExtractText(ctx context.Context, body io.Reader, contentType string) (string, error)
}

// Service manages attachment blobs under a root directory.
type Service struct {
	store     *store.Store
	root      string
	maxBytes  int64
	extractor TextExtractor
}

type Option func(*Service)

// WithTextExtractor inlines the text of supported documents into prompts.
func WithTextExtractor(e TextExtractor) Option {
	return func(s *Service) {
		s.extractor = e
	}
}

func NewService(s *store.Store, root string, maxBytes int64, opts ...Option) *Service {
	svc := &Service{store: s, root: root, maxBytes: maxBytes}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Upload describes a file received from a client.
type Upload struct {
	UserID      string
	ChatID      string
	FileName    string
	ContentType string
	Body        io.Reader
}

// Save writes the upload to disk, generates a thumbnail for images and records it.
func (s *Service) Save(ctx context.Context, upload *Upload) (*store.Attachment, error) {
	id := uuid.NewString()
	fileName := filepath.Base(strings.TrimSpace(upload.FileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		fileName = "attachment"
	}
	contentType := normalizeContentType(upload.ContentType, fileName)

	dir := filepath.Join(s.root, upload.UserID)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, errors.Wrap(err, "failed to create attachment directory")
	}
	storagePath := filepath.Join(dir, id+filepath.Ext(fileName))

	size, err := writeLimited(storagePath, upload.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}

	attachment := &store.Attachment{
		ID:          id,
		UserID:      upload.UserID,
		ChatID:      upload.ChatID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
		CreatedTs:   time.Now().Unix(),
	}
	if thumbnail.IsImage(contentType) {
		thumbPath, err := s.writeThumbnail(storagePath, contentType, dir, id)
		if err != nil {
			// The original stays usable without a preview.
			slog.Warn("failed to generate thumbnail",
				slog.String("attachment_id", id),
				slog.String("error", err.Error()))
		} else {
			attachment.ThumbnailPath = thumbPath
		}
	}

	created, err := s.store.CreateAttachment(ctx, attachment)
	if err != nil {
		s.removeFiles(attachment)
		return nil, errors.Wrap(err, "failed to create attachment")
	}
	return created, nil
}

// Get returns the attachment owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*store.Attachment, error) {
	return s.store.GetAttachment(ctx, &store.FindAttachment{ID: &id, UserID: &userID})
}

// Delete removes the attachment row and its files.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	attachment, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, &store.DeleteAttachment{ID: id}); err != nil {
		return err
	}
	s.removeFiles(attachment)
	return nil
}

// ListForChat returns the attachments of a chat owned by the user.
func (s *Service) ListForChat(ctx context.Context, userID, chatID string) ([]*store.Attachment, error) {
	return s.store.ListAttachments(ctx, &store.FindAttachment{UserID: &userID, ChatID: &chatID})
}

// RemoveFiles deletes the blobs of attachments whose rows are already gone.
func (s *Service) RemoveFiles(attachments ...*store.Attachment) {
	for _, a := range attachments {
		s.removeFiles(a)
	}
}

// Link attaches uploads of the user to a stored message. Unknown ids are skipped.
func (s *Service) Link(ctx context.Context, userID, chatID, messageID string, ids []string) ([]*store.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := s.store.ListAttachments(ctx, &store.FindAttachment{IDs: ids, UserID: &userID})
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		if err := s.store.UpdateAttachment(ctx, &store.UpdateAttachment{ID: a.ID, ChatID: &chatID, MessageID: &messageID}); err != nil {
			return nil, errors.Wrapf(err, "failed to link attachment %s", a.ID)
		}
		a.ChatID, a.MessageID = chatID, messageID
	}
	return list, nil
}

// PromptPart is an attachment prepared for a model prompt.
type PromptPart struct {
	FileName string
	// Text holds the content of text attachments.
	Text string
	// ImageDataURL holds images as a base64 data URL.
	ImageDataURL string
}

// LoadForPrompt reads an attachment for inclusion in a prompt. Binary files
// that are neither text, images nor extractable documents yield a part with
// only the file name.
func (s *Service) LoadForPrompt(ctx context.Context, a *store.Attachment) (*PromptPart, error) {
	part := &PromptPart{FileName: a.FileName}
	switch {
	case thumbnail.IsImage(a.ContentType):
		if a.Size > maxInlineImageBytes {
			return part, nil
		}
		data, err := os.ReadFile(a.StoragePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read attachment %s", a.ID)
		}
		part.ImageDataURL = "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	case isText(a.ContentType):
		f, err := os.Open(a.StoragePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read attachment %s", a.ID)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxInlineTextBytes))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read attachment %s", a.ID)
		}
		if !utf8.Valid(data) {
			data = bytes.ToValidUTF8(data, []byte("�"))
		}
		part.Text = string(data)
	case s.extractor != nil && s.extractor.IsSupported(a.ContentType):
		f, err := os.Open(a.StoragePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read attachment %s", a.ID)
		}
		defer f.Close()
		text, err := s.extractor.ExtractText(ctx, f, a.ContentType)
		if err != nil {
			// The model still sees the file name.
			slog.Warn("failed to extract attachment text",
				slog.String("attachment_id", a.ID),
				slog.String("error", err.Error()))
			return part, nil
		}
		part.Text = text
	}
	return part, nil
}

func (s *Service) writeThumbnail(storagePath, contentType, dir, id string) (string, error) {
	f, err := os.Open(storagePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, thumbType, err := thumbnail.Generate(f, contentType)
	if err != nil {
		return "", err
	}
	ext := ".jpg"
	if thumbType == "image/png" {
		ext = ".png"
	}
	thumbPath := filepath.Join(dir, id+".thumb"+ext)
	if err := os.WriteFile(thumbPath, data, 0o660); err != nil {
		return "", errors.Wrap(err, "failed to write thumbnail")
	}
	return thumbPath, nil
}

func (s *Service) removeFiles(a *store.Attachment) {
	for _, p := range []string{a.StoragePath, a.ThumbnailPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove attachment file", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

// writeLimited copies at most limit bytes to path, removing the file when the body is larger.
func writeLimited(path string, body io.Reader, limit int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o660)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create attachment file")
	}
	n, err := io.Copy(f, io.LimitReader(body, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return 0, err
		}
		return 0, errors.Wrap(err, "failed to write attachment")
	}
	return n, nil
}

func normalizeContentType(contentType, fileName string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func isText(contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	switch contentType {
	case "application/json", "application/xml", "application/yaml", "application/x-yaml",
		"application/javascript", "application/x-sh", "application/toml", "application/sql":
		return true
	}
	return false
}
