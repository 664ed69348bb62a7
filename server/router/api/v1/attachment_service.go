package v1

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/store"
)

const (
	// The upload memory buffer is 32 MiB.
	// It should be kept low, so RAM usage doesn't get out of control.
	// This is unrelated to the maximum upload size, which comes from the profile.
	MaxUploadBufferSizeBytes = 32 << 20
	// multipartOverheadBytes covers the part headers and form fields around the file.
	multipartOverheadBytes = 1 << 20
)

// CreateAttachment stores a multipart upload in the "file" field. An optional
// "chatId" field attaches it to a chat of the user right away.
// POST /api/attachments
func (s *APIV1Service) CreateAttachment(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)
	if limit := s.Profile.MaxUploadBytes; limit > 0 {
		// Stop reading the body once it cannot hold an acceptable file.
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, limit+multipartOverheadBytes)
	}
	if err := c.Request().ParseMultipartForm(MaxUploadBufferSizeBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return writeError(c, apperrors.PayloadTooLarge("file exceeds the upload size limit"))
		}
		return writeError(c, apperrors.InvalidArgument("invalid multipart form"))
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apperrors.InvalidArgument("file is required"))
	}
	if !validateFilename(fileHeader.Filename) {
		return writeError(c, apperrors.InvalidArgument("filename contains invalid characters or format"))
	}
	if limit := s.Profile.MaxUploadBytes; limit > 0 && fileHeader.Size > limit {
		return writeError(c, apperrors.PayloadTooLarge("file exceeds the upload size limit"))
	}

	chatID := c.FormValue("chatId")
	if chatID != "" {
		if _, err := s.Store.GetChat(ctx, &store.FindChat{ID: &chatID, UserID: &userID}); err != nil {
			return writeError(c, notFoundOr(err, "chat"))
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return writeError(c, apperrors.Internal("failed to open upload", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get(echo.HeaderContentType)
	if !isValidMimeType(contentType) {
		// Sniffed from the file name instead.
		contentType = ""
	}
	created, err := s.AttachmentService.Save(ctx, &attachment.Upload{
		UserID:      userID,
		ChatID:      chatID,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Body:        file,
	})
	if errors.Is(err, attachment.ErrTooLarge) {
		return writeError(c, apperrors.PayloadTooLarge(err.Error()))
	}
	if err != nil {
		return writeError(c, apperrors.Internal("failed to save attachment", err))
	}
	return c.JSON(http.StatusCreated, convertAttachmentFromStore(created))
}

// GetAttachmentBlob serves the original file.
// GET /api/attachments/:id
func (s *APIV1Service) GetAttachmentBlob(c echo.Context) error {
	a, err := s.AttachmentService.Get(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, notFoundOr(err, "attachment"))
	}
	c.Response().Header().Set(echo.HeaderContentType, a.ContentType)
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Inline(a.StoragePath, a.FileName)
}

// GetAttachmentThumbnail serves the preview of an image attachment.
// GET /api/attachments/:id/thumbnail
func (s *APIV1Service) GetAttachmentThumbnail(c echo.Context) error {
	a, err := s.AttachmentService.Get(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, notFoundOr(err, "attachment"))
	}
	if a.ThumbnailPath == "" {
		return writeError(c, apperrors.NotFound("thumbnail not found"))
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.File(a.ThumbnailPath)
}

// DeleteAttachment removes an upload and its files.
// DELETE /api/attachments/:id
func (s *APIV1Service) DeleteAttachment(c echo.Context) error {
	if err := s.AttachmentService.Delete(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return writeError(c, notFoundOr(err, "attachment"))
	}
	return c.NoContent(http.StatusNoContent)
}

func validateFilename(filename string) bool {
	// Reject path traversal attempts and make sure no additional directories are created.
	if !filepath.IsLocal(filename) || strings.ContainsAny(filename, "/\\") {
		return false
	}
	// Reject filenames starting or ending with spaces or periods.
	if strings.HasPrefix(filename, " ") || strings.HasSuffix(filename, " ") ||
		strings.HasPrefix(filename, ".") || strings.HasSuffix(filename, ".") {
		return false
	}
	return true
}

var mimeTypePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]{0,126}/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]{0,126}$`)

func isValidMimeType(mimeType string) bool {
	if mimeType == "" || len(mimeType) > 255 {
		return false
	}
	base, _, _ := strings.Cut(mimeType, ";")
	return mimeTypePattern.MatchString(strings.TrimSpace(base))
}

// notFoundOr maps store.ErrNotFound to a NOT_FOUND error and wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Internal("failed to load "+what, err)
}
