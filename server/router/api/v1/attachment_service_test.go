package v1

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/plugin/ai/aitest"
)

func (api *testAPI) upload(t *testing.T, userID, fileName, contentType string, body []byte, chatID string) *httptest.ResponseRecorder {
	t.Helper()
	form, formContentType := multipartBody(t, fileName, contentType, body, chatID)
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", form)
	req.Header.Set(echo.HeaderContentType, formContentType)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, userID))
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fileName, contentType string, body []byte, chatID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	if chatID != "" {
		require.NoError(t, w.WriteField("chatId", chatID))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestAttachments(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	c := api.createChat(t, "user-1", "Files")

	rec := api.upload(t, "user-1", "notes.txt", "text/plain", []byte("hello file"), c.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[Attachment](t, rec)
	assert.Equal(t, "notes.txt", created.FileName)
	assert.Equal(t, "text/plain", created.ContentType)
	assert.Equal(t, c.ID, created.ChatID)
	assert.Equal(t, int64(10), created.Size)
	assert.Equal(t, "/api/attachments/"+created.ID, created.URL)
	assert.Empty(t, created.ThumbnailURL)

	rec = api.do(t, http.MethodGet, created.URL, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello file", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	rec = api.do(t, http.MethodGet, created.URL, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, created.URL+"/thumbnail", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, created.URL, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, created.URL, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachments_Rejected(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	other := api.createChat(t, "user-2", "Theirs")

	rec := api.upload(t, "user-1", "notes.txt", "text/plain", []byte("x"), other.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.upload(t, "user-1", ".env", "text/plain", []byte("x"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := []byte(strings.Repeat("a", 1<<20+1))
	rec = api.upload(t, "user-1", "big.txt", "text/plain", big, "")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decode[errorResponse](t, rec).Code)
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"my notes.txt", true},
		{"../etc/passwd", false},
		{"dir/file.txt", false},
		{`dir\file.txt`, false},
		{".hidden", false},
		{"trailing.", false},
		{" leading.txt", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validateFilename(tt.name), tt.name)
	}
}

func TestIsValidMimeType(t *testing.T) {
	assert.True(t, isValidMimeType("image/png"))
	assert.True(t, isValidMimeType("text/plain; charset=utf-8"))
	assert.False(t, isValidMimeType(""))
	assert.False(t, isValidMimeType("not a type"))
}

func TestAttachments_OversizedBodyIsNotConsumed(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	limit := api.svc.Profile.MaxUploadBytes

	form, formContentType := multipartBody(t, "big.bin", "application/octet-stream", bytes.Repeat([]byte("a"), 16<<20), "")
	total := int64(form.Len())
	body := &countingReader{r: form}
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", body)
	req.Header.Set(echo.HeaderContentType, formContentType)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decode[errorResponse](t, rec).Code)
	assert.LessOrEqual(t, body.n, limit+multipartOverheadBytes+1)
	assert.Less(t, body.n, total)
}
