package textextract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "http://localhost:9998", config.TikaServerURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, int64(64<<10), config.MaxTextBytes)
}

func TestNewClient(t *testing.T) {
	client := NewClient(nil)
	assert.Equal(t, "http://localhost:9998", client.config.TikaServerURL)

	client = NewClient(&Config{TikaServerURL: "http://example.com:9998", Timeout: time.Minute})
	assert.Equal(t, time.Minute, client.httpClient.Timeout)
	assert.Equal(t, int64(64<<10), client.config.MaxTextBytes)
}

func TestIsSupported(t *testing.T) {
	client := NewClient(nil)
	assert.True(t, client.IsSupported("application/pdf"))
	assert.True(t, client.IsSupported("APPLICATION/PDF"))
	assert.True(t, client.IsSupported("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.False(t, client.IsSupported("image/png"))
	assert.False(t, client.IsSupported("text/plain"))
}

func TestExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4", string(body))
		_, _ = io.WriteString(w, "\n\n  Quarterly report  \n\n\n\nRevenue grew.\nCosts fell.\n\n")
	}))
	defer srv.Close()

	client := NewClient(&Config{TikaServerURL: srv.URL + "/", Timeout: time.Second})
	text, err := client.ExtractText(context.Background(), strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\n\nRevenue grew.\nCosts fell.", text)
}

func TestExtractText_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", 100))
	}))
	defer srv.Close()

	client := NewClient(&Config{TikaServerURL: srv.URL, Timeout: time.Second, MaxTextBytes: 10})
	text, err := client.ExtractText(context.Background(), strings.NewReader("x"), "application/pdf")
	require.NoError(t, err)
	assert.Len(t, text, 10)
}

func TestExtractText_TruncatesOnRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "naïve café")
	}))
	defer srv.Close()

	// Byte 3 is the first half of "ï".
	client := NewClient(&Config{TikaServerURL: srv.URL, Timeout: time.Second, MaxTextBytes: 3})
	text, err := client.ExtractText(context.Background(), strings.NewReader("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "na", text)
	assert.True(t, utf8.ValidString(text))
}

func TestTrimPartialRune(t *testing.T) {
	assert.Equal(t, "abc", string(trimPartialRune([]byte("abc"))))
	assert.Equal(t, "é", string(trimPartialRune([]byte("é"))))
	assert.Equal(t, "a", string(trimPartialRune([]byte("a\xe2\x82"))))
	assert.Empty(t, trimPartialRune([]byte("\xf0\x9f")))
}

func TestExtractText_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "parse failure", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(&Config{TikaServerURL: srv.URL, Timeout: time.Second})
	_, err := client.ExtractText(context.Background(), strings.NewReader("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")

	_, err = client.ExtractText(context.Background(), strings.NewReader("x"), "image/png")
	assert.Error(t, err)
}
