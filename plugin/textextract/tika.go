// Package textextract extracts plain text from PDF and Office documents
// through an Apache Tika server.
package textextract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// SupportedMimeTypes lists the document types sent to Tika.
var SupportedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/rtf",
}

// Config holds the text extraction configuration.
type Config struct {
	// TikaServerURL is the URL of the Tika server (e.g., http://localhost:9998).
	TikaServerURL string
	// Timeout is the HTTP timeout for one extraction.
	Timeout time.Duration
	// MaxTextBytes caps the extracted text kept from one document.
	MaxTextBytes int64
}

// DefaultConfig returns the default text extraction configuration.
func DefaultConfig() *Config {
	return &Config{
		TikaServerURL: "http://localhost:9998",
		Timeout:       30 * time.Second,
		MaxTextBytes:  64 << 10,
	}
}

// Client talks to a Tika server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new text extraction client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxTextBytes <= 0 {
		config.MaxTextBytes = DefaultConfig().MaxTextBytes
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// IsSupported checks if a MIME type is supported.
func (c *Client) IsSupported(contentType string) bool {
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(contentType, supported) {
			return true
		}
	}
	return false
}

// ExtractText returns the plain text of a document, truncated to MaxTextBytes.
func (c *Client) ExtractText(ctx context.Context, body io.Reader, contentType string) (string, error) {
	if !c.IsSupported(contentType) {
		return "", errors.Errorf("unsupported content type: %s", contentType)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, strings.TrimRight(c.config.TikaServerURL, "/")+"/tika", body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "tika request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("tika server returned status %d: %s", resp.StatusCode, string(msg))
	}
	text, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxTextBytes))
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if int64(len(text)) == c.config.MaxTextBytes {
		text = trimPartialRune(text)
	}
	return normalizeWhitespace(text), nil
}

// trimPartialRune drops a multi-byte character cut off at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}

// normalizeWhitespace trims lines and collapses runs of blank lines, which
// Tika emits for page breaks and layout boxes.
func normalizeWhitespace(text []byte) string {
	var b strings.Builder
	blank := 0
	for _, line := range bytes.Split(text, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.Write(line)
	}
	return b.String()
}
