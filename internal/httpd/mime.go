package httpd

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackContentType = "application/octet-stream"

// contentType picks a type from the file extension, then from the content
// itself, and finally falls back to application/octet-stream.
func contentType(path string, data []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	if len(data) > 0 {
		if m := mimetype.Detect(data); m != nil {
			return m.String()
		}
	}
	return fallbackContentType
}
