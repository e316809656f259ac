// Package acquire turns a local file or a live URL into a size-bounded image payload.
package acquire

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ImagePayload is the normalized output of both acquisition paths
type ImagePayload struct {
	Binary    []byte
	MIMEType  string
	DataURI   string // Displayable form of Binary
	OriginURL string // Set only for live-URL capture
}

// Base64 returns the payload bytes base64-encoded
func (p *ImagePayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Binary)
}

func newPayload(data []byte, mimeType, originURL string) *ImagePayload {
	return &ImagePayload{
		Binary:    data,
		MIMEType:  mimeType,
		DataURI:   DataURI(mimeType, data),
		OriginURL: originURL,
	}
}

// DataURI encodes data as a base64 data URI
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI into its MIME type and bytes
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// File is an upload candidate: declared metadata plus a reader for its bytes
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// OpenFile prepares a File from disk. The MIME type comes from the extension,
// falling back to content sniffing. The caller closes the returned closer.
func OpenFile(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			_ = f.Close()
			return File{}, nil, fmt.Errorf("sniff %s: %w", path, err)
		}
		contentType = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = f.Close()
			return File{}, nil, fmt.Errorf("rewind %s: %w", path, err)
		}
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Reader:      f,
	}, f, nil
}
