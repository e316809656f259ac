package acquire

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/darklens/internal/model"
)

// pngBytes returns n bytes starting with the PNG signature
func pngBytes(n int) []byte {
	sig := []byte("\x89PNG\r\n\x1a\n")
	if n < len(sig) {
		n = len(sig)
	}
	data := make([]byte, n)
	copy(data, sig)
	return data
}

// spyReader fails the test if anything reads from it
type spyReader struct {
	t *testing.T
}

func (r spyReader) Read([]byte) (int, error) {
	r.t.Error("reader must not be touched")
	return 0, io.EOF
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func newUploadAcquirer() *Acquirer {
	return NewAcquirer(model.DefaultConfig(), nil, Deps{})
}

func TestFromUpload_TooLarge(t *testing.T) {
	a := newUploadAcquirer()
	_, err := a.FromUpload(File{
		Name:        "huge.png",
		ContentType: "image/png",
		Size:        6 * 1000 * 1000,
		Reader:      spyReader{t},
	})
	if !model.IsKind(err, model.ErrFileTooLarge) {
		t.Fatalf("expected FileTooLarge, got %v", err)
	}
}

func TestFromUpload_UnderstatedSize(t *testing.T) {
	a := newUploadAcquirer()
	_, err := a.FromUpload(File{
		Name:        "liar.png",
		ContentType: "image/png",
		Size:        10,
		Reader:      bytes.NewReader(pngBytes(model.DefaultMaxUploadBytes + 1)),
	})
	if !model.IsKind(err, model.ErrFileTooLarge) {
		t.Fatalf("expected FileTooLarge, got %v", err)
	}
}

func TestFromUpload_UnsupportedFormat(t *testing.T) {
	a := newUploadAcquirer()
	for _, ct := range []string{"text/plain", "application/pdf", "", "image"} {
		t.Run(ct, func(t *testing.T) {
			_, err := a.FromUpload(File{Name: "notes.txt", ContentType: ct, Size: 10, Reader: spyReader{t}})
			if !model.IsKind(err, model.ErrUnsupportedFormat) {
				t.Errorf("expected UnsupportedFormat for %q, got %v", ct, err)
			}
		})
	}
}

func TestFromUpload_ReadError(t *testing.T) {
	a := newUploadAcquirer()
	_, err := a.FromUpload(File{Name: "x.png", ContentType: "image/png", Size: 10, Reader: failingReader{}})
	if !model.IsKind(err, model.ErrReadError) {
		t.Fatalf("expected ReadError, got %v", err)
	}
}

func TestFromUpload_Success(t *testing.T) {
	a := newUploadAcquirer()
	data := pngBytes(2 * 1000 * 1000)

	payload, err := a.FromUpload(File{
		Name:        "checkout.png",
		ContentType: "image/PNG; charset=binary",
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", payload.MIMEType)
	}
	if !bytes.Equal(payload.Binary, data) {
		t.Error("binary payload differs from input")
	}
	if !strings.HasPrefix(payload.DataURI, "data:image/png;base64,iVBORw0KGgo") {
		t.Errorf("unexpected data URI prefix: %.40s", payload.DataURI)
	}
	if payload.OriginURL != "" {
		t.Errorf("upload must not carry an origin URL, got %s", payload.OriginURL)
	}

	mimeType, decoded, err := ParseDataURI(payload.DataURI)
	if err != nil || mimeType != "image/png" || !bytes.Equal(decoded, data) {
		t.Errorf("data URI does not decode back to the payload (%v)", err)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()

	named := filepath.Join(dir, "shot.webp")
	if err := os.WriteFile(named, []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), 0o644); err != nil {
		t.Fatal(err)
	}
	f, closer, err := OpenFile(named)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if f.ContentType != "image/webp" || f.Name != "shot.webp" || f.Size != 16 {
		t.Errorf("unexpected file: %+v", f)
	}

	// No extension: sniffed from content, reader rewound
	sniffed := filepath.Join(dir, "screenshot")
	if err := os.WriteFile(sniffed, pngBytes(600), 0o644); err != nil {
		t.Fatal(err)
	}
	f2, closer2, err := OpenFile(sniffed)
	if err != nil {
		t.Fatal(err)
	}
	defer closer2.Close()
	if f2.ContentType != "image/png" {
		t.Errorf("expected sniffed image/png, got %s", f2.ContentType)
	}
	payload, err := newUploadAcquirer().FromUpload(f2)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Binary) != 600 {
		t.Errorf("expected 600 bytes after rewind, got %d", len(payload.Binary))
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	for _, in := range []string{"https://example.com/a.png", "data:image/png,abc", "data:image/png;base64", "data:image/png;base64,!!"} {
		if _, _, err := ParseDataURI(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
