package acquire

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
)

// FromUpload validates and reads an uploaded image. Format and size are
// checked before any byte is read.
func (a *Acquirer) FromUpload(file File) (*ImagePayload, error) {
	mimeType, ok := imageType(file.ContentType)
	if !ok {
		return nil, model.NewError(model.ErrUnsupportedFormat, file.ContentType, nil)
	}

	if file.Size > a.maxUpload {
		return nil, model.NewError(model.ErrFileTooLarge, fmt.Sprintf("%d bytes exceeds %d", file.Size, a.maxUpload), nil)
	}

	if file.Reader == nil {
		return nil, model.NewError(model.ErrReadError, file.Name, fmt.Errorf("no reader"))
	}

	// Read one byte past the limit so an understated Size is still caught
	data, err := io.ReadAll(io.LimitReader(file.Reader, a.maxUpload+1))
	if err != nil {
		return nil, model.NewError(model.ErrReadError, file.Name, err)
	}
	if int64(len(data)) > a.maxUpload {
		return nil, model.NewError(model.ErrFileTooLarge, fmt.Sprintf("more than %d bytes", a.maxUpload), nil)
	}
	if len(data) == 0 {
		return nil, model.NewError(model.ErrReadError, file.Name, fmt.Errorf("file is empty"))
	}

	a.logger.Debug("upload acquired",
		logging.F("name", file.Name),
		logging.F("mime", mimeType),
		logging.F("bytes", len(data)))

	return newPayload(data, mimeType, ""), nil
}

// imageType returns the bare media type if contentType names an image
func imageType(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType, strings.HasPrefix(mediaType, "image/")
}
