// Package intake turns uploaded image files into data URL handles.
package intake

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultMaxBytes  = 5 << 20
	DefaultMaxImages = 10
)

var (
	ErrEmptyFile       = errors.New("image file is empty")
	ErrTooLarge        = errors.New("image exceeds size limit")
	ErrUnsupportedType = errors.New("file is not a supported image")
	ErrTooManyImages   = errors.New("too many images")
	ErrNoImages        = errors.New("no images provided")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is one uploaded image. ContentType is the type the client declared,
// if any.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileError ties an intake failure to the file that caused it.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

type Encoder struct {
	MaxBytes  int
	MaxImages int
}

func NewEncoder(maxBytes, maxImages int) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	return &Encoder{MaxBytes: maxBytes, MaxImages: maxImages}
}

// Encode validates one file by its content, not its name, and returns a
// base64 data URL.
func (e *Encoder) Encode(f File) (string, error) {
	if len(f.Data) == 0 {
		return "", &FileError{Name: f.Name, Err: ErrEmptyFile}
	}
	if len(f.Data) > e.MaxBytes {
		return "", &FileError{Name: f.Name, Err: fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(f.Data), e.MaxBytes)}
	}

	if declared := baseType(f.ContentType); declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", &FileError{Name: f.Name, Err: fmt.Errorf("%w: declared %s", ErrUnsupportedType, declared)}
	}

	mediaType := baseType(http.DetectContentType(f.Data))
	if !allowedTypes[mediaType] {
		return "", &FileError{Name: f.Name, Err: fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)}
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(f.Data), nil
}

// EncodeAll encodes every file, failing on the first invalid one. held is
// the number of images the caller already has for the same game.
func (e *Encoder) EncodeAll(files []File, held int) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if held < 0 {
		held = 0
	}
	if held+len(files) > e.MaxImages {
		return nil, fmt.Errorf("%w: %d, max %d", ErrTooManyImages, held+len(files), e.MaxImages)
	}

	handles := make([]string, 0, len(files))
	for _, f := range files {
		h, err := e.Encode(f)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
