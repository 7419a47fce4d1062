package generator

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type ImageKind int

const (
	ImageInline ImageKind = iota
	ImageRemote
)

// ImageSource is a decoded image handle ready to attach to a model request.
type ImageSource struct {
	Kind      ImageKind
	MediaType string
	// Base64 holds the encoded payload for inline images.
	Base64 string
	// URL holds the location of remote images.
	URL string
}

// Bytes decodes an inline payload.
func (s ImageSource) Bytes() ([]byte, error) {
	if s.Kind != ImageInline {
		return nil, fmt.Errorf("image is not inline")
	}
	return base64.StdEncoding.DecodeString(s.Base64)
}

// ParseImageHandle accepts a base64 data URL or an http(s) URL.
func ParseImageHandle(handle string) (ImageSource, error) {
	handle = strings.TrimSpace(handle)
	switch {
	case strings.HasPrefix(handle, "data:"):
		meta, payload, ok := strings.Cut(strings.TrimPrefix(handle, "data:"), ",")
		if !ok {
			return ImageSource{}, fmt.Errorf("malformed data URL")
		}
		mediaType, encoding, _ := strings.Cut(meta, ";")
		if encoding != "base64" {
			return ImageSource{}, fmt.Errorf("data URL must be base64 encoded")
		}
		if !strings.HasPrefix(mediaType, "image/") {
			return ImageSource{}, fmt.Errorf("unsupported media type %q", mediaType)
		}
		if payload == "" {
			return ImageSource{}, fmt.Errorf("empty image payload")
		}
		return ImageSource{Kind: ImageInline, MediaType: mediaType, Base64: payload}, nil
	case strings.HasPrefix(handle, "https://"), strings.HasPrefix(handle, "http://"):
		return ImageSource{Kind: ImageRemote, MediaType: guessMediaType(handle), URL: handle}, nil
	default:
		return ImageSource{}, fmt.Errorf("unsupported image handle")
	}
}

func guessMediaType(url string) string {
	path := strings.ToLower(url)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
