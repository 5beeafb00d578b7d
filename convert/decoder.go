package convert

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Raster formats accepted by the decoder. The stdlib covers png, jpeg
	// and gif; bmp and webp come from x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Format tags the raster format inferred from an uploaded payload.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatWebP Format = "webp"
)

var (
	ErrMalformedPayload = errors.New("malformed image payload")
	ErrUndecodableImage = errors.New("undecodable image data")
)

var mimeFormats = map[string]Format{
	"image/png":  FormatPNG,
	"image/jpeg": FormatJPEG,
	"image/jpg":  FormatJPEG,
	"image/gif":  FormatGIF,
	"image/bmp":  FormatBMP,
	"image/webp": FormatWebP,
}

// Ext returns the file extension conventionally used for the format.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// DecodeImagePayload turns a transport-encoded image payload into raw bytes
// and a format tag. The payload may carry a data-URL prefix
// ("data:image/png;base64,...."); without one the whole payload is treated
// as base64 and the format defaults to png, as does any unrecognized MIME
// type.
func DecodeImagePayload(payload string) ([]byte, Format, error) {
	format := FormatPNG
	data := payload

	if strings.HasPrefix(payload, "data:") {
		meta, rest, found := strings.Cut(payload, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: data URL without data section", ErrMalformedPayload)
		}
		data = rest

		mimeType := strings.TrimPrefix(meta, "data:")
		if idx := strings.Index(mimeType, ";"); idx >= 0 {
			mimeType = mimeType[:idx]
		}
		if f, ok := mimeFormats[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
			format = f
		}
	}

	// MIME-style payloads arrive line-wrapped; the decoder takes none of
	// that, so strip whitespace throughout, not just at the edges.
	data = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, data)

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty image data", ErrMalformedPayload)
	}
	return raw, format, nil
}

// DecodeRaster decodes raw image bytes into pixels for converters that need
// them. All formats in the fixed MIME table are registered.
func DecodeRaster(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	return img, nil
}
