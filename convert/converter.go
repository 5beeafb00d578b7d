package convert

import (
	"context"
	"errors"
)

// ErrConversionFailed wraps failures of the wrapped conversion algorithm,
// including timeouts.
var ErrConversionFailed = errors.New("asset conversion failed")

// Converter produces a derived asset from raw raster bytes. Implementations
// must not leave partial output behind on any failure path.
type Converter interface {
	Convert(ctx context.Context, raw []byte, format Format) ([]byte, error)

	// Ext is the file extension of the produced asset, e.g. ".svg".
	Ext() string

	// ContentType of the produced asset.
	ContentType() string
}
