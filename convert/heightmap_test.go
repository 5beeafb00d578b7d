package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeightmapConverterMetadata(t *testing.T) {
	c := NewHeightmapConverter(10.0)
	assert.Equal(t, ".obj", c.Ext())
	assert.Equal(t, "model/obj", c.ContentType())
}

func TestHeightmapConvertGrid(t *testing.T) {
	const w, h = 4, 3
	c := NewHeightmapConverter(10.0)

	out, err := c.Convert(context.Background(), pngBytes(t, w, h), FormatPNG)
	require.NoError(t, err)

	var vertices, faces int
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "f "):
			faces++
		}
	}

	// One vertex per pixel, two triangles per quad.
	assert.Equal(t, w*h, vertices)
	assert.Equal(t, 2*(w-1)*(h-1), faces)
}

func TestHeightmapConvertVertexShape(t *testing.T) {
	c := NewHeightmapConverter(10.0)

	out, err := c.Convert(context.Background(), pngBytes(t, 2, 2), FormatPNG)
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "v ") {
			continue
		}
		fields := strings.Fields(line)
		require.Len(t, fields, 4, "vertex line %q", line)
	}
}

func TestHeightmapConvertRejectsTinyImage(t *testing.T) {
	c := NewHeightmapConverter(10.0)

	_, err := c.Convert(context.Background(), pngBytes(t, 1, 1), FormatPNG)
	assert.ErrorIs(t, err, ErrUndecodableImage)
}

func TestHeightmapConvertRejectsGarbage(t *testing.T) {
	c := NewHeightmapConverter(10.0)

	_, err := c.Convert(context.Background(), []byte("not an image"), FormatPNG)
	assert.ErrorIs(t, err, ErrUndecodableImage)
}

func TestHeightmapConvertCancelledContext(t *testing.T) {
	c := NewHeightmapConverter(10.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Convert(ctx, pngBytes(t, 8, 8), FormatPNG)
	assert.ErrorIs(t, err, ErrConversionFailed)
}
