package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
)

// maxMeshDimension caps the sampled grid; larger rasters are strided down
// so the produced mesh stays bounded.
const maxMeshDimension = 256

type heightmapConverter struct {
	heightScale float64
}

// NewHeightmapConverter derives a triangle mesh from the raster treated as
// a grayscale heightmap and emits it as Wavefront OBJ: one vertex per
// sampled pixel, two triangles per grid quad, z scaled by heightScale.
func NewHeightmapConverter(heightScale float64) Converter {
	if heightScale <= 0 {
		heightScale = 10.0
	}
	return &heightmapConverter{heightScale: heightScale}
}

func (c *heightmapConverter) Ext() string { return ".obj" }

func (c *heightmapConverter) ContentType() string { return "model/obj" }

func (c *heightmapConverter) Convert(ctx context.Context, raw []byte, format Format) ([]byte, error) {
	img, err := DecodeRaster(raw)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: image too small for a mesh (%dx%d)", ErrUndecodableImage, w, h)
	}

	stride := 1
	for (w+stride-1)/stride > maxMeshDimension || (h+stride-1)/stride > maxMeshDimension {
		stride++
	}
	gw := (w + stride - 1) / stride
	gh := (h + stride - 1) / stride

	var buf bytes.Buffer
	buf.WriteString("# heightmap mesh\n")

	// Vertices, row-major. y is flipped so the mesh is not mirrored
	// relative to the source image.
	for gy := 0; gy < gh; gy++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}
		for gx := 0; gx < gw; gx++ {
			px := bounds.Min.X + gx*stride
			py := bounds.Min.Y + gy*stride
			gray := color.GrayModel.Convert(img.At(px, py)).(color.Gray)
			z := float64(gray.Y) / 255.0 * c.heightScale
			fmt.Fprintf(&buf, "v %d %d %.6f\n", gx, -gy, z)
		}
	}

	// Two triangles per quad; OBJ face indices are 1-based.
	idx := func(gx, gy int) int { return gy*gw + gx + 1 }
	for gy := 0; gy < gh-1; gy++ {
		for gx := 0; gx < gw-1; gx++ {
			fmt.Fprintf(&buf, "f %d %d %d\n", idx(gx, gy), idx(gx+1, gy), idx(gx, gy+1))
			fmt.Fprintf(&buf, "f %d %d %d\n", idx(gx+1, gy), idx(gx+1, gy+1), idx(gx, gy+1))
		}
	}

	return buf.Bytes(), nil
}
