package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// TraceProfile is the fixed parameter set passed to the tracer on every
// call. It is system configuration: identical parameters across calls keep
// conversions reproducible.
type TraceProfile struct {
	ColorMode       string
	Hierarchical    string
	Mode            string
	FilterSpeckle   int
	ColorPrecision  int
	GradientStep    int
	CornerThreshold int
	SegmentLength   float64
	SpliceThreshold int
	PathPrecision   int
}

// DefaultTraceProfile mirrors the profile the service has always traced
// with: binary spline tracing tuned for hand-drawn track outlines.
func DefaultTraceProfile() TraceProfile {
	return TraceProfile{
		ColorMode:       "binary",
		Hierarchical:    "stacked",
		Mode:            "spline",
		FilterSpeckle:   4,
		ColorPrecision:  6,
		GradientStep:    16,
		CornerThreshold: 60,
		SegmentLength:   4.0,
		SpliceThreshold: 45,
		PathPrecision:   3,
	}
}

type vtracerConverter struct {
	binPath string
	profile TraceProfile
	timeout time.Duration
}

// NewVTracerConverter wraps the vtracer CLI. The binary works on file
// paths, not buffers, so Convert stages input and output in a temp
// directory that is removed on every exit path.
func NewVTracerConverter(binPath string, profile TraceProfile, timeout time.Duration) Converter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &vtracerConverter{
		binPath: binPath,
		profile: profile,
		timeout: timeout,
	}
}

func (c *vtracerConverter) Ext() string { return ".svg" }

func (c *vtracerConverter) ContentType() string { return "image/svg+xml" }

func (c *vtracerConverter) Convert(ctx context.Context, raw []byte, format Format) ([]byte, error) {
	dir, err := os.MkdirTemp("", "racing-trace-")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp dir: %w", ErrConversionFailed, err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input"+format.Ext())
	outputPath := filepath.Join(dir, "output.svg")

	if err := os.WriteFile(inputPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("%w: failed to stage input: %w", ErrConversionFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binPath, c.args(inputPath, outputPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: tracer timed out after %v", ErrConversionFailed, c.timeout)
		}
		return nil, fmt.Errorf("%w: tracer exited: %v (%s)", ErrConversionFailed, err, out)
	}

	derived, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: tracer produced no output: %w", ErrConversionFailed, err)
	}
	if len(derived) == 0 {
		return nil, fmt.Errorf("%w: tracer produced empty output", ErrConversionFailed)
	}
	return derived, nil
}

func (c *vtracerConverter) args(inputPath, outputPath string) []string {
	p := c.profile
	return []string{
		"--input", inputPath,
		"--output", outputPath,
		"--colormode", p.ColorMode,
		"--hierarchical", p.Hierarchical,
		"--mode", p.Mode,
		"--filter_speckle", strconv.Itoa(p.FilterSpeckle),
		"--color_precision", strconv.Itoa(p.ColorPrecision),
		"--gradient_step", strconv.Itoa(p.GradientStep),
		"--corner_threshold", strconv.Itoa(p.CornerThreshold),
		"--segment_length", strconv.FormatFloat(p.SegmentLength, 'f', -1, 64),
		"--splice_threshold", strconv.Itoa(p.SpliceThreshold),
		"--path_precision", strconv.Itoa(p.PathPrecision),
	}
}
