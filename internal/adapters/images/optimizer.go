// Package images implements the asset optimizer collaborator on libvips.
package images

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.AssetOptimizer = (*Optimizer)(nil)

// vipsOnce guards the one-time libvips startup. Shutdown is left to process
// exit, libvips does not support restarting within one process.
var vipsOnce sync.Once

// rasterExtensions are the formats re-encoded through libvips.
var rasterExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".avif": true,
}

// svgComment strips XML comments from SVG text.
var svgComment = regexp.MustCompile(`<!--[\s\S]*?-->`)

// Optimizer re-encodes raster images and lightly compacts SVG text. Fonts
// and unrecognized formats pass through unchanged. An error from Optimize is
// a degradation: the caller copies the original bytes and logs a warning.
type Optimizer struct {
	quality int
}

// NewOptimizer creates an Optimizer and starts libvips on first use.
func NewOptimizer(quality int) *Optimizer {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Optimizer{quality: quality}
}

// Optimize implements ports.AssetOptimizer.
func (o *Optimizer) Optimize(ctx context.Context, data []byte, ext string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext = strings.ToLower(ext)
	switch {
	case ext == ".svg":
		return o.compactSVG(data), nil
	case rasterExtensions[ext]:
		return o.reencode(data, ext)
	default:
		// Fonts, icons and unknown formats copy through.
		return data, nil
	}
}

func (o *Optimizer) reencode(data []byte, ext string) ([]byte, error) {
	vipsOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelError)
		vips.Startup(nil)
	})

	image, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrCollaboratorDegraded, err), "format", ext)
	}
	defer image.Close()

	var out []byte
	switch ext {
	case ".png":
		out, _, err = image.ExportPng(&vips.PngExportParams{Compression: 9})
	case ".jpg", ".jpeg":
		out, _, err = image.ExportJpeg(&vips.JpegExportParams{Quality: o.quality, StripMetadata: true})
	case ".webp":
		out, _, err = image.ExportWebp(&vips.WebpExportParams{Quality: o.quality, StripMetadata: true})
	case ".avif":
		out, _, err = image.ExportAvif(&vips.AvifExportParams{Quality: o.quality, StripMetadata: true})
	default:
		return data, nil
	}
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrCollaboratorDegraded, err), "format", ext)
	}

	// A re-encode that grows the file is not an optimization.
	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

// compactSVG removes comments and collapses inter-tag whitespace. The SVG
// stays valid XML; anything smarter belongs in a real SVG optimizer.
func (o *Optimizer) compactSVG(data []byte) []byte {
	text := svgComment.ReplaceAllString(string(data), "")
	lines := strings.Split(text, "\n")
	compact := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			compact = append(compact, trimmed)
		}
	}
	return []byte(strings.Join(compact, ""))
}
