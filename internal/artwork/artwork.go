// Package artwork identifies embedded cover images and exports them next to
// decoded audio.
package artwork

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"ncmdump/internal/config"
	"ncmdump/internal/fileutil"
)

// Export formats accepted by cover.export_format.
const (
	ExportOriginal = "original"
	ExportWebP     = "webp"
)

// MaxExportEdge bounds the longest edge of re-encoded covers.
const MaxExportEdge = 1400

// ErrUnknownImage reports cover bytes no registered decoder understands.
var ErrUnknownImage = errors.New("unrecognised cover image")

// Cover describes sniffed cover art.
type Cover struct {
	Data   []byte
	Format string
	MIME   string
	Width  int
	Height int
}

// Extension returns the natural file extension, without a dot.
func (c Cover) Extension() string {
	if c.Format == "jpeg" {
		return "jpg"
	}
	return c.Format
}

// Sniff identifies cover bytes without decoding the full image.
func Sniff(data []byte) (Cover, error) {
	if len(data) == 0 {
		return Cover{}, ErrUnknownImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Cover{}, fmt.Errorf("%w: %v", ErrUnknownImage, err)
	}
	return Cover{
		Data:   data,
		Format: format,
		MIME:   "image/" + format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Export writes the cover at base plus the extension for the export
// format and returns the written path.
func Export(cover Cover, base, exportFormat string) (string, error) {
	switch exportFormat {
	case "", ExportOriginal:
		path := base + "." + cover.Extension()
		if err := fileutil.WriteFileAtomic(path, cover.Data, 0o644); err != nil {
			return "", fmt.Errorf("write cover: %w", err)
		}
		return path, nil
	case ExportWebP:
		encoded, err := EncodeWebP(cover.Data)
		if err != nil {
			return "", err
		}
		path := base + ".webp"
		if err := fileutil.WriteFileAtomic(path, encoded, 0o644); err != nil {
			return "", fmt.Errorf("write cover: %w", err)
		}
		return path, nil
	default:
		return "", fmt.Errorf("unknown cover export format %q", exportFormat)
	}
}

// EncodeWebP decodes data and re-encodes it as lossless WebP, scaling it
// down so the longest edge fits MaxExportEdge.
func EncodeWebP(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownImage, err)
	}
	img = fit(img, MaxExportEdge)

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("webp encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WantsExport reports whether the cover mode writes a sidecar image.
func WantsExport(mode string) bool {
	return mode == config.CoverExport || mode == config.CoverBoth
}

// WantsEmbed reports whether the cover mode embeds into the audio file.
func WantsEmbed(mode string) bool {
	return mode == config.CoverEmbed || mode == config.CoverBoth
}

func fit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
