package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnknownImageFormat is returned for image bytes no decoder accepts.
var ErrUnknownImageFormat = errors.New("unknown image format")

type configDecoder func(io.Reader) (image.Config, error)

// signatures maps leading magic bytes to a format. TGA has no signature
// and is tried last.
var signatures = []struct {
	format string
	magic  []byte
	decode configDecoder
}{
	{"png", []byte("\x89PNG\r\n\x1a\n"), png.DecodeConfig},
	{"jpeg", []byte("\xff\xd8"), jpeg.DecodeConfig},
	{"gif", []byte("GIF8"), gif.DecodeConfig},
	{"bmp", []byte("BM"), bmp.DecodeConfig},
	{"tiff", []byte("II*\x00"), tiff.DecodeConfig},
	{"tiff", []byte("MM\x00*"), tiff.DecodeConfig},
	{"webp", []byte("RIFF"), webp.DecodeConfig},
}

// Inspector reports image format and dimensions from the header alone.
// It satisfies convert.ImageInspector.
type Inspector struct{}

// Inspect sniffs the format of data and decodes its header.
func (Inspector) Inspect(data []byte) (string, int, int, error) {
	for _, sig := range signatures {
		if !bytes.HasPrefix(data, sig.magic) {
			continue
		}
		cfg, err := sig.decode(bytes.NewReader(data))
		if err != nil {
			return "", 0, 0, fmt.Errorf("%s header: %w", sig.format, err)
		}
		return sig.format, cfg.Width, cfg.Height, nil
	}

	cfg, err := tga.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return "", 0, 0, ErrUnknownImageFormat
	}
	return "tga", cfg.Width, cfg.Height, nil
}
