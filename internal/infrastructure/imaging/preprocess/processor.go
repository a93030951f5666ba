package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// Processor prepares raster images for OCR. Output is always PNG.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) Metadata(data []byte) (domain.ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageMetadata{}, fmt.Errorf("read image metadata: %w", err)
	}
	return domain.ImageMetadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

func (p *Processor) Transform(data []byte, opts domain.TransformOptions) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("image has no pixels")
	}

	img := imaging.Clone(src)
	if opts.MaxDimension > 0 && (bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension) {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}
	if opts.Grayscale {
		img = imaging.Grayscale(img)
	}
	if opts.Normalize {
		img = stretchContrast(img)
	}
	if opts.Sharpen > 0 {
		img = imaging.Sharpen(img, opts.Sharpen)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return out.Bytes(), nil
}

// stretchContrast maps the darkest luminance to 0 and the brightest to 255.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	low, high := uint8(255), uint8(0)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		l := luminance(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		if l < low {
			low = l
		}
		if l > high {
			high = l
		}
	}
	if high <= low || (low == 0 && high == 255) {
		return img
	}
	span := float64(high - low)
	scale := func(v uint8) uint8 {
		if v <= low {
			return 0
		}
		if v >= high {
			return 255
		}
		return uint8(float64(v-low)*255/span + 0.5)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
	})
}

func luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}
