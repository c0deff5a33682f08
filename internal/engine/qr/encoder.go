// Package qr renders text payloads as PNG QR code images.
//
// Symbol encoding is delegated to github.com/skip2/go-qrcode; this package only
// applies the quiet zone, colors and pixel size on top of the module bitmap.
package qr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultWidth      = 256
	DefaultMargin     = 2
	DefaultDarkColor  = "#1f2937"
	DefaultLightColor = "#ffffff"
)

// Options is the rendering configuration passed with every Encode call.
type Options struct {
	// Width of the output image in pixels, quiet zone included.
	Width int
	// Margin is the quiet zone around the symbol, in modules.
	Margin int
	Dark   string
	Light  string
}

func DefaultOptions() Options {
	return Options{
		Width:  DefaultWidth,
		Margin: DefaultMargin,
		Dark:   DefaultDarkColor,
		Light:  DefaultLightColor,
	}
}

// EncodingFailure is returned when no image can be produced for a payload.
type EncodingFailure struct {
	Reason string
	Err    error
}

func (e *EncodingFailure) Error() string {
	if e.Err == nil {
		return "qr: " + e.Reason
	}
	return fmt.Sprintf("qr: %s: %v", e.Reason, e.Err)
}

func (e *EncodingFailure) Unwrap() error {
	return e.Err
}

// IsEncodingFailure reports whether err is or wraps an *EncodingFailure.
func IsEncodingFailure(err error) bool {
	var ef *EncodingFailure
	return errors.As(err, &ef)
}

// Encoder produces PNG artifacts with the skip2/go-qrcode library at
// recovery level Medium.
type Encoder struct {
	level qrcode.RecoveryLevel
	now   func() time.Time
}

func NewEncoder() *Encoder {
	return &Encoder{
		level: qrcode.Medium,
		now:   time.Now,
	}
}

func (e *Encoder) Encode(ctx context.Context, text string, opts Options) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodingFailure{Reason: "cancelled", Err: err}
	}

	dark, err := ParseHexColor(opts.Dark)
	if err != nil {
		return nil, &EncodingFailure{Reason: "dark color", Err: err}
	}
	light, err := ParseHexColor(opts.Light)
	if err != nil {
		return nil, &EncodingFailure{Reason: "light color", Err: err}
	}
	if opts.Margin < 0 {
		return nil, &EncodingFailure{Reason: fmt.Sprintf("invalid margin %d", opts.Margin)}
	}

	code, err := qrcode.New(text, e.level)
	if err != nil {
		return nil, &EncodingFailure{Reason: "encode payload", Err: err}
	}
	code.DisableBorder = true

	img := render(code.Bitmap(), opts.Width, opts.Margin, dark, light)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &EncodingFailure{Reason: "write png", Err: err}
	}

	// The library call is not interruptible, so a cancellation that arrived
	// while it ran is reported here instead.
	if err := ctx.Err(); err != nil {
		return nil, &EncodingFailure{Reason: "cancelled", Err: err}
	}

	return &Artifact{
		PNG:       buf.Bytes(),
		Width:     img.Bounds().Dx(),
		Payload:   text,
		CreatedAt: e.now(),
	}, nil
}

// render scales bitmap so that the symbol plus margin modules on each side
// spans width pixels. Widths too small for one pixel per module fall back to
// a scale of one.
func render(bitmap [][]bool, width, margin int, dark, light color.Color) *image.Paletted {
	modules := len(bitmap)
	total := modules + 2*margin

	size, scale := total, 1.0
	if width >= total {
		size, scale = width, float64(width)/float64(total)
	}

	img := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{light, dark})
	offset := float64(margin) * scale

	for y := 0; y < size; y++ {
		row := moduleIndex(y, offset, scale)
		if row < 0 || row >= modules {
			continue
		}
		for x := 0; x < size; x++ {
			col := moduleIndex(x, offset, scale)
			if col < 0 || col >= modules {
				continue
			}
			if bitmap[row][col] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}

	return img
}

func moduleIndex(px int, offset, scale float64) int {
	pos := float64(px) - offset
	if pos < 0 {
		return -1
	}
	return int(pos / scale)
}
