package qr

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestEncoder_Encode(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		opts    Options
		wantErr bool
		width   int
	}{
		{
			name:  "Plain Text",
			text:  "Hello, world!",
			opts:  DefaultOptions(),
			width: 256,
		},
		{
			name:  "JSON Payload",
			text:  `{"data":"some data"}`,
			opts:  DefaultOptions(),
			width: 256,
		},
		{
			name:  "URL",
			text:  "https://openai.com",
			opts:  DefaultOptions(),
			width: 256,
		},
		{
			name:  "Width Below Module Count",
			text:  "Hello, world!",
			opts:  Options{Width: 10, Margin: 2, Dark: "#000", Light: "#fff"},
			width: 25, // version 1 symbol: 21 modules + 2*2 margin
		},
		{
			name:    "Payload Over Capacity",
			text:    strings.Repeat("a", 3000),
			opts:    DefaultOptions(),
			wantErr: true,
		},
		{
			name:    "Invalid Dark Color",
			text:    "Hello, world!",
			opts:    Options{Width: 256, Margin: 2, Dark: "blue", Light: "#ffffff"},
			wantErr: true,
		},
		{
			name:    "Negative Margin",
			text:    "Hello, world!",
			opts:    Options{Width: 256, Margin: -1, Dark: "#000000", Light: "#ffffff"},
			wantErr: true,
		},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(context.Background(), tt.text, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Encode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsEncodingFailure(err) {
					t.Errorf("Encode() error = %T, want *EncodingFailure", err)
				}
				return
			}

			if len(got.PNG) == 0 {
				t.Fatal("Encode() returned empty bytes")
			}
			if got.Payload != tt.text {
				t.Errorf("Payload = %q, want %q", got.Payload, tt.text)
			}

			img, err := png.Decode(bytes.NewReader(got.PNG))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.width || b.Dy() != tt.width {
				t.Errorf("image size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.width, tt.width)
			}
			if got.Width != tt.width {
				t.Errorf("Artifact.Width = %d, want %d", got.Width, tt.width)
			}
		})
	}
}

func TestEncoder_MarginAndColors(t *testing.T) {
	got, err := NewEncoder().Encode(context.Background(), "Hello, world!", DefaultOptions())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(got.PNG))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	toNRGBA := func(c color.Color) color.NRGBA {
		return color.NRGBAModel.Convert(c).(color.NRGBA)
	}

	// 21 modules + 4 margin modules over 256px: each module is ~10.24px,
	// so pixel 21 is the first pixel of the top-left finder pattern.
	light := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	dark := color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}

	if c := toNRGBA(img.At(0, 0)); c != light {
		t.Errorf("quiet zone pixel = %v, want %v", c, light)
	}
	if c := toNRGBA(img.At(19, 19)); c != light {
		t.Errorf("pixel inside margin = %v, want %v", c, light)
	}
	if c := toNRGBA(img.At(21, 21)); c != dark {
		t.Errorf("finder pattern pixel = %v, want %v", c, dark)
	}
}

func TestEncoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEncoder().Encode(ctx, "Hello, world!", DefaultOptions())
	if !IsEncodingFailure(err) {
		t.Fatalf("Encode() error = %v, want EncodingFailure", err)
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %q, want cancellation reason", err.Error())
	}
}

func TestArtifact_DataURI(t *testing.T) {
	a := &Artifact{PNG: []byte{0x89, 'P', 'N', 'G'}}
	if got, want := a.DataURI(), "data:image/png;base64,iVBORw=="; got != want {
		t.Errorf("DataURI() = %q, want %q", got, want)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#1f2937", want: color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}},
		{in: "#fff", want: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{in: "00000080", want: color.NRGBA{A: 0x80}},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHexColor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHexColor() = %v, want %v", got, tt.want)
			}
		})
	}
}
