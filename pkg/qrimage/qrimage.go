// Package qrimage turns the QR payloads emitted by the client into image
// files a person can scan.
//
// The login page renders the QR code as a CSS background image, so the
// payload is a base64 data URL such as "data:image/png;base64,iVBOR...".
package qrimage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"

	// Register decoders for image formats.
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

// ErrEmptyPayload is returned for a payload with no image data.
var ErrEmptyPayload = errors.New("qrimage: empty payload")

var dataURLPrefix = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,`)

// Decode decodes a base64 QR payload, with or without a data URL prefix.
func Decode(payload string) (image.Image, error) {
	raw := dataURLPrefix.ReplaceAllString(payload, "")
	if raw == "" {
		return nil, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("qrimage: decoding base64: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("qrimage: decoding image: %w", err)
	}
	return img, nil
}

// Resize scales img to width pixels wide, keeping the aspect ratio.
// Upscaling uses nearest neighbour so module edges stay sharp.
func Resize(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if width <= 0 || w == 0 || width == w {
		return img
	}

	height := h * width / w
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler := draw.Interpolator(draw.CatmullRom)
	if width > w {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// WriteFile decodes payload, resizes it to width (0 keeps the original
// size) and writes it to path as PNG. The file is replaced atomically.
func WriteFile(path, payload string, width int) error {
	img, err := Decode(payload)
	if err != nil {
		return err
	}
	img = Resize(img, width)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("qrimage: creating directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("qrimage: encoding png: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("qrimage: writing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("qrimage: writing file: %w", err)
	}
	return nil
}
