package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrScanMismatch means a code decoded to different text than expected.
var ErrScanMismatch = errors.New("scanned text does not match")

// Scan decodes the QR code in img. Transparent areas read as white.
func Scan(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(flatten(img, color.RGBA{}))
	if err != nil {
		return "", fmt.Errorf("creating bitmap: %w", err)
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no QR code found in image: %w", err)
	}
	return result.GetText(), nil
}

// Verify checks that img scans back to want.
func Verify(img image.Image, want string) error {
	got, err := Scan(img)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %q", ErrScanMismatch, got)
	}
	return nil
}
