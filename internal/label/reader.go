package label

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Reader extracts the specimen identifier printed in a corner of the slide.
type Reader struct {
	// Language is the Tesseract language code, "eng" by default.
	Language string

	// Frac is the fraction of each slide axis covered by the label corner
	// region, from the top-left. Defaults to 0.1.
	Frac float64
}

// NewReader returns a Reader with default settings.
func NewReader() *Reader {
	return &Reader{Language: "eng", Frac: 0.1}
}

// Region returns the corner rectangle that will be scanned for a label.
func (r *Reader) Region(img image.Image) image.Rectangle {
	frac := r.Frac
	if frac <= 0 || frac > 1 {
		frac = 0.1
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * frac)
	h := int(float64(b.Dy()) * frac)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h)
}

// Read OCRs the label corner and returns the first non-empty line of text.
// An unreadable or empty label yields "" with a nil error only when OCR
// itself succeeded; OCR engine failures are returned to the caller, who is
// expected to treat them as non-fatal.
func (r *Reader) Read(img image.Image) (string, error) {
	corner := imaging.Crop(img, r.Region(img))

	// Tesseract wants a file path, so hand the crop over via a temp PNG.
	tmp, err := os.CreateTemp("", "slide-label-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := png.Encode(tmp, corner); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode label region: %w", err)
	}
	tmp.Close()

	client := gosseract.NewClient()
	defer client.Close()

	lang := r.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImage(tmpPath); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return firstLine(text), nil
}

// firstLine returns the first non-blank line, trimmed.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
