package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/hemalab/hemascan/internal/infer"
)

// NoOp is an annotation hook that does nothing.
func NoOp(string, image.Image, []infer.Detection) {}

// Overlay returns a copy of img with each detection's box outlined in a
// per-class color.
func Overlay(img image.Image, dets []infer.Detection) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, d := range dets {
		drawBox(out, d.Rect(), ClassColor(d.ClassIndex))
	}
	return out
}

// ClassColor returns a stable, visually distinct color for a class index.
// Hues are spaced around the wheel with a stride coprime to 360 so nearby
// indices do not collide.
func ClassColor(idx int) color.RGBA {
	if idx < 0 {
		idx = -idx
	}
	hue := float64((idx * 47) % 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Saver returns an annotation hook that writes one overlay PNG per inference
// call into dir, named <stage>-<seq>.png. The pipeline is sequential, so no
// locking is needed around the counter.
func Saver(dir string) func(stage string, img image.Image, dets []infer.Detection) {
	seq := 0
	return func(stage string, img image.Image, dets []infer.Detection) {
		out := Overlay(img, dets)
		path := filepath.Join(dir, fmt.Sprintf("%s-%04d.png", stage, seq))
		seq++
		if err := imgio.Save(path, out, imgio.PNGEncoder()); err != nil {
			fmt.Fprintf(os.Stderr, "viz: failed to save %s: %v\n", path, err)
		}
	}
}

// drawBox outlines a rectangle, clamped to the image bounds.
func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	b := img.Bounds()
	r = r.Intersect(b)
	if r.Empty() {
		return
	}

	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}
