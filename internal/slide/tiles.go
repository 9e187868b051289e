package slide

import (
	"image"

	"github.com/disintegration/imaging"
)

// TileStride is the tile edge length in pixels; the grid steps by the full
// edge, so tiles do not overlap.
const TileStride = 512

// Origin is the top-left corner of one tile in slide pixel coordinates.
type Origin struct {
	X int
	Y int
}

// Origins returns the tile grid for a slide of the given size in row-major
// order: left to right, then top to bottom. The last tile in each axis may
// extend past the slide; cropping clamps it.
func Origins(width, height, stride int) []Origin {
	var origins []Origin
	for y := 0; y < height; y += stride {
		for x := 0; x < width; x += stride {
			origins = append(origins, Origin{X: x, Y: y})
		}
	}
	return origins
}

// CropTile extracts the size-square tile at origin o, clamped to the slide
// bounds. Edge tiles come back smaller, never padded.
func CropTile(slide image.Image, o Origin, size int) image.Image {
	b := slide.Bounds()
	right := min(o.X+size, b.Dx())
	bottom := min(o.Y+size, b.Dy())
	return imaging.Crop(slide, image.Rect(o.X, o.Y, right, bottom))
}
