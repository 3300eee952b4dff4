package compositor

import (
	"image"
	"log"

	"github.com/gonewx/kikka/pkg/balloon"
	"golang.org/x/image/draw"
)

// BalloonImage renders a balloon background at the requested size.
//
// The background is cut along the balloon's clip grid (3x3 or 5x5) and each
// source tile is drawn into the matching destination tile, so corners keep
// their size and the variable cells absorb the rest. When flip is set and the
// balloon allows it, the result is mirrored horizontally; a 5x5 balloon with
// NoFlipCenter then gets its center tile redrawn unmirrored.
//
// Parameters:
//   - b: a loaded balloon, may be nil
//   - size: destination size in pixels
//   - flip: true when the balloon sits on the other side of its soul
//
// Returns:
//   - *image.RGBA: the rendered balloon, or DefaultImage when b has no background
func BalloonImage(b *balloon.Balloon, size image.Point, flip bool) *image.RGBA {
	if b == nil || b.Background() == nil {
		log.Printf("[Compositor] Warning: balloon image requested without a loaded balloon")
		return DefaultImage()
	}

	bg := b.Background()
	origin := bg.Bounds().Min
	src := b.SourceGrid()
	dst := b.DestGrid(size)

	canvas := image.NewRGBA(image.Rectangle{Max: size})
	for y := range dst {
		for x := range dst[y] {
			if y >= len(src) || x >= len(src[y]) {
				continue
			}
			drawTile(canvas, dst[y][x], bg, src[y][x].Add(origin))
		}
	}

	if !b.FlipBackground || !flip {
		return canvas
	}
	canvas = Mirror(canvas)
	if b.NoFlipCenter && len(b.ClipWidth) == 5 && len(b.ClipHeight) == 5 {
		drawTile(canvas, dst[2][2], bg, src[2][2].Add(origin))
	}
	return canvas
}

// drawTile copies sr of src into dr of dst, scaling when the sizes differ.
func drawTile(dst *image.RGBA, dr image.Rectangle, src image.Image, sr image.Rectangle) {
	if dr.Empty() || sr.Empty() {
		return
	}
	if dr.Size() == sr.Size() {
		draw.Draw(dst, dr, src, sr.Min, draw.Src)
		return
	}
	draw.NearestNeighbor.Scale(dst, dr, src, sr, draw.Src, nil)
}

// Mirror returns a horizontally mirrored copy of img.
func Mirror(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := out.PixOffset(b.Max.X-1-(x-b.Min.X), y)
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return out
}
