package compositor

import (
	"image"

	"github.com/gonewx/kikka/internal/surfaces"
)

// Window geometry used when a soul has no surface.
var (
	DefaultWindowSize   = image.Pt(100, 100)
	DefaultWindowCenter = image.Pt(50, 100)
)

// Layout is the placement of a soul image inside its window.
type Layout struct {
	// Base is the rectangle covered by the surface elements, relative to
	// the surface origin and without the shell offset.
	Base image.Rectangle
	// DrawOffset is where the surface origin lands on the canvas.
	DrawOffset image.Point
	// Size is the canvas size.
	Size image.Point
	// Center is the anchor used to align the window (base position).
	Center image.Point
}

// Rect returns the canvas rectangle.
func (l Layout) Rect() image.Rectangle {
	return image.Rectangle{Max: l.Size}
}

// ComputeLayout derives the canvas of a soul so that nothing is clipped.
//
// Element rectangles (or the whole surface image when the surface has no
// elements) and animRect, the bounding rectangle of the surface's
// animations, are all in surface coordinates. They are moved by shellOffset
// into shell coordinates and united; the canvas is that union. DrawOffset is
// where the surface origin lands on the canvas, so an element or frame with
// offset o is drawn at DrawOffset+o.
//
// Parameters:
//   - s: the displayed surface, nil when the soul shows nothing
//   - imgs: image source of the current shell
//   - shellOffset: per-soul offset from the shell descriptor
//   - animRect: union of every animation's bounding rectangle
//
// Returns:
//   - Layout: draw offset, canvas size and window center
func ComputeLayout(s *surfaces.Surface, imgs Images, shellOffset image.Point, animRect image.Rectangle) Layout {
	if s == nil {
		return Layout{
			Base:       image.Rectangle{Min: shellOffset, Max: shellOffset.Add(DefaultWindowSize)},
			DrawOffset: shellOffset,
			Size:       DefaultWindowSize,
			Center:     DefaultWindowCenter,
		}
	}

	var base image.Rectangle
	if len(s.Elements) > 0 {
		for _, e := range s.Elements {
			img, ok := imgs.Element(e.Filename)
			if !ok {
				continue
			}
			base = base.Union(image.Rectangle{Min: e.Offset, Max: e.Offset.Add(img.Bounds().Size())})
		}
	} else {
		base = image.Rectangle{Max: imgs.Surface(s.ID).Bounds().Size()}
	}

	rect := base.Union(animRect).Add(shellOffset)

	l := Layout{
		Base:       base,
		DrawOffset: shellOffset.Sub(rect.Min),
		Size:       rect.Size(),
	}
	if s.BasePos.IsSet() {
		l.Center = s.BasePos.Point()
	} else {
		l.Center = image.Pt(l.Size.X/2, l.Size.Y)
	}
	return l
}

// HitTest returns the first collision box containing p, a point in canvas
// coordinates. Boxes are tested in the order given (the shell's collision
// sort order).
func HitTest(boxes []surfaces.CollisionBox, l Layout, p image.Point) (surfaces.CollisionBox, bool) {
	local := p.Sub(l.DrawOffset)
	for _, b := range boxes {
		if local.In(b.Rect) {
			return b, true
		}
	}
	return surfaces.CollisionBox{}, false
}
