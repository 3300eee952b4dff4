package compositor

import (
	"image"

	"github.com/gonewx/kikka/internal/surfaces"
	"github.com/gonewx/kikka/pkg/animation"
)

// ComposeSurface draws the static layer of a surface: every element with its
// own paint type, or the whole surface image when there are no elements.
//
// Returns:
//   - *image.RGBA: a new transparent canvas of l.Size with the base layer
func ComposeSurface(s *surfaces.Surface, imgs Images, l Layout) *image.RGBA {
	canvas := image.NewRGBA(l.Rect())
	if s == nil {
		return canvas
	}

	if len(s.Elements) == 0 {
		Blit(canvas, imgs.Surface(s.ID), l.DrawOffset, SourceOver)
		return canvas
	}
	for _, e := range s.Elements {
		img, ok := imgs.Element(e.Filename)
		if !ok {
			continue
		}
		Blit(canvas, img, l.DrawOffset.Add(e.Offset), ModeFor(e.PaintType))
	}
	return canvas
}

// ComposeSoul draws the full soul image: the base layer, then every
// animation in set order.
//
// A running animation draws its current frame. An animation listed by bound
// (a worn clothing item) draws all of its displayable patterns whether it is
// playing or not.
//
// Parameters:
//   - s: the displayed surface, may be nil
//   - imgs: image source of the current shell
//   - l: layout computed by ComputeLayout for the same surface
//   - anims: animation runtimes of the surface, may be nil
//   - bound: reports whether an animation id is worn, may be nil
//
// Example:
//
//	l := compositor.ComputeLayout(sf, imgs, sh.Offset(soul), set.Rect())
//	img := compositor.ComposeSoul(sf, imgs, l, set, func(aid int) bool {
//		return sh.IsBound(soul, aid)
//	})
func ComposeSoul(s *surfaces.Surface, imgs Images, l Layout, anims *animation.Set, bound func(aid int) bool) *image.RGBA {
	canvas := ComposeSurface(s, imgs, l)
	if s == nil || anims == nil {
		return canvas
	}

	for _, r := range anims.All() {
		if bound != nil && bound(r.ID()) {
			for i := range r.Data.Patterns {
				p := &r.Data.Patterns[i]
				if p.IsControl() || p.IsTerminator() {
					continue
				}
				Blit(canvas, imgs.Surface(p.SurfaceID), l.DrawOffset.Add(p.Offset), ModeFor(p.Method))
			}
			continue
		}
		f, ok := r.Frame()
		if !ok {
			continue
		}
		Blit(canvas, imgs.Surface(f.SurfaceID), l.DrawOffset.Add(f.Offset), ModeFor(f.Method))
	}
	return canvas
}
