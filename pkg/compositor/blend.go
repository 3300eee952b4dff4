// Package compositor renders soul and balloon images in software.
//
// Every drawing primitive works on a premultiplied *image.RGBA canvas. The
// source-over and source modes go through golang.org/x/image/draw; the
// remaining Porter-Duff modes used by surface paint types are computed per
// pixel because no drawing package exposes them.
package compositor

import (
	"image"

	"github.com/gonewx/kikka/internal/surfaces"
	"golang.org/x/image/draw"
)

// Mode is a Porter-Duff compositing rule.
type Mode int

const (
	// SourceOver draws the source on top of the destination.
	SourceOver Mode = iota
	// Source replaces the destination with the source.
	Source
	// SourceAtop draws the source only where the destination is opaque.
	SourceAtop
	// DestinationOver draws the source behind the destination.
	DestinationOver
	// DestinationAtop keeps the destination only where the source is opaque
	// and shows the source elsewhere.
	DestinationAtop
)

func (m Mode) String() string {
	switch m {
	case SourceOver:
		return "source-over"
	case Source:
		return "source"
	case SourceAtop:
		return "source-atop"
	case DestinationOver:
		return "destination-over"
	case DestinationAtop:
		return "destination-atop"
	}
	return "unknown"
}

// ModeFor maps a surface paint type to its compositing rule.
//
//	base, overlay  -> SourceOver
//	overlayfast    -> SourceAtop
//	replace        -> Source
//	interpolate    -> DestinationOver
//	asis           -> DestinationAtop
//	anything else  -> SourceOver
func ModeFor(m surfaces.Method) Mode {
	switch m {
	case surfaces.MethodBase, surfaces.MethodOverlay:
		return SourceOver
	case surfaces.MethodOverlayFast:
		return SourceAtop
	case surfaces.MethodReplace:
		return Source
	case surfaces.MethodInterpolate:
		return DestinationOver
	case surfaces.MethodAsis:
		return DestinationAtop
	}
	return SourceOver
}

// Blit draws src onto dst with its top-left corner at `at`.
//
// Only the pixels covered by the source rectangle are touched, whatever the
// mode. Parts of src outside dst are clipped. A nil dst or src is a no-op.
func Blit(dst *image.RGBA, src image.Image, at image.Point, mode Mode) {
	if dst == nil || src == nil {
		return
	}
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := sb.Min.Add(r.Min.Sub(at))

	switch mode {
	case SourceOver:
		draw.Draw(dst, r, src, sp, draw.Over)
	case Source:
		draw.Draw(dst, r, src, sp, draw.Src)
	default:
		porterDuff(dst, r, src, sp, mode)
	}
}

// porterDuff applies result = S*Fs + D*Fd on premultiplied 16-bit values.
func porterDuff(dst *image.RGBA, r image.Rectangle, src image.Image, sp image.Point, mode Mode) {
	const full = 0xffff
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			sr, sg, sb, sa := src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y).RGBA()

			i := dst.PixOffset(x, y)
			d := dst.Pix[i : i+4 : i+4]
			dr := uint32(d[0]) * 0x101
			dg := uint32(d[1]) * 0x101
			db := uint32(d[2]) * 0x101
			da := uint32(d[3]) * 0x101

			var fs, fd uint32
			switch mode {
			case SourceAtop:
				fs, fd = da, full-sa
			case DestinationOver:
				fs, fd = full-da, full
			case DestinationAtop:
				fs, fd = full-da, sa
			default:
				fs, fd = full, full-sa
			}

			mix := func(s, t uint32) uint8 {
				v := (uint64(s)*uint64(fs) + uint64(t)*uint64(fd)) / full
				if v > full {
					v = full
				}
				return uint8(v >> 8)
			}
			d[0] = mix(sr, dr)
			d[1] = mix(sg, dg)
			d[2] = mix(sb, db)
			d[3] = mix(sa, da)
		}
	}
}
