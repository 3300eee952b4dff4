package compositor

import (
	"image"
	"log"

	"github.com/gonewx/kikka/pkg/shell"
)

// Images resolves the pictures a surface draws.
type Images interface {
	// Element returns the image of an element file. ok is false when the
	// file is missing or cannot be decoded.
	Element(name string) (img image.Image, ok bool)
	// Surface returns the image of a whole surface id. It never returns nil:
	// a missing image resolves to DefaultImage.
	Surface(id int) image.Image
}

// DefaultImage returns a new 1x1 transparent image, drawn in place of any
// missing picture.
func DefaultImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// ShellImages adapts a loaded shell to Images.
//
// Images are decoded on first use and cached by the shell. Missing files are
// logged once per call and replaced by DefaultImage for surfaces.
func ShellImages(sh *shell.Shell) Images {
	return &shellImages{shell: sh}
}

type shellImages struct {
	shell *shell.Shell
}

func (s *shellImages) Element(name string) (image.Image, bool) {
	if s.shell == nil {
		return nil, false
	}
	img, err := s.shell.Image(name)
	if err != nil {
		log.Printf("[Compositor] Warning: Failed to load element image %s: %v", name, err)
		return nil, false
	}
	return img, true
}

func (s *shellImages) Surface(id int) image.Image {
	if s.shell == nil {
		return DefaultImage()
	}
	name := s.shell.SurfaceImageName(id)
	if name == "" {
		log.Printf("[Compositor] Warning: Image lost: surface%04d.png or surface%d.png", id, id)
		return DefaultImage()
	}
	img, err := s.shell.Image(name)
	if err != nil {
		log.Printf("[Compositor] Warning: Failed to load surface image %s: %v", name, err)
		return DefaultImage()
	}
	return img
}
