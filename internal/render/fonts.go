package render

import (
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Font names accepted by TextLayer.Font.
const (
	FontSans = "sans"
	FontBold = "bold"
	FontMono = "mono"
)

var (
	parsedOnce  sync.Once
	parsedFonts map[string]*truetype.Font
)

func parsedFont(name string) *truetype.Font {
	parsedOnce.Do(func() {
		parsedFonts = make(map[string]*truetype.Font, 3)
		for n, data := range map[string][]byte{
			FontSans: goregular.TTF,
			FontBold: gobold.TTF,
			FontMono: gomono.TTF,
		} {
			// The embedded Go fonts always parse.
			f, _ := truetype.Parse(data)
			parsedFonts[n] = f
		}
	})
	return parsedFonts[name]
}

type faceKey struct {
	name string
	size float64
}

// faceCache holds font faces for one compositor. Faces keep glyph caches and must
// not be shared between goroutines.
type faceCache struct {
	faces map[faceKey]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[faceKey]font.Face)}
}

// face returns a cached face. Sizes are quantized to half pixels so the pulsing
// title does not grow the cache without bound.
func (c *faceCache) face(name string, size float64) font.Face {
	size = math.Max(1, math.Round(size*2)/2)
	switch name {
	case FontBold, FontMono:
	default:
		name = FontSans
	}

	key := faceKey{name: name, size: size}
	if f, ok := c.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(parsedFont(name), &truetype.Options{Size: size, Hinting: font.HintingNone})
	c.faces[key] = f
	return f
}
