package texture

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// decoders picks a decoder by file extension. The tga package registers
// itself with an empty magic string, so image.Decode sniffing would hand
// every file to it.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".tga":  tga.Decode,
	".webp": webp.Decode,
}

// LoadTexture decodes a PNG, JPEG, BMP, TGA or WebP file into an NRGBA image
// whose bounds start at the origin.
func LoadTexture(path string) (*image.NRGBA, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("texture: decode %s: unsupported format", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("texture: decode %s: empty image", path)
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA format anchored at (0,0).
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
