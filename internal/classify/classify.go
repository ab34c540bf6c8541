// Package classify sorts sampled texel colors into symbolic color buckets.
package classify

import (
	"fmt"
	"image"
	"image/color"
)

// Bucket is the outcome of classifying one color.
type Bucket string

const (
	Red     Bucket = "red"
	Green   Bucket = "green"
	Blue    Bucket = "blue"
	Default Bucket = "default"
)

// Buckets lists every bucket in precedence order.
var Buckets = []Bucket{Red, Green, Blue, Default}

// DefaultThreshold is the channel level a component must exceed to count as set.
const DefaultThreshold = 0.5

// Rules classifies RGB triples. A channel is "set" when strictly greater
// than Threshold, so a value equal to the threshold is never set.
type Rules struct {
	Threshold float64
}

// DefaultRules returns Rules with DefaultThreshold.
func DefaultRules() Rules {
	return Rules{Threshold: DefaultThreshold}
}

// Classify returns the first matching bucket, in order red, green, blue,
// then default. It is total over any input.
func (r Rules) Classify(rgb [3]float64) Bucket {
	t := r.Threshold
	red, green, blue := rgb[0] > t, rgb[1] > t, rgb[2] > t
	switch {
	case red && !green && !blue:
		return Red
	case !red && green && !blue:
		return Green
	case !red && !green && blue:
		return Blue
	default:
		return Default
	}
}

// Swatch is the display color of a bucket, used for previews.
func (b Bucket) Swatch() color.NRGBA {
	switch b {
	case Red:
		return color.NRGBA{R: 255, A: 255}
	case Green:
		return color.NRGBA{G: 255, A: 255}
	case Blue:
		return color.NRGBA{B: 255, A: 255}
	default:
		return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
}

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("classify: unknown bucket %q", s)
}

// Histogram counts the bucket of every texel of img.
func (r Rules) Histogram(img *image.NRGBA) map[Bucket]int {
	counts := make(map[Bucket]int, len(Buckets))
	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			counts[r.Classify(texel(img.Pix[i:i+3]))]++
		}
	}
	return counts
}

func texel(p []uint8) [3]float64 {
	return [3]float64{float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255}
}
