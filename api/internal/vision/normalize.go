package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 95

// decodeImage parses raw bytes into a raster. Unparsable input maps to ErrDecode.
func decodeImage(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// resizeToValid brings the image into the [minSide, maxSide] range the vision
// service accepts, preserving aspect ratio. An image already in bounds is
// returned as-is with no resampling.
func resizeToValid(img image.Image, minSide, maxSide int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	scale := 1.0
	if min(w, h) < minSide {
		scale = math.Max(scale, float64(minSide)/float64(min(w, h)))
	}
	if max(w, h) > maxSide {
		scale = math.Min(scale, float64(maxSide)/float64(max(w, h)))
	}
	if scale == 1.0 {
		return img
	}

	newW := clampInt(int(math.Round(float64(w)*scale)), minSide, maxSide)
	newH := clampInt(int(math.Round(float64(h)*scale)), minSide, maxSide)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	// CatmullRom is the bicubic kernel in x/image/draw.
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// toRGBA flattens any decoded raster into RGBA so regions can be cropped
// with SubImage.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	dst := image.NewRGBA(img.Bounds())
	draw.Copy(dst, img.Bounds().Min, img, img.Bounds(), draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
