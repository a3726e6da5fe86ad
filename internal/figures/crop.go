package figures

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
)

const (
	// whiteThreshold is the grayscale level above which a pixel counts as
	// background when trimming margins.
	whiteThreshold = 245

	// bboxPadding is kept around the detected content box.
	bboxPadding = 5

	cropQuality = 95
)

// CropImage writes a cropped copy of a page image: the top banner strip is
// removed first, then white margins are trimmed to the content bounding box
// with a small padding. An all-white page is copied uncropped.
func CropImage(srcPath, dstPath string, topPixels int) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if topPixels > 0 && bounds.Min.Y+topPixels < bounds.Max.Y {
		bounds.Min.Y += topPixels
	}

	if box, ok := contentBox(img, bounds); ok {
		bounds = box
	}

	cropped := cropRect(img, bounds)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create cropped image: %w", err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, cropped, &jpeg.Options{Quality: cropQuality}); err != nil {
		return fmt.Errorf("failed to encode cropped image: %w", err)
	}
	return nil
}

// contentBox scans for non-background pixels and returns their bounding box
// padded by bboxPadding, clamped to the scan region. ok is false when the
// region is entirely background.
func contentBox(img image.Image, region image.Rectangle) (image.Rectangle, bool) {
	minX, minY := region.Max.X, region.Max.Y
	maxX, maxY := region.Min.X, region.Min.Y
	found := false

	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Integer luma approximation over 8-bit channels.
			gray := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			if gray > whiteThreshold {
				continue
			}
			found = true
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if !found {
		return image.Rectangle{}, false
	}

	box := image.Rect(minX-bboxPadding, minY-bboxPadding, maxX+1+bboxPadding, maxY+1+bboxPadding)
	return box.Intersect(region), true
}

func cropRect(img image.Image, r image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}
