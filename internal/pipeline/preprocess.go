package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// preprocessConfig gates each of the four fixed-order stages from §4.3:
// {orient, deskew, remove-bg, clean}. Each runs only if enabled; stage k's
// output becomes stage k+1's input.
type preprocessConfig struct {
	Orient           bool
	Deskew           bool
	RemoveBackground bool
	Clean            bool
	Descanner        tools.Descanner
}

// preprocess runs the enabled stages over inPNG and writes the final
// result to outPNG. If every stage is disabled, it simply copies the file.
func preprocess(ctx context.Context, cfg preprocessConfig, inPNG, outPNG string) error {
	cur := inPNG
	tmpFiles := []string{}
	defer func() {
		for _, f := range tmpFiles {
			os.Remove(f)
		}
	}()

	next := func(stage string) string {
		p := fmt.Sprintf("%s.%s.png", inPNG, stage)
		tmpFiles = append(tmpFiles, p)
		return p
	}

	if cfg.Orient {
		dst := next("orient")
		if err := autoOrient(cur, dst); err != nil {
			return fmt.Errorf("preprocess orient: %w", err)
		}
		cur = dst
	}

	if cfg.Deskew {
		dst := next("deskew")
		if err := deskew(cur, dst); err != nil {
			return fmt.Errorf("preprocess deskew: %w", err)
		}
		cur = dst
	}

	if cfg.RemoveBackground {
		dst := next("removebg")
		if err := removeBackground(cur, dst); err != nil {
			return fmt.Errorf("preprocess remove-background: %w", err)
		}
		cur = dst
	}

	if cfg.Clean {
		dst := next("clean")
		if cfg.Descanner == nil {
			return fmt.Errorf("preprocess clean: no descanner configured")
		}
		if err := cfg.Descanner.Clean(ctx, cur, dst); err != nil {
			return fmt.Errorf("preprocess clean: %w", err)
		}
		cur = dst
	}

	return copyPNG(cur, outPNG)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func copyPNG(src, dst string) error {
	img, err := loadPNG(src)
	if err != nil {
		return err
	}
	return savePNG(dst, img)
}

// autoOrient is the orient stage. It decodes the image and writes it back
// unchanged: it detects no orientation and applies no rotation.
func autoOrient(srcPath, dstPath string) error {
	img, err := loadPNG(srcPath)
	if err != nil {
		return err
	}
	return savePNG(dstPath, img)
}

// deskew detects the skew angle via a projection-profile search over a
// small range of candidate angles and rotates to correct it, rounding the
// angle to 0.01 degrees per §4.3.
func deskew(srcPath, dstPath string) error {
	img, err := loadPNG(srcPath)
	if err != nil {
		return err
	}
	gray := toGray(img)
	angle := detectSkewAngle(gray)
	rotated := rotateImage(gray, angle)
	return savePNG(dstPath, rotated)
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// detectSkewAngle searches candidate angles in [-5, 5] degrees in 0.1
// degree steps (0.25 degree steps on images over 4 megapixels) and picks
// the one maximising the variance of the horizontal row-sum projection
// profile - the scanline that best aligns with text baselines produces
// the sharpest profile. The chosen angle is rounded to 0.01 degrees.
func detectSkewAngle(gray *image.Gray) float64 {
	const maxAngle = 5.0
	best := 0.0
	bestScore := -1.0

	step := 0.1
	if gray.Bounds().Dx()*gray.Bounds().Dy() > 4_000_000 {
		step = 0.25 // coarser search on large pages to bound cost
	}

	for a := -maxAngle; a <= maxAngle; a += step {
		score := projectionVariance(gray, a)
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return math.Round(best*100) / 100
}

func projectionVariance(gray *image.Gray, angleDeg float64) float64 {
	b := gray.Bounds()
	theta := angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)

	rows := b.Dy()
	sums := make([]float64, rows)

	// Sample a subset of columns for speed; a dense scan isn't needed to
	// rank candidate angles against each other.
	step := b.Dx() / 200
	if step < 1 {
		step = 1
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x += step {
			// Project (x,y) onto the rotated axis to find its bucket row.
			ry := int(float64(x)*sin + float64(y)*cos)
			if ry < 0 || ry >= rows {
				continue
			}
			lum := 255 - gray.GrayAt(x, y).Y // ink = high value
			sums[ry] += float64(lum)
		}
	}

	mean := 0.0
	for _, s := range sums {
		mean += s
	}
	mean /= float64(len(sums))

	variance := 0.0
	for _, s := range sums {
		d := s - mean
		variance += d * d
	}
	return variance
}

// rotateImage rotates a grayscale image by angleDeg around its centre
// using nearest-neighbour sampling, filling uncovered corners white.
func rotateImage(gray *image.Gray, angleDeg float64) *image.Gray {
	if angleDeg == 0 {
		return gray
	}
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2

	theta := -angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)

	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			srcX := int(cos*dx-sin*dy + cx)
			srcY := int(sin*dx+cos*dy + cy)
			if srcX < 0 || srcX >= w || srcY < 0 || srcY >= h {
				out.SetGray(x, y, color.Gray{Y: 255})
				continue
			}
			out.SetGray(x, y, gray.GrayAt(srcX+b.Min.X, srcY+b.Min.Y))
		}
	}
	return out
}

// removeBackground flattens near-white regions to pure white, per §4.3's
// "flatten near-white regions" remove-background stage.
func removeBackground(srcPath, dstPath string) error {
	img, err := loadPNG(srcPath)
	if err != nil {
		return err
	}
	gray := toGray(img)
	const nearWhiteThreshold = 245

	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			if v >= nearWhiteThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
	return savePNG(dstPath, out)
}
