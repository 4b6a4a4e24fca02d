package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"

	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// rasterizePage implements §4.3 stage 2. For every action that needs a
// raster it shells out to the Rasterizer at the DPI the classifier chose.
// ActionOcrImageOnly skips rasterisation entirely and pulls the page's
// single image out of the PDF directly, since re-rendering a page that is
// nothing but one image would only lose quality; it's then upscaled to
// the oversample floor if the embedded image fell short of it.
func rasterizePage(ctx context.Context, rz tools.Rasterizer, splitPath, rasterPNG string, action pdfmodel.PageAction, page pdfmodel.PageInfo, oversample int) error {
	if action.Kind == pdfmodel.ActionOcrImageOnly {
		return extractSingleImage(splitPath, action.Xref, rasterPNG, page, oversample)
	}
	dpi := int(action.DPI)
	if dpi <= 0 {
		dpi = 300
	}
	if err := rz.Rasterize(ctx, splitPath, rasterPNG, dpi, page.Rotation); err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	return nil
}

// extractSingleImage extracts inPDF's images and writes the first
// extracted file to outPNG, decoded from PNG or JPEG and always
// re-encoded as PNG. xref only appears in error messages.
func extractSingleImage(inPDF string, xref int, outPNG string, page pdfmodel.PageInfo, oversample int) error {
	dir, err := os.MkdirTemp("", "pdfsandwich-extract-*")
	if err != nil {
		return fmt.Errorf("extract image: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractImagesFile(inPDF, dir, nil, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("extract image xref %d: %w", xref, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return fmt.Errorf("extract image xref %d: no image extracted", xref)
	}

	// pdfcpu names extracted files after the source and object number; we
	// only expect one image here since OcrImageOnly pages carry exactly one.
	srcPath := dir + string(os.PathSeparator) + entries[0].Name()
	img, err := decodeAny(srcPath)
	if err != nil {
		return fmt.Errorf("extract image xref %d: %w", xref, err)
	}
	img = upscaleToOversample(img, page, oversample)

	out, err := os.Create(outPNG)
	if err != nil {
		return fmt.Errorf("extract image xref %d: %w", xref, err)
	}
	defer out.Close()
	return png.Encode(out, img)
}

// upscaleToOversample enlarges img with a high-quality Catmull-Rom
// resample when its native resolution falls below the oversample DPI
// floor against the page's physical width, the same floor Classify
// enforces for rasterised pages.
func upscaleToOversample(img image.Image, page pdfmodel.PageInfo, oversample int) image.Image {
	if oversample <= 0 || page.WidthPts <= 0 {
		return img
	}
	const ptsPerInch = 72.0
	targetWidth := int(float64(oversample) * page.WidthPts / ptsPerInch)
	b := img.Bounds()
	if targetWidth <= b.Dx() {
		return img
	}
	scale := float64(targetWidth) / float64(b.Dx())
	targetHeight := int(float64(b.Dy()) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func decodeAny(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if img, err := png.Decode(f); err == nil {
		return img, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return jpeg.Decode(f)
}
