package pipeline

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
)

// invisibleTextRun matches a BT..ET text object that sets render mode 3
// (invisible), the shape Tesseract's sandwich renderer emits. redo_ocr
// strips exactly these runs before stamping a fresh text layer, leaving
// any vector drawing between them untouched - the resolution of the
// "does redo_ocr touch vector content" open question: it must not.
var invisibleTextRun = regexp.MustCompile(`(?s)BT\s.*?3\s+Tr.*?ET`)

// composePage implements §4.3 stage 5. Skip leaves the split page
// untouched. Every OCR-bearing action sandwiches the engine's text-only
// PDF underneath the split page's content - pdfcpu's watermark machinery
// already knows how to place one PDF's content below another's, so
// composing a sandwich page is just a background watermark whose source
// happens to be invisible text instead of a logo.
func composePage(action pdfmodel.PageAction, splitPath, textPDFPath, mergedPath string) error {
	switch action.Kind {
	case pdfmodel.ActionSkip:
		return copyFile(splitPath, mergedPath)

	case pdfmodel.ActionRedoOcr:
		stripped := splitPath + ".stripped.pdf"
		if err := stripInvisibleText(splitPath, stripped); err != nil {
			return fmt.Errorf("redo-ocr strip: %w", err)
		}
		defer os.Remove(stripped)
		return stampTextLayer(stripped, textPDFPath, mergedPath)

	default: // OcrRaster, OcrImageOnly, Force
		return stampTextLayer(splitPath, textPDFPath, mergedPath)
	}
}

// stampTextLayer places textPDFPath's single page underneath basePath's
// single page, writing the result to mergedPath.
func stampTextLayer(basePath, textPDFPath, mergedPath string) error {
	wm, err := api.PDFWatermarkForFile(textPDFPath, "", "", true, model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("build text-layer stamp: %w", err)
	}
	wm.OnTop = false // sandwich: text sits under the page, original content paints over it

	if err := api.AddWatermarksFile(basePath, mergedPath, nil, wm, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("stamp text layer: %w", err)
	}
	return nil
}

// stripInvisibleText removes any existing sandwich-style invisible text
// runs from inPDF's single page content stream and writes the result to
// outPDF, leaving drawing operators (images, vector paths) untouched.
func stripInvisibleText(inPDF, outPDF string) error {
	f, err := os.Open(inPDF)
	if err != nil {
		return err
	}
	ctx, err := api.ReadContext(f, model.NewDefaultConfiguration())
	f.Close()
	if err != nil {
		return fmt.Errorf("read for strip: %w", err)
	}

	xRefTable := ctx.XRefTable
	pd, _, err := xRefTable.PageDict(1, false)
	if err != nil || pd == nil {
		return fmt.Errorf("strip: missing page dict")
	}

	content, err := xRefTable.PageContent(pd, 0)
	if err != nil {
		return fmt.Errorf("strip: read page content: %w", err)
	}

	stripped := invisibleTextRun.ReplaceAll(content, nil)
	if err := xRefTable.SetPageContent(pd, stripped); err != nil {
		return fmt.Errorf("strip: write page content: %w", err)
	}

	out, err := os.Create(outPDF)
	if err != nil {
		return err
	}
	defer out.Close()
	return api.WriteContext(ctx, out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
