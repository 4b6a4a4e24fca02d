package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// recognizePage implements §4.3 stage 4: run the OCR engine over the
// preprocessed raster and return a text-only PDF (plus optional sidecar
// text). A page that recognises no glyphs is not an error - it surfaces
// as a warning so the caller can still emit the "[empty]" sidecar note
// from §4.6.
func recognizePage(ctx context.Context, engine tools.OCREngine, pageNo int, rasterPNG string, widthPts, heightPts float64, languages []string, wantSidecar bool) (*tools.OCRResult, string, error) {
	result, err := engine.Recognize(ctx, rasterPNG, widthPts, heightPts, languages, wantSidecar)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", pdferr.OcrTimeout(pageNo)
		}
		return nil, "", fmt.Errorf("ocr page %d: %w", pageNo, err)
	}

	warning := ""
	if !result.RecognizedAny {
		warning = "[empty]"
	}
	return result, warning, nil
}
