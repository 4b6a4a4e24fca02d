package pipeline

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// splitPage extracts page pageNo (0-based) of srcPDF into a standalone
// single-page PDF at outPDF, flattening inherited resources, per §4.3
// stage 1. pdfcpu's Trim already preserves media/crop/trim/bleed boxes
// and the page's resolved resource dictionary, so no extra flattening
// step is needed beyond selecting the one page.
func splitPage(srcPDF, outPDF string, pageNo int) error {
	selection := []string{fmt.Sprint(pageNo + 1)} // pdfcpu page selections are 1-based
	if err := api.TrimFile(srcPDF, outPDF, selection, nil); err != nil {
		return fmt.Errorf("split page %d: %w", pageNo, err)
	}
	return nil
}
