// Package assembler implements spec.md §5: rejoining the per-page merged
// PDFs back into one document in page order, then applying the
// document-level finishing passes (PDF/A conversion, metadata, fast web
// view) that only make sense once on a whole file.
package assembler

import (
	"context"
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
	"github.com/ocrforge/pdfsandwich/internal/pipeline"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// outputTypeToPart maps an OutputType to the Ghostscript PDF/A part
// number the Rasterizer's ConvertToPDFA expects.
var outputTypeToPart = map[config.OutputType]int{
	config.OutputPDFA1: 1,
	config.OutputPDFA2: 2,
	config.OutputPDFA3: 3,
}

// Assemble merges results in page order, regardless of the order their
// workers finished in, then runs the requested document-level passes.
// It returns the finished output path, which the caller moves into place
// with the atomic rename required by the invariant in §3.
func Assemble(results []pipeline.PageResult, meta pdfmodel.DocMetadata, opts *config.Options, rasterizer tools.Rasterizer, linearizer tools.Linearizer, workDir string) (string, error) {
	ordered := append([]pipeline.PageResult(nil), results...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PageNo < ordered[j].PageNo })

	paths := make([]string, 0, len(ordered))
	for _, r := range ordered {
		if r.Err != nil {
			return "", fmt.Errorf("page %d failed: %w", r.PageNo, r.Err)
		}
		if r.MergedPath == "" {
			return "", fmt.Errorf("page %d: no merged output produced", r.PageNo)
		}
		paths = append(paths, r.MergedPath)
	}
	if len(paths) == 0 {
		return "", pdferr.InvalidOutputPDF("no pages to assemble", nil)
	}

	mergedPath := workDir + "/assembled.pdf"
	if len(paths) == 1 {
		if err := copyFile(paths[0], mergedPath); err != nil {
			return "", pdferr.InvalidOutputPDF("failed to stage single-page output", err)
		}
	} else if err := api.MergeCreateFile(paths, mergedPath, false, model.NewDefaultConfiguration()); err != nil {
		return "", pdferr.InvalidOutputPDF("failed to merge pages", err)
	}

	cur := mergedPath

	if err := applyMetadata(cur, meta, opts.Metadata); err != nil {
		return "", err
	}

	if part, wantPDFA := outputTypeToPart[opts.OutputType]; wantPDFA {
		pdfaPath := workDir + "/pdfa.pdf"
		if err := rasterizer.ConvertToPDFA(context.Background(), cur, pdfaPath, part); err != nil {
			return "", pdferr.PDFAConversionFailed(fmt.Sprintf("PDF/A-%d conversion failed", part), err)
		}
		cur = pdfaPath
	}

	if opts.FastWebView {
		linPath := workDir + "/linearized.pdf"
		if err := linearizer.Linearize(context.Background(), cur, linPath); err != nil {
			return "", pdferr.InvalidOutputPDF("linearisation failed", err)
		}
		cur = linPath
	}

	if err := sanityCheck(cur); err != nil {
		return "", err
	}

	return cur, nil
}

// producerStamp marks every document this pipeline produces, so a later
// run over the same file can recognise prior OCR via
// pdfmodel.scanForPriorOCR instead of re-deriving it from content streams.
const producerStamp = "pdfsandwich"

// applyMetadata copies the source document's info dictionary forward,
// then overrides any field the caller set explicitly, per §4.4. Rejects
// private-use-area and above-BMP characters the PDF/A metadata stream
// can't carry cleanly. Producer is always overwritten with this
// pipeline's own stamp, regardless of the source document's Producer.
func applyMetadata(pdfPath string, src pdfmodel.DocMetadata, override config.Metadata) error {
	fields := map[string]string{
		"Title":    firstNonEmpty(override.Title, src.Title),
		"Author":   firstNonEmpty(override.Author, src.Author),
		"Subject":  firstNonEmpty(override.Subject, src.Subject),
		"Keywords": firstNonEmpty(override.Keywords, src.Keywords),
		"Producer": producerStamp,
	}
	props := map[string]string{}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if k != "Producer" {
			if err := validateMetadataString(v); err != nil {
				return pdferr.BadArgs("metadata field %s: %v", k, err)
			}
		}
		props[k] = v
	}
	if err := api.SetPropertiesFile(pdfPath, pdfPath, props, model.NewDefaultConfiguration()); err != nil {
		return pdferr.InvalidOutputPDF("failed to write metadata", err)
	}
	return nil
}

// validateMetadataString rejects private-use-area and above-BMP runes,
// which XMP metadata streams cannot round-trip safely.
func validateMetadataString(s string) error {
	for _, r := range s {
		if r > 0xFFFF {
			return fmt.Errorf("character %q outside the Basic Multilingual Plane", r)
		}
		if (r >= 0xE000 && r <= 0xF8FF) || r == utf8.RuneError {
			return fmt.Errorf("private-use or invalid character %q", r)
		}
	}
	return nil
}

// sanityCheck rejects a zero-page or zero-byte output before it's handed
// back to the caller for the atomic rename, per §3 invariant 5.
func sanityCheck(pdfPath string) error {
	fi, err := os.Stat(pdfPath)
	if err != nil || fi.Size() == 0 {
		return pdferr.InvalidOutputPDF("assembled output is empty", err)
	}
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil || ctx.PageCount == 0 {
		return pdferr.InvalidOutputPDF("assembled output has no pages", err)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
