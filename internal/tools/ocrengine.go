package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// OCRResult is what an OCR engine invocation produces: a text-only
// single-page PDF and optionally a plain-text transcript (§4.3 stage 4).
type OCRResult struct {
	TextPDFPath  string
	SidecarText  string // empty when sidecar wasn't requested
	RecognizedAny bool
}

// OCREngine runs OCR over a raster image and produces a sandwich-ready
// text-only PDF. A real implementation shells out to Tesseract; see
// original_source's `exec.tesseract` module for the language-pack
// checking this mirrors in internal/validator.
type OCREngine interface {
	// Recognize OCRs image (PNG) sized to pageWidthPts x pageHeightPts and
	// returns a text-only PDF plus optional sidecar text.
	Recognize(ctx context.Context, image string, pageWidthPts, pageHeightPts float64, languages []string, wantSidecar bool) (*OCRResult, error)

	// Languages returns the set of installed language codes.
	Languages(ctx context.Context) (map[string]bool, error)

	Version(ctx context.Context) (string, error)
}

// TesseractEngine is the real, exec.Command-backed OCREngine.
type TesseractEngine struct {
	Binary string // default "tesseract"
	Runner Runner
}

func NewTesseractEngine(runner Runner) *TesseractEngine {
	return &TesseractEngine{Binary: "tesseract", Runner: runner}
}

func (t *TesseractEngine) bin() string {
	if t.Binary == "" {
		return "tesseract"
	}
	return t.Binary
}

func (t *TesseractEngine) Recognize(ctx context.Context, image string, pageWidthPts, pageHeightPts float64, languages []string, wantSidecar bool) (*OCRResult, error) {
	outBase := strings.TrimSuffix(image, ".png")
	// Always ask for the txt output, even when the caller doesn't want a
	// sidecar, so RecognizedAny can be derived from the actual transcript
	// rather than assumed true whenever tesseract exits zero.
	args := []string{
		image, outBase,
		"-l", strings.Join(languages, "+"),
		"pdf", "txt",
	}

	_, stderr, err := t.Runner.Run(ctx, t.bin(), args)
	if err != nil {
		return nil, childProcessError("tesseract", err, stderr)
	}

	txtPath := outBase + ".txt"
	recognizedAny := true
	if err := checkRecognizedText(txtPath); errors.Is(err, errEmptyText) {
		recognizedAny = false
	}

	result := &OCRResult{TextPDFPath: outBase + ".pdf", RecognizedAny: recognizedAny}
	if wantSidecar {
		result.SidecarText = txtPath
	} else {
		os.Remove(txtPath)
	}
	return result, nil
}

// checkRecognizedText returns errEmptyText when tesseract's transcript is
// empty or whitespace-only, the same "no glyphs found" condition §4.6's
// "[empty]" sidecar marker reports.
func checkRecognizedText(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // unreadable isn't our call to make here; Recognize already succeeded
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return errEmptyText
	}
	return nil
}

func (t *TesseractEngine) Languages(ctx context.Context) (map[string]bool, error) {
	out, stderr, err := t.Runner.Run(ctx, t.bin(), []string{"--list-langs"})
	if err != nil {
		return nil, childProcessError("tesseract", err, stderr)
	}
	langs := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		langs[line] = true
	}
	return langs, nil
}

func (t *TesseractEngine) Version(ctx context.Context) (string, error) {
	return Probe(ctx, t.Runner, t.bin(), []string{"--version"})
}

// errEmptyText marks a transcript with no recognised glyphs, checked by
// checkRecognizedText against tesseract's own txt output.
var errEmptyText = fmt.Errorf("ocr engine recognised no text")
