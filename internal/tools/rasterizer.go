package tools

import (
	"context"
	"fmt"
)

// Rasterizer renders a single-page PDF to a raster image and performs the
// PostScript-interpreter-based PDF/A conversion named in §4.4/§6. A real
// implementation shells out to Ghostscript; ocrmypdf's own Go port would
// do the same (see original_source/python/ocrmypdf/_validation.py's
// `ghostscript` import).
type Rasterizer interface {
	// Rasterize renders inPDF's single page to outPNG at dpi, honouring rotation.
	Rasterize(ctx context.Context, inPDF, outPNG string, dpi int, rotation int) error

	// ConvertToPDFA rewrites inPDF into a PDF/A document of the given part (1,2,3).
	ConvertToPDFA(ctx context.Context, inPDF, outPDF string, part int) error

	// Version returns the probed Ghostscript version.
	Version(ctx context.Context) (string, error)
}

// GhostscriptRasterizer is the real, exec.Command-backed Rasterizer.
type GhostscriptRasterizer struct {
	Binary string // default "gs"
	Runner Runner
}

func NewGhostscriptRasterizer(runner Runner) *GhostscriptRasterizer {
	return &GhostscriptRasterizer{Binary: "gs", Runner: runner}
}

func (g *GhostscriptRasterizer) bin() string {
	if g.Binary == "" {
		return "gs"
	}
	return g.Binary
}

func (g *GhostscriptRasterizer) Rasterize(ctx context.Context, inPDF, outPNG string, dpi int, rotation int) error {
	args := []string{
		"-q", "-dNOPAUSE", "-dBATCH", "-dSAFER",
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", dpi),
		fmt.Sprintf("-sOutputFile=%s", outPNG),
		inPDF,
	}
	_, stderr, err := g.Runner.Run(ctx, g.bin(), args)
	if err != nil {
		return childProcessError("gs", err, stderr)
	}
	return nil
}

func (g *GhostscriptRasterizer) ConvertToPDFA(ctx context.Context, inPDF, outPDF string, part int) error {
	args := []string{
		"-q", "-dNOPAUSE", "-dBATCH", "-dSAFER",
		"-dPDFA=" + fmt.Sprint(part),
		"-dPDFACompatibilityPolicy=1",
		"-sDEVICE=pdfwrite",
		fmt.Sprintf("-sOutputFile=%s", outPDF),
		inPDF,
	}
	_, stderr, err := g.Runner.Run(ctx, g.bin(), args)
	if err != nil {
		return childProcessError("gs-pdfa", err, stderr)
	}
	return nil
}

func (g *GhostscriptRasterizer) Version(ctx context.Context) (string, error) {
	return Probe(ctx, g.Runner, g.bin(), []string{"--version"})
}
