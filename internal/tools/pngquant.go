package tools

import (
	"context"
	"fmt"
)

// Quantizer palette-quantises an image to PNG, per §4.5's PNG branch of
// the per-image decision table. A real implementation shells out to
// pngquant.
type Quantizer interface {
	Quantize(ctx context.Context, inImage, outPNG string, qualityMin, qualityMax int) error
	Available(ctx context.Context) bool
}

type PngQuant struct {
	Binary string // default "pngquant"
	Runner Runner
}

func NewPngQuant(runner Runner) *PngQuant {
	return &PngQuant{Binary: "pngquant", Runner: runner}
}

func (p *PngQuant) bin() string {
	if p.Binary == "" {
		return "pngquant"
	}
	return p.Binary
}

func (p *PngQuant) Quantize(ctx context.Context, inImage, outPNG string, qualityMin, qualityMax int) error {
	args := []string{
		"--quality", fmt.Sprintf("%d-%d", qualityMin, qualityMax),
		"--output", outPNG,
		"--force",
		inImage,
	}
	_, stderr, err := p.Runner.Run(ctx, p.bin(), args)
	if err != nil {
		return childProcessError("pngquant", err, stderr)
	}
	return nil
}

func (p *PngQuant) Available(ctx context.Context) bool {
	_, _, err := p.Runner.Run(ctx, p.bin(), []string{"--version"})
	return err == nil
}
