package tools

import "context"

// Descanner cleans scanned-image noise, the "clean" preprocessing stage
// from §4.3 (background removal is done in-process by the pipeline, not
// here). A real implementation shells out to unpaper (see
// original_source/python/ocrmypdf/exec/unpaper.py).
type Descanner interface {
	Clean(ctx context.Context, inImage, outImage string) error
	Available(ctx context.Context) bool
}

type Unpaper struct {
	Binary string // default "unpaper"
	Runner Runner
}

func NewUnpaper(runner Runner) *Unpaper {
	return &Unpaper{Binary: "unpaper", Runner: runner}
}

func (u *Unpaper) bin() string {
	if u.Binary == "" {
		return "unpaper"
	}
	return u.Binary
}

func (u *Unpaper) Clean(ctx context.Context, inImage, outImage string) error {
	args := []string{"--overwrite", "--images", inImage, outImage}
	_, stderr, err := u.Runner.Run(ctx, u.bin(), args)
	if err != nil {
		return childProcessError("unpaper", err, stderr)
	}
	return nil
}

func (u *Unpaper) Available(ctx context.Context) bool {
	_, _, err := u.Runner.Run(ctx, u.bin(), []string{"--version"})
	return err == nil
}
