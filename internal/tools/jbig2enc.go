package tools

import (
	"context"
	"fmt"
)

// Jbig2Encoder groups bitonal page images and emits one shared symbol
// dictionary plus one per-page image stream (§4.5's JBIG2 pass). A real
// implementation shells out to jbig2enc.
type Jbig2Encoder interface {
	// EncodeGroup encodes every file in pageImages (in order) into
	// outPrefix.0000, outPrefix.0001, ... plus outPrefix.sym when lossy
	// grouping (len(pageImages) > 1) is requested.
	EncodeGroup(ctx context.Context, pageImages []string, outPrefix string, lossy bool) error

	Available(ctx context.Context) bool
}

type Jbig2Enc struct {
	Binary string // default "jbig2"
	Runner Runner
}

func NewJbig2Enc(runner Runner) *Jbig2Enc {
	return &Jbig2Enc{Binary: "jbig2", Runner: runner}
}

func (j *Jbig2Enc) bin() string {
	if j.Binary == "" {
		return "jbig2"
	}
	return j.Binary
}

func (j *Jbig2Enc) EncodeGroup(ctx context.Context, pageImages []string, outPrefix string, lossy bool) error {
	args := []string{"-p"}
	if lossy {
		args = append(args, "-s")
	}
	args = append(args, "-b", outPrefix)
	args = append(args, pageImages...)

	_, stderr, err := j.Runner.Run(ctx, j.bin(), args)
	if err != nil {
		return childProcessError("jbig2enc", err, stderr)
	}
	return nil
}

func (j *Jbig2Enc) Available(ctx context.Context) bool {
	_, _, err := j.Runner.Run(ctx, j.bin(), []string{"--version"})
	return err == nil
}

// symbolDictPath returns the shared-dictionary filename jbig2enc produces
// for a group prefix when grouping more than one page (§3's Jbig2Group).
func symbolDictPath(prefix string) string {
	return fmt.Sprintf("%s.sym", prefix)
}
