// Package config resolves the job options described in the spec's
// invocation contract: CLI flags, an optional YAML config file, and
// environment variables, merged through viper the way the teacher's
// internal/config.Manager merged its own provider configuration.
package config

import (
	"fmt"
	"runtime"
)

// OutputType selects the conformance level of the assembled PDF.
type OutputType string

const (
	OutputPDF   OutputType = "pdf"
	OutputPDFA1 OutputType = "pdfa-1"
	OutputPDFA2 OutputType = "pdfa-2"
	OutputPDFA3 OutputType = "pdfa-3"
)

// Renderer selects how the OCR text layer is produced.
type Renderer string

const (
	RendererAuto     Renderer = "auto"
	RendererHOCR     Renderer = "hocr"
	RendererSandwich Renderer = "sandwich"
)

// Metadata holds optional overrides for the output document's info dictionary.
type Metadata struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
}

// Options is the full, resolved set of job options from spec.md §6.
// A Job freezes one of these at construction time and never mutates it.
type Options struct {
	InputFile  string
	OutputFile string // "-" denotes stdio

	Languages []string

	OutputType  OutputType
	PDFRenderer Renderer

	// Mode selectors, mutually exclusive.
	ForceOCR bool
	SkipText bool
	RedoOCR  bool

	// Preprocessing.
	RotatePages      bool
	Deskew           bool
	Clean            bool
	CleanFinal       bool
	RemoveBackground bool
	Oversample       int // minimum DPI floor

	// Optimisation.
	Optimize           int // 0-3
	JPEGQuality        int
	PNGQuality         int
	JBIG2Lossy         bool
	JBIG2PageGroupSize int

	// Parallelism.
	Jobs int

	// Output extras.
	Sidecar     string // path, or "" to disable
	FastWebView bool
	Metadata    Metadata

	// Page selection, parsed from e.g. "1-3,5,7-9".
	Pages string

	KeepTemporaryFiles        bool
	ProgressBar               bool
	Verbosity                 string
	ContinueOnSoftRenderError bool
}

// Default returns an Options populated with spec.md §6's stated defaults.
func Default() *Options {
	return &Options{
		Languages:          []string{"eng"},
		OutputType:         OutputPDFA2,
		PDFRenderer:        RendererSandwich,
		Oversample:         0,
		Optimize:           0,
		JPEGQuality:        0, // resolved by the optimiser: 75, or 40 at optimize=3
		PNGQuality:         0, // resolved by the optimiser: 70, or 30 at optimize=3
		JBIG2PageGroupSize: 0, // resolved by the optimiser: 10 if lossy, else 1
		Jobs:               runtime.NumCPU(),
		Verbosity:          "info",
	}
}

// ModeCount returns how many of the exclusive mode selectors are set, so
// the Validator can reject more than one in a single call.
func (o *Options) ModeCount() int {
	n := 0
	if o.ForceOCR {
		n++
	}
	if o.SkipText {
		n++
	}
	if o.RedoOCR {
		n++
	}
	return n
}

// String implements fmt.Stringer for diagnostic logging, deliberately
// omitting nothing sensitive (there are no credentials in Options).
func (o *Options) String() string {
	return fmt.Sprintf("Options{in=%s out=%s type=%s renderer=%s jobs=%d optimize=%d}",
		o.InputFile, o.OutputFile, o.OutputType, o.PDFRenderer, o.Jobs, o.Optimize)
}
