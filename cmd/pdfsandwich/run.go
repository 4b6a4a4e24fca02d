package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/job"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// exitBadArgs mirrors pdferr.CodeBadArgs for main.go's cobra-rejected-
// before-RunE path, without main.go needing to import pdferr itself.
const exitBadArgs = pdferr.CodeBadArgs
const exitCtrlC = pdferr.CodeCtrlC

var runFlags struct {
	output             string
	languages          []string
	outputType         string
	pdfRenderer        string
	forceOCR           bool
	skipText           bool
	redoOCR            bool
	rotatePages        bool
	deskew             bool
	clean              bool
	cleanFinal         bool
	removeBackground   bool
	oversample         int
	optimize           int
	jpegQuality        int
	pngQuality         int
	jbig2Lossy         bool
	jbig2GroupSize     int
	jobsN              int
	sidecar            string
	fastWebView        bool
	title              string
	author             string
	subject            string
	keywords           string
	pages              string
	keepTemp           bool
	progressBar        bool
	continueOnSoftFail bool
}

// run is the only function in this module that converts a *pdferr.Error
// into an os.Exit code, per §7: everything below this never calls
// os.Exit itself.
var runCmd = &cobra.Command{
	Use:   "run [input.pdf]",
	Short: "OCR a PDF and write a searchable copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := buildOptions(cmd, args[0])
		if err != nil {
			var perr *pdferr.Error
			if errors.As(err, &perr) {
				fmt.Fprintln(os.Stderr, "pdfsandwich:", perr.Error())
				os.Exit(perr.ExitCode())
			}
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: resolvedLogLevel()}))

		j := job.New(opts, buildTools(logger), logger)
		if err := j.Run(cmd.Context()); err != nil {
			var perr *pdferr.Error
			if errors.As(err, &perr) {
				fmt.Fprintln(os.Stderr, "pdfsandwich:", perr.Error())
				os.Exit(perr.ExitCode())
			}
			fmt.Fprintln(os.Stderr, "pdfsandwich:", err)
			os.Exit(int(pdferr.CodeOther))
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.output, "output", "o", "-", "output PDF path, or - for stdout")
	f.StringSliceVarP(&runFlags.languages, "language", "l", []string{"eng"}, "OCR language(s), comma-separated or repeated, e.g. eng,fra")
	f.StringVar(&runFlags.outputType, "output-type", "pdfa-2", "pdf, pdfa-1, pdfa-2, or pdfa-3")
	f.StringVar(&runFlags.pdfRenderer, "pdf-renderer", "sandwich", "auto, hocr, or sandwich")

	f.BoolVar(&runFlags.forceOCR, "force-ocr", false, "rasterise every page and OCR it, discarding existing text")
	f.BoolVar(&runFlags.skipText, "skip-text", false, "skip OCR on pages that already contain text")
	f.BoolVar(&runFlags.redoOCR, "redo-ocr", false, "replace existing OCR text layers, keeping other page content")

	f.BoolVar(&runFlags.rotatePages, "rotate-pages", false, "enable the orientation stage (it applies no rotation)")
	f.BoolVar(&runFlags.deskew, "deskew", false, "deskew pages before OCR")
	f.BoolVar(&runFlags.clean, "clean", false, "clean pages with unpaper before OCR")
	f.BoolVar(&runFlags.cleanFinal, "clean-final", false, "requires --clean; no cleaning is applied to the final output")
	f.BoolVar(&runFlags.removeBackground, "remove-background", false, "flatten near-white background regions")
	f.IntVar(&runFlags.oversample, "oversample", 0, "minimum DPI floor for rasterisation")

	f.IntVar(&runFlags.optimize, "optimize", 0, "optimisation level 0-3")
	f.IntVar(&runFlags.jpegQuality, "jpeg-quality", 0, "JPEG re-encode quality (0 = default)")
	f.IntVar(&runFlags.pngQuality, "png-quality", 0, "PNG quantisation quality (0 = default)")
	f.BoolVar(&runFlags.jbig2Lossy, "jbig2-lossy", false, "allow lossy JBIG2 symbol sharing across pages")
	f.IntVar(&runFlags.jbig2GroupSize, "jbig2-page-group-size", 0, "pages per shared JBIG2 symbol dictionary (0 = default)")

	f.IntVarP(&runFlags.jobsN, "jobs", "j", 0, "number of parallel page workers (0 = NumCPU)")

	f.StringVar(&runFlags.sidecar, "sidecar", "", "write recognised text to this path, or - for stdout")
	f.BoolVar(&runFlags.fastWebView, "fast-web-view", false, "linearise the output for progressive web rendering")

	f.StringVar(&runFlags.title, "title", "", "override the output document's Title")
	f.StringVar(&runFlags.author, "author", "", "override the output document's Author")
	f.StringVar(&runFlags.subject, "subject", "", "override the output document's Subject")
	f.StringVar(&runFlags.keywords, "keywords", "", "override the output document's Keywords")

	f.StringVar(&runFlags.pages, "pages", "", `page selection, e.g. "1-3,5,7-9" (default: all pages)`)

	f.BoolVar(&runFlags.keepTemp, "keep-temporary-files", false, "don't remove the working directory on exit")
	f.BoolVar(&runFlags.progressBar, "progress-bar", true, "accepted; no progress bar is displayed")
	f.BoolVar(&runFlags.continueOnSoftFail, "continue-on-soft-render-error", false, "accepted; any failed page still fails the job")
}

func buildOptions(cmd *cobra.Command, input string) (*config.Options, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, pdferr.InvalidConfig("failed to load config: %v", err)
	}
	opts := mgr.Defaults()
	opts.InputFile = input
	opts.OutputFile = runFlags.output

	// languages/output-type/pdf-renderer/jobs also come from the config
	// file's defaults; only let an explicitly-passed flag override them.
	flags := cmd.Flags()
	if flags.Changed("language") {
		opts.Languages = runFlags.languages
	}
	if flags.Changed("output-type") {
		opts.OutputType = config.OutputType(runFlags.outputType)
	}
	if flags.Changed("pdf-renderer") {
		opts.PDFRenderer = config.Renderer(runFlags.pdfRenderer)
	}
	if flags.Changed("jobs") && runFlags.jobsN > 0 {
		opts.Jobs = runFlags.jobsN
	}

	opts.ForceOCR = runFlags.forceOCR
	opts.SkipText = runFlags.skipText
	opts.RedoOCR = runFlags.redoOCR
	opts.RotatePages = runFlags.rotatePages
	opts.Deskew = runFlags.deskew
	opts.Clean = runFlags.clean
	opts.CleanFinal = runFlags.cleanFinal
	opts.RemoveBackground = runFlags.removeBackground
	opts.Oversample = runFlags.oversample
	opts.Optimize = runFlags.optimize
	opts.JPEGQuality = runFlags.jpegQuality
	opts.PNGQuality = runFlags.pngQuality
	opts.JBIG2Lossy = runFlags.jbig2Lossy
	opts.JBIG2PageGroupSize = runFlags.jbig2GroupSize
	opts.Sidecar = runFlags.sidecar
	opts.FastWebView = runFlags.fastWebView
	opts.Metadata = config.Metadata{
		Title:    runFlags.title,
		Author:   runFlags.author,
		Subject:  runFlags.subject,
		Keywords: runFlags.keywords,
	}
	opts.Pages = runFlags.pages
	opts.KeepTemporaryFiles = runFlags.keepTemp
	opts.ProgressBar = runFlags.progressBar
	opts.ContinueOnSoftRenderError = runFlags.continueOnSoftFail
	if logLevel != "" {
		opts.Verbosity = logLevel
	}

	return opts, nil
}

// buildTools wires the real exec.Command-backed implementations behind
// every tools interface the Job needs.
func buildTools(logger *slog.Logger) job.Tools {
	runner := &tools.ExecRunner{}
	return job.Tools{
		Rasterizer: tools.NewGhostscriptRasterizer(runner),
		OCREngine:  tools.NewTesseractEngine(runner),
		Linearizer: tools.NewQPDFLinearizer(runner),
		Descanner:  tools.NewUnpaper(runner),
		Jbig2:      tools.NewJbig2Enc(runner),
		PNGQuant:   tools.NewPngQuant(runner),
	}
}
