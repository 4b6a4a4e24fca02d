// Package job implements the top-level orchestration from spec.md §5: one
// Job owns one WorkContext and drives Validator -> Parse -> Classify ->
// PagePipeline -> Assembler -> Optimizer -> atomic output write, for
// exactly one input document per process invocation.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ocrforge/pdfsandwich/internal/assembler"
	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/optimizer"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
	"github.com/ocrforge/pdfsandwich/internal/pipeline"
	"github.com/ocrforge/pdfsandwich/internal/tools"
	"github.com/ocrforge/pdfsandwich/internal/validator"
	"github.com/ocrforge/pdfsandwich/internal/workctx"
)

// Tools bundles every external-tool implementation a Job needs. Each
// field can be swapped for a fake in tests, the same pattern the
// teacher's job scheduler used for its OCRProvider.
type Tools struct {
	Rasterizer tools.Rasterizer
	OCREngine  tools.OCREngine
	Linearizer tools.Linearizer
	Descanner  tools.Descanner
	Jbig2      tools.Jbig2Encoder
	PNGQuant   tools.Quantizer
}

// Job runs one end-to-end conversion of a single input PDF.
type Job struct {
	opts   *config.Options
	tools  Tools
	logger *slog.Logger
}

// New freezes opts (per §3's invariant: options never change after a Job
// is constructed) and builds a Job ready to Run.
func New(opts *config.Options, t Tools, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	frozen := *opts
	return &Job{opts: &frozen, tools: t, logger: logger}
}

// Run executes the whole pipeline and returns nil on success. Most
// failures are (or wrap) a typed *pdferr.Error; some, such as a failed
// page or a stdout write error, are plain errors. The caller
// (cmd/pdfsandwich) is the only place that converts either into a process
// exit code.
func (j *Job) Run(ctx context.Context) error {
	v, err := validator.New(j.tools.OCREngine, j.requiredTools())
	if err != nil {
		return pdferr.Other("failed to build validator", err)
	}
	if err := v.Validate(ctx, j.opts); err != nil {
		return err
	}

	wc, err := workctx.New(j.opts, j.logger)
	if err != nil {
		return pdferr.Other("failed to acquire working directory", err)
	}
	defer func() {
		if err := wc.Close(); err != nil {
			j.logger.Warn("failed to clean up working directory", "error", err)
		}
	}()

	info, err := pdfmodel.Parse(j.opts.InputFile)
	if err != nil {
		return err
	}
	if info.PriorOCRDetected && j.opts.ModeCount() == 0 {
		return pdferr.PriorOCRFound("input already carries a text layer from a previous OCR pass; use --force-ocr, --skip-text, or --redo-ocr")
	}

	selected, selErr := config.ParsePages(j.opts.Pages)
	if selErr != nil && !config.IsNonMonotonicWarning(selErr) {
		return pdferr.BadArgs("invalid --pages expression: %v", selErr)
	} else if selErr != nil {
		j.logger.Warn("page selection is not monotonically increasing", "pages", j.opts.Pages)
	}

	jobs := j.buildJobs(info, selected)

	processor := pipeline.NewProcessor(pipeline.Deps{
		Rasterizer: j.tools.Rasterizer,
		OCREngine:  j.tools.OCREngine,
		Descanner:  j.tools.Descanner,
		WorkCtx:    wc,
		Options:    j.opts,
	}, j.opts.InputFile)

	pool := pipeline.NewPool(j.opts.Jobs, j.logger, processor)
	results, err := pool.Run(ctx, jobs)
	if err != nil {
		return pdferr.Other("page pipeline failed", err)
	}

	assembled, err := assembler.Assemble(results, info.Metadata, j.opts, j.tools.Rasterizer, j.tools.Linearizer, wc.Root())
	if err != nil {
		return err
	}

	optimized := wc.PagePath(0, "optimized.pdf")
	if err := optimizer.Optimize(ctx, info, j.opts, optimizer.Deps{
		Jbig2:    j.tools.Jbig2,
		PNGQuant: j.tools.PNGQuant,
		WorkDir:  wc.Root(),
	}, assembled, optimized); err != nil {
		return err
	}

	if err := j.writeSidecar(results); err != nil {
		return err
	}

	return j.commitOutput(optimized)
}

// buildJobs classifies every selected page (or every page, if the
// caller didn't restrict the set) into a PageJob.
func (j *Job) buildJobs(info *pdfmodel.PdfInfo, selected map[int]bool) []pipeline.PageJob {
	jobs := make([]pipeline.PageJob, 0, len(info.Pages))
	for i := range info.Pages {
		page := info.Pages[i]
		if selected != nil && !selected[page.PageNo] {
			continue
		}
		action := pdfmodel.Classify(&page, j.opts)
		jobs = append(jobs, pipeline.PageJob{Page: page, Action: action})
	}
	return jobs
}

// requiredTools lists the external-tool probes the Validator should run,
// scoped to the options actually in play.
func (j *Job) requiredTools() []validator.Tool {
	var required []validator.Tool
	if j.tools.Rasterizer != nil {
		required = append(required, validator.Tool{Name: "ghostscript", Probe: j.tools.Rasterizer.Version})
	}
	if j.tools.OCREngine != nil {
		required = append(required, validator.Tool{Name: "tesseract", Probe: j.tools.OCREngine.Version})
	}
	if j.opts.FastWebView && j.tools.Linearizer != nil {
		required = append(required, validator.Tool{Name: "qpdf", Probe: j.tools.Linearizer.Version})
	}
	return required
}

// writeSidecar concatenates each page's OCR sidecar text, in page order,
// to the requested --sidecar path, marking empty pages per §4.6.
func (j *Job) writeSidecar(results []pipeline.PageResult) error {
	if j.opts.Sidecar == "" {
		return nil
	}
	ordered := append([]pipeline.PageResult(nil), results...)
	sort.Slice(ordered, func(i, k int) bool { return ordered[i].PageNo < ordered[k].PageNo })

	var out []byte
	for _, r := range ordered {
		text := r.SidecarText
		if text == "" {
			text = "[empty]"
		}
		out = append(out, []byte(text)...)
		out = append(out, '\f')
	}

	if j.opts.Sidecar == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(j.opts.Sidecar, out, 0o644); err != nil {
		return pdferr.FileAccess("failed to write sidecar text", err)
	}
	return nil
}

// commitOutput performs the atomic write-then-rename required by §3:
// the finished file is written to a sibling of the destination and
// renamed into place, so a crash mid-write never leaves a half-written
// output at the final path.
func (j *Job) commitOutput(finishedPath string) error {
	if j.opts.OutputFile == "-" {
		data, err := os.ReadFile(finishedPath)
		if err != nil {
			return pdferr.InvalidOutputPDF("failed to read finished output", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	dir := filepath.Dir(j.opts.OutputFile)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(j.opts.OutputFile)))

	data, err := os.ReadFile(finishedPath)
	if err != nil {
		return pdferr.InvalidOutputPDF("failed to read finished output", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pdferr.FileAccess("failed to write temporary output", err)
	}
	if err := os.Rename(tmp, j.opts.OutputFile); err != nil {
		os.Remove(tmp)
		return pdferr.FileAccess("failed to move output into place", err)
	}
	return nil
}
