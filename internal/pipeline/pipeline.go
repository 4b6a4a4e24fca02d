package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
	"github.com/ocrforge/pdfsandwich/internal/tools"
	"github.com/ocrforge/pdfsandwich/internal/workctx"
)

// Deps bundles the external-tool interfaces and options a PagePipeline
// needs, so NewProcessor can build the process callback pool.Pool expects
// without every stage file reaching back into the job package.
type Deps struct {
	Rasterizer tools.Rasterizer
	OCREngine  tools.OCREngine
	Descanner  tools.Descanner
	WorkCtx    *workctx.WorkContext
	Options    *config.Options
}

// NewProcessor builds the per-page process function passed to
// pool.NewPool, running §4.3's six stages in order for one page: split,
// rasterise, preprocess, OCR, compose, emit.
func NewProcessor(deps Deps, sourcePDF string) func(ctx context.Context, job PageJob) PageResult {
	return func(ctx context.Context, job PageJob) PageResult {
		pageNo := job.Page.PageNo
		res := PageResult{PageNo: pageNo}

		if job.Action.Kind == pdfmodel.ActionError {
			res.Err = fmt.Errorf("page %d: %s", pageNo, job.Action.Reason)
			return res
		}

		splitPath := deps.WorkCtx.PagePath(pageNo, "origin.pdf")
		if err := splitPage(sourcePDF, splitPath, pageNo); err != nil {
			res.Err = err
			return res
		}

		mergedPath := deps.WorkCtx.PagePath(pageNo, "merged.pdf")

		if job.Action.Kind == pdfmodel.ActionSkip {
			if err := composePage(job.Action, splitPath, "", mergedPath); err != nil {
				res.Err = err
				return res
			}
			res.MergedPath = mergedPath
			return res
		}

		rasterPNG := deps.WorkCtx.PagePath(pageNo, "raster.png")
		if err := rasterizePage(ctx, deps.Rasterizer, splitPath, rasterPNG, job.Action, job.Page, deps.Options.Oversample); err != nil {
			res.Err = err
			return res
		}

		preprocessed := deps.WorkCtx.PagePath(pageNo, "preprocessed.png")
		cfg := preprocessConfig{
			Orient:           deps.Options.RotatePages,
			Deskew:           deps.Options.Deskew,
			RemoveBackground: deps.Options.RemoveBackground,
			Clean:            deps.Options.Clean,
			Descanner:        deps.Descanner,
		}
		if err := preprocess(ctx, cfg, rasterPNG, preprocessed); err != nil {
			res.Err = err
			return res
		}
		defer os.Remove(preprocessed)

		wantSidecar := deps.Options.Sidecar != ""
		ocrResult, warning, err := recognizePage(ctx, deps.OCREngine, pageNo, preprocessed, job.Page.WidthPts, job.Page.HeightPts, deps.Options.Languages, wantSidecar)
		if err != nil {
			res.Err = err
			return res
		}
		res.Warning = warning
		if wantSidecar {
			if text, readErr := os.ReadFile(ocrResult.SidecarText); readErr == nil {
				res.SidecarText = string(text)
			}
		}

		if err := composePage(job.Action, splitPath, ocrResult.TextPDFPath, mergedPath); err != nil {
			res.Err = err
			return res
		}

		res.MergedPath = mergedPath
		return res
	}
}
