package pdfmodel

import "github.com/ocrforge/pdfsandwich/internal/config"

// minForceDPI is the floor applied to any page action that rasterises,
// per §4.2's `dpi = max(min_dpi, 300)`.
const minForceDPI = 300.0

// minAcceptableDPI is the threshold below which an un-overridden DPI is
// rejected as DpiError (§4.2).
const minAcceptableDPI = 70.0

// Classify is the pure function from spec.md §4.2: a PageInfo and the
// job's options map to exactly one PageAction. It never mutates its
// inputs and never touches the filesystem.
func Classify(p *PageInfo, opts *config.Options) PageAction {
	switch {
	case p.HasText && !opts.ForceOCR && !opts.RedoOCR:
		return PageAction{Kind: ActionSkip}

	case p.HasText && opts.RedoOCR:
		return PageAction{Kind: ActionRedoOcr}

	case opts.ForceOCR:
		return PageAction{Kind: ActionForce, DPI: clampDPI(resolveDPI(p), opts)}

	case !p.HasText && !p.HasVector && p.SingleImageOnly():
		return PageAction{Kind: ActionOcrImageOnly, Xref: p.Images[0].Xref}

	case !p.HasText:
		if p.MinDPI > 0 && p.MinDPI < minAcceptableDPI && opts.Oversample == 0 {
			return PageAction{Kind: ActionError, Reason: "DpiError"}
		}
		return PageAction{Kind: ActionOcrRaster, DPI: clampDPI(resolveDPI(p), opts)}

	default:
		// has_text, no force/redo: unreachable given the first branch,
		// kept for exhaustiveness against future option combinations.
		return PageAction{Kind: ActionSkip}
	}
}

// resolveDPI applies the tie-break rule: if min_dpi isn't computable
// (vector-only page, no images), use 300; otherwise max(min_dpi, 300).
func resolveDPI(p *PageInfo) float64 {
	if p.MinDPI == 0 {
		return minForceDPI
	}
	if p.MinDPI > minForceDPI {
		return p.MinDPI
	}
	return minForceDPI
}

// clampDPI enforces the configured oversample floor.
func clampDPI(dpi float64, opts *config.Options) float64 {
	if float64(opts.Oversample) > dpi {
		return float64(opts.Oversample)
	}
	return dpi
}
