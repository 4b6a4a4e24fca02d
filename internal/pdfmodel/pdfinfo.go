package pdfmodel

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/ocrforge/pdfsandwich/internal/pdferr"
)

// textShowingOps and drawingOps are the operator sets §4.1 says to scan a
// content stream for, to decide HasText / HasVector without needing a
// full interpreter: Tj/TJ/'/" indicate glyph painting, m/l/c/re/S/f/b/W
// indicate path construction or painting.
var (
	textShowingOps = regexp.MustCompile(`(^|\s)(Tj|TJ|'|")(\s|$)`)
	drawingOps     = regexp.MustCompile(`(^|\s)(m|l|c|re|S|f|f\*|b|b\*|W|W\*)(\s|$)`)
)

// Parse reads inFile once and returns a frozen PdfInfo. It treats pdfcpu's
// *model.Context as an opaque handle: every per-page fact is read off the
// xref table by object number (the "arena + index" pattern from §9)
// rather than by building our own object graph.
func Parse(inFile string) (*PdfInfo, error) {
	f, err := os.Open(inFile)
	if err != nil {
		return nil, pdferr.InputFile("failed to open input", err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, pdferr.InputFile("not a valid PDF", err)
	}

	if ctx.Encrypt != nil {
		if err := ctx.DecryptPage(0); err != nil {
			return nil, pdferr.EncryptedPDF("input requires a password")
		}
	}

	xRefTable := ctx.XRefTable
	pageCount := xRefTable.PageCount

	info := &PdfInfo{
		Pages:    make([]PageInfo, 0, pageCount),
		Metadata: readMetadata(xRefTable),
	}

	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		pd, _, err := xRefTable.PageDict(pageNr, false)
		if err != nil || pd == nil {
			return nil, pdferr.InputFile(fmt.Sprintf("page %d: missing page dict", pageNr), err)
		}

		page, err := parsePage(xRefTable, pd, pageNr-1)
		if err != nil {
			return nil, err
		}
		info.Pages = append(info.Pages, *page)
	}

	info.PriorOCRDetected = scanForPriorOCR(info.Metadata)

	return info, nil
}

func parsePage(xRefTable *model.XRefTable, pd types.Dict, pageNo int) (*PageInfo, error) {
	box := pageMediaBox(xRefTable, pd)
	widthPts, heightPts := box.Width(), box.Height()

	rotation := 0
	if rot := pd.IntEntry("Rotate"); rot != nil {
		rotation = normalizeRotation(*rot)
	}

	userUnit := 1.0
	if uu := pd.Properties["UserUnit"]; uu != nil {
		if f, ok := uu.(types.Float); ok {
			userUnit = float64(f)
		}
	}

	images, err := extractImageRefs(xRefTable, pd, widthPts, heightPts)
	if err != nil {
		return nil, err
	}

	content, _ := xRefTable.PageContent(pd, pageNo)
	hasText := len(content) > 0 && textShowingOps.Match(content)
	hasVector := len(content) > 0 && drawingOps.Match(content)

	minDPI := 0.0
	for _, img := range images {
		if minDPI == 0 || img.DPI < minDPI {
			minDPI = img.DPI
		}
	}

	return &PageInfo{
		PageNo:    pageNo,
		WidthPts:  widthPts,
		HeightPts: heightPts,
		Rotation:  rotation,
		Images:    images,
		HasText:   hasText,
		HasVector: hasVector,
		UserUnit:  userUnit,
		MinDPI:    minDPI,
	}, nil
}

// extractImageRefs enumerates /Resources/XObject entries with
// Subtype=/Image, excluding soft masks and inline images, and computes
// each image's effective DPI as its pixel width over the MediaBox width
// in inches; the CropBox is not read.
func extractImageRefs(xRefTable *model.XRefTable, pd types.Dict, pageWidthPts, pageHeightPts float64) ([]ImageRef, error) {
	resources, err := xRefTable.DereferenceDictEntry(pd, "Resources")
	if err != nil || resources == nil {
		return nil, nil
	}
	xobjDict, err := xRefTable.DereferenceDictEntry(resources, "XObject")
	if err != nil || xobjDict == nil {
		return nil, nil
	}

	softMasks := make(map[int]bool)
	var refs []ImageRef

	for _, obj := range xobjDict {
		ir, ok := obj.(types.IndirectRef)
		if !ok {
			continue
		}
		sd, _, err := xRefTable.DereferenceStreamDict(ir)
		if err != nil || sd == nil {
			continue
		}
		if sd.Dict.NameEntry("Subtype") == nil || *sd.Dict.NameEntry("Subtype") != "Image" {
			continue
		}
		if sm := sd.Dict.IndirectRefEntry("SMask"); sm != nil {
			softMasks[sm.ObjectNumber.Value()] = true
		}

		widthPx := intEntryOrZero(sd.Dict, "Width")
		heightPx := intEntryOrZero(sd.Dict, "Height")
		bpc := intEntryOrZero(sd.Dict, "BitsPerComponent")
		if bpc == 0 {
			bpc = 8
		}

		dpi := effectiveDPI(widthPx, pageWidthPts)

		refs = append(refs, ImageRef{
			Xref:        ir.ObjectNumber.Value(),
			WidthPx:     widthPx,
			HeightPx:    heightPx,
			BitsPerComp: bpc,
			Colorspace:  colorspaceKind(xRefTable, sd.Dict),
			FilterStack: filterStack(sd.Dict),
			DPI:         dpi,
		})
	}

	// Drop entries flagged as soft masks discovered after the fact.
	filtered := refs[:0]
	for _, r := range refs {
		if !softMasks[r.Xref] {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func effectiveDPI(widthPx int, pageWidthPts float64) float64 {
	if pageWidthPts <= 0 || widthPx <= 0 {
		return 0
	}
	const ptsPerInch = 72.0
	return float64(widthPx) / (pageWidthPts / ptsPerInch)
}

func intEntryOrZero(d types.Dict, key string) int {
	if v := d.IntEntry(key); v != nil {
		return *v
	}
	return 0
}

func filterStack(d types.Dict) []FilterKind {
	filter := d.NameEntry("Filter")
	if filter == nil {
		return nil
	}
	return []FilterKind{FilterKind(*filter)}
}

func colorspaceKind(xRefTable *model.XRefTable, d types.Dict) ColorspaceKind {
	cs, err := xRefTable.DereferenceDictEntry(d, "ColorSpace")
	if err != nil {
		return ColorspaceUnknown
	}
	name := d.NameEntry("ColorSpace")
	switch {
	case cs != nil && cs["Indexed"] != nil:
		return ColorspaceIndexed
	case name != nil && *name == "DeviceGray":
		return ColorspaceGray
	case name != nil && *name == "DeviceRGB":
		return ColorspaceRGB
	case name != nil && *name == "DeviceCMYK":
		return ColorspaceCMYK
	default:
		return ColorspaceUnknown
	}
}

func pageMediaBox(xRefTable *model.XRefTable, pd types.Dict) *types.Rectangle {
	box, err := xRefTable.DereferenceDictEntry(pd, "MediaBox")
	if err != nil || box == nil {
		return &types.Rectangle{Ury: 792, Urx: 612} // US Letter fallback
	}
	arr, _ := box.(types.Array)
	r, err := types.RectForArray(arr)
	if err != nil {
		return &types.Rectangle{Ury: 792, Urx: 612}
	}
	return r
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r
}

func readMetadata(xRefTable *model.XRefTable) DocMetadata {
	if xRefTable.Info == nil {
		return DocMetadata{}
	}
	info, err := xRefTable.DereferenceDict(*xRefTable.Info)
	if err != nil || info == nil {
		return DocMetadata{}
	}
	get := func(key string) string {
		if s := info.StringEntry(key); s != nil {
			return *s
		}
		return ""
	}
	return DocMetadata{
		Title:    get("Title"),
		Author:   get("Author"),
		Subject:  get("Subject"),
		Keywords: get("Keywords"),
		Producer: get("Producer"),
	}
}

// priorOCRProducer is the /Producer stamp the assembler writes into a
// document's own info dictionary once it has been through this pipeline
// (see assembler.applyMetadata).
const priorOCRProducer = "pdfsandwich"

// scanForPriorOCR reports whether a document's info dictionary carries
// this tool's own producer stamp, meaning it was already OCRed by a
// previous run. Parse sets PdfInfo.PriorOCRDetected from this, which the
// Job rejects with PriorOcrFoundError (§4.1) in modes that forbid re-OCR.
// Checking the Producer string rather than scanning content streams for
// text-showing operators avoids false-positiving on ordinary born-digital
// PDFs, which also contain Tj/TJ operators but were never OCRed.
func scanForPriorOCR(meta DocMetadata) bool {
	return strings.Contains(meta.Producer, priorOCRProducer)
}
