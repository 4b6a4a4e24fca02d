// Package pdfmodel holds the frozen description of an input PDF (spec.md
// §3's PdfInfo/PageInfo) and the classifier that maps each page to a
// PageAction (§4.2). It treats the PDF library as an opaque handle and
// walks xref numbers rather than building a native object graph, per
// §9's "arena + index" note.
package pdfmodel

// ColorspaceKind is a coarse classification of an image's colour space,
// enough to drive the optimiser's decision table without re-deriving it
// from the PDF object every time.
type ColorspaceKind int

const (
	ColorspaceUnknown ColorspaceKind = iota
	ColorspaceGray
	ColorspaceRGB
	ColorspaceCMYK
	ColorspaceIndexed
)

// FilterKind names the leading stream filter of an image XObject.
type FilterKind string

const (
	FilterNone      FilterKind = ""
	FilterFlate     FilterKind = "FlateDecode"
	FilterDCT       FilterKind = "DCTDecode"
	FilterJPX       FilterKind = "JPXDecode"
	FilterJBIG2     FilterKind = "JBIG2Decode"
	FilterCCITT     FilterKind = "CCITTFaxDecode"
)

// ImageRef describes one image XObject referenced from a page.
type ImageRef struct {
	Xref          int
	WidthPx       int
	HeightPx      int
	BitsPerComp   int
	Colorspace    ColorspaceKind
	FilterStack   []FilterKind
	DPI           float64 // effective DPI against the page's MediaBox width
}

// PageInfo is a frozen, immutable-after-construction snapshot of one page.
// Every field is set once by pdfmodel.Parse and never mutated afterward
// (spec.md §3 invariant 1 for PageInfo).
type PageInfo struct {
	PageNo     int // 0-based
	WidthPts   float64
	HeightPts  float64
	Rotation   int // one of 0, 90, 180, 270
	Images     []ImageRef
	HasText    bool
	HasVector  bool
	UserUnit   float64
	MinDPI     float64 // smallest image DPI projected onto the page, or 0 if unknown
}

// SingleImageOnly reports whether the page has exactly one image and no
// text or vector content, the condition the Classifier uses for
// PageAction OcrImageOnly.
func (p *PageInfo) SingleImageOnly() bool {
	return !p.HasText && !p.HasVector && len(p.Images) == 1
}

// PdfInfo is the frozen snapshot of the whole input document, produced
// once up front by pdfmodel.Parse.
type PdfInfo struct {
	Pages    []PageInfo
	Metadata DocMetadata

	// PriorOCRDetected reports whether the document's /Producer entry
	// carries this pipeline's own stamp, i.e. it was OCRed by a previous
	// run (see scanForPriorOCR).
	PriorOCRDetected bool
}

// DocMetadata mirrors the handful of info-dictionary fields the Assembler
// copies forward unless overridden.
type DocMetadata struct {
	Title, Author, Subject, Keywords, Producer string
}

// ActionKind discriminates PageAction. Go models the tagged variant from
// §3/§9 as a plain enum plus payload fields rather than an interface
// hierarchy - no dynamic polymorphism is needed for six variants.
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionOcrRaster
	ActionOcrImageOnly
	ActionForce
	ActionRedoOcr
	ActionError
)

func (k ActionKind) String() string {
	switch k {
	case ActionSkip:
		return "skip"
	case ActionOcrRaster:
		return "ocr-rasterise"
	case ActionOcrImageOnly:
		return "ocr-image-only"
	case ActionForce:
		return "force"
	case ActionRedoOcr:
		return "redo-ocr"
	case ActionError:
		return "error"
	default:
		return "unknown"
	}
}

// PageAction is the Classifier's immutable verdict for one page.
type PageAction struct {
	Kind   ActionKind
	DPI    float64 // for OcrRaster / Force
	Xref   int     // for OcrImageOnly
	Reason string  // for Error
}
