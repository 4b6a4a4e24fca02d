// Package optimizer implements spec.md §4.5: recompressing the image
// XObjects of an assembled PDF, grouping bitonal images into shared
// JBIG2 symbol dictionaries, and keeping whichever encoding of each
// image is smaller. Grounded on original_source/python/ocrmypdf/optimize.py,
// reworked from pikepdf's in-place object graph into the same direct
// model.XRefTable walk internal/pipeline/compose.go's stripInvisibleText
// already uses to rewrite a page's content stream: an image xref's
// StreamDict is rewritten the same way, in place, before the context is
// re-serialised.
package optimizer

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// defaultJPEGQuality and defaultPNGQuality match ocrmypdf's own defaults;
// they only apply when the caller left the option at zero.
const (
	defaultJPEGQuality = 75
	defaultPNGQuality  = 70
)

// ResolveQuality fills in the zero-valued quality knobs the way
// optimize.py's normalize_parameters does: a lower default at the
// highest optimize level, and jbig2_page_group_size defaulting to 10
// only when lossy JBIG2 is allowed (lossless symbol sharing between
// unrelated pages risks cross-page bleed, so group size stays 1).
func ResolveQuality(opts *config.Options) {
	if opts.JPEGQuality == 0 {
		if opts.Optimize < 3 {
			opts.JPEGQuality = defaultJPEGQuality
		} else {
			opts.JPEGQuality = 40
		}
	}
	if opts.PNGQuality == 0 {
		if opts.Optimize < 3 {
			opts.PNGQuality = defaultPNGQuality
		} else {
			opts.PNGQuality = 30
		}
	}
	if opts.JBIG2PageGroupSize == 0 {
		if opts.JBIG2Lossy {
			opts.JBIG2PageGroupSize = 10
		} else {
			opts.JBIG2PageGroupSize = 1
		}
	}
}

// Deps bundles the external encoders the optimiser drives.
type Deps struct {
	Jbig2    tools.Jbig2Encoder
	PNGQuant tools.Quantizer
	WorkDir  string
}

// candidate is one image XObject queued for re-encoding.
type candidate struct {
	pageNo int
	ref    pdfmodel.ImageRef
}

// Optimize rewrites inPDF's image streams in place according to
// opts.Optimize (0 disables the pass entirely) and writes the result to
// outPDF. It never makes the file bigger: each image keeps its original
// encoding unless the re-encoded version is smaller, and
// remove_unreferenced_resources always runs regardless of outcome, per
// the original's behaviour on both the kept and discarded path.
func Optimize(ctx context.Context, info *pdfmodel.PdfInfo, opts *config.Options, deps Deps, inPDF, outPDF string) error {
	if opts.Optimize == 0 {
		return copyFile(inPDF, outPDF)
	}
	ResolveQuality(opts)

	f, err := os.Open(inPDF)
	if err != nil {
		return pdferr.InputFile("optimize: failed to open input", err)
	}
	pctx, err := api.ReadContext(f, model.NewDefaultConfiguration())
	f.Close()
	if err != nil {
		return pdferr.InputFile("optimize: not a valid PDF", err)
	}
	xRefTable := pctx.XRefTable

	jbig2Candidates, otherCandidates := partitionCandidates(info)

	if len(jbig2Candidates) > 0 && deps.Jbig2 != nil && deps.Jbig2.Available(ctx) {
		if err := convertJBIG2Groups(ctx, xRefTable, jbig2Candidates, opts, deps); err != nil {
			return fmt.Errorf("jbig2 optimize: %w", err)
		}
	}

	for _, c := range otherCandidates {
		if err := reencodeImage(ctx, xRefTable, c, opts, deps); err != nil {
			return fmt.Errorf("reencode image xref %d: %w", c.ref.Xref, err)
		}
	}

	rewritten := filepath.Join(deps.WorkDir, "optimize-rewritten.pdf")
	out, err := os.Create(rewritten)
	if err != nil {
		return err
	}
	err = api.WriteContext(pctx, out)
	out.Close()
	if err != nil {
		return pdferr.InvalidOutputPDF("failed to re-serialize optimized streams", err)
	}
	defer os.Remove(rewritten)

	if err := api.OptimizeFile(rewritten, outPDF, model.NewDefaultConfiguration()); err != nil {
		return pdferr.InvalidOutputPDF("failed to remove unreferenced resources", err)
	}
	return nil
}

// partitionCandidates splits every optimisable image into the JBIG2
// bucket (bitonal, 1 bit per component, no existing JBIG2/JPX filter)
// and everything else (JPEG re-encode or PNG quantize candidates),
// mirroring optimize.py's extract_images_generic split.
func partitionCandidates(info *pdfmodel.PdfInfo) (jbig2 []candidate, other []candidate) {
	seen := map[int]bool{}
	for _, page := range info.Pages {
		for _, img := range page.Images {
			if seen[img.Xref] {
				continue
			}
			seen[img.Xref] = true
			if !eligible(img) {
				continue
			}
			c := candidate{pageNo: page.PageNo, ref: img}
			if img.BitsPerComp == 1 && img.Colorspace == pdfmodel.ColorspaceGray {
				jbig2 = append(jbig2, c)
			} else {
				other = append(other, c)
			}
		}
	}
	return jbig2, other
}

// eligible excludes images optimize.py also leaves untouched: anything
// already JBIG2/JPX encoded, anything with more than 8 bits per
// component, and anything carrying more than one stacked filter (a
// pre-existing pipeline we shouldn't second-guess).
func eligible(img pdfmodel.ImageRef) bool {
	if img.BitsPerComp > 8 {
		return false
	}
	if len(img.FilterStack) > 1 {
		return false
	}
	for _, f := range img.FilterStack {
		if f == pdfmodel.FilterJBIG2 || f == pdfmodel.FilterJPX {
			return false
		}
	}
	return true
}

// convertJBIG2Groups batches bitonal images into groups of
// jbig2_page_group_size consecutive pages sharing one symbol dictionary,
// encodes each group, and splices the encoded stream back into its image
// xref - a shared JBIG2Globals stream object once a group spans more
// than one page, a bare JBIG2Decode stream otherwise.
func convertJBIG2Groups(ctx context.Context, xRefTable *model.XRefTable, candidates []candidate, opts *config.Options, deps Deps) error {
	groups := map[int][]candidate{}
	for _, c := range candidates {
		g := c.pageNo / opts.JBIG2PageGroupSize
		groups[g] = append(groups[g], c)
	}

	for g, group := range groups {
		prefix := filepath.Join(deps.WorkDir, fmt.Sprintf("jbig2-group-%d", g))
		files := make([]string, 0, len(group))
		for i, c := range group {
			src := filepath.Join(deps.WorkDir, fmt.Sprintf("jbig2-src-%d-%d.png", g, i))
			if err := extractImageToFile(xRefTable, c.ref, src); err != nil {
				return fmt.Errorf("extract xref %d for jbig2: %w", c.ref.Xref, err)
			}
			defer os.Remove(src)
			files = append(files, src)
		}

		if err := deps.Jbig2.EncodeGroup(ctx, files, prefix, opts.JBIG2Lossy); err != nil {
			return err
		}

		var globals *types.IndirectRef
		if len(group) > 1 {
			// jbig2 -p emits one shared symbol dictionary per group at
			// prefix.sym whenever more than one page is encoded together
			// (see tools.Jbig2Encoder.EncodeGroup's doc comment).
			symPath := prefix + ".sym"
			symBytes, err := os.ReadFile(symPath)
			if err != nil {
				return fmt.Errorf("read jbig2 symbol dict: %w", err)
			}
			defer os.Remove(symPath)
			ref, err := insertStreamObject(xRefTable, symBytes, types.NewDict())
			if err != nil {
				return fmt.Errorf("insert jbig2 globals: %w", err)
			}
			globals = ref
		}

		for i, c := range group {
			pagePath := fmt.Sprintf("%s.%04d", prefix, i)
			raw, err := os.ReadFile(pagePath)
			if err != nil {
				return fmt.Errorf("read jbig2 page stream: %w", err)
			}
			os.Remove(pagePath)

			if orig, err := dereferenceImageStream(xRefTable, c.ref.Xref); err == nil && len(raw) >= len(orig.Raw) {
				continue
			}

			dict := types.NewDict()
			dict.Insert("Type", types.Name("XObject"))
			dict.Insert("Subtype", types.Name("Image"))
			dict.Insert("Width", types.Integer(c.ref.WidthPx))
			dict.Insert("Height", types.Integer(c.ref.HeightPx))
			dict.Insert("BitsPerComponent", types.Integer(1))
			dict.Insert("ColorSpace", types.Name("DeviceGray"))
			dict.Insert("Filter", types.Name("JBIG2Decode"))
			if globals != nil {
				dp := types.NewDict()
				dp.Insert("JBIG2Globals", *globals)
				dict.Insert("DecodeParms", dp)
			}

			if err := replaceImageObject(xRefTable, c.ref.Xref, dict, raw); err != nil {
				return fmt.Errorf("splice jbig2 xref %d: %w", c.ref.Xref, err)
			}
		}
	}
	return nil
}

// reencodeImage re-encodes one non-bitonal image, as quantised PNG when
// its colour space is Indexed and as JPEG otherwise, and keeps the new
// encoding only if it is smaller than the original, per the
// optimize_and_replace termination check. Candidates whose pixel layout
// this module doesn't reconstruct (anything beyond Gray/RGB/CMYK at 8bpc
// and Indexed) are left with their original stream untouched.
func reencodeImage(ctx context.Context, xRefTable *model.XRefTable, c candidate, opts *config.Options, deps Deps) error {
	sd, err := dereferenceImageStream(xRefTable, c.ref.Xref)
	if err != nil {
		return nil
	}
	origLen := len(sd.Raw)

	img, err := decodeImagePixels(xRefTable, sd, c.ref)
	if err != nil {
		return nil
	}

	if c.ref.Colorspace == pdfmodel.ColorspaceIndexed {
		return reencodeIndexedPNG(ctx, xRefTable, c, img, origLen, opts, deps)
	}
	return reencodeJPEGStream(xRefTable, c, img, origLen, opts)
}

// reencodeJPEGStream re-saves a continuous-tone image as JPEG at
// opts.JPEGQuality and splices the result in place of the xref's
// original stream, keeping the original unless the new encoding is
// smaller.
func reencodeJPEGStream(xRefTable *model.XRefTable, c candidate, img image.Image, origLen int, opts *config.Options) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return fmt.Errorf("jpeg encode: %w", err)
	}
	if buf.Len() >= origLen {
		return nil
	}

	dict := types.NewDict()
	dict.Insert("Type", types.Name("XObject"))
	dict.Insert("Subtype", types.Name("Image"))
	dict.Insert("Width", types.Integer(c.ref.WidthPx))
	dict.Insert("Height", types.Integer(c.ref.HeightPx))
	dict.Insert("BitsPerComponent", types.Integer(8))
	dict.Insert("ColorSpace", deviceColorSpaceName(c.ref.Colorspace))
	dict.Insert("Filter", types.Name("DCTDecode"))
	return replaceImageObject(xRefTable, c.ref.Xref, dict, buf.Bytes())
}

// reencodeIndexedPNG quantises a palette image through pngquant, then
// re-flates its raw index bytes directly rather than round-tripping
// pngquant's own PNG container: the PDF stream doesn't need PNG's chunk
// framing, only the same zlib payload, so DecodeParms uses Predictor 1
// (no per-scanline prediction) instead of the Predictor 14 pngquant's
// own encoder would have chosen - both are valid PNG predictor values
// for a FlateDecode image stream, and 1 is the one this path can produce
// without re-deriving pngquant's filter-byte choice per scanline.
func reencodeIndexedPNG(ctx context.Context, xRefTable *model.XRefTable, c candidate, img image.Image, origLen int, opts *config.Options, deps Deps) error {
	if deps.PNGQuant == nil || !deps.PNGQuant.Available(ctx) {
		return nil
	}

	src := filepath.Join(deps.WorkDir, fmt.Sprintf("quant-src-%d.png", c.ref.Xref))
	dst := src + ".quant.png"
	defer os.Remove(src)
	defer os.Remove(dst)

	out, err := os.Create(src)
	if err != nil {
		return err
	}
	err = png.Encode(out, img)
	out.Close()
	if err != nil {
		return fmt.Errorf("encode source png: %w", err)
	}

	qmin := max(10, opts.PNGQuality-10)
	qmax := min(100, opts.PNGQuality+10)
	if err := deps.PNGQuant.Quantize(ctx, src, dst, qmin, qmax); err != nil {
		return err
	}

	qf, err := os.Open(dst)
	if err != nil {
		return err
	}
	quantized, err := png.Decode(qf)
	qf.Close()
	if err != nil {
		return fmt.Errorf("decode quantized png: %w", err)
	}
	pal, ok := quantized.(*image.Paletted)
	if !ok {
		return nil
	}

	var flated bytes.Buffer
	zw := zlib.NewWriter(&flated)
	if _, err := zw.Write(pal.Pix); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if flated.Len() >= origLen {
		return nil
	}

	b := pal.Bounds()
	lookup := make([]byte, 0, len(pal.Palette)*3)
	for _, col := range pal.Palette {
		r, g, bch, _ := col.RGBA()
		lookup = append(lookup, byte(r>>8), byte(g>>8), byte(bch>>8))
	}

	csArr := types.Array{
		types.Name("Indexed"),
		types.Name("DeviceRGB"),
		types.Integer(len(pal.Palette) - 1),
		types.StringLiteral(string(lookup)),
	}

	dict := types.NewDict()
	dict.Insert("Type", types.Name("XObject"))
	dict.Insert("Subtype", types.Name("Image"))
	dict.Insert("Width", types.Integer(b.Dx()))
	dict.Insert("Height", types.Integer(b.Dy()))
	dict.Insert("BitsPerComponent", types.Integer(8))
	dict.Insert("ColorSpace", csArr)
	dict.Insert("Filter", types.Name("FlateDecode"))

	dp := types.NewDict()
	dp.Insert("Predictor", types.Integer(1))
	dp.Insert("Colors", types.Integer(1))
	dp.Insert("BitsPerComponent", types.Integer(8))
	dp.Insert("Columns", types.Integer(b.Dx()))
	dict.Insert("DecodeParms", dp)

	return replaceImageObject(xRefTable, c.ref.Xref, dict, flated.Bytes())
}

// extractImageToFile decodes the image at xref into pixels and writes it
// as a PNG, the input format jbig2enc accepts for its own thresholding
// pass over each page image in a group.
func extractImageToFile(xRefTable *model.XRefTable, ref pdfmodel.ImageRef, dstPath string) error {
	sd, err := dereferenceImageStream(xRefTable, ref.Xref)
	if err != nil {
		return err
	}
	img, err := decodeImagePixels(xRefTable, sd, ref)
	if err != nil {
		return err
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

// dereferenceImageStream looks up the image XObject at xref directly off
// the xref table, the same object-number lookup pdfmodel.extractImageRefs
// used when it first catalogued this image.
func dereferenceImageStream(xRefTable *model.XRefTable, xref int) (*types.StreamDict, error) {
	ir := types.IndirectRef{ObjectNumber: types.Integer(xref), GenerationNumber: types.Integer(0)}
	sd, _, err := xRefTable.DereferenceStreamDict(ir)
	if err != nil || sd == nil {
		return nil, fmt.Errorf("xref %d: no image stream", xref)
	}
	return sd, nil
}

// decodeImagePixels reconstructs img.Image from a StreamDict's bytes.
// DCTDecode content is already a JPEG codestream and decodes directly;
// everything else is decoded through pdfcpu's own filter pipeline first
// and then reassembled by colour space and bits per component.
func decodeImagePixels(xRefTable *model.XRefTable, sd *types.StreamDict, ref pdfmodel.ImageRef) (image.Image, error) {
	for _, f := range ref.FilterStack {
		if f == pdfmodel.FilterDCT {
			return jpeg.Decode(bytes.NewReader(sd.Raw))
		}
	}

	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("decode xref %d: %w", ref.Xref, err)
	}

	w, h := ref.WidthPx, ref.HeightPx
	switch ref.Colorspace {
	case pdfmodel.ColorspaceGray:
		if ref.BitsPerComp == 1 {
			return unpackBitonalGray(sd.Content, w, h), nil
		}
		return &image.Gray{Pix: sd.Content, Stride: w, Rect: image.Rect(0, 0, w, h)}, nil
	case pdfmodel.ColorspaceRGB:
		return rgb24ToRGBA(sd.Content, w, h), nil
	case pdfmodel.ColorspaceCMYK:
		return &image.CMYK{Pix: sd.Content, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
	case pdfmodel.ColorspaceIndexed:
		return indexedToPaletted(xRefTable, sd, w, h)
	default:
		return nil, fmt.Errorf("xref %d: unsupported colorspace for re-encode", ref.Xref)
	}
}

// unpackBitonalGray expands one-bit-per-pixel packed rows (MSB first,
// per the PDF image data spec) into an 8-bit grayscale image.
func unpackBitonalGray(packed []byte, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	stride := (w + 7) / 8
	for y := 0; y < h; y++ {
		row := packed[y*stride:]
		for x := 0; x < w; x++ {
			byteIdx := x / 8
			if byteIdx >= len(row) {
				break
			}
			bit := (row[byteIdx] >> (7 - uint(x%8))) & 1
			v := byte(0)
			if bit == 1 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// rgb24ToRGBA expands packed 3-byte RGB samples into Go's native RGBA
// layout (no alpha channel exists in a PDF DeviceRGB image, so alpha is
// always opaque).
func rgb24ToRGBA(samples []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 3
	for y := 0; y < h; y++ {
		rowStart := y * stride
		for x := 0; x < w; x++ {
			o := rowStart + x*3
			if o+2 >= len(samples) {
				break
			}
			img.SetRGBA(x, y, color.RGBA{R: samples[o], G: samples[o+1], B: samples[o+2], A: 255})
		}
	}
	return img
}

// indexedToPaletted reconstructs a palette image from a /ColorSpace
// [/Indexed base hival lookup] array and the stream's packed index
// samples.
func indexedToPaletted(xRefTable *model.XRefTable, sd *types.StreamDict, w, h int) (*image.Paletted, error) {
	csObj, err := xRefTable.DereferenceDictEntry(sd.Dict, "ColorSpace")
	if err != nil || csObj == nil {
		return nil, fmt.Errorf("indexed image: missing colorspace")
	}
	arr, ok := csObj.(types.Array)
	if !ok || len(arr) < 4 {
		return nil, fmt.Errorf("indexed image: malformed colorspace array")
	}
	hival, ok := arr[2].(types.Integer)
	if !ok {
		return nil, fmt.Errorf("indexed image: malformed hival")
	}

	lookupObj, err := xRefTable.Dereference(arr[3])
	if err != nil {
		return nil, fmt.Errorf("indexed image: dereference lookup: %w", err)
	}
	var lookup []byte
	switch v := lookupObj.(type) {
	case types.StringLiteral:
		lookup = []byte(v)
	case types.HexLiteral:
		lookup, err = v.Bytes()
		if err != nil {
			return nil, err
		}
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, err
		}
		lookup = v.Content
	default:
		return nil, fmt.Errorf("indexed image: unsupported lookup object")
	}

	n := int(hival) + 1
	pal := make(color.Palette, n)
	for i := 0; i < n; i++ {
		o := i * 3
		if o+2 < len(lookup) {
			pal[i] = color.RGBA{R: lookup[o], G: lookup[o+1], B: lookup[o+2], A: 255}
		} else {
			pal[i] = color.RGBA{A: 255}
		}
	}

	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	copy(img.Pix, sd.Content)
	return img, nil
}

// insertStreamObject adds a new indirect stream object to the xref
// table (used for a group's shared JBIG2Globals dictionary) and returns
// a reference to it.
func insertStreamObject(xRefTable *model.XRefTable, raw []byte, dict types.Dict) (*types.IndirectRef, error) {
	dict.Insert("Length", types.Integer(len(raw)))
	sd := types.StreamDict{Dict: dict, Raw: raw, Content: raw}
	objNr, err := xRefTable.InsertObject(sd)
	if err != nil {
		return nil, err
	}
	ref := types.IndirectRef{ObjectNumber: types.Integer(objNr), GenerationNumber: types.Integer(0)}
	return &ref, nil
}

// replaceImageObject overwrites the object at xref in place with a fresh
// StreamDict built from dict and raw - the same "rewrite one object's
// entry in the table, then let api.WriteContext re-emit everything"
// pattern stripInvisibleText uses for a page's content stream, applied
// here to an image xref instead.
func replaceImageObject(xRefTable *model.XRefTable, xref int, dict types.Dict, raw []byte) error {
	entry, ok := xRefTable.FindTableEntryLight(xref)
	if !ok || entry == nil {
		return fmt.Errorf("xref %d: no table entry", xref)
	}
	dict.Insert("Length", types.Integer(len(raw)))
	entry.Object = types.StreamDict{Dict: dict, Raw: raw, Content: raw}
	return nil
}

// deviceColorSpaceName maps a ColorspaceKind back to the /ColorSpace
// name a re-encoded DCTDecode stream should carry.
func deviceColorSpaceName(kind pdfmodel.ColorspaceKind) types.Name {
	switch kind {
	case pdfmodel.ColorspaceCMYK:
		return types.Name("DeviceCMYK")
	case pdfmodel.ColorspaceRGB:
		return types.Name("DeviceRGB")
	default:
		return types.Name("DeviceGray")
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
