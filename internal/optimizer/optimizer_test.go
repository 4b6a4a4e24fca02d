package optimizer

import (
	"image/color"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
)

func TestResolveQuality(t *testing.T) {
	cases := []struct {
		name           string
		in             config.Options
		wantJPEG       int
		wantPNG        int
		wantGroupSize  int
	}{
		{
			name:          "unset at optimize level 1 uses ocrmypdf defaults",
			in:            config.Options{Optimize: 1},
			wantJPEG:      75,
			wantPNG:       70,
			wantGroupSize: 1,
		},
		{
			name:          "unset at optimize level 3 uses the lower defaults",
			in:            config.Options{Optimize: 3},
			wantJPEG:      40,
			wantPNG:       30,
			wantGroupSize: 1,
		},
		{
			name:          "lossy jbig2 defaults group size to 10",
			in:            config.Options{Optimize: 1, JBIG2Lossy: true},
			wantJPEG:      75,
			wantPNG:       70,
			wantGroupSize: 10,
		},
		{
			name:          "explicit values are left untouched",
			in:            config.Options{Optimize: 1, JPEGQuality: 90, PNGQuality: 50, JBIG2PageGroupSize: 4},
			wantJPEG:      90,
			wantPNG:       50,
			wantGroupSize: 4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.in
			ResolveQuality(&opts)
			assert.Equal(t, tc.wantJPEG, opts.JPEGQuality)
			assert.Equal(t, tc.wantPNG, opts.PNGQuality)
			assert.Equal(t, tc.wantGroupSize, opts.JBIG2PageGroupSize)
		})
	}
}

func TestEligible(t *testing.T) {
	cases := []struct {
		name string
		img  pdfmodel.ImageRef
		want bool
	}{
		{"plain flate gray", pdfmodel.ImageRef{BitsPerComp: 8, FilterStack: []pdfmodel.FilterKind{pdfmodel.FilterFlate}}, true},
		{"already jbig2", pdfmodel.ImageRef{BitsPerComp: 1, FilterStack: []pdfmodel.FilterKind{pdfmodel.FilterJBIG2}}, false},
		{"jpx encoded", pdfmodel.ImageRef{BitsPerComp: 8, FilterStack: []pdfmodel.FilterKind{pdfmodel.FilterJPX}}, false},
		{"over 8 bpc", pdfmodel.ImageRef{BitsPerComp: 16}, false},
		{"stacked filters", pdfmodel.ImageRef{BitsPerComp: 8, FilterStack: []pdfmodel.FilterKind{pdfmodel.FilterFlate, pdfmodel.FilterDCT}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, eligible(tc.img))
		})
	}
}

func TestPartitionCandidates(t *testing.T) {
	info := &pdfmodel.PdfInfo{
		Pages: []pdfmodel.PageInfo{
			{
				PageNo: 0,
				Images: []pdfmodel.ImageRef{
					{Xref: 1, BitsPerComp: 1, Colorspace: pdfmodel.ColorspaceGray},
					{Xref: 2, BitsPerComp: 8, Colorspace: pdfmodel.ColorspaceIndexed},
				},
			},
			{
				PageNo: 1,
				Images: []pdfmodel.ImageRef{
					{Xref: 1, BitsPerComp: 1, Colorspace: pdfmodel.ColorspaceGray}, // duplicate xref, seen once
				},
			},
		},
	}

	jbig2, other := partitionCandidates(info)
	assert.Len(t, jbig2, 1, "duplicate xref across pages should only be counted once")
	assert.Equal(t, 1, jbig2[0].ref.Xref)
	assert.Len(t, other, 1)
	assert.Equal(t, 2, other[0].ref.Xref)
}

func TestUnpackBitonalGray(t *testing.T) {
	// One row, 8px wide: 10110010 packed into a single byte, MSB first.
	packed := []byte{0b10110010}
	img := unpackBitonalGray(packed, 8, 1)

	want := []bool{true, false, true, true, false, false, true, false}
	for x, bit := range want {
		got := img.GrayAt(x, 0).Y == 255
		assert.Equal(t, bit, got, "pixel %d", x)
	}
}

func TestRGB24ToRGBA(t *testing.T) {
	// Two pixels: red, then green, packed as 3-byte RGB samples.
	samples := []byte{255, 0, 0, 0, 255, 0}
	img := rgb24ToRGBA(samples, 2, 1)

	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 0, G: 255, B: 0, A: 255}, img.RGBAAt(1, 0))
}

func TestDeviceColorSpaceName(t *testing.T) {
	cases := []struct {
		kind pdfmodel.ColorspaceKind
		want types.Name
	}{
		{pdfmodel.ColorspaceGray, types.Name("DeviceGray")},
		{pdfmodel.ColorspaceRGB, types.Name("DeviceRGB")},
		{pdfmodel.ColorspaceCMYK, types.Name("DeviceCMYK")},
		{pdfmodel.ColorspaceUnknown, types.Name("DeviceGray")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, deviceColorSpaceName(tc.kind))
	}
}
