package pdfmodel

import (
	"testing"

	"github.com/ocrforge/pdfsandwich/internal/config"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		page PageInfo
		opts config.Options
		want ActionKind
	}{
		{
			name: "text page with no flags is skipped",
			page: PageInfo{HasText: true},
			want: ActionSkip,
		},
		{
			name: "text page with redo-ocr is redone",
			page: PageInfo{HasText: true},
			opts: config.Options{RedoOCR: true},
			want: ActionRedoOcr,
		},
		{
			name: "force-ocr always forces",
			page: PageInfo{HasText: true},
			opts: config.Options{ForceOCR: true},
			want: ActionForce,
		},
		{
			name: "single image page with no other content is image-only",
			page: PageInfo{Images: []ImageRef{{Xref: 7}}},
			want: ActionOcrImageOnly,
		},
		{
			name: "image-only page with vector content rasterises instead",
			page: PageInfo{Images: []ImageRef{{Xref: 7, DPI: 300}}, HasVector: true},
			want: ActionOcrRaster,
		},
		{
			name: "no text, no images, vector only rasterises",
			page: PageInfo{HasVector: true},
			want: ActionOcrRaster,
		},
		{
			name: "low dpi without oversample is an error",
			page: PageInfo{Images: []ImageRef{{Xref: 1, DPI: 50}}, HasVector: true, MinDPI: 50},
			want: ActionError,
		},
		{
			name: "low dpi with oversample override succeeds",
			page: PageInfo{Images: []ImageRef{{Xref: 1, DPI: 50}}, HasVector: true, MinDPI: 50},
			opts: config.Options{Oversample: 100},
			want: ActionOcrRaster,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(&tc.page, &tc.opts)
			if got.Kind != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Kind)
			}
		})
	}
}

func TestClassifyImageOnlyCarriesXref(t *testing.T) {
	page := PageInfo{Images: []ImageRef{{Xref: 42}}}
	action := Classify(&page, &config.Options{})
	if action.Kind != ActionOcrImageOnly {
		t.Fatalf("expected image-only action, got %s", action.Kind)
	}
	if action.Xref != 42 {
		t.Errorf("expected xref 42, got %d", action.Xref)
	}
}

func TestSingleImageOnly(t *testing.T) {
	cases := []struct {
		name string
		page PageInfo
		want bool
	}{
		{"single image, no text or vector", PageInfo{Images: []ImageRef{{}}}, true},
		{"single image with text", PageInfo{Images: []ImageRef{{}}, HasText: true}, false},
		{"single image with vector", PageInfo{Images: []ImageRef{{}}, HasVector: true}, false},
		{"two images", PageInfo{Images: []ImageRef{{}, {}}}, false},
		{"no images", PageInfo{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.page.SingleImageOnly(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
