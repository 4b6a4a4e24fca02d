package config

import "testing"

func TestDefault(t *testing.T) {
	opts := Default()
	if len(opts.Languages) != 1 || opts.Languages[0] != "eng" {
		t.Errorf("expected default language [eng], got %v", opts.Languages)
	}
	if opts.OutputType != OutputPDFA2 {
		t.Errorf("expected default output type pdfa-2, got %s", opts.OutputType)
	}
	if opts.PDFRenderer != RendererSandwich {
		t.Errorf("expected default renderer sandwich, got %s", opts.PDFRenderer)
	}
	if opts.Jobs <= 0 {
		t.Errorf("expected a positive default job count, got %d", opts.Jobs)
	}
}

func TestModeCount(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want int
	}{
		{"none set", Options{}, 0},
		{"force only", Options{ForceOCR: true}, 1},
		{"force and skip", Options{ForceOCR: true, SkipText: true}, 2},
		{"all three", Options{ForceOCR: true, SkipText: true, RedoOCR: true}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.opts.ModeCount(); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
