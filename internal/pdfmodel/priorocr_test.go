package pdfmodel

import "testing"

func TestScanForPriorOCR(t *testing.T) {
	cases := []struct {
		name     string
		producer string
		want     bool
	}{
		{"stamped by this pipeline", "pdfsandwich 1.0", true},
		{"unrelated producer", "Adobe Acrobat Pro", false},
		{"empty producer", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scanForPriorOCR(DocMetadata{Producer: tc.producer})
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
