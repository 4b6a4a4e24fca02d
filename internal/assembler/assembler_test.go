package assembler

import "testing"

const privateUseRune = ""

func TestValidateMetadataStringRejectsAboveBMP(t *testing.T) {
	if err := validateMetadataString("plain ascii"); err != nil {
		t.Errorf("expected plain ascii to pass, got %v", err)
	}
	if err := validateMetadataString("emoji \U0001F600"); err == nil {
		t.Error("expected an above-BMP rune to be rejected")
	}
	if err := validateMetadataString("pua " + privateUseRune); err == nil {
		t.Error("expected a private-use-area rune to be rejected")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		a, b, want string
	}{
		{"override", "source", "override"},
		{"", "source", "source"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := firstNonEmpty(tc.a, tc.b); got != tc.want {
			t.Errorf("firstNonEmpty(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}
