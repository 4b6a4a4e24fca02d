package pdferr

import (
	"errors"
	"testing"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want int
	}{
		{"bad args", BadArgs("bad"), 1},
		{"input file", InputFile("bad input", nil), 2},
		{"missing dependency", MissingDependency("no gs"), 3},
		{"invalid output pdf", InvalidOutputPDF("empty", nil), 4},
		{"file access", FileAccess("no perm", nil), 5},
		{"prior ocr", PriorOCRFound("already ocred"), 6},
		{"child process", ChildProcessError("gs", errors.New("boom")), 7},
		{"encrypted", EncryptedPDF("needs password"), 8},
		{"invalid config", InvalidConfig("bad option"), 9},
		{"pdfa conversion", PDFAConversionFailed("failed", nil), 10},
		{"other", Other("mystery", nil), 15},
		{"cancelled", Cancelled(), 15},
		{"dpi error", DpiError(3, 50), 1},
		{"ocr timeout", OcrTimeout(2), 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.ExitCode(); got != tc.want {
				t.Errorf("expected exit code %d, got %d", tc.want, got)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	wrapped := InputFile("could not parse", inner)
	if !errors.Is(wrapped, inner) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	wrapped := FileAccess("permission denied", errors.New("EACCES"))
	msg := wrapped.Error()
	if msg == "" || msg == "permission denied" {
		t.Errorf("expected message to include the wrapped cause, got %q", msg)
	}
}
