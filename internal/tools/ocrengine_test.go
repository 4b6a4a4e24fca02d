package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writingRunner fakes a tesseract invocation by writing the requested
// outBase.txt (and .pdf) files, the way a real run would, so Recognize's
// post-hoc emptiness check has something to read.
type writingRunner struct {
	txtContent string
}

func (w *writingRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	outBase := args[1]
	if err := os.WriteFile(outBase+".pdf", []byte("%PDF-1.4 fake"), 0o644); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(outBase+".txt", []byte(w.txtContent), 0o644); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func TestRecognizeReportsEmptyPage(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "page.png")

	engine := NewTesseractEngine(&writingRunner{txtContent: "   \n\n"})
	result, err := engine.Recognize(context.Background(), image, 612, 792, []string{"eng"}, true)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.RecognizedAny {
		t.Error("expected RecognizedAny=false for a whitespace-only transcript")
	}
}

func TestRecognizeReportsRecognizedText(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "page.png")

	engine := NewTesseractEngine(&writingRunner{txtContent: "hello world"})
	result, err := engine.Recognize(context.Background(), image, 612, 792, []string{"eng"}, true)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !result.RecognizedAny {
		t.Error("expected RecognizedAny=true for a non-empty transcript")
	}
	if result.SidecarText == "" {
		t.Error("expected sidecar path to be set when wantSidecar is true")
	}
}

func TestRecognizeDropsSidecarWhenNotRequested(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "page.png")

	engine := NewTesseractEngine(&writingRunner{txtContent: "hello world"})
	result, err := engine.Recognize(context.Background(), image, 612, 792, []string{"eng"}, false)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.SidecarText != "" {
		t.Errorf("expected no sidecar path, got %q", result.SidecarText)
	}
	outBase := image[:len(image)-len(filepath.Ext(image))]
	if _, err := os.Stat(outBase + ".txt"); !os.IsNotExist(err) {
		t.Error("expected the temporary txt file to be removed")
	}
}
