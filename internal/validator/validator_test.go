package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// fakeEngine satisfies tools.OCREngine with a fixed language set, enough
// for checkLanguages without spawning tesseract.
type fakeEngine struct {
	installed map[string]bool
	err       error
}

func (f *fakeEngine) Recognize(ctx context.Context, image string, w, h float64, languages []string, wantSidecar bool) (*tools.OCRResult, error) {
	return nil, errors.New("not used in validator tests")
}

func (f *fakeEngine) Languages(ctx context.Context) (map[string]bool, error) {
	return f.installed, f.err
}

func (f *fakeEngine) Version(ctx context.Context) (string, error) {
	return "5.3.4", nil
}

func validOptions(t *testing.T) *config.Options {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(input, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Options{
		InputFile:  input,
		OutputFile: filepath.Join(dir, "out.pdf"),
		Languages:  []string{"eng"},
		Jobs:       1,
		Optimize:   1,
	}
}

func newTestValidator(t *testing.T, engine tools.OCREngine, toolList []Tool) *Validator {
	t.Helper()
	v, err := New(engine, toolList)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestValidateHappyPath(t *testing.T) {
	v := newTestValidator(t, &fakeEngine{installed: map[string]bool{"eng": true}}, nil)
	if err := v.Validate(context.Background(), validOptions(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckModeExclusivity(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.ForceOCR = true
	opts.SkipText = true
	err := v.checkModeExclusivity(opts)
	assertBadArgs(t, err)
}

func TestCheckCleanFinalRequiresClean(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.CleanFinal = true
	opts.Clean = false
	assertBadArgs(t, v.checkCleanFinal(opts))
}

func TestCheckSidecarVsStdout(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.OutputFile = "-"
	opts.Sidecar = "-"
	assertBadArgs(t, v.checkSidecarVsStdout(opts))
}

func TestCheckInputMissingFile(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.InputFile = filepath.Join(t.TempDir(), "missing.pdf")
	err := v.checkInput(opts)
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	var perr *pdferr.Error
	if !errors.As(err, &perr) || perr.ExitCode() != pdferr.FileAccess("x", nil).ExitCode() {
		t.Errorf("expected a FileAccess error, got %v", err)
	}
}

func TestCheckOutputWritableRejectsMissingDir(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.OutputFile = filepath.Join(t.TempDir(), "nosuchdir", "out.pdf")
	if err := v.checkOutputWritable(opts); err == nil {
		t.Fatal("expected an error when the output directory does not exist")
	}
}

func TestCheckSchemaRejectsJobsBelowOne(t *testing.T) {
	v := newTestValidator(t, nil, nil)
	opts := validOptions(t)
	opts.Jobs = 0
	if err := v.checkSchema(opts); err == nil {
		t.Fatal("expected schema validation to reject Jobs < 1")
	}
}

func TestCheckToolsReportsMissingDependency(t *testing.T) {
	v := newTestValidator(t, nil, []Tool{
		{Name: "ghostscript", Probe: func(ctx context.Context) (string, error) {
			return "", errors.New("not found")
		}},
	})
	err := v.checkTools(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	var perr *pdferr.Error
	if !errors.As(err, &perr) || perr.ExitCode() != pdferr.MissingDependency("x").ExitCode() {
		t.Errorf("expected MissingDependency, got %v", err)
	}
}

func TestCheckToolsEnforcesMinVersion(t *testing.T) {
	v := newTestValidator(t, nil, []Tool{
		{Name: "ghostscript", MinVersion: "10.0.0", Probe: func(ctx context.Context) (string, error) {
			return "9.5.0", nil
		}},
	})
	if err := v.checkTools(context.Background()); err == nil {
		t.Fatal("expected a min-version error")
	}
}

func TestCheckLanguagesRejectsUninstalledPack(t *testing.T) {
	v := newTestValidator(t, &fakeEngine{installed: map[string]bool{"eng": true}}, nil)
	opts := validOptions(t)
	opts.Languages = []string{"eng", "fra"}
	err := v.checkLanguages(context.Background(), opts)
	if err == nil {
		t.Fatal("expected an error for the missing fra pack")
	}
}

func assertBadArgs(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var perr *pdferr.Error
	if !errors.As(err, &perr) || perr.ExitCode() != pdferr.BadArgs("x").ExitCode() {
		t.Errorf("expected a BadArgs error, got %v", err)
	}
}
