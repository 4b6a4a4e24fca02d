package workctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ocrforge/pdfsandwich/internal/config"
)

func TestNewCreatesRootDirectory(t *testing.T) {
	wc, err := New(&config.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer wc.Close()

	fi, err := os.Stat(wc.Root())
	if err != nil || !fi.IsDir() {
		t.Fatalf("expected Root() to point at an existing directory, got %v", err)
	}
}

func TestPagePathUsesSixDigitPrefix(t *testing.T) {
	wc, err := New(&config.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer wc.Close()

	got := wc.PagePath(3, "split.pdf")
	want := filepath.Join(wc.Root(), "000003.split.pdf")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMkdirCreatesSubdirectory(t *testing.T) {
	wc, err := New(&config.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer wc.Close()

	dir, err := wc.Mkdir("extracted")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		t.Fatalf("expected %s to exist as a directory", dir)
	}
}

func TestCloseRemovesDirectoryByDefault(t *testing.T) {
	wc, err := New(&config.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	root := wc.Root()
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected working directory to be removed, got err=%v", err)
	}
}

func TestCloseKeepsDirectoryWhenRequested(t *testing.T) {
	wc, err := New(&config.Options{KeepTemporaryFiles: true}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	root := wc.Root()
	defer os.RemoveAll(root)

	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("expected working directory to be kept, got err=%v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	wc, err := New(&config.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
