package tools

import (
	"context"
	"errors"
	"testing"
)

// fakeRunner lets tests script a sequence of exec results without a real
// subprocess, the same role the teacher's tests gave its OCRProvider fakes.
type fakeRunner struct {
	calls   int
	outputs [][]byte
	errs    []error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	i := f.calls
	f.calls++
	if i >= len(f.outputs) {
		i = len(f.outputs) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.outputs[i], nil, err
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"gs banner", "gs 10.2.1 (2024-01-30)", "10.2.1", true},
		{"tesseract banner", "tesseract 5.3.4", "5.3.4", true},
		{"no version present", "no digits here", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseVersion([]byte(tc.in))
			if ok != tc.ok || got != tc.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestRequireMinVersion(t *testing.T) {
	cases := []struct {
		name    string
		got     string
		min     string
		wantErr bool
	}{
		{"exact match", "10.2.1", "10.2.1", false},
		{"newer patch", "10.2.5", "10.2.1", false},
		{"newer major", "11.0.0", "10.2.1", false},
		{"older patch", "10.2.0", "10.2.1", true},
		{"older major", "9.9.9", "10.2.1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireMinVersion("gs", tc.got, tc.min)
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestProbeRetriesTransientFailures(t *testing.T) {
	runner := &fakeRunner{
		outputs: [][]byte{nil, nil, []byte("gs 10.2.1")},
		errs:    []error{errors.New("busy"), errors.New("busy"), nil},
	}
	version, err := Probe(context.Background(), runner, "gs", []string{"--version"})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if version != "10.2.1" {
		t.Errorf("expected version 10.2.1, got %q", version)
	}
	if runner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", runner.calls)
	}
}

func TestProbeGivesUpAfterPersistentFailure(t *testing.T) {
	runner := &fakeRunner{
		outputs: [][]byte{nil},
		errs:    []error{errors.New("not found"), errors.New("not found"), errors.New("not found")},
	}
	_, err := Probe(context.Background(), runner, "gs", []string{"--version"})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}
