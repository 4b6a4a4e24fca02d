// Package tools wraps the external binaries named in spec.md §6 as thin
// exec.Command shims behind small interfaces. Per spec.md §1, the bindings
// themselves are explicitly out of scope of the hard engineering this
// module owns; what belongs here is just enough surface for the pipeline,
// optimiser, and Validator to call through an interface that tests can
// fake.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/ocrforge/pdfsandwich/internal/pdferr"
)

// Runner abstracts "run this external binary and give me stdout/stderr",
// so every wrapper in this package can be unit tested without a real
// OCR engine, PostScript interpreter, or encoder installed.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs a real subprocess with a grace-period SIGTERM-then-
// SIGKILL cancellation, per §5's cancellation policy.
type ExecRunner struct {
	KillGrace time.Duration
}

// DefaultKillGrace is the pause between SIGTERM and SIGKILL.
const DefaultKillGrace = 5 * time.Second

func (r *ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	grace := r.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(cancelSignal) }
	cmd.WaitDelay = grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// versionPattern extracts the first dotted version number from a tool's
// --version output (e.g. "gs 10.2.1 (2024-01-30)" -> "10.2.1").
var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// ParseVersion extracts a dotted version string from raw tool output.
func ParseVersion(output []byte) (string, bool) {
	m := versionPattern.Find(output)
	if m == nil {
		return "", false
	}
	return string(m), true
}

// probeAttempts and probeDelay bound the transient-failure retry below;
// version probing is the only place in this module that retries a
// subprocess call, since a page that fails mid-pipeline should fail the
// job rather than be silently re-run (§5's cancellation policy).
const (
	probeAttempts = 3
	probeDelay    = 200 * time.Millisecond
)

// Probe runs `binary --version` (or the tool-specific equivalent) and
// returns the parsed version, translating exec errors into
// MissingDependency per §6 ("absence is missing_dependency only when
// required by selected options"). A handful of busy scanners (pngquant,
// jbig2enc) occasionally fail their first exec under load right after
// install, so this retries transient failures before giving up.
func Probe(ctx context.Context, r Runner, binary string, versionArgs []string) (string, error) {
	var out []byte
	err := retry.Do(
		func() error {
			o, _, runErr := r.Run(ctx, binary, versionArgs)
			out = o
			return runErr
		},
		retry.Context(ctx),
		retry.Attempts(probeAttempts),
		retry.Delay(probeDelay),
	)
	if err != nil {
		return "", pdferr.MissingDependency("%s: %v", binary, err)
	}
	v, ok := ParseVersion(out)
	if !ok {
		return "", pdferr.MissingDependency("%s: could not determine version", binary)
	}
	return v, nil
}

// RequireMinVersion compares a probed "a.b.c" version against a minimum of
// the same shape, returning MissingDependency if it falls short.
func RequireMinVersion(tool, got, min string) error {
	if compareVersions(got, min) < 0 {
		return pdferr.MissingDependency("%s version %s is older than required minimum %s", tool, got, min)
	}
	return nil
}

func compareVersions(a, b string) int {
	as, bs := splitVersion(a), splitVersion(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

func splitVersion(v string) []int {
	var out []int
	cur := 0
	started := false
	for _, c := range v {
		if c >= '0' && c <= '9' {
			cur = cur*10 + int(c-'0')
			started = true
			continue
		}
		if c == '.' {
			out = append(out, cur)
			cur = 0
			started = false
			continue
		}
		if started {
			break
		}
	}
	out = append(out, cur)
	return out
}

// childProcessError wraps a non-zero exit into the typed taxonomy.
func childProcessError(tool string, err error, stderr []byte) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", pdferr.ChildProcessError(tool, err), string(stderr))
}
