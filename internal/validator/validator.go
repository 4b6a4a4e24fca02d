// Package validator implements spec.md's up-front checks: everything a
// Job must confirm before it commits to doing any page work, so a
// doomed run fails fast with a precise exit code instead of partway
// through page processing.
package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/pdferr"
	"github.com/ocrforge/pdfsandwich/internal/tools"
)

// optionsSchema is the JSON Schema every resolved Options value must
// satisfy before a Job starts, catching malformed combinations the
// struct's Go types alone don't rule out (e.g. a negative Jobs count).
const optionsSchema = `{
  "type": "object",
  "properties": {
    "Jobs": {"type": "integer", "minimum": 1},
    "JPEGQuality": {"type": "integer", "minimum": 0, "maximum": 100},
    "PNGQuality": {"type": "integer", "minimum": 0, "maximum": 100},
    "Optimize": {"type": "integer", "minimum": 0, "maximum": 3},
    "Oversample": {"type": "integer", "minimum": 0}
  }
}`

// Tool bundles every external dependency the Validator needs to probe.
type Tool struct {
	Name       string
	MinVersion string
	Probe      func(ctx context.Context) (string, error)
}

// Validator runs the up-front checks from spec.md before any page work
// starts.
type Validator struct {
	schema *jsonschema.Schema
	engine tools.OCREngine
	tools  []Tool
}

// New compiles the options schema once; New returning an error means the
// schema itself is broken, not that any particular Options value failed.
func New(engine tools.OCREngine, requiredTools []Tool) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("options.json", strings.NewReader(optionsSchema)); err != nil {
		return nil, fmt.Errorf("compile options schema: %w", err)
	}
	schema, err := compiler.Compile("options.json")
	if err != nil {
		return nil, fmt.Errorf("compile options schema: %w", err)
	}
	return &Validator{schema: schema, engine: engine, tools: requiredTools}, nil
}

// Validate runs every up-front check and returns the first failure as a
// typed pdferr.Error.
func (v *Validator) Validate(ctx context.Context, opts *config.Options) error {
	if err := v.checkModeExclusivity(opts); err != nil {
		return err
	}
	if err := v.checkCleanFinal(opts); err != nil {
		return err
	}
	if err := v.checkSidecarVsStdout(opts); err != nil {
		return err
	}
	if err := v.checkInput(opts); err != nil {
		return err
	}
	if err := v.checkOutputWritable(opts); err != nil {
		return err
	}
	if err := v.checkSchema(opts); err != nil {
		return err
	}
	if err := v.checkTools(ctx); err != nil {
		return err
	}
	if err := v.checkLanguages(ctx, opts); err != nil {
		return err
	}
	if _, err := config.ParsePages(opts.Pages); err != nil && !config.IsNonMonotonicWarning(err) {
		return pdferr.BadArgs("invalid --pages expression: %v", err)
	}
	return nil
}

// checkModeExclusivity rejects more than one of force/skip/redo set at once.
func (v *Validator) checkModeExclusivity(opts *config.Options) error {
	if opts.ModeCount() > 1 {
		return pdferr.BadArgs("--force-ocr, --skip-text and --redo-ocr are mutually exclusive")
	}
	return nil
}

// checkCleanFinal enforces "clean_final implies clean".
func (v *Validator) checkCleanFinal(opts *config.Options) error {
	if opts.CleanFinal && !opts.Clean {
		return pdferr.BadArgs("--clean-final requires --clean")
	}
	return nil
}

// checkSidecarVsStdout rejects writing the sidecar to the same stream as
// a stdout PDF output, since both would interleave on the same fd.
func (v *Validator) checkSidecarVsStdout(opts *config.Options) error {
	if opts.OutputFile == "-" && opts.Sidecar == "-" {
		return pdferr.BadArgs("--sidecar and PDF output cannot both write to stdout")
	}
	return nil
}

// checkInput confirms the input file exists and is readable. An input of
// "-" is accepted without any check; nothing in this module copies
// standard input to a file.
func (v *Validator) checkInput(opts *config.Options) error {
	if opts.InputFile == "-" {
		return nil
	}
	fi, err := os.Stat(opts.InputFile)
	if err != nil {
		return pdferr.FileAccess("input file not found", err)
	}
	if fi.IsDir() {
		return pdferr.FileAccess("input path is a directory", nil)
	}
	f, err := os.Open(opts.InputFile)
	if err != nil {
		return pdferr.FileAccess("input file is not readable", err)
	}
	f.Close()
	return nil
}

// checkOutputWritable confirms the output directory exists and accepts
// writes, without yet creating the output file itself (the atomic
// rename in §3 owns that).
func (v *Validator) checkOutputWritable(opts *config.Options) error {
	if opts.OutputFile == "-" {
		return nil
	}
	dir := filepath.Dir(opts.OutputFile)
	probe, err := os.CreateTemp(dir, ".pdfsandwich-writetest-*")
	if err != nil {
		return pdferr.FileAccess("output directory is not writable", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// checkSchema validates the resolved Options against optionsSchema.
func (v *Validator) checkSchema(opts *config.Options) error {
	doc := map[string]any{
		"Jobs":        opts.Jobs,
		"JPEGQuality": opts.JPEGQuality,
		"PNGQuality":  opts.PNGQuality,
		"Optimize":    opts.Optimize,
		"Oversample":  opts.Oversample,
	}
	if err := v.schema.Validate(doc); err != nil {
		return pdferr.InvalidConfig("options failed validation: %v", err)
	}
	return nil
}

// checkTools probes every required external tool's presence and minimum
// version, per §6's "absence is missing_dependency only when required by
// selected options" policy - callers only register the tools the
// resolved Options actually needs.
func (v *Validator) checkTools(ctx context.Context) error {
	for _, t := range v.tools {
		version, err := t.Probe(ctx)
		if err != nil {
			return pdferr.MissingDependency("%s: %v", t.Name, err)
		}
		if t.MinVersion != "" {
			if err := tools.RequireMinVersion(t.Name, version, t.MinVersion); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkLanguages confirms every requested Tesseract language pack is
// installed, per §4.6's language-pack availability check.
func (v *Validator) checkLanguages(ctx context.Context, opts *config.Options) error {
	if v.engine == nil {
		return nil
	}
	installed, err := v.engine.Languages(ctx)
	if err != nil {
		return pdferr.MissingDependency("could not list installed OCR languages: %v", err)
	}
	for _, lang := range opts.Languages {
		if !installed[lang] {
			return pdferr.MissingDependency("OCR language pack %q is not installed", lang)
		}
	}
	return nil
}
