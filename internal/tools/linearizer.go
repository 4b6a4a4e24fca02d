package tools

import "context"

// Linearizer repairs PDF structure and produces a fast-web-view
// ("linearised") file, per §4.4 / §6. A real implementation shells out to
// qpdf.
type Linearizer interface {
	Linearize(ctx context.Context, inPDF, outPDF string) error
	Version(ctx context.Context) (string, error)
}

type QPDFLinearizer struct {
	Binary string // default "qpdf"
	Runner Runner
}

func NewQPDFLinearizer(runner Runner) *QPDFLinearizer {
	return &QPDFLinearizer{Binary: "qpdf", Runner: runner}
}

func (q *QPDFLinearizer) bin() string {
	if q.Binary == "" {
		return "qpdf"
	}
	return q.Binary
}

func (q *QPDFLinearizer) Linearize(ctx context.Context, inPDF, outPDF string) error {
	_, stderr, err := q.Runner.Run(ctx, q.bin(), []string{"--linearize", inPDF, outPDF})
	if err != nil {
		return childProcessError("qpdf", err, stderr)
	}
	return nil
}

func (q *QPDFLinearizer) Version(ctx context.Context) (string, error) {
	return Probe(ctx, q.Runner, q.bin(), []string{"--version"})
}
