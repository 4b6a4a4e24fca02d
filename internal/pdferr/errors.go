// Package pdferr defines the typed failure taxonomy shared across the
// pipeline and the exit codes the CLI maps them to. Only cmd/pdfsandwich
// converts one of these into an os.Exit code; everything below run()
// propagates a wrapped error.
package pdferr

import "fmt"

// Code identifies a class of failure. The numeric ExitCode is stable and
// part of the external contract (§6 of the spec this module implements).
type Code int

const (
	CodeOK                 Code = 0
	CodeBadArgs            Code = 1
	CodeInputFile          Code = 2
	CodeMissingDependency  Code = 3
	CodeInvalidOutputPDF   Code = 4
	CodeFileAccess         Code = 5
	CodePriorOCRFound      Code = 6
	CodeChildProcessError  Code = 7
	CodeEncryptedPDF       Code = 8
	CodeInvalidConfig      Code = 9
	CodePDFAConversion     Code = 10
	CodeOther              Code = 15
	CodeCtrlC              Code = 130
)

// Error is a typed failure carrying an exit code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the stable exit code for this error.
func (e *Error) ExitCode() int { return int(e.Code) }

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// BadArgs reports a malformed or mutually exclusive option combination.
func BadArgs(format string, args ...any) *Error { return newf(CodeBadArgs, format, args...) }

// InputFile reports a problem reading or parsing the input PDF.
func InputFile(msg string, err error) *Error { return wrap(CodeInputFile, msg, err) }

// MissingDependency reports an absent or too-old external tool or language pack.
func MissingDependency(format string, args ...any) *Error {
	return newf(CodeMissingDependency, format, args...)
}

// InvalidOutputPDF reports that the Assembler or optimiser produced a
// document that failed a sanity check (e.g. zero pages, zero bytes).
func InvalidOutputPDF(msg string, err error) *Error {
	return wrap(CodeInvalidOutputPDF, msg, err)
}

// FileAccess reports that the output path isn't writable or the input
// isn't readable.
func FileAccess(msg string, err error) *Error { return wrap(CodeFileAccess, msg, err) }

// PriorOCRFound reports that the input already carries a text layer in a
// mode that forbids re-OCR.
func PriorOCRFound(msg string) *Error { return newf(CodePriorOCRFound, "%s", msg) }

// ChildProcessError reports a non-zero exit or unparsable output from an
// external tool invocation whose diagnostics we couldn't classify further.
func ChildProcessError(tool string, err error) *Error {
	return wrap(CodeChildProcessError, fmt.Sprintf("subprocess %s failed", tool), err)
}

// EncryptedPDF reports that the input requires a password the caller did
// not supply.
func EncryptedPDF(msg string) *Error { return newf(CodeEncryptedPDF, "%s", msg) }

// InvalidConfig reports a semantically invalid (but well-formed) option set.
func InvalidConfig(format string, args ...any) *Error {
	return newf(CodeInvalidConfig, format, args...)
}

// PDFAConversionFailed reports that the PostScript interpreter's PDF/A pass failed.
func PDFAConversionFailed(msg string, err error) *Error {
	return wrap(CodePDFAConversion, msg, err)
}

// Other is the catch-all for failures that don't fit a more specific code.
func Other(msg string, err error) *Error { return wrap(CodeOther, msg, err) }

// DpiError reports an image whose projected DPI is too low to OCR reliably.
func DpiError(pageNo int, dpi float64) *Error {
	return newf(CodeBadArgs, "page %d: projected DPI %.1f below minimum (use --oversample to override)", pageNo, dpi)
}

// OcrTimeout reports that the OCR engine did not return within its deadline.
func OcrTimeout(pageNo int) *Error {
	return newf(CodeChildProcessError, "page %d: OCR engine timed out", pageNo)
}

// Cancelled reports that the job was aborted before this unit of work ran.
func Cancelled() *Error { return newf(CodeOther, "job cancelled") }
