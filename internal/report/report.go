// Package report renders predictions and verification results.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for output formats other than text and json.
var ErrUnknownFormat = errors.New("unknown output format")

// Report is everything produced for one prompt.
type Report struct {
	RunID      string                        `json:"run_id"`
	Repo       string                        `json:"repo,omitempty"`
	Frontend   string                        `json:"frontend,omitempty"`
	Prediction *predict.Prediction           `json:"prediction"`
	Results    map[string]*verify.FileResult `json:"results,omitempty"`
	Verified   bool                          `json:"verified"`
}

// New creates a report for pred with a fresh run ID. Results are attached by the caller once
// verification has run.
func New(pred *predict.Prediction) *Report {
	return &Report{
		RunID:      uuid.New().String(),
		Prediction: pred,
	}
}

// Attach records verification results.
func (r *Report) Attach(results map[string]*verify.FileResult) {
	r.Results = results
	r.Verified = true
}

// Write renders r in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteText prints the console layout: predicted files, predicted functions and, when
// verification ran, the matched symbols per file.
func WriteText(w io.Writer, r *Report) error {
	p := &printer{w: w}

	p.printf("\n🔮 Predicted Files:\n")
	for _, f := range r.Prediction.Files {
		p.printf("  • %s\n", f)
	}
	p.printf("\n🔧 Predicted Functions:\n")
	for _, e := range r.Prediction.Entries {
		p.printf("  • %s\n", e)
	}

	if !r.Verified {
		return p.err
	}

	p.printf("\n🧩 AST Match Results:\n")
	for _, f := range r.Prediction.Files {
		p.printf("\n📄 %s:\n", f)
		res, ok := r.Results[f]
		switch {
		case !ok:
			p.printf("  (not checked)\n")
		case res.Skipped:
			p.printf("  (skipped: not a C/C++ source file)\n")
		case res.Error != "":
			p.printf("  ⚠️  %s\n", res.Error)
		case len(res.Matches) == 0:
			p.printf("  no matching symbols\n")
		default:
			for _, m := range res.Matches {
				flag := "  "
				if m.Confirmed {
					flag = "✅"
				}
				p.printf("  %s %s @ line %d\n", flag, m.Name, m.Line)
			}
		}
	}
	return p.err
}

// WriteBatch prints one batch section: the prompt followed by its predictions.
func WriteBatch(w io.Writer, pred *predict.Prediction) error {
	p := &printer{w: w}
	p.printf("\n🧠 Prompt: %s\n", pred.Prompt)
	p.printf("  📁 Predicted Files:\n")
	for _, f := range pred.Files {
		p.printf("    • %s\n", f)
	}
	p.printf("  🔧 Predicted Functions:\n")
	for _, e := range pred.Entries {
		p.printf("    • %s\n", e)
	}
	return p.err
}

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// printer keeps the first write error so callers can print unconditionally.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
