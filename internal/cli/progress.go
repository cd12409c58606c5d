package cli

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/schollz/progressbar/v3"
)

// verifyProgress shows a progress bar for the fetch/parse loop. The bar is created on the first
// update, once the number of predicted files is known.
type verifyProgress struct {
	quiet bool
	w     io.Writer
	bar   *progressbar.ProgressBar
}

func newVerifyProgress(quiet bool, w io.Writer) *verifyProgress {
	return &verifyProgress{quiet: quiet, w: w}
}

// Update is a verify.ProgressFunc.
func (p *verifyProgress) Update(done, total int, file string) {
	if p.quiet {
		return
	}
	if p.bar == nil {
		w := p.w
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Verifying files"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
	p.bar.Describe(fmt.Sprintf("Verifying %s", path.Base(file)))
	_ = p.bar.Set(done)
}

// Finish completes and releases the current bar.
func (p *verifyProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
