package storage

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// insertProgress wraps an optional progress bar; the zero value draws nothing.
type insertProgress struct {
	bar *progressbar.ProgressBar
}

func newInsertProgress(w io.Writer, total int, project string) *insertProgress {
	if w == nil || total == 0 {
		return &insertProgress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("Inserting blocks into %s", project)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
	return &insertProgress{bar: bar}
}

func (p *insertProgress) inc() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *insertProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
