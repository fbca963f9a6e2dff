package utils

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

func NewProgressBar(total int) *progressbar.ProgressBar {
	return NewProgressBarTo(nil, total)
}

// NewProgressBarTo renders to w, or to stdout when w is nil.
func NewProgressBarTo(w io.Writer, total int) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionThrottle(100 * time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{Saucer: "#", SaucerPadding: " ", BarStart: "|", BarEnd: "|"}),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	}
	if w != nil {
		opts = append(opts, progressbar.OptionSetWriter(w))
	}

	return progressbar.NewOptions(total, opts...)
}
