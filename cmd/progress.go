package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"speech2srt/internal/recognize"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// uploadProgress draws a progress bar on a terminal and logs at debug level
// otherwise.
func uploadProgress() recognize.ProgressFunc {
	if quiet || !isTerminal(os.Stdout) {
		return logProgress
	}
	return barProgress(os.Stdout)
}

func logProgress(read, total int64) {
	pct := 0.0
	if total > 0 {
		pct = math.Min(float64(read)/float64(total)*100, 100)
	}
	slog.Debug("upload progress", "percent", fmt.Sprintf("%.1f%%", pct))
}

func barProgress(w io.Writer) recognize.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(read, total int64) {
		if bar == nil {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("uploading"),
				progressbar.OptionShowBytes(true),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set64(min(read, total))
		if read >= total {
			_ = bar.Finish()
			bar = nil
		}
	}
}
