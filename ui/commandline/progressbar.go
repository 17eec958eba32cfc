package commandline

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBar reports the progress of a long enumeration, e.g. a sweep over orders.
type ProgressBar struct {
	bar     *progressbar.ProgressBar
	termenv *termenv.Output
	start   time.Time
}

// NewProgressBar creates a progress bar for total steps, written to w (typically os.Stderr).
func NewProgressBar(w io.Writer, total int, description string) *ProgressBar {
	pBar := &ProgressBar{
		termenv: termenv.NewOutput(w),
		start:   time.Now(),
	}
	pBar.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(w),
	)
	pBar.termenv.HideCursor()
	return pBar
}

// Add advances the progress bar by n steps.
func (pBar *ProgressBar) Add(n int) {
	_ = pBar.bar.Add(n)
}

// Close finishes the progress bar and returns the elapsed time since its creation.
func (pBar *ProgressBar) Close() time.Duration {
	_ = pBar.bar.Finish()
	_ = pBar.bar.Close()
	pBar.termenv.ShowCursor()
	return time.Since(pBar.start)
}

var durationRegexp = regexp.MustCompile(`(\d+\.?\d*)([µa-z]+)`)

// FormatDuration pretty prints duration without a long list of decimal points.
//
// Durations of a minute or more are printed with all their units, rounded to 10ms, e.g. "1m2.5s".
func FormatDuration(d time.Duration) string {
	if d >= time.Minute || d <= -time.Minute {
		return d.Round(10 * time.Millisecond).String()
	}
	s := d.String()
	matches := durationRegexp.FindStringSubmatch(s)
	if len(matches) != 3 {
		return s
	}
	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f%s", num, matches[2])
}
