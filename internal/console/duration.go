package console

import (
	"fmt"
	"time"
)

// FormatDuration renders whole milliseconds below one second and seconds with
// two decimals from one second up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := d.Seconds()
	if seconds < 1 {
		return fmt.Sprintf("%.0fms", seconds*1000)
	}
	return fmt.Sprintf("%.2fs", seconds)
}
