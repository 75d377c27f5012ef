// internal/runutil/runutil.go
package runutil

import "time"

// DefaultOutputDir names a run's output directory from its start time,
// e.g. "pmr_output_20260830_141502".
func DefaultOutputDir(now time.Time) string {
	return "pmr_output_" + now.Format("20060102_150405")
}
