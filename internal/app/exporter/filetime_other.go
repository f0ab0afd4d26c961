//go:build !darwin

package exporter

import "time"

// Creation times are only settable through SetFile on macOS; elsewhere
// Chtimes is the best available.
func setFileCreationTime(path string, created time.Time) error {
	return nil
}
