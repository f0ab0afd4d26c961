//go:build darwin

package exporter

import (
	"os/exec"
	"time"
)

// setFileCreationTime stamps the HFS+/APFS creation date via SetFile.
// Missing developer tools are not an error; Chtimes already ran.
func setFileCreationTime(path string, created time.Time) error {
	if created.IsZero() {
		return nil
	}
	setFilePath, err := exec.LookPath("SetFile")
	if err != nil {
		return nil
	}
	ts := created.Local().Format("01/02/2006 15:04:05")
	return exec.Command(setFilePath, "-d", ts, path).Run()
}
