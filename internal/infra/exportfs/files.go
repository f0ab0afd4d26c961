package exportfs

import (
	"archive/zip"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FindMediaFile locates an attachment payload under the Notes group
// container. Payloads live at Accounts/<account>/Media/<mediaID>/<name>;
// the account directory name is not stored next to the note, so every
// account is tried.
func FindMediaFile(accountsRoot, mediaID, filename string) (string, bool) {
	if mediaID == "" {
		return "", false
	}
	accounts, err := os.ReadDir(accountsRoot)
	if err != nil {
		return "", false
	}
	for _, acct := range accounts {
		if !acct.IsDir() {
			continue
		}
		dir := filepath.Join(accountsRoot, acct.Name(), "Media", mediaID)
		if filename != "" {
			candidate := filepath.Join(dir, filename)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				return filepath.Join(dir, ent.Name()), true
			}
		}
	}
	return "", false
}

func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func DetectFileExtensionFromContent(path string) string {
	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return ""
	}

	sniffLen := len(content)
	if sniffLen > 512 {
		sniffLen = 512
	}

	mimeType := strings.TrimSpace(http.DetectContentType(content[:sniffLen]))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	mimeType = strings.ToLower(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		return ""
	}

	preferredExt := map[string]string{
		"image/jpeg":       ".jpg",
		"image/png":        ".png",
		"image/gif":        ".gif",
		"image/webp":       ".webp",
		"image/heic":       ".heic",
		"application/pdf":  ".pdf",
		"application/json": ".json",
		"text/plain":       ".txt",
	}
	if ext, ok := preferredExt[mimeType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	sort.Strings(exts)
	return exts[0]
}

// ApplyFileTimes stamps an exported file with the note's creation and
// modification times. setFileCreationTime is platform-specific; pass
// SetFileCreationTime from the exporter.
func ApplyFileTimes(path string, created, modified time.Time, setFileCreationTime func(path string, created time.Time) error) error {
	if created.IsZero() && modified.IsZero() {
		return nil
	}
	atime, mtime := created, modified
	if mtime.IsZero() {
		mtime = atime
	}
	if atime.IsZero() {
		atime = mtime
	}
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return err
	}
	if !created.IsZero() && setFileCreationTime != nil {
		return setFileCreationTime(path, created)
	}
	return nil
}

// ZipDir packages an export directory into a zip archive. Paths inside
// the archive are slash-separated and relative to dir.
func ZipDir(dir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("zip %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return out.Sync()
}
