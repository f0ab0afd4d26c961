package exportfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindMediaFile(t *testing.T) {
	root := t.TempDir()
	mediaDir := filepath.Join(root, "account-123", "Media", "media-uuid")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := filepath.Join(mediaDir, "photo.jpeg")
	if err := os.WriteFile(payload, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := FindMediaFile(root, "media-uuid", "photo.jpeg")
	if !ok || got != payload {
		t.Fatalf("got %q, %v", got, ok)
	}

	// Falls back to the only file in the media dir when the stored
	// filename does not match.
	got, ok = FindMediaFile(root, "media-uuid", "renamed.jpeg")
	if !ok || got != payload {
		t.Fatalf("fallback got %q, %v", got, ok)
	}

	if _, ok := FindMediaFile(root, "missing-uuid", "photo.jpeg"); ok {
		t.Fatal("missing media resolved")
	}
	if _, ok := FindMediaFile(root, "", "photo.jpeg"); ok {
		t.Fatal("empty media id resolved")
	}
}

func TestCopyFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "nested", "dst.bin")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "data" {
		t.Fatalf("read copy: %q, %v", got, err)
	}
}

func TestDetectFileExtensionFromContent(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "blob")
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	if err := os.WriteFile(png, header, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectFileExtensionFromContent(png); got != ".png" {
		t.Fatalf("ext = %q", got)
	}
}

func TestApplyFileTimes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	created := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	modified := time.Date(2023, 6, 2, 13, 30, 0, 0, time.UTC)

	var gotCreation time.Time
	err := ApplyFileTimes(path, created, modified, func(p string, c time.Time) error {
		gotCreation = c
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(modified) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), modified)
	}
	if !gotCreation.Equal(created) {
		t.Fatalf("creation hook got %v", gotCreation)
	}
}

func TestZipDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "export")
	if err := os.MkdirAll(filepath.Join(src, "attachments"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "note.md"), []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "attachments", "a.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	zipPath := filepath.Join(dir, "export.zip")
	if err := ZipDir(src, zipPath); err != nil {
		t.Fatalf("zip: %v", err)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["note.md"] || !names["attachments/a.png"] {
		t.Fatalf("archive entries = %v", names)
	}
}
