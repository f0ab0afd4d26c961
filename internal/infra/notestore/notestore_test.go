package notestore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/billzajac/apple-notes-to-markdown/internal/domain/applenotes"
)

const fixtureSchema = `
CREATE TABLE ZICCLOUDSYNCINGOBJECT (
    Z_PK INTEGER PRIMARY KEY,
    ZTITLE1 TEXT,
    ZTITLE2 TEXT,
    ZSNIPPET TEXT,
    ZCREATIONDATE1 REAL,
    ZMODIFICATIONDATE1 REAL,
    ZFOLDER INTEGER,
    ZNOTEDATA INTEGER,
    ZMARKEDFORDELETION INTEGER DEFAULT 0,
    ZIDENTIFIER TEXT,
    ZTYPEUTI TEXT,
    ZALTTEXT TEXT,
    ZMEDIA INTEGER,
    ZFILENAME TEXT
);
CREATE TABLE ZICNOTEDATA (
    Z_PK INTEGER PRIMARY KEY,
    ZDATA BLOB
);`

func newFixtureDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NoteStore.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return path, db
}

func gzipBytes(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestNotesReadsLiveRowsNewestFirst(t *testing.T) {
	path, db := newFixtureDB(t)

	blob := gzipBytes(t, []byte("payload"))
	mustExec(t, db, `INSERT INTO ZICNOTEDATA (Z_PK, ZDATA) VALUES (1, ?)`, blob)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZTITLE2, ZMARKEDFORDELETION) VALUES (10, 'Recipes', 0)`)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZTITLE1, ZSNIPPET, ZCREATIONDATE1, ZMODIFICATIONDATE1, ZFOLDER, ZNOTEDATA, ZMARKEDFORDELETION)
		VALUES (1, 'Older note', 'older', 600000000, 600000100, 10, NULL, 0)`)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZTITLE1, ZSNIPPET, ZCREATIONDATE1, ZMODIFICATIONDATE1, ZFOLDER, ZNOTEDATA, ZMARKEDFORDELETION)
		VALUES (2, 'Newer note', 'newer', 700000000, 700000100, 10, 1, 0)`)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZTITLE1, ZMODIFICATIONDATE1, ZMARKEDFORDELETION)
		VALUES (3, 'Deleted note', 800000000, 1)`)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	rows, err := store.Notes(context.Background())
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Note.Title != "Newer note" || rows[1].Note.Title != "Older note" {
		t.Fatalf("order = %q, %q", rows[0].Note.Title, rows[1].Note.Title)
	}
	if rows[0].Note.Folder != "Recipes" {
		t.Fatalf("folder = %q", rows[0].Note.Folder)
	}
	if !bytes.Equal(rows[0].Note.Data, blob) {
		t.Fatal("blob did not round-trip")
	}
	if rows[1].Note.Data != nil {
		t.Fatalf("older note should have no blob, got %d bytes", len(rows[1].Note.Data))
	}
	if rows[1].Snippet != "older" {
		t.Fatalf("snippet = %q", rows[1].Snippet)
	}
	wantMod := applenotes.FromAppleTime(700000100)
	if !rows[0].Note.Modified.Equal(wantMod) {
		t.Fatalf("modified = %v, want %v", rows[0].Note.Modified, wantMod)
	}
}

func TestInlineTextLookup(t *testing.T) {
	path, db := newFixtureDB(t)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZIDENTIFIER, ZTYPEUTI, ZALTTEXT, ZMARKEDFORDELETION)
		VALUES (1, 'tag-uuid', 'com.apple.notes.inlinetextattachment.hashtag', '#todo', 0)`)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	lookup := store.Lookup()
	if got, ok := lookup("tag-uuid", "com.apple.notes.inlinetextattachment.hashtag"); !ok || got != "#todo" {
		t.Fatalf("lookup = %q, %v", got, ok)
	}
	if _, ok := lookup("missing-uuid", "public.jpeg"); ok {
		t.Fatal("missing identifier resolved")
	}
}

func TestFileAttachmentFollowsMediaJoin(t *testing.T) {
	path, db := newFixtureDB(t)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZIDENTIFIER, ZFILENAME, ZMARKEDFORDELETION)
		VALUES (20, 'media-uuid', 'photo.jpeg', 0)`)
	mustExec(t, db, `INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZIDENTIFIER, ZTYPEUTI, ZMEDIA, ZMARKEDFORDELETION)
		VALUES (21, 'att-uuid', 'public.jpeg', 20, 0)`)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	att, ok := store.FileAttachment(context.Background(), "att-uuid")
	if !ok {
		t.Fatal("attachment not found")
	}
	if att.TypeUTI != "public.jpeg" || att.MediaID != "media-uuid" || att.Filename != "photo.jpeg" {
		t.Fatalf("attachment = %+v", att)
	}

	if _, ok := store.FileAttachment(context.Background(), "nope"); ok {
		t.Fatal("unknown identifier resolved")
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "NoteStore.sqlite"))
	if !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("got %v, want ErrDatabaseNotFound", err)
	}
}

func TestMediaRootSitsNextToDatabase(t *testing.T) {
	path, _ := newFixtureDB(t)
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	want := filepath.Join(filepath.Dir(path), "Accounts")
	if got := store.MediaRoot(); got != want {
		t.Fatalf("media root = %q, want %q", got, want)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
