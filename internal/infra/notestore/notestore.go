// Package notestore reads notes and attachment metadata from the Apple
// Notes SQLite database (NoteStore.sqlite) using the pure Go driver.
package notestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/billzajac/apple-notes-to-markdown/internal/domain/applenotes"
)

const driverName = "sqlite"

// ErrDatabaseNotFound reports a missing NoteStore.sqlite.
var ErrDatabaseNotFound = errors.New("notestore: database not found")

// DefaultPath is where macOS keeps the Notes database for the current user.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Group Containers", "group.com.apple.notes", "NoteStore.sqlite")
}

type Store struct {
	db   *sql.DB
	path string
}

// Open opens the database read-only. The returned error carries a
// permission hint when macOS privacy protection blocks the read.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return nil, permissionHint(err, path)
	}
	db, err := sql.Open(driverName, path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open notes database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, permissionHint(err, path)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// permissionHint wraps open failures that stem from macOS privacy
// protection with a Full Disk Access pointer, since the raw sqlite
// error ("unable to open database file") tells the user nothing.
func permissionHint(err error, path string) error {
	msg := err.Error()
	if errors.Is(err, fs.ErrPermission) ||
		strings.Contains(msg, "unable to open database file") ||
		strings.Contains(msg, "operation not permitted") {
		return fmt.Errorf("cannot read %s: %w. Grant your terminal Full Disk Access in System Settings > Privacy & Security, or copy the database to a readable location and pass --db-path", path, err)
	}
	return fmt.Errorf("open notes database %s: %w", path, err)
}

const notesQuery = `
SELECT
    n.Z_PK,
    n.ZTITLE1,
    n.ZSNIPPET,
    n.ZCREATIONDATE1,
    n.ZMODIFICATIONDATE1,
    f.ZTITLE2,
    c.ZDATA
FROM ZICCLOUDSYNCINGOBJECT n
LEFT JOIN ZICCLOUDSYNCINGOBJECT f ON n.ZFOLDER = f.Z_PK
LEFT JOIN ZICNOTEDATA c ON n.ZNOTEDATA = c.Z_PK
WHERE n.ZTITLE1 IS NOT NULL
    AND n.ZMARKEDFORDELETION = 0
ORDER BY n.ZMODIFICATIONDATE1 DESC`

// NoteRow is one note as stored: metadata plus the raw content blob and
// the snippet Notes keeps for list previews, used when the blob is gone.
type NoteRow struct {
	Note    applenotes.Note
	Snippet string
}

// Notes returns every live note, newest first.
func (s *Store) Notes(ctx context.Context) ([]NoteRow, error) {
	rows, err := s.db.QueryContext(ctx, notesQuery)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var (
			pk       int64
			title    sql.NullString
			snippet  sql.NullString
			created  sql.NullFloat64
			modified sql.NullFloat64
			folder   sql.NullString
			data     []byte
		)
		if err := rows.Scan(&pk, &title, &snippet, &created, &modified, &folder, &data); err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		name := strings.TrimSpace(title.String)
		if name == "" {
			name = "Untitled"
		}
		out = append(out, NoteRow{
			Note: applenotes.Note{
				ID:       pk,
				Title:    name,
				Folder:   folder.String,
				Created:  applenotes.FromAppleTime(created.Float64),
				Modified: applenotes.FromAppleTime(modified.Float64),
				Data:     data,
			},
			Snippet: snippet.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

const inlineTextQuery = `
SELECT ZALTTEXT
FROM ZICCLOUDSYNCINGOBJECT
WHERE ZIDENTIFIER = ?
    AND ZALTTEXT IS NOT NULL
LIMIT 1`

// InlineText resolves a hashtag or mention identifier to its literal
// text, stored by Notes in the attachment row's alt text column.
func (s *Store) InlineText(identifier, typeUTI string) (string, bool) {
	var alt string
	err := s.db.QueryRow(inlineTextQuery, identifier).Scan(&alt)
	if err != nil || strings.TrimSpace(alt) == "" {
		return "", false
	}
	return alt, true
}

// Lookup adapts the store to the decoder's lookup contract.
func (s *Store) Lookup() applenotes.AttachmentLookup {
	return s.InlineText
}

const attachmentQuery = `
SELECT
    a.ZIDENTIFIER,
    COALESCE(a.ZTYPEUTI, ''),
    COALESCE(m.ZIDENTIFIER, ''),
    COALESCE(m.ZFILENAME, '')
FROM ZICCLOUDSYNCINGOBJECT a
LEFT JOIN ZICCLOUDSYNCINGOBJECT m ON a.ZMEDIA = m.Z_PK
WHERE a.ZIDENTIFIER = ?
LIMIT 1`

// FileAttachment describes an attachment's on-disk media file. The
// payload lives next to the database under
// Accounts/<account>/Media/<MediaID>/<Filename>.
type FileAttachment struct {
	Identifier string
	TypeUTI    string
	MediaID    string
	Filename   string
}

// FileAttachment returns media metadata for one attachment identifier.
func (s *Store) FileAttachment(ctx context.Context, identifier string) (FileAttachment, bool) {
	var att FileAttachment
	err := s.db.QueryRowContext(ctx, attachmentQuery, identifier).Scan(
		&att.Identifier, &att.TypeUTI, &att.MediaID, &att.Filename)
	if err != nil {
		return FileAttachment{}, false
	}
	return att, true
}

// MediaRoot is the Accounts directory that holds attachment payloads,
// derived from the database location.
func (s *Store) MediaRoot() string {
	return filepath.Join(filepath.Dir(s.path), "Accounts")
}
