package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/billzajac/apple-notes-to-markdown/internal/domain/applenotes"
	"github.com/billzajac/apple-notes-to-markdown/internal/infra/exportfs"
	"github.com/billzajac/apple-notes-to-markdown/internal/infra/notestore"
	"github.com/billzajac/apple-notes-to-markdown/internal/logging"
)

// NoteSource is what the exporter needs from the Notes database.
// *notestore.Store satisfies it.
type NoteSource interface {
	Notes(ctx context.Context) ([]notestore.NoteRow, error)
	Lookup() applenotes.AttachmentLookup
	FileAttachment(ctx context.Context, identifier string) (notestore.FileAttachment, bool)
	MediaRoot() string
}

type Exporter struct {
	Source           NoteSource
	OutputDir        string
	AttachmentsDir   string
	Label            string
	MaxNotes         int
	DryRun           bool
	ZipPath          string
	FilenameEscaping string
}

type Stats struct {
	Notes       int
	Attachments int
	Recovered   int
	Failed      int
}

func (e Exporter) Run(ctx context.Context) (Stats, error) {
	if e.Source == nil {
		return Stats{}, fmt.Errorf("note source is required")
	}
	if e.OutputDir == "" {
		return Stats{}, fmt.Errorf("output directory is required")
	}

	filenameEscaping, err := resolveFilenameEscaping(e.FilenameEscaping)
	if err != nil {
		return Stats{}, err
	}

	attachmentsDir := e.AttachmentsDir
	if attachmentsDir == "" {
		attachmentsDir = "attachments"
	}

	rows, err := e.Source.Notes(ctx)
	if err != nil {
		return Stats{}, err
	}
	if e.MaxNotes > 0 && len(rows) > e.MaxNotes {
		rows = rows[:e.MaxNotes]
	}

	if !e.DryRun {
		if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
			return Stats{}, fmt.Errorf("create output dir: %w", err)
		}
	}

	progressBar := newExportProgressBar(len(rows) + 1)
	defer progressBar.Close()

	notePaths := buildNotePathIndex(rows, filenameEscaping)
	lookup := e.Source.Lookup()

	var stats Stats
	for i, row := range rows {
		progressBar.Advance(row.Note.Title)
		exported, err := e.exportNote(ctx, row, notePaths[i], attachmentsDir, lookup, &stats)
		if err != nil {
			logging.Error("note export failed", "note", row.Note.Title, "error", err)
			stats.Failed++
			continue
		}
		if exported.Recovered {
			stats.Recovered++
		}
		stats.Notes++
	}

	if e.ZipPath != "" && !e.DryRun {
		if err := exportfs.ZipDir(e.OutputDir, e.ZipPath); err != nil {
			return stats, err
		}
	}

	progressBar.Finish("done")
	return stats, nil
}

// exportNote renders one note to markdown, copying any file attachments
// it references. Decode failures are not fatal: the byte-scan recovery
// text is exported instead and the cause is logged.
func (e Exporter) exportNote(ctx context.Context, row notestore.NoteRow, relPath, attachmentsDir string, lookup applenotes.AttachmentLookup, stats *Stats) (applenotes.NoteContent, error) {
	note := row.Note

	var content applenotes.NoteContent
	if len(note.Data) == 0 {
		content = applenotes.NoteContent{Text: row.Snippet, Positions: map[string]int{}}
	} else {
		var err error
		content, err = applenotes.DecodeNoteData(note.Data, lookup)
		if err != nil {
			logging.Warn("structured decode failed, using recovered text", "note", note.Title, "error", err)
		}
		if content.Recovered && strings.TrimSpace(content.Text) == "" {
			content.Text = row.Snippet
		}
	}

	links := e.collectAttachmentLinks(ctx, content.Positions, attachmentsDir, stats)
	body := renderNoteBody(note.Title, content, links)
	fm, err := renderFrontmatter(note, e.Label)
	if err != nil {
		return content, err
	}

	if e.DryRun {
		return content, nil
	}

	absPath := filepath.Join(e.OutputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return content, err
	}
	if err := os.WriteFile(absPath, []byte(fm+body), 0o644); err != nil {
		return content, fmt.Errorf("write note: %w", err)
	}
	if err := exportfs.ApplyFileTimes(absPath, note.Created, note.Modified, setFileCreationTime); err != nil {
		logging.Warn("apply note timestamps", "note", note.Title, "error", err)
	}
	return content, nil
}

// collectAttachmentLinks maps placeholder identifiers to exported
// attachment links, copying payloads into the attachments directory.
// Attachments whose payload cannot be located still render, as a plain
// name without a target.
func (e Exporter) collectAttachmentLinks(ctx context.Context, positions map[string]int, attachmentsDir string, stats *Stats) map[string]attachmentLink {
	links := make(map[string]attachmentLink, len(positions))
	for id := range positions {
		att, ok := e.Source.FileAttachment(ctx, id)
		if !ok {
			links[id] = attachmentLink{Name: "attachment"}
			continue
		}
		name := att.Filename
		if name == "" {
			name = att.Identifier
		}
		link := attachmentLink{
			Name:  name,
			Image: isImageUTI(att.TypeUTI),
		}

		src, found := exportfs.FindMediaFile(e.Source.MediaRoot(), att.MediaID, att.Filename)
		if found {
			dst := filepath.Join(e.OutputDir, attachmentsDir, name)
			if filepath.Ext(name) == "" {
				if ext := exportfs.DetectFileExtensionFromContent(src); ext != "" {
					name += ext
					dst += ext
				}
			}
			if !e.DryRun {
				if err := exportfs.CopyFile(src, dst); err != nil {
					logging.Warn("copy attachment", "attachment", name, "error", err)
				} else {
					stats.Attachments++
				}
			} else {
				stats.Attachments++
			}
			link.Name = name
			link.Target = filepath.ToSlash(filepath.Join(attachmentsDir, name))
		}
		links[id] = link
	}
	return links
}

func isImageUTI(uti string) bool {
	switch strings.ToLower(uti) {
	case "public.jpeg", "public.png", "public.heic", "public.heif", "public.tiff", "public.gif", "com.compuserve.gif":
		return true
	default:
		return false
	}
}

// buildNotePathIndex assigns a stable markdown path to every note,
// numbering filename collisions in order.
func buildNotePathIndex(rows []notestore.NoteRow, filenameEscaping string) []string {
	paths := make([]string, len(rows))
	used := map[string]int{}
	for i, row := range rows {
		base := sanitizeName(row.Note.Title, filenameEscaping)
		if base == "" {
			base = "note-" + strconv.FormatInt(row.Note.ID, 10)
		}
		usedKey := filenameCollisionKey(base, filenameEscaping)
		n := used[usedKey]
		used[usedKey] = n + 1
		if n > 0 {
			base = base + "-" + strconv.Itoa(n+1)
		}
		paths[i] = base + ".md"
	}
	return paths
}

type exportProgressBar struct {
	enabled         bool
	total           int
	current         int
	lastRenderWidth int
	label           string
	bar             progress.Model
}

func newExportProgressBar(total int) exportProgressBar {
	if total <= 0 {
		total = 1
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 36

	if cols, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && cols > 0 {
		width := cols - 40
		if width < 16 {
			width = 16
		}
		if width > 64 {
			width = 64
		}
		bar.Width = width
	}

	return exportProgressBar{
		enabled: isTerminal(os.Stderr),
		total:   total,
		bar:     bar,
	}
}

func (p *exportProgressBar) Advance(label string) {
	if !p.enabled {
		return
	}
	p.current++
	if p.current > p.total {
		p.current = p.total
	}
	p.label = label
	p.render()
}

func (p *exportProgressBar) Finish(label string) {
	if !p.enabled {
		return
	}
	p.current = p.total
	p.label = label
	p.render()
	fmt.Fprint(os.Stderr, "\n")
	p.lastRenderWidth = 0
}

func (p *exportProgressBar) Close() {
	if !p.enabled {
		return
	}
	if p.lastRenderWidth > 0 {
		fmt.Fprint(os.Stderr, "\n")
		p.lastRenderWidth = 0
	}
}

func (p *exportProgressBar) render() {
	percent := float64(p.current) / float64(p.total)
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	line := fmt.Sprintf("%s %3.0f%% %d/%d %s", p.bar.ViewAs(percent), percent*100, p.current, p.total, strings.TrimSpace(p.label))
	pad := ""
	if p.lastRenderWidth > len(line) {
		pad = strings.Repeat(" ", p.lastRenderWidth-len(line))
	}
	fmt.Fprintf(os.Stderr, "\r%s%s", line, pad)
	p.lastRenderWidth = len(line)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
