// Command apple-notes-to-markdown exports Apple Notes to a directory of
// markdown files with YAML frontmatter and copied attachments.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/billzajac/apple-notes-to-markdown/internal/app/exporter"
	"github.com/billzajac/apple-notes-to-markdown/internal/infra/notestore"
	"github.com/billzajac/apple-notes-to-markdown/internal/logging"
)

var CLI struct {
	DBPath           string `name:"db-path" help:"Path to NoteStore.sqlite. Defaults to the macOS Notes database for the current user." type:"path"`
	Output           string `name:"output" short:"o" default:"./notes-export" help:"Output directory for markdown files." type:"path"`
	AttachmentsDir   string `name:"attachments-dir" default:"attachments" help:"Directory inside the output for attachment payloads."`
	Label            string `name:"label" help:"Tag added to every exported note's frontmatter."`
	MaxNotes         int    `name:"max-notes" help:"Export at most this many notes (newest first). 0 means all."`
	DryRun           bool   `name:"dry-run" help:"Decode everything but write nothing."`
	Zip              string `name:"zip" help:"Also package the export directory into this zip file." type:"path"`
	FilenameEscaping string `name:"filename-escaping" default:"auto" enum:"auto,posix,windows" help:"Filename sanitization mode."`
	LogLevel         string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFormat        string `name:"log-format" default:"text" enum:"text,json" help:"Log output format."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("apple-notes-to-markdown"),
		kong.Description("Export Apple Notes to markdown with attachments."),
		kong.UsageOnError(),
	)
	logging.Init(CLI.LogLevel, CLI.LogFormat)

	store, err := notestore.Open(CLI.DBPath)
	kctx.FatalIfErrorf(err)
	defer store.Close()

	exp := exporter.Exporter{
		Source:           store,
		OutputDir:        CLI.Output,
		AttachmentsDir:   CLI.AttachmentsDir,
		Label:            CLI.Label,
		MaxNotes:         CLI.MaxNotes,
		DryRun:           CLI.DryRun,
		ZipPath:          CLI.Zip,
		FilenameEscaping: CLI.FilenameEscaping,
	}

	stats, err := exp.Run(context.Background())
	kctx.FatalIfErrorf(err)

	fmt.Printf("exported %d notes (%d recovered, %d failed), copied %d attachments\n",
		stats.Notes, stats.Recovered, stats.Failed, stats.Attachments)
	if CLI.DryRun {
		fmt.Println("dry run: nothing was written")
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
