package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ddbackup/internal/catalog"
	"ddbackup/internal/config"
	"ddbackup/internal/journal"

	"github.com/dustin/go-humanize"
)

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Base Dir:     %s\n", cfg.BaseDir)
	fmt.Fprintf(w, "Log Dir:      %s\n", cfg.LogDir)
	fmt.Fprintf(w, "State File:   %s\n", cfg.StatePath)
	fmt.Fprintf(w, "Strict State: %t\n", cfg.StrictState)
	fmt.Fprintf(w, "Journal:      %s", cfg.Journal.Type)
	if cfg.Journal.DataDir != "" {
		fmt.Fprintf(w, " (%s)", cfg.Journal.DataDir)
	}
	fmt.Fprintln(w)
	if len(cfg.Filesystem.Ignore) > 0 {
		fmt.Fprintf(w, "Ignore:       %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
	}
}

// printStatus lists the files of d with their index. Flags: S synced,
// E export set, ! export path invalid.
func printStatus(w io.Writer, d catalog.DirectoryRecord, header bool) {
	backup := d.BackupDirectory
	if backup == "" {
		backup = "(none)"
	}
	fmt.Fprintf(w, "Directory: %s\n", d.Path)
	fmt.Fprintf(w, "Backup:    %s\n", backup)

	if len(d.Files) == 0 {
		fmt.Fprintln(w, "No files tracked.")
		return
	}

	fmt.Fprintln(w)
	if header {
		fmt.Fprintf(w, "%3s  %-3s  %-19s  %s\n", "#", "", "LAST EDITED", "NAME")
	}
	for i, f := range d.Files {
		line := fmt.Sprintf("%3d  %-3s  %-19s  %s", i, fileFlags(f), f.LastEdited, f.Name)
		if f.ExportPath != "" {
			line += " -> " + f.ExportPath
		}
		fmt.Fprintln(w, line)
	}
}

func fileFlags(f *catalog.FileRecord) string {
	var b strings.Builder
	if f.Synced {
		b.WriteByte('S')
	} else {
		b.WriteByte(' ')
	}
	if f.ExportPath != "" {
		b.WriteByte('E')
	} else {
		b.WriteByte(' ')
	}
	if !f.ExportValid {
		b.WriteByte('!')
	} else {
		b.WriteByte(' ')
	}
	return b.String()
}

func printSyncResult(w io.Writer, res catalog.SyncResult) {
	status := "synced"
	if !res.Synced {
		status = "not synced"
	}
	fmt.Fprintf(w, "%s: %s (%s)\n", res.Name, status, humanize.Bytes(uint64(res.Bytes)))

	switch {
	case res.BackupErr != nil:
		fmt.Fprintf(w, "  backup failed: %v\n", res.BackupErr)
	case res.BackupPath != "":
		fmt.Fprintf(w, "  backup: %s\n", res.BackupPath)
	default:
		fmt.Fprintln(w, "  backup: skipped (no valid backup directory)")
	}

	switch {
	case res.ExportErr != nil:
		fmt.Fprintf(w, "  export failed: %v\n", res.ExportErr)
	case res.ExportPath != "":
		fmt.Fprintf(w, "  export: %s\n", res.ExportPath)
	}
}

// syncFailures returns an error if any copy in results failed.
func syncFailures(results ...catalog.SyncResult) error {
	var failed int
	for _, res := range results {
		if res.BackupErr != nil || res.ExportErr != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to copy", failed, len(results))
	}
	return nil
}

func printDirectories(w io.Writer, dirs []catalog.DirectoryRecord, current string) {
	for _, d := range dirs {
		marker := " "
		if strings.EqualFold(d.Path, current) {
			marker = "*"
		}
		backup := d.BackupDirectory
		if backup == "" {
			backup = "(no backup)"
		}
		fmt.Fprintf(w, "%s %s  %d file(s)  -> %s\n", marker, d.Path, len(d.Files), backup)
	}
}

// printEntries prints journal entries relative to now. withDir includes the
// source directory, for listings that span directories.
func printEntries(w io.Writer, entries []*journal.Entry, now time.Time, withDir bool) {
	for _, e := range entries {
		status := "ok"
		if e.Failed() {
			status = "FAILED"
		} else if !e.Synced {
			status = "unsynced"
		}

		name := e.Name
		if withDir {
			name = strings.TrimRight(e.Directory, `/\`) + "/" + e.Name
		}

		fmt.Fprintf(w, "%s  %-14s  %-8s  %8s  %s\n",
			e.SyncedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.RelTime(e.SyncedAt, now, "ago", "from now"),
			status,
			humanize.Bytes(uint64(e.Bytes)),
			name,
		)
		if e.BackupErr != "" {
			fmt.Fprintf(w, "    backup: %s\n", e.BackupErr)
		}
		if e.ExportErr != "" {
			fmt.Fprintf(w, "    export: %s\n", e.ExportErr)
		}
	}
}
