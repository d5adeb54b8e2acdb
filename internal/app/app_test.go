package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ddbackup/internal/config"
	"ddbackup/internal/state"
	"ddbackup/internal/testutil"
)

var mtime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Journal = config.JournalConfig{Type: "memory"}
	return cfg
}

func openApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := newApp(cfg, NewOperation("test", testutil.NewStubIDGenerator()), testutil.FixedClock(), nil)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	return a
}

func closeApp(t *testing.T, a *App) {
	t.Helper()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestApp_FirstRun(t *testing.T) {
	a := openApp(t, testConfig(t))
	defer closeApp(t, a)

	if a.CurrentDirectory() != "" {
		t.Errorf("CurrentDirectory() = %q, want empty", a.CurrentDirectory())
	}
	if _, ok := a.Current(); ok {
		t.Error("Current() ok = true on first run")
	}
	if len(a.Directories()) != 0 {
		t.Errorf("Directories() = %d, want 0", len(a.Directories()))
	}
	if _, err := a.SyncAll(); !errors.Is(err, ErrNoCurrentDirectory) {
		t.Errorf("SyncAll() error = %v, want ErrNoCurrentDirectory", err)
	}
}

func TestApp_ChangeCurrentDirectory(t *testing.T) {
	t.Run("valid directory becomes tracked", func(t *testing.T) {
		src := t.TempDir()
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		if err := a.ChangeCurrentDirectory(src); err != nil {
			t.Fatalf("ChangeCurrentDirectory() error = %v", err)
		}
		d, ok := a.Current()
		if !ok || d.Path != src {
			t.Errorf("Current() = %+v, %v", d, ok)
		}
	})

	t.Run("invalid directory is current but untracked", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "gone")
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		if err := a.ChangeCurrentDirectory(missing); err != nil {
			t.Fatalf("ChangeCurrentDirectory() error = %v", err)
		}
		if a.CurrentDirectory() != missing {
			t.Errorf("CurrentDirectory() = %q, want %q", a.CurrentDirectory(), missing)
		}
		if _, ok := a.Current(); ok {
			t.Error("Current() ok = true for an invalid directory")
		}
		if err := a.SetBackupDirectory(t.TempDir()); !errors.Is(err, ErrNoCurrentDirectory) {
			t.Errorf("SetBackupDirectory() error = %v, want ErrNoCurrentDirectory", err)
		}
	})
}

func TestApp_AddFile(t *testing.T) {
	t.Run("adds file and switches to its directory", func(t *testing.T) {
		src := t.TempDir()
		path := testutil.WriteFile(t, src, "a.txt", "hello", mtime)
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		if err := a.AddFile(path); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if a.CurrentDirectory() != src {
			t.Errorf("CurrentDirectory() = %q, want %q", a.CurrentDirectory(), src)
		}
		d, _ := a.Current()
		if len(d.Files) != 1 || d.Files[0].Name != "a.txt" || d.Files[0].LastEdited != "2024-03-01 12:00:00" {
			t.Errorf("files = %+v", d.Files)
		}
		if !d.Files[0].ExportValid || d.Files[0].Synced {
			t.Errorf("derived state = %+v", d.Files[0])
		}
	})

	t.Run("directory already tracked under another case", func(t *testing.T) {
		root := t.TempDir()
		upper := testutil.Mkdir(t, root, "Docs")
		lower := testutil.Mkdir(t, root, "docs")
		path := testutil.WriteFile(t, lower, "a.txt", "hello", mtime)
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		if err := a.ChangeCurrentDirectory(upper); err != nil {
			t.Fatal(err)
		}
		if err := a.AddFile(path); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		dirs := a.Directories()
		if len(dirs) != 1 || len(dirs[0].Files) != 1 {
			t.Fatalf("Directories() = %+v, want one merged record", dirs)
		}
		if got := dirs[0].Files[0].LastEdited; got != "2024-03-01 12:00:00" {
			t.Errorf("LastEdited = %q, want the file's modification time", got)
		}
	})

	t.Run("rejects directories and missing files", func(t *testing.T) {
		dir := t.TempDir()
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		for _, p := range []string{dir, filepath.Join(dir, "missing.txt")} {
			if err := a.AddFile(p); !errors.Is(err, ErrNotAFile) {
				t.Errorf("AddFile(%s) error = %v, want ErrNotAFile", p, err)
			}
		}
		if len(a.Directories()) != 0 {
			t.Error("rejected file should not track its directory")
		}
	})

	t.Run("config ignore patterns", func(t *testing.T) {
		src := t.TempDir()
		path := testutil.WriteFile(t, src, "~$report.docx", "lock", mtime)
		cfg := testConfig(t)
		cfg.Filesystem.Ignore = []string{"~$*"}
		a := openApp(t, cfg)
		defer closeApp(t, a)

		if err := a.AddFile(path); !errors.Is(err, ErrIgnored) {
			t.Errorf("AddFile() error = %v, want ErrIgnored", err)
		}
	})

	t.Run("per-directory ignore file", func(t *testing.T) {
		src := t.TempDir()
		testutil.WriteFile(t, src, ".ddbignore", "# scratch files\n*.tmp\n", mtime)
		tmp := testutil.WriteFile(t, src, "draft.tmp", "x", mtime)
		keep := testutil.WriteFile(t, src, "draft.txt", "x", mtime)
		a := openApp(t, testConfig(t))
		defer closeApp(t, a)

		if err := a.AddFile(tmp); !errors.Is(err, ErrIgnored) {
			t.Errorf("AddFile(draft.tmp) error = %v, want ErrIgnored", err)
		}
		if err := a.AddFile(keep); err != nil {
			t.Errorf("AddFile(draft.txt) error = %v", err)
		}
		if err := a.AddFile(filepath.Join(src, ".ddbignore")); !errors.Is(err, ErrIgnored) {
			t.Errorf("AddFile(.ddbignore) error = %v, want ErrIgnored", err)
		}
	})
}

func TestApp_SyncFile(t *testing.T) {
	src := t.TempDir()
	backup := t.TempDir()
	exportDir := t.TempDir()
	path := testutil.WriteFile(t, src, "a.txt", "hello", mtime)

	a := openApp(t, testConfig(t))
	defer closeApp(t, a)

	if err := a.AddFile(path); err != nil {
		t.Fatal(err)
	}
	if err := a.SetBackupDirectory(backup); err != nil {
		t.Fatal(err)
	}
	if err := a.SetExportPath(0, exportDir); err != nil {
		t.Fatal(err)
	}

	res, err := a.SyncFile(0)
	if err != nil {
		t.Fatalf("SyncFile() error = %v", err)
	}
	if !res.Synced || res.BackupErr != nil || res.ExportErr != nil {
		t.Errorf("SyncFile() = %+v", res)
	}
	if got := testutil.ReadFile(t, filepath.Join(backup, "2024-03-01-12-00-00_a.txt")); got != "hello" {
		t.Errorf("backup content = %q", got)
	}
	if got := testutil.ReadFile(t, filepath.Join(exportDir, "a.txt")); got != "hello" {
		t.Errorf("export content = %q", got)
	}

	d, _ := a.Current()
	if !d.Files[0].Synced {
		t.Error("file not marked synced in catalog")
	}

	history, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Name != "a.txt" {
		t.Errorf("History() = %+v", history)
	}

	fileHistory, err := a.FileHistory(0, 10)
	if err != nil {
		t.Fatalf("FileHistory() error = %v", err)
	}
	if len(fileHistory) != 1 {
		t.Errorf("FileHistory() returned %d entries, want 1", len(fileHistory))
	}

	if _, err := a.SyncFile(5); !errors.Is(err, ErrNoSuchFile) {
		t.Errorf("SyncFile(5) error = %v, want ErrNoSuchFile", err)
	}
}

func TestApp_SyncAll(t *testing.T) {
	src := t.TempDir()
	backup := t.TempDir()
	a := openApp(t, testConfig(t))
	defer closeApp(t, a)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := a.AddFile(testutil.WriteFile(t, src, name, name, mtime)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.SetBackupDirectory(backup); err != nil {
		t.Fatal(err)
	}

	results, err := a.SyncAll()
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("SyncAll() returned %d results, want 3", len(results))
	}
	for _, r := range results {
		if !r.Synced {
			t.Errorf("%s not synced: %+v", r.Name, r)
		}
	}
	if n := testutil.CountEntries(t, backup); n != 3 {
		t.Errorf("backup directory has %d entries, want 3", n)
	}
	if a.op.Failed() {
		t.Error("operation marked failed after clean syncs")
	}
}

func TestApp_RemoveFile(t *testing.T) {
	src := t.TempDir()
	a := openApp(t, testConfig(t))
	defer closeApp(t, a)

	for _, name := range []string{"a.txt", "b.txt"} {
		if err := a.AddFile(testutil.WriteFile(t, src, name, "x", mtime)); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.RemoveFile(0); !errors.Is(err, ErrRemoveNotAllowed) {
		t.Errorf("RemoveFile() without gate error = %v, want ErrRemoveNotAllowed", err)
	}

	if err := a.SetRemoveAllowed(0, true); err != nil {
		t.Fatal(err)
	}
	if err := a.RemoveFile(0); err != nil {
		t.Fatalf("RemoveFile() error = %v", err)
	}

	d, _ := a.Current()
	if len(d.Files) != 1 || d.Files[0].Name != "b.txt" {
		t.Errorf("files after removal = %+v", d.Files)
	}
	if !testutil.Exists(filepath.Join(src, "a.txt")) {
		t.Error("removing a file from tracking must not delete it from disk")
	}

	if err := a.SetRemoveAllowed(3, true); !errors.Is(err, ErrNoSuchFile) {
		t.Errorf("SetRemoveAllowed(3) error = %v, want ErrNoSuchFile", err)
	}
}

func TestApp_PersistsAcrossSessions(t *testing.T) {
	cfg := testConfig(t)
	src := t.TempDir()
	backup := t.TempDir()
	export := filepath.Join(t.TempDir(), "out.txt")
	path := testutil.WriteFile(t, src, "a.txt", "hello", mtime)

	first := openApp(t, cfg)
	if err := first.AddFile(path); err != nil {
		t.Fatal(err)
	}
	if err := first.SetBackupDirectory(backup); err != nil {
		t.Fatal(err)
	}
	if err := first.SetExportPath(0, export); err != nil {
		t.Fatal(err)
	}
	if _, err := first.SyncFile(0); err != nil {
		t.Fatal(err)
	}
	if err := first.SetRemoveAllowed(0, true); err != nil {
		t.Fatal(err)
	}
	closeApp(t, first)

	second := openApp(t, cfg)
	defer closeApp(t, second)

	if second.CurrentDirectory() != src {
		t.Errorf("CurrentDirectory() = %q, want %q", second.CurrentDirectory(), src)
	}
	d, ok := second.Current()
	if !ok {
		t.Fatal("current directory not restored")
	}
	if d.BackupDirectory != backup {
		t.Errorf("BackupDirectory = %q, want %q", d.BackupDirectory, backup)
	}
	f := d.Files[0]
	if f.ExportPath != export || !f.Synced || !f.ExportValid {
		t.Errorf("restored file = %+v", f)
	}
	if f.RemoveAllowed {
		t.Error("remove gate must not survive a restart")
	}
}

func TestApp_MalformedState(t *testing.T) {
	t.Run("quarantined by default", func(t *testing.T) {
		cfg := testConfig(t)
		if err := os.WriteFile(cfg.StatePath, []byte("directories: [unterminated"), 0644); err != nil {
			t.Fatal(err)
		}

		a := openApp(t, cfg)
		if len(a.Directories()) != 0 {
			t.Error("expected empty catalog after malformed state")
		}
		closeApp(t, a)

		entries, err := os.ReadDir(cfg.BaseDir)
		if err != nil {
			t.Fatal(err)
		}
		var quarantined bool
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), config.StateFileName+".corrupt-") {
				quarantined = true
			}
		}
		if !quarantined {
			t.Error("malformed state file was not moved aside")
		}
	})

	t.Run("fatal in strict mode", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StrictState = true
		if err := os.WriteFile(cfg.StatePath, []byte("directories: [unterminated"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := newApp(cfg, NewOperation("test", testutil.NewStubIDGenerator()), testutil.FixedClock(), nil)
		if !errors.Is(err, state.ErrMalformedState) {
			t.Fatalf("newApp() error = %v, want ErrMalformedState", err)
		}

		// A failed start must release the lock and leave the file in place.
		cfg.StrictState = false
		a := openApp(t, cfg)
		closeApp(t, a)
	})
}

func TestApp_StateLocked(t *testing.T) {
	cfg := testConfig(t)
	a := openApp(t, cfg)
	defer closeApp(t, a)

	_, err := newApp(cfg, NewOperation("test", testutil.NewStubIDGenerator()), testutil.FixedClock(), nil)
	if !errors.Is(err, state.ErrStateLocked) {
		t.Errorf("second newApp() error = %v, want ErrStateLocked", err)
	}
}
