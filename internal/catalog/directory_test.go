package catalog_test

import (
	"testing"
	"time"

	"ddbackup/internal/catalog"
	"ddbackup/internal/testutil"
)

func TestDirectoryRecord_TouchFile(t *testing.T) {
	d := catalog.NewDirectoryRecord("/docs", "")
	d.AddFile(catalog.RestoreFileRecord("a.txt", ""))
	d.AddFile(catalog.RestoreFileRecord("b.txt", ""))

	tests := []struct {
		name    string
		index   int
		want    string
		wantNil bool
	}{
		{name: "first", index: 0, want: "a.txt"},
		{name: "last", index: 1, want: "b.txt"},
		{name: "past the end", index: 2, wantNil: true},
		{name: "negative", index: -1, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := d.TouchFile(tt.index)
			if tt.wantNil {
				if f != nil {
					t.Errorf("TouchFile(%d) = %+v, want nil", tt.index, f)
				}
				return
			}
			if f == nil || f.Name != tt.want {
				t.Errorf("TouchFile(%d) = %+v, want %s", tt.index, f, tt.want)
			}
		})
	}

	t.Run("returns a mutable record", func(t *testing.T) {
		d.TouchFile(0).ExportPath = "/out"
		if d.Files[0].ExportPath != "/out" {
			t.Error("mutation through TouchFile not visible")
		}
	})
}

func TestDirectoryRecord_RemoveFile(t *testing.T) {
	d := catalog.NewDirectoryRecord("/docs", "")
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		d.AddFile(catalog.RestoreFileRecord(name, ""))
	}

	if !d.RemoveFile(1) {
		t.Fatal("RemoveFile(1) = false")
	}
	if len(d.Files) != 2 || d.Files[0].Name != "a.txt" || d.Files[1].Name != "c.txt" {
		t.Errorf("Files after removal = %v", names(d))
	}

	if d.RemoveFile(5) {
		t.Error("RemoveFile(5) = true for out-of-range index")
	}
	if d.RemoveFile(-1) {
		t.Error("RemoveFile(-1) = true for negative index")
	}

	// The permission gate is not enforced here.
	if d.Files[0].RemoveAllowed {
		t.Fatal("precondition: RemoveAllowed should be false")
	}
	if !d.RemoveFile(0) {
		t.Error("RemoveFile(0) = false; the gate belongs to the caller")
	}
}

func TestDirectoryRecord_AddFileAllowsDuplicates(t *testing.T) {
	d := catalog.NewDirectoryRecord("/docs", "")
	d.AddFile(catalog.RestoreFileRecord("a.txt", ""))
	d.AddFile(catalog.RestoreFileRecord("a.txt", "/elsewhere"))

	if len(d.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(d.Files))
	}
}

func TestDirectoryRecord_RefreshFiles(t *testing.T) {
	src := t.TempDir()
	backup := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	testutil.WriteFile(t, src, "a.txt", "a", base)
	testutil.WriteFile(t, src, "b.txt", "b", base.Add(time.Minute))
	testutil.WriteFile(t, backup, "2024-03-01-12-01-00_b.txt", "b", base)

	d := catalog.NewDirectoryRecord(src, backup)
	d.AddFile(catalog.RestoreFileRecord("a.txt", ""))
	d.AddFile(catalog.RestoreFileRecord("b.txt", "/nonexistent/x/y"))

	d.RefreshFiles(testutil.FixedClock())

	a, b := d.Files[0], d.Files[1]
	if a.LastEdited != "2024-03-01 12:00:00" || a.Synced || !a.ExportValid {
		t.Errorf("a.txt state = %+v", a)
	}
	if b.LastEdited != "2024-03-01 12:01:00" || !b.Synced || b.ExportValid {
		t.Errorf("b.txt state = %+v", b)
	}
}

func TestDirectoryRecord_SortFilesByLastEdited(t *testing.T) {
	d := catalog.NewDirectoryRecord("/docs", "")
	d.AddFile(&catalog.FileRecord{Name: "old", LastEdited: "2023-01-01 00:00:00"})
	d.AddFile(&catalog.FileRecord{Name: "tie-1", LastEdited: "2024-06-01 08:00:00"})
	d.AddFile(&catalog.FileRecord{Name: "newest", LastEdited: "2024-12-31 23:59:59"})
	d.AddFile(&catalog.FileRecord{Name: "tie-2", LastEdited: "2024-06-01 08:00:00"})

	d.SortFilesByLastEdited()

	want := []string{"newest", "tie-1", "tie-2", "old"}
	got := names(d)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func names(d *catalog.DirectoryRecord) []string {
	out := make([]string, len(d.Files))
	for i, f := range d.Files {
		out[i] = f.Name
	}
	return out
}
