package index

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/notearchiver/internal/models"
	"github.com/starford/notearchiver/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func paths(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Path
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(models.Note{Path: "hello.md", Title: "Hello", Checksum: "abc123"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	_ = db.UpsertNote(models.Note{Path: "hello.md", Title: "Hello", Checksum: "def"})
	cs, _ = db.GetChecksum("hello.md")
	if cs != "def" {
		t.Errorf("checksum after update = %q", cs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestRenameNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(models.Note{Path: "todo.md", Title: "Todo", Checksum: "1"})
	_ = db.UpsertNote(models.Note{Path: "Archive/todo.md", Title: "Stale", Checksum: "0"})

	if err := db.RenameNote("todo.md", "Archive/todo.md"); err != nil {
		t.Fatalf("RenameNote: %v", err)
	}
	if cs, _ := db.GetChecksum("todo.md"); cs != "" {
		t.Error("old path still indexed")
	}
	if cs, _ := db.GetChecksum("Archive/todo.md"); cs != "1" {
		t.Errorf("new path checksum = %q, want 1", cs)
	}
}

func TestListNotes_ExcludesArchiveFolder(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.md", "Archive/b.md", "Archive/2024/c.md", "Archive2/d.md", "Notes/Archive/e.md"} {
		_ = db.UpsertNote(models.Note{Path: p, Title: p, Checksum: "x", UpdatedAt: time.Now()})
	}

	notes, total, err := db.ListNotes(ListQuery{ExcludeFolder: "Archive"})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	want := []string{"Archive2/d.md", "Notes/Archive/e.md", "a.md"}
	if total != len(want) {
		t.Fatalf("total = %d, want %d (%v)", total, len(want), paths(notes))
	}
	for i, p := range want {
		if notes[i].Path != p {
			t.Errorf("notes[%d] = %q, want %q", i, notes[i].Path, p)
		}
	}
}

func TestListNotes_QueryAndPaging(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(models.Note{Path: "one.md", Title: "Meeting Notes", Checksum: "1"})
	_ = db.UpsertNote(models.Note{Path: "two.md", Title: "Groceries", Checksum: "2"})
	_ = db.UpsertNote(models.Note{Path: "meeting/three.md", Title: "Three", Checksum: "3"})
	_ = db.UpsertNote(models.Note{Path: "100%_done.md", Title: "Literal", Checksum: "4"})

	notes, total, err := db.ListNotes(ListQuery{Query: "meeting"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(notes) != 2 {
		t.Errorf("query matched %v (total %d)", paths(notes), total)
	}

	notes, _, _ = db.ListNotes(ListQuery{Query: "%_"})
	if len(notes) != 1 || notes[0].Path != "100%_done.md" {
		t.Errorf("wildcards not escaped: %v", paths(notes))
	}

	notes, total, _ = db.ListNotes(ListQuery{Limit: 1, Offset: 1})
	if total != 4 || len(notes) != 1 {
		t.Errorf("paging: %v total %d", paths(notes), total)
	}
}

func TestSync(t *testing.T) {
	vault := t.TempDir()
	store, err := storage.NewFS(vault)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(vault, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(vault, "a.md"), []byte("---\ntitle: Alpha\n---\nbody"), 0o644)
	_ = os.WriteFile(filepath.Join(vault, "sub", "b.md"), []byte("# Beta"), 0o644)
	db := testDB(t)
	_ = db.UpsertNote(models.Note{Path: "gone.md", Checksum: "x"})

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	notes, total, _ := db.ListNotes(ListQuery{})
	if total != 2 {
		t.Fatalf("total = %d (%v)", total, paths(notes))
	}
	if notes[0].Path != "a.md" || notes[0].Title != "Alpha" {
		t.Errorf("notes[0] = %+v", notes[0])
	}
	if notes[1].Path != "sub/b.md" || notes[1].Title != "Beta" {
		t.Errorf("notes[1] = %+v", notes[1])
	}

	// Removing a file drops it on the next sync.
	_ = os.Remove(filepath.Join(vault, "sub", "b.md"))
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("sub/b.md"); cs != "" {
		t.Error("removed file still indexed")
	}
}

func TestListNotes_ExcludeFolderIsCaseSensitive(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"top.md", "Archive/old.md", "archive/lower.md", "ARCHIVE"} {
		_ = db.UpsertNote(models.Note{Path: p, Title: p, Checksum: "x"})
	}

	notes, total, err := db.ListNotes(ListQuery{ExcludeFolder: "Archive"})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	want := []string{"ARCHIVE", "archive/lower.md", "top.md"}
	if total != len(want) {
		t.Fatalf("total = %d, want %d (%v)", total, len(want), paths(notes))
	}
	for i, p := range want {
		if notes[i].Path != p {
			t.Errorf("notes[%d] = %q, want %q", i, notes[i].Path, p)
		}
	}
}
