package archiveservice

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/notearchiver/internal/apperr"
	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/index"
	"github.com/starford/notearchiver/internal/models"
	"github.com/starford/notearchiver/internal/settings"
	"github.com/starford/notearchiver/internal/storage"
	"github.com/starford/notearchiver/internal/testutil"
)

var fixedNow = time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recorder) Notify(n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) all() []models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notice(nil), r.notices...)
}

type env struct {
	svc   *Service
	vault string
	store storage.Provider
	db    *index.DB
	rec   *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	vault, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	mgr, err := settings.NewManager(settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	svc := NewService(store, db, mgr, WithNotifier(rec), WithClock(func() time.Time { return fixedNow }))
	return &env{svc: svc, vault: vault, store: store, db: db, rec: rec}
}

func strptr(s string) *string { return &s }

func TestArchive_MovesAndNotifies(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "Projects/todo.md", "# Todo")
	if err := index.Sync(e.db, e.store, e.svc.logger); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.Archive(context.Background(), "Projects/todo.md")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if res.Destination != "Archive/Projects/todo.md" {
		t.Errorf("destination = %q", res.Destination)
	}

	notices := e.rec.all()
	if len(notices) != 1 {
		t.Fatalf("notices = %+v", notices)
	}
	n := notices[0]
	if n.Kind != models.NoticeArchiveCompleted || n.Message != "Projects/todo.md moved to Archive/Projects/todo.md" {
		t.Errorf("notice = %+v", n)
	}
	if n.ID == "" {
		t.Error("notice has no operation id")
	}

	if cs, _ := e.db.GetChecksum("Archive/Projects/todo.md"); cs == "" {
		t.Error("index not updated with destination")
	}
	if cs, _ := e.db.GetChecksum("Projects/todo.md"); cs != "" {
		t.Error("index still lists source")
	}
}

func TestArchive_UsesSettingsSnapshot(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "todo.md", "x")
	if _, err := e.svc.UpdateSettings(context.Background(), settings.Patch{
		ArchiveFolderName: strptr("Old"),
		Grouping:          strptr("Month"),
	}); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.Archive(context.Background(), "todo.md")
	if err != nil {
		t.Fatal(err)
	}
	if res.Destination != "Old/2024/05-May/todo.md" {
		t.Errorf("destination = %q", res.Destination)
	}
}

func TestArchive_FailureNotice(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Archive(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrSourceNotFound) {
		t.Fatalf("err = %v", err)
	}
	notices := e.rec.all()
	if len(notices) != 1 || notices[0].Kind != models.NoticeArchiveFailed {
		t.Fatalf("notices = %+v", notices)
	}
	if !strings.Contains(notices[0].Message, "missing.md") || notices[0].Error == "" {
		t.Errorf("notice = %+v", notices[0])
	}
	if k, _ := e.store.Stat("Archive"); k != storage.KindAbsent {
		t.Error("archive folder created for a missing source")
	}
}

func TestArchive_RefusesArchivedNotes(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "Archive/old.md", "x")
	_, err := e.svc.Archive(context.Background(), "Archive/old.md")
	if !errors.Is(err, apperr.ErrAlreadyArchived) {
		t.Fatalf("err = %v, want ErrAlreadyArchived", err)
	}
	if k, _ := e.store.Stat("Archive/Archive/old.md"); k != storage.KindAbsent {
		t.Error("archived note was archived again")
	}
}

func TestArchive_DestinationExists(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "todo.md", "new")
	testutil.WriteNote(t, e.vault, "Archive/todo.md", "old")

	_, err := e.svc.Archive(context.Background(), "todo.md")
	if !errors.Is(err, apperr.ErrDestinationAlreadyExists) {
		t.Fatalf("err = %v", err)
	}
	if got, _ := e.store.Read("todo.md"); string(got) != "new" {
		t.Error("source changed")
	}
}

func TestCanArchive(t *testing.T) {
	e := newEnv(t)
	cases := map[string]bool{
		"todo.md":                     true,
		"Archive2/x.md":               true,
		"Notes/Archive/x.md":          true,
		"archive/lower.md":            true,
		"Archive/x.md":                false,
		"Archive":                     false,
		"":                            false,
		".notearchiver/settings.yaml": false,
		"Notes/.draft.md":             false,
	}
	for p, want := range cases {
		if got := e.svc.CanArchive(p); got != want {
			t.Errorf("CanArchive(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	e := newEnv(t)
	_, _ = e.svc.UpdateSettings(context.Background(), settings.Patch{Grouping: strptr("Year")})
	dst, err := e.svc.Preview(context.Background(), "Notes//a.md")
	if err != nil {
		t.Fatal(err)
	}
	if dst != "Archive/2024/Notes/a.md" {
		t.Errorf("preview = %q", dst)
	}
	if k, _ := e.store.Stat("Archive"); k != storage.KindAbsent {
		t.Error("preview must not create folders")
	}
}

func TestArchivableNotes(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "a.md", "# Alpha")
	testutil.WriteNote(t, e.vault, "Archive/b.md", "# Beta")
	testutil.WriteNote(t, e.vault, "notes/c.md", "# Gamma")

	notes, total, err := e.svc.ArchivableNotes(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || notes[0].Path != "a.md" || notes[1].Path != "notes/c.md" {
		t.Errorf("notes = %+v (total %d)", notes, total)
	}

	notes, _, _ = e.svc.ArchivableNotes(context.Background(), "gamma", 0, 0)
	if len(notes) != 1 || notes[0].Title != "Gamma" {
		t.Errorf("query result = %+v", notes)
	}
}

func TestUpdateSettings_RejectsUnknownGrouping(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.UpdateSettings(context.Background(), settings.Patch{Grouping: strptr("Quarter")})
	if !errors.Is(err, apperr.ErrInvalidConfiguration) {
		t.Fatalf("err = %v", err)
	}
	if e.svc.Settings() != archive.Defaults() {
		t.Errorf("settings mutated: %+v", e.svc.Settings())
	}
	if len(e.rec.all()) != 0 {
		t.Error("rejected update must not notify")
	}
}

func TestFolderStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.svc.FolderStatus(ctx)
	if st.State != FolderMissing {
		t.Errorf("state = %q", st.State)
	}

	_ = e.store.CreateFolder("Archive")
	st, _ = e.svc.FolderStatus(ctx)
	if st.State != FolderExists || st.Message != "Folder exists, all good" {
		t.Errorf("status = %+v", st)
	}

	testutil.WriteNote(t, e.vault, "Blocked", "file")
	_, _ = e.svc.UpdateSettings(ctx, settings.Patch{ArchiveFolderName: strptr("Blocked")})
	st, _ = e.svc.FolderStatus(ctx)
	if st.State != FolderIsFile {
		t.Errorf("state = %q", st.State)
	}
}

func TestFailureMessage_PartialMove(t *testing.T) {
	err := &archive.StageError{Stage: archive.StageDeleting, Err: &apperr.PartialMoveError{
		Source: "a.md", Destination: "Archive/a.md", Err: errors.New("busy"),
	}}
	msg := FailureMessage("a.md", err)
	if !strings.Contains(msg, "both places") || !strings.Contains(msg, "Archive/a.md") {
		t.Errorf("message = %q", msg)
	}
}

func TestArchive_RefusesSettingsFileInVault(t *testing.T) {
	vault, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	settingsPath := filepath.Join(vault, ".notearchiver", "settings.yaml")
	mgr, err := settings.NewManager(settings.NewFileStore(settingsPath))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Update(settings.Patch{Grouping: strptr("Month")}); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	svc := NewService(store, db, mgr, WithNotifier(rec), WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	_, err = svc.Archive(ctx, ".notearchiver/settings.yaml")
	if !errors.Is(err, apperr.ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	if k, _ := store.Stat(".notearchiver/settings.yaml"); k != storage.KindFile {
		t.Error("settings file was moved")
	}
	if k, _ := store.Stat("Archive"); k != storage.KindAbsent {
		t.Error("archive folder created for a refused note")
	}
	if n := rec.all(); len(n) != 1 || n[0].Kind != models.NoticeArchiveFailed {
		t.Errorf("notices = %+v", n)
	}
	if _, err := svc.Preview(ctx, ".notearchiver/settings.yaml"); !errors.Is(err, apperr.ErrSourceNotFound) {
		t.Errorf("preview err = %v", err)
	}
}

func TestArchive_RefusesReservedFiles(t *testing.T) {
	vault, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	mgr, err := settings.NewManager(settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, db, mgr, WithReserved("data/index.db", ""))
	testutil.WriteNote(t, vault, "data/index.db", "sqlite")

	if svc.CanArchive("data/index.db") {
		t.Error("reserved file offered for archiving")
	}
	if _, err := svc.Archive(context.Background(), "data//index.db"); !errors.Is(err, apperr.ErrSourceNotFound) {
		t.Errorf("err = %v, want ErrSourceNotFound", err)
	}
}

func TestArchivableNotes_LowercaseSiblingFolder(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "top.md", "# Top")
	testutil.WriteNote(t, e.vault, "archive/lower.md", "# Lower")
	testutil.WriteNote(t, e.vault, "Archive/done.md", "# Done")

	notes, total, err := e.svc.ArchivableNotes(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("total = %d, notes = %+v", total, notes)
	}
	for _, n := range notes {
		if !e.svc.CanArchive(n.Path) {
			t.Errorf("listed %q but CanArchive is false", n.Path)
		}
	}
}

func TestReindex_SkipsUnchangedNotes(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.vault, "Archive/a.md", "# A")
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = e.db.UpsertNote(models.Note{Path: "Archive/a.md", Title: "A", Checksum: storage.Checksum([]byte("# A")), UpdatedAt: old})

	e.svc.reindex(e.svc.logger, "Archive/a.md")
	notes, _, _ := e.db.ListNotes(index.ListQuery{})
	if len(notes) != 1 || !notes[0].UpdatedAt.Equal(old) {
		t.Errorf("unchanged note rewritten: %+v", notes)
	}

	testutil.WriteNote(t, e.vault, "Archive/a.md", "# Changed")
	e.svc.reindex(e.svc.logger, "Archive/a.md")
	notes, _, _ = e.db.ListNotes(index.ListQuery{})
	if len(notes) != 1 || notes[0].Title != "Changed" {
		t.Errorf("changed note not reindexed: %+v", notes)
	}
}
