package archive

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

var may15 = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		folder   string
		grouping Grouping
		source   string
		now      time.Time
		want     string
	}{
		{"no grouping keeps folders", "Archive", NoGrouping, "Notes/todo.md", may15, "Archive/Notes/todo.md"},
		{"no grouping ignores date", "Archive", NoGrouping, "Notes/todo.md", time.Time{}, "Archive/Notes/todo.md"},
		{"year", "Archive", Year, "todo.md", may15, "Archive/2024/todo.md"},
		{"month", "Archive", Month, "todo.md", may15, "Archive/2024/05-May/todo.md"},
		{"month pads", "Archive", Month, "a.md", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), "Archive/2023/01-January/a.md"},
		{"december", "Archive", Month, "a.md", time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC), "Archive/2023/12-December/a.md"},
		{"nested archive root", "Old/Archive", Year, "Projects/x/y.md", may15, "Old/Archive/2024/Projects/x/y.md"},
		{"redundant separators", "Archive//", NoGrouping, "Notes//./todo.md", may15, "Archive/Notes/todo.md"},
		{"backslashes", `Archive\Sub`, NoGrouping, `Notes\todo.md`, may15, "Archive/Sub/Notes/todo.md"},
		{"dot dot inside source", "Archive", NoGrouping, "Notes/tmp/../todo.md", may15, "Archive/Notes/todo.md"},
		{"leading slash", "/Archive/", NoGrouping, "/todo.md", may15, "Archive/todo.md"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.folder, tc.grouping, tc.source, tc.now)
			if got != tc.want {
				t.Errorf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolve_UsesLocalDateOfNow(t *testing.T) {
	// 2024-12-31 23:30 in UTC-5 is already 2025 in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, time.December, 31, 23, 30, 0, 0, loc)
	if got := Resolve("Archive", Month, "a.md", now); got != "Archive/2024/12-December/a.md" {
		t.Errorf("got %q", got)
	}
}

func TestSettingsDestination(t *testing.T) {
	s := Settings{ArchiveFolderName: "Archive", Grouping: Month}
	if got := s.Destination("todo.md", may15); got != "Archive/2024/05-May/todo.md" {
		t.Errorf("got %q", got)
	}
	if got := s.Subfolder(may15); got != "Archive/2024/05-May" {
		t.Errorf("subfolder = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"/":                "",
		".":                "",
		"a//b///c":         "a/b/c",
		"a/./b/":           "a/b",
		`a\b\c.md`:         "a/b/c.md",
		"a/../b":           "b",
		"../escape":        "../escape",
		"Café.md":    "Café.md",
		"///lead/trail///": "lead/trail",
		" Old/ ":           "Old",
		"a / b.md ":        "a/b.md",
		"  ":               "",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithin(t *testing.T) {
	cases := []struct {
		p, folder string
		want      bool
	}{
		{"Archive/a.md", "Archive", true},
		{"Archive", "Archive", true},
		{"Archive2/a.md", "Archive", false},
		{"Notes/Archive/a.md", "Archive", false},
		{"Old/Archive/x.md", "Old/Archive/", true},
	}
	for _, tc := range cases {
		if got := Within(tc.p, tc.folder); got != tc.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tc.p, tc.folder, got, tc.want)
		}
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("Archive/2024/05-May")
	want := []string{"Archive", "Archive/2024", "Archive/2024/05-May"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ancestors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ancestors("") != nil {
		t.Error("root has no ancestors")
	}
}

func TestPropertyNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := rapid.StringMatching(`[a-zA-Z0-9 ./\\_-]{0,40}`).Draw(rt, "path")
		once := NormalizePath(p)
		if twice := NormalizePath(once); twice != once {
			rt.Fatalf("NormalizePath not idempotent: %q -> %q -> %q", p, once, twice)
		}
	})
}

func TestPropertyResolveDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		folder := rapid.StringMatching(`[A-Za-z]{1,8}(/[A-Za-z]{1,8}){0,2}`).Draw(rt, "folder")
		source := rapid.StringMatching(`([A-Za-z0-9]{1,6}/){0,3}[A-Za-z0-9]{1,8}\.md`).Draw(rt, "source")
		g := rapid.SampledFrom(Groupings).Draw(rt, "grouping")
		now := time.Unix(rapid.Int64Range(0, 4102444800).Draw(rt, "unix"), 0).UTC()

		first := Resolve(folder, g, source, now)
		if second := Resolve(folder, g, source, now); first != second {
			rt.Fatalf("Resolve not deterministic: %q vs %q", first, second)
		}
		if NormalizePath(first) != first {
			rt.Fatalf("Resolve result %q is not normalized", first)
		}
		if !Within(first, folder) {
			rt.Fatalf("Resolve result %q is outside archive folder %q", first, folder)
		}
		// Noise in the inputs must not change the outcome.
		noisy := Resolve(folder+"//", g, "./"+source, now)
		if noisy != first {
			rt.Fatalf("noisy input resolved to %q, want %q", noisy, first)
		}
	})
}
