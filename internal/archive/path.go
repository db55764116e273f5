package archive

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePath converts p to the vault path convention: forward slashes,
// no redundant separators, no "." or ".." segments that can be resolved,
// no leading or trailing slash, no whitespace around a segment,
// NFC-normalized. The vault root is "".
// Leading ".." segments survive so callers can detect paths leaving the vault.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = norm.NFC.String(p)
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = strings.TrimSpace(s)
	}
	p = path.Clean(strings.TrimLeft(strings.Join(segs, "/"), "/"))
	if p == "." {
		return ""
	}
	return p
}

// Hidden reports whether any segment of p starts with a dot, like
// ".notearchiver/settings.yaml" or "notes/.draft.md".
func Hidden(p string) bool {
	for _, seg := range strings.Split(NormalizePath(p), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// escapesVault reports whether a cleaned relative path climbs above the root.
func escapesVault(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}

// parentOf returns the folder containing p, "" for top-level entries.
func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ancestors lists every folder on the way to dir, root first.
// ancestors("a/b/c") = ["a", "a/b", "a/b/c"].
func ancestors(dir string) []string {
	if dir == "" {
		return nil
	}
	segs := strings.Split(dir, "/")
	out := make([]string, 0, len(segs))
	for i := range segs {
		out = append(out, strings.Join(segs[:i+1], "/"))
	}
	return out
}

// Within reports whether p is folder itself or lies underneath it.
func Within(p, folder string) bool {
	p, folder = NormalizePath(p), NormalizePath(folder)
	if folder == "" {
		return true
	}
	return p == folder || strings.HasPrefix(p, folder+"/")
}
