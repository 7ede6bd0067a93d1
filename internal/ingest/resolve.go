package ingest

import (
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps filesystem paths to project names. A path belongs to the
// deepest configured watch root that contains it; the project name is the
// first path component below that root.
type Resolver struct {
	roots []string // cleaned, slash-separated, longest first
}

// NewResolver builds a resolver from watch roots. Empty roots are dropped.
func NewResolver(watchRoots []string) *Resolver {
	roots := make([]string, 0, len(watchRoots))
	for _, r := range watchRoots {
		r = strings.TrimRight(filepath.ToSlash(filepath.Clean(r)), "/")
		if r != "" && r != "." {
			roots = append(roots, r)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) > len(roots[j]) })
	return &Resolver{roots: roots}
}

// Resolve returns the project name and the project's directory for a path.
// ok is false when the path falls under no watch root.
func (r *Resolver) Resolve(path string) (name, projectPath string, ok bool) {
	p := filepath.ToSlash(filepath.Clean(path))
	for _, root := range r.roots {
		rel, found := relativeTo(p, root)
		if !found || rel == "" {
			continue
		}
		first := rel
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			first = rel[:i]
		}
		return first, root + "/" + first, true
	}
	return "", "", false
}

// relativeTo strips root from p, case-insensitively so Windows paths with
// mixed casing still match.
func relativeTo(p, root string) (string, bool) {
	if len(p) <= len(root) {
		return "", false
	}
	if !strings.EqualFold(p[:len(root)], root) {
		return "", false
	}
	if p[len(root)] != '/' {
		return "", false
	}
	return p[len(root)+1:], true
}
