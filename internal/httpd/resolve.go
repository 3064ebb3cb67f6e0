package httpd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DocumentRoot maps request targets to files below a directory.
type DocumentRoot struct {
	dir        string // absolute, symlinks evaluated
	defaultDoc string
}

// Resource is the outcome of resolving a target.
type Resource struct {
	Path string
	// Contained reports that Path, after following symlinks, is inside the root.
	Contained bool
	// Exists reports a regular file at Path.
	Exists bool
	Size   int64
}

// Servable is true only for an existing regular file inside the root.
func (r Resource) Servable() bool {
	return r.Contained && r.Exists
}

// NewDocumentRoot validates dir and returns a resolver for it.
func NewDocumentRoot(dir, defaultDoc string) (*DocumentRoot, error) {
	if defaultDoc == "" {
		defaultDoc = "index.html"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, NewError(KindConfiguration, "resolve root", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, NewError(KindConfiguration, "resolve root", err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, NewError(KindConfiguration, "resolve root", err)
	}
	if !fi.IsDir() {
		return nil, NewError(KindConfiguration, "resolve root", fmt.Errorf("%s is not a directory", resolved))
	}
	return &DocumentRoot{dir: resolved, defaultDoc: defaultDoc}, nil
}

// Dir returns the absolute root directory.
func (d *DocumentRoot) Dir() string {
	return d.dir
}

// Resolve maps target to a path below the root. Query and fragment are
// ignored, the path is percent-decoded and a trailing '/' selects the default
// document. Anything that escapes the root, directly or through a symlink,
// comes back with Contained false.
func (d *DocumentRoot) Resolve(target string) Resource {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	decoded, err := url.PathUnescape(target)
	if err != nil || strings.IndexByte(decoded, 0) >= 0 {
		return Resource{}
	}
	if decoded == "" || strings.HasSuffix(decoded, "/") {
		decoded += d.defaultDoc
	}

	path := filepath.Join(d.dir, filepath.FromSlash(decoded))
	res := Resource{Path: path, Contained: within(d.dir, path)}
	if !res.Contained {
		return res
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return res
	}
	if !within(d.dir, resolved) {
		res.Contained = false
		return res
	}
	fi, err := os.Stat(resolved)
	if err != nil || !fi.Mode().IsRegular() {
		return res
	}
	res.Path = resolved
	res.Exists = true
	res.Size = fi.Size()
	return res
}

// within reports whether path equals root or sits below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
