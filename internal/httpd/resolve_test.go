package httpd

import (
	"os"
	"path/filepath"
	"testing"
)

// layout:
//
//	tmp/secret.txt
//	tmp/root/index.html
//	tmp/root/docs/a b.txt
//	tmp/root/docs/index.html
//	tmp/root/escape -> ../secret.txt
func newTestRoot(t *testing.T) (*DocumentRoot, string) {
	t.Helper()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "root")
	mustWrite(t, filepath.Join(tmp, "secret.txt"), "secret")
	mustWrite(t, filepath.Join(root, "index.html"), "<h1>hi</h1>\n")
	mustWrite(t, filepath.Join(root, "docs", "a b.txt"), "spaced")
	mustWrite(t, filepath.Join(root, "docs", "index.html"), "docs")
	if err := os.Symlink(filepath.Join("..", "secret.txt"), filepath.Join(root, "escape")); err != nil {
		t.Logf("symlink unsupported: %v", err)
	}
	d, err := NewDocumentRoot(root, "")
	if err != nil {
		t.Fatalf("document root: %v", err)
	}
	return d, root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolveServable(t *testing.T) {
	d, _ := newTestRoot(t)
	cases := map[string]string{
		"/":                   "index.html",
		"":                    "index.html",
		"/index.html":         "index.html",
		"/docs/":              filepath.Join("docs", "index.html"),
		"/docs/a%20b.txt":     filepath.Join("docs", "a b.txt"),
		"/docs/a%20b.txt?x=1": filepath.Join("docs", "a b.txt"),
		"/index.html#top":     "index.html",
		"/docs/../index.html": "index.html",
	}
	for target, rel := range cases {
		res := d.Resolve(target)
		if !res.Servable() {
			t.Fatalf("%q: expected servable, got %+v", target, res)
		}
		if want := filepath.Join(d.Dir(), rel); res.Path != want {
			t.Fatalf("%q: path %s want %s", target, res.Path, want)
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	d, _ := newTestRoot(t)
	for _, target := range []string{
		"/../secret.txt",
		"/docs/../../secret.txt",
		"/%2e%2e/secret.txt",
		"/..%2fsecret.txt",
		"/escape",
	} {
		res := d.Resolve(target)
		if res.Servable() || res.Contained {
			t.Fatalf("%q: escaped the root: %+v", target, res)
		}
	}
}

func TestResolveNotServable(t *testing.T) {
	d, _ := newTestRoot(t)
	for _, target := range []string{
		"/missing.html",
		"/docs",
		"/%zz",
		"/a%00b",
	} {
		if res := d.Resolve(target); res.Servable() {
			t.Fatalf("%q: must not be servable: %+v", target, res)
		}
	}
}

func TestNewDocumentRootErrors(t *testing.T) {
	_, err := NewDocumentRoot(filepath.Join(t.TempDir(), "missing"), "")
	if KindOf(err) != KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	mustWrite(t, file, "x")
	if _, err := NewDocumentRoot(file, ""); KindOf(err) != KindConfiguration {
		t.Fatalf("expected configuration error for a file root, got %v", err)
	}
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/srv/www")
	if !within(root, filepath.FromSlash("/srv/www/a")) || !within(root, root) {
		t.Fatalf("expected containment")
	}
	if within(root, filepath.FromSlash("/srv/www2/a")) {
		t.Fatalf("sibling with shared prefix must not be contained")
	}
}
