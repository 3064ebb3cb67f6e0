package httpd

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	output string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, script, arg string) ([]byte, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(script)+"|"+arg)
	f.mu.Unlock()
	if f.err != nil {
		return nil, -1, f.err
	}
	return []byte(f.output), 0, nil
}

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

const fixedDate = "Tue Mar 05 14:07:09 UTC 2024"

func newTestHandler(t *testing.T, runner ScriptRunner) *Handler {
	t.Helper()
	_, root := newTestRoot(t)
	mustWrite(t, filepath.Join(root, "form.php"), "<?php echo $argv[1];")
	h, err := NewHandler(Options{Root: root}, runner)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	h.now = func() time.Time { return fixedNow }
	return h
}

func roundTrip(t *testing.T, h *Handler, raw string) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		h.Serve(context.Background(), server)
		close(done)
	}()
	go func() { _, _ = client.Write([]byte(raw)) }()

	out, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
	return string(out)
}

func head(status, ctype string, length int) string {
	return fmt.Sprintf("%s\r\nDate: %s\r\nServer: %s\r\nContent-length: %d\r\nContent-type: %s\r\n\r\n",
		status, fixedDate, DefaultServerName, length, ctype)
}

func notFoundResponse() string {
	return head("HTTP/1.0 404 File Not Found", "text/html; charset=utf-8", len(NotFoundPage)) + NotFoundPage
}

func TestServeGetDefaultDocument(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	body := "<h1>hi</h1>\n"
	want := head("HTTP/1.0 200 OK", mime.TypeByExtension(".html"), len(body)) + body
	if got := roundTrip(t, h, "GET / HTTP/1.0\r\nHost: x\r\n\r\n"); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestServeGetBinaryUnknownExtension(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		ctype string
	}{
		{"blob.humbledat", "\x01\x02\x03\x04humble\x00\x9c\xfe\r\n\x00", "application/octet-stream"},
		{"picture.humbleimg", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01", "image/png"},
	}
	for _, tc := range cases {
		h := newTestHandler(t, &fakeRunner{})
		mustWrite(t, filepath.Join(h.Root().Dir(), tc.name), tc.body)

		want := head("HTTP/1.0 200 OK", tc.ctype, len(tc.body)) + tc.body
		if got := roundTrip(t, h, "GET /"+tc.name+" HTTP/1.0\r\n\r\n"); got != want {
			t.Fatalf("%s: got %q\nwant %q", tc.name, got, want)
		}
	}
}

func TestServeHeadOmitsBody(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	want := head("HTTP/1.0 200 OK", mime.TypeByExtension(".html"), len("<h1>hi</h1>\n"))
	if got := roundTrip(t, h, "HEAD /index.html HTTP/1.0\r\n\r\n"); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestServeNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	for _, raw := range []string{
		"GET /missing.html HTTP/1.0\r\n\r\n",
		"GET /../secret.txt HTTP/1.0\r\n\r\n",
		"GET /%2e%2e/secret.txt HTTP/1.0\r\n\r\n",
		"HEAD /docs HTTP/1.0\r\n\r\n",
		"GET / HTTP/1.0\r\nBroken header\r\n\r\n",
	} {
		if got := roundTrip(t, h, raw); got != notFoundResponse() {
			t.Fatalf("%q: got %q", raw, got)
		}
	}
}

func TestServeNotFoundPageIsExact(t *testing.T) {
	want := "<HTML>\r\n<HEAD><TITLE>File Not Found</TITLE>\r\n</HEAD>\r\n<BODY><H1>HTTP Error 404: File Not Found :P</H1>\r\n</BODY></HTML>\r\n"
	if NotFoundPage != want {
		t.Fatalf("404 page drifted: %q", NotFoundPage)
	}
}

func TestServePostRunsScript(t *testing.T) {
	runner := &fakeRunner{output: "<p>thanks joey</p>"}
	h := newTestHandler(t, runner)

	raw := "POST /form.php HTTP/1.0\r\nContent-Length: 9\r\n\r\nname=joey"
	want := head("HTTP/1.0 200 OK", "text/html", len(runner.output)) + runner.output
	if got := roundTrip(t, h, raw); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "form.php|name=joey" {
		t.Fatalf("runner calls %v", runner.calls)
	}
}

func TestServePostWithoutLengthHasEmptyBody(t *testing.T) {
	runner := &fakeRunner{output: "ok"}
	h := newTestHandler(t, runner)
	roundTrip(t, h, "POST /form.php HTTP/1.0\r\n\r\n")
	if len(runner.calls) != 1 || runner.calls[0] != "form.php|" {
		t.Fatalf("runner calls %v", runner.calls)
	}
}

func TestServePostRejected(t *testing.T) {
	runner := &fakeRunner{output: "never"}
	h := newTestHandler(t, runner)
	for _, raw := range []string{
		"POST /missing.php HTTP/1.0\r\nContent-Length: 3\r\n\r\nabc",
		"POST /form.php HTTP/1.0\r\nContent-Length: nope\r\n\r\nabc",
		"POST /form.php HTTP/1.0\r\nContent-Length: 99999999\r\n\r\nabc",
	} {
		if got := roundTrip(t, h, raw); got != notFoundResponse() {
			t.Fatalf("%q: got %q", raw, got)
		}
	}
	if len(runner.calls) != 0 {
		t.Fatalf("runner must not run: %v", runner.calls)
	}
}

func TestServeScriptFailureClosesSilently(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{err: NewError(KindOperational, "run script", io.ErrUnexpectedEOF)})
	if got := roundTrip(t, h, "POST /form.php HTTP/1.0\r\n\r\n"); got != "" {
		t.Fatalf("expected nothing, got %q", got)
	}
}

func TestServeSendsNothing(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	for _, raw := range []string{
		"PUT /index.html HTTP/1.0\r\n\r\n",
		"DELETE / HTTP/1.0\r\n\r\n",
		"GARBAGE\r\n\r\n",
		"GET /\r\n\r\n",
	} {
		if got := roundTrip(t, h, raw); got != "" {
			t.Fatalf("%q: expected no bytes, got %q", raw, got)
		}
	}
}

func TestServeCancelClosesConnection(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	client, server := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Serve(ctx, server)
		close(done)
	}()
	_, _ = client.Write([]byte("GET / HTTP/1.0\r\n"))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve ignored cancellation")
	}
	if out, _ := io.ReadAll(client); len(out) != 0 {
		t.Fatalf("unexpected bytes after cancel: %q", out)
	}
}

func TestServeReadTimeout(t *testing.T) {
	h := newTestHandler(t, &fakeRunner{})
	h.opts.ReadTimeout = 30 * time.Millisecond
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		h.Serve(context.Background(), server)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve ignored the read timeout")
	}
}

func TestDateLayout(t *testing.T) {
	if got := fixedNow.Format(DateLayout); got != fixedDate {
		t.Fatalf("got %s", got)
	}
	if !strings.HasPrefix(head("x", "y", 0), "x\r\nDate: Tue") {
		t.Fatalf("head helper drifted")
	}
}
