package httpd

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadRequestLineTerminators(t *testing.T) {
	for _, raw := range []string{
		"GET /a.html HTTP/1.0\r\nrest",
		"GET /a.html HTTP/1.0\nrest",
		"GET /a.html HTTP/1.0\rrest",
		"  GET   /a.html   HTTP/1.0  \r\nrest",
	} {
		br := reader(raw)
		req, err := ReadRequestLine(br)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if req.Method != "GET" || req.Target != "/a.html" || req.Proto != "HTTP/1.0" {
			t.Fatalf("%q: parsed %+v", raw, req)
		}
		if next, _ := br.ReadString('t'); next != "rest" {
			t.Fatalf("%q: terminator not consumed exactly, next %q", raw, next)
		}
	}
}

func TestReadRequestLineRejectsShortLine(t *testing.T) {
	_, err := ReadRequestLine(reader("GET /\r\n\r\n"))
	if KindOf(err) != KindProtocol {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestReadRequestLineEOF(t *testing.T) {
	_, err := ReadRequestLine(reader(""))
	if !errors.Is(err, &Error{Kind: KindProtocol}) {
		t.Fatalf("expected protocol error on empty stream, got %v", err)
	}
}

func TestReadHeaders(t *testing.T) {
	raw := "Host: example\r\n" +
		"X-Spaces:    padded value  \r\n" +
		"NoSpace:tight\r\n" +
		"Empty:\r\n" +
		"Ratio: a:b\r\n" +
		"Host: later\r\n" +
		"\r\nBODY"
	br := reader(raw)
	h, err := ReadHeaders(br, 0)
	if err != nil {
		t.Fatalf("read headers: %v", err)
	}
	want := map[string]string{
		"Host":     "later",
		"X-Spaces": "padded value",
		"NoSpace":  "tight",
		"Empty":    "",
		"Ratio":    "a:b",
	}
	if len(h) != len(want) {
		t.Fatalf("got %v", h)
	}
	for k, v := range want {
		if h[k] != v {
			t.Fatalf("header %s: got %q want %q", k, h[k], v)
		}
	}
	if rest, _ := br.ReadString(0); rest != "BODY" {
		t.Fatalf("terminator not consumed exactly, rest %q", rest)
	}
}

func TestReadHeadersBareLF(t *testing.T) {
	h, err := ReadHeaders(reader("A: 1\nB: 2\n\n"), 0)
	if err != nil || h["A"] != "1" || h["B"] != "2" {
		t.Fatalf("got %v err=%v", h, err)
	}
}

func TestReadHeadersKeysAreCaseSensitive(t *testing.T) {
	h, err := ReadHeaders(reader("content-length: 5\r\n\r\n"), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, ok := h[headerContentLength]; ok {
		t.Fatalf("lower-case key must not match %s", headerContentLength)
	}
}

func TestReadHeadersRejects(t *testing.T) {
	cases := map[string]string{
		"no colon":       "Host example\r\n\r\n",
		"empty key":      ": value\r\n\r\n",
		"bare CR":        "A: 1\rB: 2\r\n\r\n",
		"truncated":      "Host: example\r\n",
		"bad terminator": "A: 1\r\n\rX",
	}
	for name, raw := range cases {
		if _, err := ReadHeaders(reader(raw), 0); KindOf(err) != KindProtocol {
			t.Fatalf("%s: expected protocol error, got %v", name, err)
		}
	}
}

func TestReadHeadersLimit(t *testing.T) {
	raw := "X: " + strings.Repeat("a", 100) + "\r\n\r\n"
	if _, err := ReadHeaders(reader(raw), 50); KindOf(err) != KindProtocol {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestReadBody(t *testing.T) {
	body, err := ReadBody(reader("hello world"), map[string]string{"Content-Length": "5"}, 0)
	if err != nil || string(body) != "hello" {
		t.Fatalf("got %q err=%v", body, err)
	}

	body, err = ReadBody(reader("ignored"), map[string]string{}, 0)
	if err != nil || len(body) != 0 {
		t.Fatalf("absent length: got %q err=%v", body, err)
	}

	body, err = ReadBody(reader(""), map[string]string{"Content-Length": "0"}, 0)
	if err != nil || len(body) != 0 {
		t.Fatalf("zero length: got %q err=%v", body, err)
	}
}

func TestReadBodyRejects(t *testing.T) {
	cases := map[string]string{
		"malformed": "abc",
		"negative":  "-1",
		"oversized": "11",
		"short":     "9",
	}
	for name, length := range cases {
		_, err := ReadBody(reader("12345"), map[string]string{"Content-Length": length}, 10)
		if KindOf(err) != KindProtocol {
			t.Fatalf("%s: expected protocol error, got %v", name, err)
		}
	}
}
