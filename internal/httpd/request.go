package httpd

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	DefaultMaxHeaderBytes       = 64 << 10
	DefaultMaxBodyBytes   int64 = 1 << 20

	maxRequestLine = 8 << 10

	headerContentLength = "Content-Length"
)

// Request is one parsed HTTP/1.0 request. Header keys keep their original
// case and later duplicates overwrite earlier ones.
type Request struct {
	Method string
	Target string
	Proto  string
	Header map[string]string
	Body   []byte
}

// ReadRequestLine reads "METHOD target version", terminated by CR, LF or CRLF.
// Fewer than three whitespace separated tokens is a protocol error.
func ReadRequestLine(br *bufio.Reader) (*Request, error) {
	line := make([]byte, 0, 128)
	for {
		c, err := br.ReadByte()
		if err != nil {
			return nil, readError("read request line", err)
		}
		if c == '\n' {
			break
		}
		if c == '\r' {
			if next, err := br.Peek(1); err == nil && next[0] == '\n' {
				_, _ = br.ReadByte()
			}
			break
		}
		if len(line) >= maxRequestLine {
			return nil, protocolErrorf("read request line", "request line exceeds %d bytes", maxRequestLine)
		}
		line = append(line, c)
	}

	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return nil, protocolErrorf("read request line", "expected method, target and version, got %q", line)
	}
	return &Request{
		Method: fields[0],
		Target: fields[1],
		Proto:  fields[2],
		Header: make(map[string]string),
	}, nil
}

type headerState int

const (
	headerLineStart headerState = iota
	headerKey
	headerValueLeading
	headerValue
	headerValueCR
	headerTerminatorCR
)

// ReadHeaders consumes header lines up to and including the empty line.
// Each line is split on its first ':'; leading blanks of the value are dropped.
// A line without ':' is a protocol error.
func ReadHeaders(br *bufio.Reader, maxBytes int) (map[string]string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHeaderBytes
	}
	header := make(map[string]string)
	var key, value []byte
	state := headerLineStart
	consumed := 0

	commit := func() {
		header[string(key)] = strings.TrimRight(string(value), " \t")
		key, value = key[:0], value[:0]
	}

	for {
		c, err := br.ReadByte()
		if err != nil {
			return nil, readError("read headers", err)
		}
		consumed++
		if consumed > maxBytes {
			return nil, protocolErrorf("read headers", "header block exceeds %d bytes", maxBytes)
		}

		switch state {
		case headerLineStart:
			switch c {
			case '\r':
				state = headerTerminatorCR
			case '\n':
				return header, nil
			case ':':
				return nil, protocolErrorf("read headers", "header line with empty key")
			default:
				key = append(key, c)
				state = headerKey
			}
		case headerKey:
			switch c {
			case ':':
				state = headerValueLeading
			case '\r', '\n':
				return nil, protocolErrorf("read headers", "header line %q has no ':'", key)
			default:
				key = append(key, c)
			}
		case headerValueLeading, headerValue:
			switch c {
			case '\r':
				state = headerValueCR
			case '\n':
				commit()
				state = headerLineStart
			case ' ', '\t':
				if state == headerValue {
					value = append(value, c)
				}
			default:
				value = append(value, c)
				state = headerValue
			}
		case headerValueCR:
			if c != '\n' {
				return nil, protocolErrorf("read headers", "bare CR in value of %q", key)
			}
			commit()
			state = headerLineStart
		case headerTerminatorCR:
			if c != '\n' {
				return nil, protocolErrorf("read headers", "expected LF after CR ending the header block")
			}
			return header, nil
		}
	}
}

// ReadBody reads exactly Content-Length bytes. An absent header means an
// empty body; a malformed, negative or oversized length is a protocol error.
func ReadBody(br *bufio.Reader, header map[string]string, maxBytes int64) ([]byte, error) {
	raw, ok := header[headerContentLength]
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, protocolErrorf("read body", "malformed Content-Length %q", raw)
	}
	if n < 0 {
		return nil, protocolErrorf("read body", "negative Content-Length %d", n)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	if n > maxBytes {
		return nil, protocolErrorf("read body", "Content-Length %d exceeds limit %d", n, maxBytes)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, readError("read body", err)
	}
	return body, nil
}

// readError maps a premature end of stream to a protocol error and anything
// else (timeouts, resets) to an operational one.
func readError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewError(KindProtocol, op, io.ErrUnexpectedEOF)
	}
	return NewError(KindOperational, op, err)
}
