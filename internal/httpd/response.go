package httpd

import (
	"bufio"
	"fmt"
	"time"
)

const (
	statusOK       = "HTTP/1.0 200 OK"
	statusNotFound = "HTTP/1.0 404 File Not Found"

	// DateLayout renders dates as "Tue Mar 05 14:07:09 UTC 2024".
	DateLayout = "Mon Jan 02 15:04:05 MST 2006"

	DefaultServerName = "Ryan's humble thread from Joey's kingdom"

	notFoundContentType = "text/html; charset=utf-8"
	scriptContentType   = "text/html"
)

// NotFoundPage is the fixed body sent with every 404.
const NotFoundPage = "<HTML>\r\n" +
	"<HEAD><TITLE>File Not Found</TITLE>\r\n" +
	"</HEAD>\r\n" +
	"<BODY><H1>HTTP Error 404: File Not Found :P</H1>\r\n" +
	"</BODY></HTML>\r\n"

// responseHead holds everything that goes above the blank line.
type responseHead struct {
	Status        string
	Date          time.Time
	Server        string
	ContentLength int
	ContentType   string
}

// writeHead emits the status line and the four headers in fixed order,
// each terminated by CRLF, followed by the empty line.
func writeHead(w *bufio.Writer, h responseHead) error {
	_, err := fmt.Fprintf(w,
		"%s\r\nDate: %s\r\nServer: %s\r\nContent-length: %d\r\nContent-type: %s\r\n\r\n",
		h.Status,
		h.Date.Format(DateLayout),
		h.Server,
		h.ContentLength,
		h.ContentType,
	)
	return err
}

// writeResponse writes the head and, unless headOnly, the body, then flushes.
func writeResponse(w *bufio.Writer, h responseHead, body []byte, headOnly bool) error {
	h.ContentLength = len(body)
	if err := writeHead(w, h); err != nil {
		return err
	}
	if !headOnly {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return w.Flush()
}
