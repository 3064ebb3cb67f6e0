package httpd

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
	prom "github.com/grand-thief-cash/humble/internal/components/prometheus"
	"github.com/grand-thief-cash/humble/internal/consts"
)

const instrumentationName = "github.com/grand-thief-cash/humble/internal/httpd"

// Options configures a Handler.
type Options struct {
	Root            string
	DefaultDocument string
	ServerName      string
	// ReadTimeout bounds the time to receive the whole request. Zero disables it.
	ReadTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

// Handler serves exactly one request per connection and then closes it.
type Handler struct {
	opts    Options
	root    *DocumentRoot
	scripts ScriptRunner
	now     func() time.Time
	tracer  trace.Tracer
	served  metric.Int64Counter
}

// NewHandler validates the document root. A nil runner selects a
// ProcessRunner with the platform default interpreter.
func NewHandler(opts Options, scripts ScriptRunner) (*Handler, error) {
	if opts.ServerName == "" {
		opts.ServerName = DefaultServerName
	}
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	root, err := NewDocumentRoot(opts.Root, opts.DefaultDocument)
	if err != nil {
		return nil, err
	}
	if scripts == nil {
		scripts = NewProcessRunner(root.Dir(), "", 0)
	}
	served, err := otel.Meter(instrumentationName).Int64Counter("humble.requests",
		metric.WithDescription("Connections handled, by method and response status."))
	if err != nil {
		return nil, NewError(KindConfiguration, "create request counter", err)
	}
	return &Handler{
		opts:    opts,
		root:    root,
		scripts: scripts,
		now:     time.Now,
		tracer:  otel.Tracer(instrumentationName),
		served:  served,
	}, nil
}

// Root returns the resolved document root.
func (h *Handler) Root() *DocumentRoot {
	return h.root
}

// exchange collects what happened on one connection for logs and metrics.
type exchange struct {
	method   string
	target   string
	status   int
	bytes    int
	exitCode int
}

// Serve handles one request on conn and always closes it. Cancelling ctx
// closes the connection, which unblocks any pending read or write.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	start := time.Now()
	remote := remoteAddr(conn)
	connID := uuid.NewString()

	ctx, span := h.tracer.Start(ctx, "humble.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(consts.KEY_ConnID, connID),
			attribute.String("client.address", remote),
		))
	defer span.End()

	log := logging.L().With(zap.String(consts.KEY_ConnID, connID), zap.String(consts.KEY_Remote, remote))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if h.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	}

	ex := &exchange{}
	err := h.exchange(ctx, conn, ex)
	if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		log.Debug(ctx, "close connection", zap.Error(cerr))
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.String("http.request.method", ex.method),
		attribute.String("url.path", ex.target),
		attribute.Int("http.response.status_code", ex.status),
	)
	prom.Server().RequestServed(ex.method, ex.status, elapsed)
	h.served.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", ex.method),
		attribute.Int("status", ex.status),
	))

	fields := []zap.Field{
		zap.String("method", ex.method),
		zap.String("target", ex.target),
		zap.Int("status", ex.status),
		zap.Int("bytes", ex.bytes),
		zap.Duration("elapsed", elapsed),
	}
	if ex.method == "POST" && ex.status == 200 {
		fields = append(fields, zap.Int("exit_code", ex.exitCode))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.report(ctx, log, err, fields)
	case ex.status == 0:
		log.Info(ctx, "method not implemented, nothing sent", fields...)
	default:
		log.Debug(ctx, "request served", fields...)
	}
}

func (h *Handler) exchange(ctx context.Context, conn net.Conn, ex *exchange) error {
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	req, err := ReadRequestLine(br)
	if err != nil {
		return err
	}
	ex.method, ex.target = req.Method, req.Target

	if req.Header, err = ReadHeaders(br, h.opts.MaxHeaderBytes); err != nil {
		if KindOf(err) == KindProtocol {
			_ = h.notFound(bw, ex)
		}
		return err
	}

	res := h.root.Resolve(req.Target)
	if !res.Servable() {
		return h.notFound(bw, ex)
	}

	switch req.Method {
	case "GET", "HEAD":
		data, err := os.ReadFile(res.Path)
		if err != nil {
			if werr := h.notFound(bw, ex); werr != nil {
				return werr
			}
			return NewError(KindOperational, "read file", err)
		}
		return h.respond(bw, ex, responseHead{
			Status:      statusOK,
			ContentType: contentType(res.Path, data),
		}, 200, data, req.Method == "HEAD")

	case "POST":
		body, err := ReadBody(br, req.Header, h.opts.MaxBodyBytes)
		if err != nil {
			if KindOf(err) == KindProtocol {
				_ = h.notFound(bw, ex)
			}
			return err
		}
		out, code, err := h.scripts.Run(ctx, res.Path, string(body))
		if err != nil {
			return err
		}
		ex.exitCode = code
		return h.respond(bw, ex, responseHead{
			Status:      statusOK,
			ContentType: scriptContentType,
		}, 200, out, false)

	default:
		return nil
	}
}

func (h *Handler) notFound(bw *bufio.Writer, ex *exchange) error {
	return h.respond(bw, ex, responseHead{
		Status:      statusNotFound,
		ContentType: notFoundContentType,
	}, 404, []byte(NotFoundPage), false)
}

func (h *Handler) respond(bw *bufio.Writer, ex *exchange, head responseHead, status int, body []byte, headOnly bool) error {
	head.Date = h.now()
	head.Server = h.opts.ServerName
	if err := writeResponse(bw, head, body, headOnly); err != nil {
		return NewError(KindOperational, "write response", err)
	}
	ex.status = status
	if !headOnly {
		ex.bytes = len(body)
	}
	return nil
}

// report logs a failed exchange on the main log and the exception destination.
func (h *Handler) report(ctx context.Context, log logging.Logger, err error, fields []zap.Field) {
	fields = append(fields, zap.String("kind", KindOf(err).String()), zap.Error(err))
	switch KindOf(err) {
	case KindProtocol:
		log.Info(ctx, "malformed request", fields...)
	default:
		log.Warn(ctx, "connection failed", fields...)
	}
	logging.Destination(consts.LOG_EXCEPTION).Warn(ctx, "request failed", fields...)
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
