// Package listener accepts TLS connections and hands each one to a bounded
// worker pool, keeping the text log destinations short between accepts.
package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
	prom "github.com/grand-thief-cash/humble/internal/components/prometheus"
	"github.com/grand-thief-cash/humble/internal/consts"
	"github.com/grand-thief-cash/humble/internal/core"
	"github.com/grand-thief-cash/humble/internal/httpd"
	"github.com/grand-thief-cash/humble/internal/logrotate"
	"github.com/grand-thief-cash/humble/internal/workerpool"
)

// acceptBackoff throttles the loop after an accept error that is not the periodic wait timeout.
const acceptBackoff = 50 * time.Millisecond

type Listener struct {
	*core.BaseComponent
	cfg     *Config
	handler *httpd.Handler
	pool    *workerpool.Pool
	rotator *logrotate.Rotator

	tlsConfig *tls.Config
	tcp       *net.TCPListener
	ln        net.Listener
	closeOnce sync.Once
	closeErr  error

	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	accepted   atomic.Uint64
	rejected   atomic.Uint64
	acceptErrs atomic.Uint64
}

// Stats is what the admin server reports under /status.
type Stats struct {
	Address      string           `json:"address"`
	Root         string           `json:"root"`
	StartedAt    time.Time        `json:"started_at"`
	Accepted     uint64           `json:"accepted"`
	Rejected     uint64           `json:"rejected"`
	AcceptErrors uint64           `json:"accept_errors"`
	Pool         workerpool.Stats `json:"pool"`
}

// connTask serves one accepted connection on a pool worker.
type connTask struct {
	conn    net.Conn
	handler *httpd.Handler
}

func (t *connTask) Run(ctx context.Context) { t.handler.Serve(ctx, t.conn) }

// Discard closes a connection that never reached a worker.
func (t *connTask) Discard() { _ = t.conn.Close() }

// New validates cfg and prepares the handler, pool and rotator. logPaths are
// the destination files checked on every accept iteration. A nil runner
// executes scripts with the interpreter named in cfg.Script.
func New(cfg *Config, logPaths []string, runner httpd.ScriptRunner) (*Listener, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, httpd.NewError(httpd.KindConfiguration, "validate server config", err)
	}

	if runner == nil {
		root, err := filepath.Abs(cfg.RootDir)
		if err != nil {
			return nil, httpd.NewError(httpd.KindConfiguration, "resolve root", err)
		}
		runner = httpd.NewProcessRunner(root, cfg.Script.Interpreter, cfg.Script.Timeout)
	}
	handler, err := httpd.NewHandler(httpd.Options{
		Root:            cfg.RootDir,
		DefaultDocument: cfg.DefaultDocument,
		ServerName:      cfg.ServerName,
		ReadTimeout:     cfg.ReadTimeout,
		MaxHeaderBytes:  cfg.MaxHeaderBytes,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	}, runner)
	if err != nil {
		return nil, err
	}

	rotator := logrotate.New(cfg.RotateThreshold, logPaths...)
	rotator.OnRotate(func(path string, _ int) { prom.Server().LogRotated(path) })

	return &Listener{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_LISTENER,
			consts.COMPONENT_LOGGING,
			consts.COMPONENT_PROMETHEUS+core.OptionalSuffix,
			consts.COMPONENT_TELEMETRY+core.OptionalSuffix,
		),
		cfg:     cfg,
		handler: handler,
		pool:    workerpool.New(cfg.Pool),
		rotator: rotator,
		done:    make(chan struct{}),
	}, nil
}

// Bind loads the key pair and opens the TLS socket. Every failure is a
// configuration error.
func (l *Listener) Bind() error {
	if l.ln != nil {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(l.cfg.CertFile, l.cfg.KeyFile)
	if err != nil {
		return httpd.NewError(httpd.KindConfiguration, "load key pair", err)
	}
	l.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	addr, err := net.ResolveTCPAddr("tcp", l.cfg.Address())
	if err != nil {
		return httpd.NewError(httpd.KindConfiguration, "resolve listen address", err)
	}
	tcp, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return httpd.NewError(httpd.KindConfiguration, "bind", err)
	}
	l.tcp = tcp
	l.ln = tls.NewListener(tcp, l.tlsConfig)
	l.startedAt = time.Now()
	return nil
}

// Addr is the bound address, or nil before Bind.
func (l *Listener) Addr() net.Addr {
	if l.tcp == nil {
		return nil
	}
	return l.tcp.Addr()
}

// Start binds and runs the accept loop in the background until Stop.
func (l *Listener) Start(ctx context.Context) error {
	if l.IsActive() {
		return nil
	}
	if err := l.Bind(); err != nil {
		return err
	}
	l.registerGauges()

	// the ctx handed to Start is cancelled as soon as Start returns
	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		defer close(l.done)
		if err := l.Serve(loopCtx); err != nil {
			logging.Error(loopCtx, "accept loop exited", zap.Error(err))
		}
	}()
	return l.BaseComponent.Start(ctx)
}

// Stop ends the accept loop and waits for in-flight connections to finish
// or for ctx to expire.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.IsActive() {
		return nil
	}
	defer l.BaseComponent.Stop(ctx)
	if l.cancel != nil {
		l.cancel()
	}
	select {
	case <-l.done:
	case <-ctx.Done():
		return fmt.Errorf("listener stop: %w", ctx.Err())
	}
	if err := l.pool.Wait(ctx); err != nil {
		return fmt.Errorf("listener stop: waiting for workers: %w", err)
	}
	logging.Info(ctx, "listener stopped")
	return nil
}

func (l *Listener) HealthCheck() error {
	if err := l.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if l.ln == nil {
		return fmt.Errorf("listener not bound")
	}
	return nil
}

// Serve runs the accept loop until ctx is done, then stops the pool and
// closes the socket. It binds first if needed.
func (l *Listener) Serve(ctx context.Context) error {
	if err := l.Bind(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = l.closeListener() })
	defer stop()
	defer l.shutdown(ctx)

	logging.Info(ctx, "listener accepting",
		zap.String("addr", l.Addr().String()),
		zap.String("root", l.handler.Root().Dir()),
		zap.Int("max_workers", l.pool.Config().MaxWorkers),
		zap.Int("rotate_threshold", l.rotator.Threshold()),
	)

	for ctx.Err() == nil {
		l.rotator.RotateAll(ctx)

		conn, err := l.accept()
		if err == nil {
			l.dispatch(ctx, conn)
			continue
		}
		if isTimeout(err) {
			continue
		}
		if errors.Is(err, net.ErrClosed) {
			if ctx.Err() != nil {
				return nil
			}
			return httpd.NewError(httpd.KindOperational, "accept", err)
		}

		l.acceptErrs.Add(1)
		prom.Server().AcceptError(httpd.KindOperational.String())
		l.reportException(ctx, httpd.NewError(httpd.KindOperational, "accept", err))
		select {
		case <-ctx.Done():
		case <-time.After(acceptBackoff):
		}
	}
	return nil
}

func (l *Listener) accept() (net.Conn, error) {
	_ = l.tcp.SetDeadline(time.Now().Add(l.cfg.AcceptWait))
	return l.ln.Accept()
}

func (l *Listener) dispatch(ctx context.Context, conn net.Conn) {
	l.accepted.Add(1)
	logging.Destination(consts.LOG_INTERACTION).Info(ctx, "User Interaction",
		zap.String(consts.KEY_Remote, conn.RemoteAddr().String()))

	if err := l.pool.Submit(&connTask{conn: conn, handler: l.handler}); err != nil {
		l.rejected.Add(1)
		prom.Server().ConnectionDispatched(false)
		_ = conn.Close()
		l.reportException(ctx, httpd.NewError(httpd.KindOperational, "dispatch", err))
		return
	}
	prom.Server().ConnectionDispatched(true)

	// saturated pools queue the connection; the listener keeps going
	if st := l.pool.Stats(); st.Workers >= l.pool.Config().MaxWorkers && st.Queued > st.Idle {
		logging.Warn(ctx, "worker pool saturated, connection queued",
			zap.String("kind", httpd.KindResourceExhaustion.String()),
			zap.Int("queued", st.Queued),
			zap.Int("running", st.Running),
		)
	}
}

// shutdown stops the pool and closes the socket exactly once.
func (l *Listener) shutdown(ctx context.Context) {
	dropped := l.pool.Stop()
	if err := l.closeListener(); err != nil && !errors.Is(err, net.ErrClosed) {
		l.reportException(ctx, httpd.NewError(httpd.KindOperational, "close listener", err))
	}
	logging.Destination(consts.LOG_CLOSED).Info(ctx, "Client Connection has been closed")
	logging.Info(ctx, "accept loop finished",
		zap.Int("dropped_queued", dropped),
		zap.Uint64("accepted", l.accepted.Load()),
	)
}

func (l *Listener) closeListener() error {
	l.closeOnce.Do(func() {
		if l.ln != nil {
			l.closeErr = l.ln.Close()
		}
	})
	return l.closeErr
}

func (l *Listener) reportException(ctx context.Context, err error) {
	logging.Warn(ctx, "listener error", zap.String("kind", httpd.KindOf(err).String()), zap.Error(err))
	logging.Destination(consts.LOG_EXCEPTION).Warn(ctx, "listener error", zap.Error(err))
}

func (l *Listener) registerGauges() {
	c := prom.C()
	if c == nil {
		return
	}
	c.NewGaugeFunc("pool_workers", "Live worker goroutines.", func() float64 {
		return float64(l.pool.Stats().Workers)
	})
	c.NewGaugeFunc("pool_running", "Connections being served.", func() float64 {
		return float64(l.pool.Stats().Running)
	})
	c.NewGaugeFunc("pool_queued", "Accepted connections waiting for a worker.", func() float64 {
		return float64(l.pool.Stats().Queued)
	})
}

// Stats returns a snapshot of counters and pool state.
func (l *Listener) Stats() Stats {
	s := Stats{
		Root:         l.handler.Root().Dir(),
		StartedAt:    l.startedAt,
		Accepted:     l.accepted.Load(),
		Rejected:     l.rejected.Load(),
		AcceptErrors: l.acceptErrs.Load(),
		Pool:         l.pool.Stats(),
	}
	if a := l.Addr(); a != nil {
		s.Address = a.String()
	}
	return s
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
