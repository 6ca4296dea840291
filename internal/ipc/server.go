package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// Handler dispatches one decoded Command to a Response. Implemented by
// internal/ipc's handler.go, injected here so the transport stays free of
// business logic.
type Handler interface {
	Handle(ctx context.Context, cmd Command) Response
}

// Server listens on a Unix domain socket and dispatches each connection's
// single request/response exchange to a Handler.
type Server struct {
	socketPath string
	lockfile   *Lockfile
	handler    Handler
	log        *zap.Logger

	listener net.Listener
}

// NewServer builds a Server bound to socketPath, guarded by a PID lockfile
// at lockfilePath.
func NewServer(socketPath, lockfilePath string, handler Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		socketPath: socketPath,
		lockfile:   NewLockfile(lockfilePath),
		handler:    handler,
		log:        log,
	}
}

// Start acquires the instance lock, cleans up any stale socket file, and
// begins listening. It does not block; call Serve to accept connections.
func (s *Server) Start() error {
	if err := s.lockfile.Acquire(); err != nil {
		return err
	}
	if IsServerRunning(s.socketPath) {
		s.lockfile.Release()
		return errors.New("shortlinker: ipc socket already in use")
	}
	os.Remove(s.socketPath) // clean up a stale socket from an unclean shutdown

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.lockfile.Release()
		return err
	}
	s.listener = listener
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener closes.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	var cmd Command
	if err := readFrame(conn, &cmd); err != nil {
		s.log.Debug("ipc read failed", zap.Error(err))
		return
	}

	resp := s.handler.Handle(ctx, cmd)
	if err := writeFrame(conn, resp); err != nil {
		s.log.Debug("ipc write failed", zap.Error(err))
	}
}

// Stop closes the listener, removes the socket file, and releases the
// instance lock.
func (s *Server) Stop() error {
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
	return s.lockfile.Release()
}

// IsServerRunning probes socketPath with a connect attempt, used both at
// startup (refuse to bind twice) and by the CLI (fail fast with
// ErrServerNotRunning instead of a long dial timeout).
func IsServerRunning(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
