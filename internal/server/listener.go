package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"assetserve/internal/handler"
)

// ErrListenerBind is returned by Listen when the address cannot be bound
var ErrListenerBind = errors.New("listener bind failed")

// Listening is a running HTTP listener
type Listening struct {
	srv  *http.Server
	addr net.Addr
	done chan struct{}
	err  error
}

// Listen binds the configured address and starts serving. Bind failures
// are returned right away and wrap ErrListenerBind.
func (s *Server) Listen() (*Listening, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListenerBind, s.cfg.Addr, err)
	}
	return s.Serve(ln), nil
}

// Serve starts serving on an already bound listener
func (s *Server) Serve(ln net.Listener) *Listening {
	l := &Listening{
		srv: &http.Server{
			Handler: handler.Chain(s,
				handler.Recover(s.log),
				handler.RequestID,
				handler.Logger(s.log, s.metrics, s.journal),
			),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		addr: ln.Addr(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(l.done)
		s.log.Info("listening", zap.String("addr", l.addr.String()))
		if err := l.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			l.err = err
		}
	}()
	return l
}

// Addr returns the bound address, useful when the port was 0
func (l *Listening) Addr() string {
	return l.addr.String()
}

// Wait blocks until the listener terminates and returns the fault that
// stopped it, or nil after Shutdown
func (l *Listening) Wait() error {
	<-l.done
	return l.err
}

// Shutdown stops accepting connections and waits for in-flight requests
func (l *Listening) Shutdown(ctx context.Context) error {
	if err := l.srv.Shutdown(ctx); err != nil {
		return err
	}
	<-l.done
	return nil
}
