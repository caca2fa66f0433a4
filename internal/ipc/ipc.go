// Package ipc carries control commands to a running jarvis over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const DefaultSocketPath = "/tmp/jarvis.sock"

const CmdStop = "stop"

const dialTimeout = 500 * time.Millisecond

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type Server struct {
	ln   net.Listener
	path string
}

// Listen serves control messages on path until Close. A stale socket left by
// a crashed process is replaced; a socket another process still answers on is not.
func Listen(path string, handler func(ControlMessage)) (*Server, error) {
	if conn, err := net.DialTimeout("unix", path, dialTimeout); err == nil {
		conn.Close()
		return nil, fmt.Errorf("listen: %s is in use by another process", path)
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Debug("Control accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln, path: path}, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler func(ControlMessage)) {
	defer conn.Close()

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}
	handler(msg)
}

func Send(path, cmd string) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	return enc.Encode(ControlMessage{Cmd: cmd})
}

// NotifyContext returns a context cancelled by SIGINT, SIGTERM or cancel.
// Once it is done the signals get their default behaviour back, so a second
// Ctrl-C kills a process stuck in a blocking call.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(sigCtx)
	context.AfterFunc(ctx, stop)
	return ctx, func() {
		cancel()
		stop()
	}
}
