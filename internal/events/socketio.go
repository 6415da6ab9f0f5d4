// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/executor"
)

// EventName is the socket.io event every payload is emitted under.
const EventName = "provision_event"

const connectTimeout = 15 * time.Second

// emitter is the part of a socket.io client the sink needs.
type emitter interface {
	emit(event string, payload any)
	close()
}

type socketEmitter struct {
	io *socket.Socket
}

func (s *socketEmitter) emit(event string, payload any) {
	s.io.Emit(event, payload)
}

func (s *socketEmitter) close() {
	s.io.Disconnect()
}

// SocketIO is an Observer that emits each event to a socket.io server.
type SocketIO struct {
	conn emitter
}

// SocketIOOptions configures DialSocketIO.
type SocketIOOptions struct {
	Namespace          string
	InsecureSkipVerify bool
}

// DialSocketIO connects to the socket.io server at rawURL and returns a sink
// emitting to it. It waits for the connection to be acknowledged.
func DialSocketIO(ctx context.Context, rawURL string, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL %q must be absolute", rawURL)
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("⚠️ Skipping TLS certificate verification for events sink.")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host), sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Events: Connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Events: Connecting.")
	io.Connect()

	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	logger.Info("📡 Streaming run events.")
	return &SocketIO{conn: &socketEmitter{io: io}}, nil
}

// Observe implements executor.Observer.
func (s *SocketIO) Observe(_ context.Context, ev executor.Event) {
	s.conn.emit(EventName, NewPayload(ev))
}

// Close disconnects from the server.
func (s *SocketIO) Close() {
	s.conn.close()
}
