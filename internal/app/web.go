// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/relabs-tech/flight_recorder/internal/record"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	State  session.State  `json:"state"`
	Status session.Status `json:"status"`
}

// CommandServer is the HTTP surface of the recorder: the start trigger,
// session downloads, status and the websocket event stream. It can be
// stopped and started again while the process runs.
type CommandServer struct {
	addr    string
	webRoot string
	ctrl    *session.Controller
	sink    *record.DirSink
	hub     *Hub

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewCommandServer returns a server that listens on addr once started.
func NewCommandServer(addr, webRoot string, ctrl *session.Controller, sink *record.DirSink, hub *Hub) *CommandServer {
	return &CommandServer{
		addr:    addr,
		webRoot: webRoot,
		ctrl:    ctrl,
		sink:    sink,
		hub:     hub,
	}
}

// Handler builds the request router.
func (s *CommandServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/startLog", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.ctrl.Start(); err != nil {
			if errors.Is(err, session.ErrAlreadyRunning) {
				http.Error(w, "already running", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("web: start requested by %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		state, st := s.ctrl.Scheduler().Snapshot()
		writeJSON(w, statusResponse{State: state, Status: st})
	})

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		files, err := s.sink.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if files == nil {
			files = []record.SessionFile{}
		}
		writeJSON(w, files)
	})

	mux.Handle("/sessions/", http.StripPrefix("/sessions/", http.FileServer(http.Dir(s.sink.Dir))))

	if s.hub != nil {
		mux.Handle("/ws", s.hub)
	}

	// Static files from the web root
	mux.Handle("/", http.FileServer(http.Dir(s.webRoot)))

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// Start begins serving in the background. Calling Start on a running
// server is a no-op.
func (s *CommandServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web: serve error: %v", err)
		}
	}()
	log.Printf("web: listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address while running, or "" when stopped.
func (s *CommandServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully and drops websocket clients.
func (s *CommandServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	// hijacked websocket connections are not tracked by Shutdown
	if s.hub != nil {
		s.hub.CloseAll()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	log.Println("web: stopped")
	return nil
}
