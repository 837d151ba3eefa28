// Package httpapi serves the liveness endpoints and the operator commands
// over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/application"
	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/metrics"
)

const (
	bannerText    = "BoxToPlay keeper en ligne !"
	keepAliveText = "Ping reçu !"
)

type Server struct {
	commands  *application.Commands
	log       logging.Logger
	startedAt time.Time
}

func NewServer(commands *application.Commands, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	return &Server{commands: commands, log: log, startedAt: time.Now()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /keep-alive", s.handleKeepAlive)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("POST /reload", s.handleReload)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, bannerText)
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, keepAliveText)
}

type healthResponse struct {
	Status    string `json:"status"`
	Keeper    string `json:"keeper"`
	Document  string `json:"document"`
	LoadError string `json:"load_error,omitempty"`
	Uptime    string `json:"uptime"`
}

// handleHealth always answers 200 so a degraded keeper stays reachable.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.commands.SessionInfo()
	status := "ok"
	if info.State != application.InfoReady {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Keeper:    string(info.KeeperState),
		Document:  string(info.State),
		LoadError: info.LoadError,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewSessionResponse(s.commands.SessionInfo()))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	syncAt, err := s.commands.ForceSync(r.Context())
	if err != nil {
		s.log.Warn(r.Context(), "force sync failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_sync_time": syncAt.UTC()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.Reload(r.Context()); err != nil {
		s.log.Warn(r.Context(), "reload failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionResponse(s.commands.SessionInfo()))
}

type statusResponse struct {
	Host          string   `json:"host"`
	Online        bool     `json:"online"`
	PlayersOnline int      `json:"players_online"`
	PlayersMax    int      `json:"players_max"`
	Players       []string `json:"players"`
	Version       string   `json:"version,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	target, err := s.commands.TargetStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	players := target.Status.Players
	if players == nil {
		players = []string{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Host:          target.DNS,
		Online:        target.Status.Online,
		PlayersOnline: target.Status.PlayersOnline,
		PlayersMax:    target.Status.PlayersMax,
		Players:       players,
		Version:       target.Status.Version,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrDocumentNotLoaded), errors.Is(err, domain.ErrUnsavedChanges):
		status = http.StatusConflict
	case errors.Is(err, application.ErrStatusLookupUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMalformedDocument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
