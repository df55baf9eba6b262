package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/minaai/internal/chatflow"
	"github.com/antoniostano/minaai/internal/config"
	"github.com/antoniostano/minaai/internal/observability"
)

// ChatService processes one incoming chat message end to end.
type ChatService interface {
	ProcessMessage(ctx context.Context, req chatflow.Request) (chatflow.Response, error)
}

type Server struct {
	cfg      config.Config
	chat     ChatService
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chat ChatService, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		chat:    chat,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.MetricsHandler())
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatflow.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Message = strings.TrimSpace(req.Message)
	if req.CustomerID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone_number and message are required"})
		return
	}

	resp, err := s.chat.ProcessMessage(r.Context(), req)
	if err != nil {
		log.Printf("httpapi: chat processing failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chat processing failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: write response failed: %v", err)
	}
}
