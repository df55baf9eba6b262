package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/minaai/internal/chatflow"
)

type wsError struct {
	Error string `json:"error"`
}

// handleChatWS runs the same chat flow over a websocket: one JSON request in,
// one JSON response out, until the client disconnects.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req chatflow.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("httpapi: websocket read failed: %v", err)
			}
			return
		}

		req.CustomerID = strings.TrimSpace(req.CustomerID)
		req.Message = strings.TrimSpace(req.Message)
		if req.CustomerID == "" || req.Message == "" {
			if err := conn.WriteJSON(wsError{Error: "phone_number and message are required"}); err != nil {
				return
			}
			continue
		}

		resp, err := s.chat.ProcessMessage(r.Context(), req)
		if err != nil {
			log.Printf("httpapi: websocket chat processing failed: %v", err)
			if err := conn.WriteJSON(wsError{Error: "chat processing failed"}); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("httpapi: websocket write failed: %v", err)
			return
		}
	}
}
