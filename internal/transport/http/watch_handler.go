package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"exam-session-service/internal/app"
	"exam-session-service/internal/token"
)

// WatchHandler is the termination-guard channel: an attempt-scoped WebSocket
// over which the exam UI flushes answers and reports visibility loss. On a
// "hidden" report the server flushes, finishes the attempt, then tells the
// client to log out, strictly in that order, so the last unsaved answer is
// never dropped by the forced close.
type WatchHandler struct {
	attempts   *app.AttemptService
	attemptTok *token.Issuer
	upgrader   websocket.Upgrader
}

func NewWatchHandler(attempts *app.AttemptService, attemptTok *token.Issuer) *WatchHandler {
	return &WatchHandler{
		attempts:   attempts,
		attemptTok: attemptTok,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answersPayload struct {
	Answers map[string]string `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and runs the guard loop for one attempt.
func (h *WatchHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	raw := credentialFromRequest(r, CookieAttempt)
	if raw == "" {
		raw = r.URL.Query().Get("attemptToken")
	}
	claims, err := h.attemptTok.Verify(raw)
	if err != nil {
		http.Error(w, "attempt credential required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch: ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answers":
			var payload answersPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answers payload"}})
				continue
			}
			if err := h.attempts.SaveAnswers(r.Context(), claims, payload.Answers); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			_ = conn.WriteJSON(outboundMessage[statusPayload]{Type: "saved", Payload: statusPayload{Status: "ok"}})

		case "hidden", "finish":
			var payload answersPayload
			_ = json.Unmarshal(inbound.Payload, &payload)
			if err := h.attempts.Finish(r.Context(), claims, payload.Answers); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			_ = conn.WriteJSON(outboundMessage[statusPayload]{Type: "finished", Payload: statusPayload{Status: "ok"}})
			if inbound.Type == "hidden" {
				// Visibility loss also ends the login session.
				_ = conn.WriteJSON(outboundMessage[statusPayload]{Type: "logout", Payload: statusPayload{Status: "forced"}})
			}
			return

		default:
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
