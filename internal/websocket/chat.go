package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/models"
	"lexassist-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

type chatService interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (<-chan llm.StreamToken, error)
}

// ChatSocket streams chat replies over a WebSocket. Each client frame is a
// complete conversation; the reply is relayed as text-delta frames followed
// by a finish or error frame.
type ChatSocket struct {
	svc         chatService
	maxDuration time.Duration
	upgrader    websocket.Upgrader
}

// NewChatSocket accepts upgrades from allowedOrigin, or from any origin when
// it is "*".
func NewChatSocket(svc chatService, maxDuration time.Duration, allowedOrigin string) *ChatSocket {
	return &ChatSocket{
		svc:         svc,
		maxDuration: maxDuration,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

func (s *ChatSocket) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	log.Debug().Str("remote_ip", r.RemoteAddr).Msg("WebSocket chat connected")

	for {
		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("WebSocket chat closed")
			}
			return
		}

		if err := s.reply(r.Context(), conn, req); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

// reply answers one conversation frame. Only write errors are returned.
func (s *ChatSocket) reply(parent context.Context, conn *websocket.Conn, req models.ChatRequest) error {
	if len(req.Messages) == 0 {
		return writeFrame(conn, models.WSMessage{Type: "error", ErrorText: "Messages are required"})
	}

	ctx := parent
	if s.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.maxDuration)
		defer cancel()
	}

	tokens, err := s.svc.Chat(ctx, req.Messages)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return writeFrame(conn, models.WSMessage{Type: "error", ErrorText: validationErr.Message})
		}
		log.Error().Err(err).Msg("WebSocket chat failed")
		return writeFrame(conn, models.WSMessage{Type: "error", ErrorText: "Failed to process chat"})
	}

	for {
		select {
		case <-ctx.Done():
			return writeFrame(conn, models.WSMessage{Type: "error", ErrorText: "Response exceeded the maximum duration"})
		case tok, ok := <-tokens:
			if !ok {
				return writeFrame(conn, models.WSMessage{Type: "finish"})
			}
			if tok.Content != "" {
				if err := writeFrame(conn, models.WSMessage{Type: "text-delta", Delta: tok.Content}); err != nil {
					return err
				}
			}
			if tok.Error != nil {
				log.Error().Err(tok.Error).Msg("WebSocket chat stream failed")
				return writeFrame(conn, models.WSMessage{Type: "error", ErrorText: "Failed to process chat"})
			}
			if tok.Done {
				return writeFrame(conn, models.WSMessage{Type: "finish"})
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, msg models.WSMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
