package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/models"
)

const chatFailed = "Failed to process chat"

type chatService interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (<-chan llm.StreamToken, error)
}

type ChatHandler struct {
	svc         chatService
	maxDuration time.Duration
}

func NewChatHandler(svc chatService, maxDuration time.Duration) *ChatHandler {
	return &ChatHandler{svc: svc, maxDuration: maxDuration}
}

// Stream relays the assistant's reply as a UI message stream. Errors before
// the first token are answered with a JSON body; later ones become an error
// event on the stream.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, chatFailed)
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Messages are required")
		return
	}

	ctx := r.Context()
	if h.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxDuration)
		defer cancel()
	}

	tokens, err := h.svc.Chat(ctx, req.Messages)
	if err != nil {
		handleServiceError(w, r, err, chatFailed)
		return
	}

	first, ok := nextToken(ctx, tokens)
	if !ok && ctx.Err() != nil {
		handleServiceError(w, r, ctx.Err(), chatFailed)
		return
	}
	if ok && first.Error != nil && first.Content == "" {
		handleServiceError(w, r, first.Error, chatFailed)
		return
	}

	logger := log.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()
	stream := newUIStream(w)
	stream.writeHeaders()
	if err := stream.begin(); err != nil {
		return
	}

	tok := first
	for {
		if !ok {
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				logger.Warn().Dur("max_duration", h.maxDuration).Msg("chat stream exceeded maximum duration")
				stream.fail("Response exceeded the maximum duration")
			case ctx.Err() == nil:
				stream.finish()
			}
			return
		}
		if tok.Content != "" {
			if err := stream.delta(tok.Content); err != nil {
				return
			}
		}
		if tok.Error != nil {
			logger.Error().Err(tok.Error).Msg("chat stream failed")
			stream.fail(chatFailed)
			return
		}
		if tok.Done {
			stream.finish()
			return
		}
		tok, ok = nextToken(ctx, tokens)
	}
}

// nextToken waits for the next token. ok is false once the channel is closed
// or ctx is done.
func nextToken(ctx context.Context, tokens <-chan llm.StreamToken) (llm.StreamToken, bool) {
	select {
	case tok, ok := <-tokens:
		return tok, ok
	case <-ctx.Done():
		return llm.StreamToken{}, false
	}
}
