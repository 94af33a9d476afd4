package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// uiStream writes the server-sent event framing the chat UI consumes.
type uiStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	textID  string
}

func newUIStream(w http.ResponseWriter) *uiStream {
	flusher, _ := w.(http.Flusher)
	return &uiStream{w: w, flusher: flusher, textID: uuid.NewString()}
}

func (s *uiStream) writeHeaders() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	s.w.WriteHeader(http.StatusOK)
}

func (s *uiStream) event(v map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *uiStream) begin() error {
	if err := s.event(map[string]string{"type": "start", "messageId": uuid.NewString()}); err != nil {
		return err
	}
	if err := s.event(map[string]string{"type": "start-step"}); err != nil {
		return err
	}
	return s.event(map[string]string{"type": "text-start", "id": s.textID})
}

func (s *uiStream) delta(text string) error {
	return s.event(map[string]string{"type": "text-delta", "id": s.textID, "delta": text})
}

func (s *uiStream) finish() error {
	if err := s.event(map[string]string{"type": "text-end", "id": s.textID}); err != nil {
		return err
	}
	if err := s.event(map[string]string{"type": "finish-step"}); err != nil {
		return err
	}
	if err := s.event(map[string]string{"type": "finish"}); err != nil {
		return err
	}
	return s.done()
}

func (s *uiStream) fail(errorText string) error {
	if err := s.event(map[string]string{"type": "error", "errorText": errorText}); err != nil {
		return err
	}
	return s.done()
}

func (s *uiStream) done() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
