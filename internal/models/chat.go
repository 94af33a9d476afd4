package models

import "strings"

// MessagePart is one part of a UI message. Only "text" parts carry content
// the model sees; other part types are ignored.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatMessage mirrors the UI message shape sent by the chat page.
type ChatMessage struct {
	ID      string        `json:"id,omitempty"`
	Role    string        `json:"role"` // "user" | "assistant" | "system"
	Parts   []MessagePart `json:"parts,omitempty"`
	Content string        `json:"content,omitempty"` // legacy single-string form
}

// Text joins the message's text parts, falling back to Content.
func (m ChatMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type != "text" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}
