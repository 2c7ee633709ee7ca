package hub

import (
	"encoding/json"
	"time"
)

// Server to client message types.
const (
	TypeRender = "render"
	TypeTitle  = "title"
	TypeClosed = "closed"
	TypeError  = "error"
)

// Client to server message types.
const (
	ClientCloseTab = "close_tab"
	ClientExecute  = "execute"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string          `json:"type"`               // render, title, closed, error
	Seq       int64           `json:"seq"`                // Sequence number for ordering
	Timestamp int64           `json:"timestamp"`          // Unix timestamp in milliseconds
	Tab       string          `json:"tab,omitempty"`      // Tab the message belongs to
	Title     string          `json:"title,omitempty"`    // Tab label for type "title"
	MimeType  string          `json:"mimeType,omitempty"` // Content kind of Data
	Data      json.RawMessage `json:"data,omitempty"`     // Rendered document for type "render"
	Error     string          `json:"error,omitempty"`    // Description for type "error"
}

// NewRenderMessage creates a "render" message carrying a tab's document.
func NewRenderMessage(seq int64, tab, mimeType string, data json.RawMessage) *WSMessage {
	return &WSMessage{
		Type:      TypeRender,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Tab:       tab,
		MimeType:  mimeType,
		Data:      data,
	}
}

// NewTitleMessage creates a "title" message for a relabelled tab.
func NewTitleMessage(seq int64, tab, title string) *WSMessage {
	return &WSMessage{
		Type:      TypeTitle,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Tab:       tab,
		Title:     title,
	}
}

// NewClosedMessage tells clients a tab went away.
func NewClosedMessage(seq int64, tab string) *WSMessage {
	return &WSMessage{
		Type:      TypeClosed,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Tab:       tab,
	}
}

// NewErrorMessage reports a failure to the user.
func NewErrorMessage(seq int64, err error) *WSMessage {
	return &WSMessage{
		Type:      TypeError,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Error:     err.Error(),
	}
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type    string `json:"type"`
	Tab     string `json:"tab,omitempty"`
	Command string `json:"command,omitempty"`
}
