package domain

import (
	"encoding/json"
	"slices"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageOrigin tells whether a transcript entry came from the server or was
// appended locally after a chat round trip.
type MessageOrigin string

const (
	OriginServer MessageOrigin = "server"
	OriginLocal  MessageOrigin = "local"
)

// ContextUsed describes the retrieval context behind an assistant reply
type ContextUsed struct {
	FilteredDocumentIDs []string        `json:"filtered_document_ids,omitempty"`
	VectorResults       json.RawMessage `json:"vector_results,omitempty"`
	GraphResults        json.RawMessage `json:"graph_results,omitempty"`
}

// Message represents a single transcript entry
type Message struct {
	Sender      MessageRole   `json:"sender"`
	Content     string        `json:"content"`
	ContextUsed *ContextUsed  `json:"context_used,omitempty"`
	Origin      MessageOrigin `json:"origin,omitempty"`
}

// Clone returns a deep copy
func (m Message) Clone() Message {
	if m.ContextUsed != nil {
		cu := *m.ContextUsed
		cu.FilteredDocumentIDs = slices.Clone(cu.FilteredDocumentIDs)
		cu.VectorResults = slices.Clone(cu.VectorResults)
		cu.GraphResults = slices.Clone(cu.GraphResults)
		m.ContextUsed = &cu
	}
	return m
}

// ChatRequest is the body of a chat turn
type ChatRequest struct {
	Query       string   `json:"query" validate:"required"`
	SessionID   ID       `json:"session_id"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// ChatResponse is the assistant reply to a chat turn
type ChatResponse struct {
	Message     string       `json:"message"`
	ContextUsed *ContextUsed `json:"context_used,omitempty"`
	SessionID   ID           `json:"session_id,omitempty"`
}
