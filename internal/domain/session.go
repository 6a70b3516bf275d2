package domain

// ChatSession represents a conversation thread. Messages is only populated
// once the transcript has been fetched.
type ChatSession struct {
	ID        ID         `json:"id"`
	Title     string     `json:"title"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
	Messages  []Message  `json:"messages,omitempty"`
}

// Clone returns a copy that shares no message slice with the receiver
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			c.Messages[i] = m.Clone()
		}
	}
	return &c
}

// SessionCreate represents session creation data
type SessionCreate struct {
	Title string `json:"title"`
}

// SessionRename represents a rename request
type SessionRename struct {
	NewTitle string `json:"new_title" validate:"required"`
}
