package models

import "time"

// Role represents the role of a message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat session.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Sources   []ChunkRef `json:"sources,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChunkRef points back at an indexed chunk used to ground an answer.
type ChunkRef struct {
	Source  string  `json:"source"`
	Page    int     `json:"page,omitempty"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

type Answer struct {
	Text    string
	Sources []ChunkRef
}

// Upload is a file handed in by a front-end, written to the data directory as-is.
type Upload struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// IngestionReport describes the outcome of one ingestion run.
type IngestionReport struct {
	Files       []string
	Chunks      int
	NothingToDo bool
}

func (r *IngestionReport) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Files)
}
