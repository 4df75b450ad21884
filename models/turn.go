package models

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session transcript. Turns are never modified after
// they are appended.
type Turn struct {
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	FileInfo *FileInfo `json:"file_info,omitempty"`
}

// FileInfo describes an uploaded file as shown to clients, both in upload
// responses and inside the transcript.
type FileInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Size       string `json:"size"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

// SessionSummary is the diagnostic view of one session.
type SessionSummary struct {
	ID           string `json:"-"`
	MessageCount int    `json:"message_count"`
	LastMessage  string `json:"last_message"`
}
