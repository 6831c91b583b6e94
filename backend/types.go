package backend

// UploadResult is the backend's answer to a document upload. SessionID may
// be empty: older backend builds acknowledge the upload without echoing the
// session, in which case the caller keeps the id it sent.
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	SessionID  string `json:"session_id,omitempty"`
}

// SendResult is the backend's answer to a chat turn.
type SendResult struct {
	SessionID string
	Reply     string
}

// SessionSummary is one entry of the remote history listing. It is
// read-only: sourced entirely from the backend and never mutated locally.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	Preview      string `json:"preview"`
	MessageCount int    `json:"message_count"`
}
