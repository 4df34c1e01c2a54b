package pkg

import "time"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question  string `json:"question"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ChatResponse carries the answer and, for final reports, the PDF reference.
type ChatResponse struct {
	Answer        string   `json:"answer"`
	IsFinalReport bool     `json:"isFinalReport"`
	PDFInfo       *PDFInfo `json:"pdfInfo"`
}

// PDFInfo locates a generated report.
type PDFInfo struct {
	Success bool   `json:"success"`
	PDFPath string `json:"pdfPath"`
	PDFURL  string `json:"pdfUrl"`
}

// PDFReport is one entry of a user's report history.
type PDFReport struct {
	ID          int64     `json:"id"`
	PDFPath     string    `json:"-"`
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"downloadUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PDFHistoryResponse lists the most recent reports of a user.
type PDFHistoryResponse struct {
	Success bool        `json:"success"`
	Reports []PDFReport `json:"reports"`
}

// SessionRequest addresses a conversation without a message.
type SessionRequest struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// UploadResponse is returned after a spreadsheet has been scored.
type UploadResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	SrcFileID  int64              `json:"srcFileId,omitempty"`
	ResultPath string             `json:"resultPath"`
	Summary    map[string]float64 `json:"summary"`
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResponse identifies the logged-in user.
type LoginResponse struct {
	Success bool  `json:"success"`
	UserID  int64 `json:"userId"`
}

// UpdatePromptRequest replaces the system prompt of a conversation.
type UpdatePromptRequest struct {
	SessionRequest
	Prompt string `json:"prompt"`
}

// SwitchModelRequest selects the provider of a conversation.
type SwitchModelRequest struct {
	SessionRequest
	Model string `json:"model"`
}

// StatusResponse is the generic success body.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}
