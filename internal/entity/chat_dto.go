package entity

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContextQuality string

const (
	ContextQualityNone   ContextQuality = "none"
	ContextQualityLow    ContextQuality = "low"
	ContextQualityMedium ContextQuality = "medium"
	ContextQualityHigh   ContextQuality = "high"
)

// ConversationTurn is one message of the chat transcript sent by the client.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

type ChatRequest struct {
	Messages []ConversationTurn `json:"messages"`
	Image    string             `json:"image,omitempty"`
	County   string             `json:"county,omitempty"`
}

// LastUserTurn returns the latest user message, or nil when there is none.
func (r *ChatRequest) LastUserTurn() *ConversationTurn {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return &r.Messages[i]
		}
	}
	return nil
}

// QueryImage returns the image attached to the request or its latest user turn.
func (r *ChatRequest) QueryImage() string {
	if r.Image != "" {
		return r.Image
	}
	if last := r.LastUserTurn(); last != nil {
		return last.Image
	}
	return ""
}

type Citation struct {
	Document string `json:"document"`
	Pages    string `json:"pages"`
	County   string `json:"county"`
}

type RateLimitInfo struct {
	Limit             int       `json:"limit"`
	RemainingRequests int       `json:"remainingRequests"`
	ResetTime         time.Time `json:"resetTime"`
}

type ChatResponse struct {
	Message           string         `json:"message"`
	County            string         `json:"county"`
	Citations         []Citation     `json:"citations"`
	DocumentsSearched int            `json:"documentsSearched"`
	ContextQuality    ContextQuality `json:"contextQuality"`
	RateLimit         *RateLimitInfo `json:"rateLimit,omitempty"`
}

// RateLimitDecision is the outcome of one rate-limit check.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatDOCX     ExportFormat = "docx"
	FormatPDF      ExportFormat = "pdf"
)

func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

type ExportRequest struct {
	Question  string     `json:"question"`
	Message   string     `json:"message"`
	County    string     `json:"county"`
	Citations []Citation `json:"citations"`
}

type ListCountiesResponse struct {
	Default  string   `json:"default"`
	Counties []County `json:"counties"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

type RateLimitErrorResponse struct {
	Error             string    `json:"error"`
	Message           string    `json:"message"`
	RemainingRequests int       `json:"remainingRequests"`
	ResetTime         time.Time `json:"resetTime"`
	RetryAfter        int       `json:"retryAfter"`
}
