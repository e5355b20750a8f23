package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidSecret   = "INVALID_SECRET"
	ErrCodeInvalidCallback = "INVALID_CALLBACK_URL"
	ErrCodeWrongRound      = "WRONG_ROUND"
)
