package models

// API error envelope: {"success": false, "error": {...}}
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	Version      string `json:"version"`
	Provider     string `json:"provider"`
	AIConfigured bool   `json:"aiConfigured"`
	Clients      int    `json:"clients"`
}
