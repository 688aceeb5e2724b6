package api

import "time"

// CheckRequest is the body of POST /api/check.
type CheckRequest struct {
	URL      string `json:"url"`
	MaxDepth *int   `json:"maxDepth,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Messages returned to clients. Failure detail only goes to the log.
const (
	rootMessage        = "Link Checker API is running"
	notFoundMessage    = "Sorry, can't find that!"
	panicMessage       = "Something broke!"
	msgURLRequired     = "URL is required"
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidURL      = "URL must be an absolute http(s) URL"
	msgCheckFailed     = "An error occurred while checking links"
	msgServerBusy      = "Server is busy, try again later"
	msgUnknownStrategy = "Unknown strategy"
)
