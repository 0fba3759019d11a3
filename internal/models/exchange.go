package models

import (
	"net/http"
	"time"
)

// Exchange is one request the echo server received and how it answered.
type Exchange struct {
	RequestID string      `json:"request_id"`
	Method    string      `json:"method"`
	Path      string      `json:"path"`
	Headers   http.Header `json:"headers,omitempty"`
	Body      string      `json:"body"`

	StatusCode int       `json:"status_code"`
	ReceivedAt time.Time `json:"received_at"`
}
