package http

import (
	"encoding/json"

	"github.com/ieltsdesk/backend/grammar"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type patchSubmissionRequest struct {
	// raw so that non-boolean values can be ignored
	Checked json.RawMessage `json:"checked"`
}

type grammarCheckRequest struct {
	Text string `json:"text"`
}

type grammarCheckResponse struct {
	Matches []grammar.Match `json:"matches"`
	Error   string          `json:"error,omitempty"`
}
