package job

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("job not found")

// Job is a reindex run that failed. There is at most one row per user;
// repeated failures bump Retries.
type Job struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Handler   string          `json:"handler"`
	Stage     string          `json:"stage"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
