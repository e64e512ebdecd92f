// Package health provides the status document served by the HTTP component
// and decoded by clients.
package health

// Status values.
const (
	StatusOK       = "ok"
	StatusStarting = "starting"
)

// Response is the body of GET /v1/status.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      Node   `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Node describes the running node.
type Node struct {
	ID          string `json:"id"`
	Environment string `json:"environment"`
	DataDir     string `json:"data_dir"`
	StartedAt   string `json:"started_at,omitempty"`
	Uptime      string `json:"uptime"`
	UptimeSec   int64  `json:"uptime_sec"`
}
